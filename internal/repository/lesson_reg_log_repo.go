package repository

import (
	"context"

	"gorm.io/gorm"

	"levelhub/internal/model"
)

// regLogBatchSize 批量插入课时记录的单批大小
const regLogBatchSize = 100

// LessonRegLogRepository 课时记录数据访问接口
type LessonRegLogRepository interface {
	BatchCreate(ctx context.Context, logs []model.LessonRegLog) error
	GetByID(ctx context.Context, id int64) (*model.LessonRegLog, error)
	ListByReg(ctx context.Context, regID int64) ([]model.LessonRegLog, error)
	// StatsByRegs 统计每个注册的课时总数与未使用数
	StatsByRegs(ctx context.Context, regIDs []int64) (map[int64]model.RegLogStats, error)
	Update(ctx context.Context, log *model.LessonRegLog) error
	Delete(ctx context.Context, id int64) error
}

type lessonRegLogRepo struct {
	db *gorm.DB
}

// NewLessonRegLogRepo 创建 LessonRegLogRepository 实例
func NewLessonRegLogRepo(db *gorm.DB) LessonRegLogRepository {
	return &lessonRegLogRepo{db: db}
}

func (r *lessonRegLogRepo) BatchCreate(ctx context.Context, logs []model.LessonRegLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&logs, regLogBatchSize).Error
}

func (r *lessonRegLogRepo) GetByID(ctx context.Context, id int64) (*model.LessonRegLog, error) {
	var log model.LessonRegLog
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&log).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *lessonRegLogRepo) ListByReg(ctx context.Context, regID int64) ([]model.LessonRegLog, error) {
	var logs []model.LessonRegLog
	err := r.db.WithContext(ctx).
		Where("lesson_reg_id = ?", regID).
		Order("id ASC").
		Find(&logs).Error
	return logs, err
}

func (r *lessonRegLogRepo) StatsByRegs(ctx context.Context, regIDs []int64) (map[int64]model.RegLogStats, error) {
	stats := make(map[int64]model.RegLogStats, len(regIDs))
	if len(regIDs) == 0 {
		return stats, nil
	}

	var rows []model.RegLogStats
	err := r.db.WithContext(ctx).
		Model(&model.LessonRegLog{}).
		Select("lesson_reg_id, COUNT(*) AS total, COUNT(*) FILTER (WHERE use_time IS NULL) AS unused").
		Where("lesson_reg_id IN ?", regIDs).
		Group("lesson_reg_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats[row.LessonRegID] = row
	}
	return stats, nil
}

func (r *lessonRegLogRepo) Update(ctx context.Context, log *model.LessonRegLog) error {
	return r.db.WithContext(ctx).
		Model(&model.LessonRegLog{}).
		Where("id = ?", log.ID).
		Updates(map[string]interface{}{
			"use_time":   log.UseTime,
			"data":       log.Data,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *lessonRegLogRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.LessonRegLog{}).Error
}
