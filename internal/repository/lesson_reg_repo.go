package repository

import (
	"context"

	"gorm.io/gorm"

	"levelhub/internal/model"
)

// LessonRegRepository 课程注册数据访问接口
type LessonRegRepository interface {
	// Create 违反 active 唯一约束时返回 ErrDuplicateKey
	Create(ctx context.Context, reg *model.LessonReg) error
	GetByID(ctx context.Context, id int64) (*model.LessonReg, error)
	GetActive(ctx context.Context, lessonID, studentID int64) (*model.LessonReg, error)
	ListByLesson(ctx context.Context, lessonID int64) ([]model.LessonReg, error)
	ListActiveByStudent(ctx context.Context, studentID int64) ([]model.LessonReg, error)
	CountActiveByLessons(ctx context.Context, lessonIDs []int64) (map[int64]int64, error)
	UpdateStatus(ctx context.Context, id int64, status model.RegStatus) error
	UpdateDetails(ctx context.Context, reg *model.LessonReg) error
}

type lessonRegRepo struct {
	db *gorm.DB
}

// NewLessonRegRepo 创建 LessonRegRepository 实例
func NewLessonRegRepo(db *gorm.DB) LessonRegRepository {
	return &lessonRegRepo{db: db}
}

func (r *lessonRegRepo) Create(ctx context.Context, reg *model.LessonReg) error {
	return translateError(r.db.WithContext(ctx).Create(reg).Error)
}

func (r *lessonRegRepo) GetByID(ctx context.Context, id int64) (*model.LessonReg, error) {
	var reg model.LessonReg
	err := r.db.WithContext(ctx).
		Preload("Lesson").
		Preload("Student").
		Where("id = ?", id).
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *lessonRegRepo) GetActive(ctx context.Context, lessonID, studentID int64) (*model.LessonReg, error) {
	var reg model.LessonReg
	err := r.db.WithContext(ctx).
		Where("lesson_id = ? AND student_id = ? AND status = ?", lessonID, studentID, model.RegActive).
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// ListByLesson 列出课程下未删除的注册
func (r *lessonRegRepo) ListByLesson(ctx context.Context, lessonID int64) ([]model.LessonReg, error) {
	var regs []model.LessonReg
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("lesson_id = ? AND status <> ?", lessonID, model.RegDeleted).
		Order("id ASC").
		Find(&regs).Error
	return regs, err
}

func (r *lessonRegRepo) ListActiveByStudent(ctx context.Context, studentID int64) ([]model.LessonReg, error) {
	var regs []model.LessonReg
	err := r.db.WithContext(ctx).
		Preload("Lesson").
		Preload("Lesson.Teacher").
		Where("student_id = ? AND status = ?", studentID, model.RegActive).
		Order("id ASC").
		Find(&regs).Error
	return regs, err
}

func (r *lessonRegRepo) CountActiveByLessons(ctx context.Context, lessonIDs []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(lessonIDs))
	if len(lessonIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		LessonID int64
		N        int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.LessonReg{}).
		Select("lesson_id, COUNT(*) AS n").
		Where("lesson_id IN ? AND status = ?", lessonIDs, model.RegActive).
		Group("lesson_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.LessonID] = row.N
	}
	return counts, nil
}

func (r *lessonRegRepo) UpdateStatus(ctx context.Context, id int64, status model.RegStatus) error {
	return r.db.WithContext(ctx).
		Model(&model.LessonReg{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}

// UpdateDetails 仅更新可变字段（daytimes/data），学生与课程在创建后不可变
func (r *lessonRegRepo) UpdateDetails(ctx context.Context, reg *model.LessonReg) error {
	return r.db.WithContext(ctx).
		Model(&model.LessonReg{}).
		Where("id = ?", reg.ID).
		Updates(map[string]interface{}{
			"daytimes":   reg.Daytimes,
			"data":       reg.Data,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}
