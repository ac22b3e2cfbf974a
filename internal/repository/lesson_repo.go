package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"levelhub/internal/model"
	pkgerrors "levelhub/pkg/errors"
)

// LessonRepository 课程数据访问接口
type LessonRepository interface {
	Create(ctx context.Context, lesson *model.Lesson) error
	GetByID(ctx context.Context, id int64) (*model.Lesson, error)
	// GetByIDForUpdate 使用 SELECT ... FOR UPDATE 锁定课程行，串行化同一课程上的生命周期操作
	// 必须在事务连接上调用（通过 Repository.WithTx 注入）
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Lesson, error)
	ListByIDs(ctx context.Context, ids []int64) ([]model.Lesson, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]model.Lesson, error)
	Search(ctx context.Context, phrase string, offset, limit int) ([]model.Lesson, int64, error)
	Update(ctx context.Context, lesson *model.Lesson) error
}

type lessonRepo struct {
	db *gorm.DB
}

// NewLessonRepo 创建 LessonRepository 实例
func NewLessonRepo(db *gorm.DB) LessonRepository {
	return &lessonRepo{db: db}
}

func (r *lessonRepo) Create(ctx context.Context, lesson *model.Lesson) error {
	return r.db.WithContext(ctx).Create(lesson).Error
}

func (r *lessonRepo) GetByID(ctx context.Context, id int64) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.db.WithContext(ctx).
		Preload("Teacher").
		Where("id = ?", id).
		First(&lesson).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *lessonRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&lesson).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *lessonRepo) ListByIDs(ctx context.Context, ids []int64) ([]model.Lesson, error) {
	var lessons []model.Lesson
	if len(ids) == 0 {
		return lessons, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Teacher").
		Where("id IN ? AND status <> ?", ids, model.LessonDeleted).
		Order("id ASC").
		Find(&lessons).Error
	return lessons, err
}

func (r *lessonRepo) ListByTeacher(ctx context.Context, teacherID int64) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.db.WithContext(ctx).
		Preload("Teacher").
		Where("teacher_id = ? AND status <> ?", teacherID, model.LessonDeleted).
		Order("id ASC").
		Find(&lessons).Error
	return lessons, err
}

func (r *lessonRepo) Search(ctx context.Context, phrase string, offset, limit int) ([]model.Lesson, int64, error) {
	var lessons []model.Lesson
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Lesson{}).
		Where("status = ?", model.LessonActive)
	if phrase = strings.TrimSpace(phrase); phrase != "" {
		db = db.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(phrase)+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Teacher").
		Offset(offset).Limit(limit).
		Order("id DESC").
		Find(&lessons).Error
	return lessons, total, err
}

// Update 基于 version 的乐观锁更新
func (r *lessonRepo) Update(ctx context.Context, lesson *model.Lesson) error {
	oldVersion := lesson.Version
	result := r.db.WithContext(ctx).
		Model(lesson).
		Where("id = ? AND version = ?", lesson.ID, oldVersion).
		Updates(map[string]interface{}{
			"name":        lesson.Name,
			"description": lesson.Description,
			"status":      lesson.Status,
			"data":        lesson.Data,
			"version":     oldVersion + 1,
			"updated_at":  gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	lesson.Version = oldVersion + 1
	return nil
}
