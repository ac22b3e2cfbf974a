package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"levelhub/internal/model"
)

// LessonRequestRepository 课程请求数据访问接口
type LessonRequestRepository interface {
	// Create 违反待处理请求唯一约束时返回 ErrDuplicateKey
	Create(ctx context.Context, req *model.LessonRequest) error
	GetByID(ctx context.Context, id int64) (*model.LessonRequest, error)
	// GetByIDForUpdate 行级锁读取，必须在事务连接上调用
	GetByIDForUpdate(ctx context.Context, id int64) (*model.LessonRequest, error)
	ExistsPending(ctx context.Context, senderID, receiverID, lessonID int64) (bool, error)
	// ListVisible 列出对用户可见的请求，按 id 倒序
	ListVisible(ctx context.Context, userID int64) ([]model.LessonRequest, error)
	MarkRead(ctx context.Context, ids []int64) error
	CountNotices(ctx context.Context, userID int64) (int64, error)
	// Transition 仅当当前状态为 from 时更新为 to 并置为未读；否则返回 ErrNoRowsAffected
	Transition(ctx context.Context, id int64, from, to model.RequestStatus) error
	Delete(ctx context.Context, id int64) error
}

type lessonRequestRepo struct {
	db *gorm.DB
}

// NewLessonRequestRepo 创建 LessonRequestRepository 实例
func NewLessonRequestRepo(db *gorm.DB) LessonRequestRepository {
	return &lessonRequestRepo{db: db}
}

func (r *lessonRequestRepo) Create(ctx context.Context, req *model.LessonRequest) error {
	return translateError(r.db.WithContext(ctx).Create(req).Error)
}

func (r *lessonRequestRepo) GetByID(ctx context.Context, id int64) (*model.LessonRequest, error) {
	var req model.LessonRequest
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Receiver").
		Preload("Lesson").
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *lessonRequestRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.LessonRequest, error) {
	var req model.LessonRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *lessonRequestRepo) ExistsPending(ctx context.Context, senderID, receiverID, lessonID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.LessonRequest{}).
		Where("sender_id = ? AND receiver_id = ? AND lesson_id = ? AND status IN ?",
			senderID, receiverID, lessonID, model.PendingStatuses).
		Count(&n).Error
	return n > 0, err
}

func (r *lessonRequestRepo) ListVisible(ctx context.Context, userID int64) ([]model.LessonRequest, error) {
	var reqs []model.LessonRequest
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Receiver").
		Preload("Lesson").
		Where("(receiver_id = ? AND status IN ?) OR (sender_id = ? AND status IN ?)",
			userID, model.ReceiverViewableStatuses, userID, model.SenderViewableStatuses).
		Order("id DESC").
		Find(&reqs).Error
	return reqs, err
}

func (r *lessonRequestRepo) MarkRead(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.LessonRequest{}).
		Where("id IN ? AND is_new = ?", ids, true).
		Updates(map[string]interface{}{
			"is_new":     false,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *lessonRequestRepo) CountNotices(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.LessonRequest{}).
		Where("is_new = ?", true).
		Where("(receiver_id = ? AND status IN ?) OR (sender_id = ? AND status IN ?)",
			userID, model.ReceiverNoticeStatuses, userID, model.SenderNoticeStatuses).
		Count(&n).Error
	return n, err
}

func (r *lessonRequestRepo) Transition(ctx context.Context, id int64, from, to model.RequestStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.LessonRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"is_new":     true,
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

func (r *lessonRequestRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.LessonRequest{}).Error
}
