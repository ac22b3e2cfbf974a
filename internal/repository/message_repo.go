package repository

import (
	"context"

	"gorm.io/gorm"

	"levelhub/internal/model"
)

// MessageRepository 课程消息数据访问接口
type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	BatchCreateLessonMessages(ctx context.Context, lms []model.LessonMessage) error
	GetByID(ctx context.Context, id int64) (*model.Message, error)
	// ListByLessons 列出投递到指定课程的消息关联，按消息 id 倒序
	ListByLessons(ctx context.Context, lessonIDs []int64) ([]model.LessonMessage, error)
	Delete(ctx context.Context, id int64) error
}

type messageRepo struct {
	db *gorm.DB
}

// NewMessageRepo 创建 MessageRepository 实例
func NewMessageRepo(db *gorm.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) Create(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *messageRepo) BatchCreateLessonMessages(ctx context.Context, lms []model.LessonMessage) error {
	if len(lms) == 0 {
		return nil
	}
	return translateError(r.db.WithContext(ctx).Create(&lms).Error)
}

func (r *messageRepo) GetByID(ctx context.Context, id int64) (*model.Message, error) {
	var msg model.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("id = ?", id).
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepo) ListByLessons(ctx context.Context, lessonIDs []int64) ([]model.LessonMessage, error) {
	var lms []model.LessonMessage
	if len(lessonIDs) == 0 {
		return lms, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Message").
		Preload("Message.Sender").
		Preload("Lesson").
		Where("lesson_id IN ?", lessonIDs).
		Order("message_id DESC, lesson_id ASC").
		Find(&lms).Error
	return lms, err
}

// Delete 删除消息及其课程关联
func (r *messageRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&model.LessonMessage{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Message{}).Error
	})
}
