package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"levelhub/internal/dto"
	"levelhub/internal/model"
	"levelhub/internal/policy"
	"levelhub/internal/repository"
	pkgerrors "levelhub/pkg/errors"
)

// ── 课程消息模块业务错误 ──

var (
	ErrMessageNotFound = pkgerrors.NotFound(40406, "消息不存在")
	ErrNotMessageOwner = pkgerrors.Forbidden(40307, "只有发送者或管理员可以删除消息")
)

// MessageService 课程消息业务接口
type MessageService interface {
	// Post 向多个课程发布同一条消息；调用者必须是每个课程的成员
	Post(ctx context.Context, ident Identity, req *dto.PostMessageRequest) (*dto.MessageResponse, error)
	Delete(ctx context.Context, ident Identity, id int64) error
	// List 我教授或学习的课程中的消息，按时间倒序
	List(ctx context.Context, ident Identity) ([]dto.MessageResponse, error)
}

type messageService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewMessageService 创建 MessageService 实例
func NewMessageService(repo *repository.Repository, logger *zap.Logger) MessageService {
	return &messageService{repo: repo, logger: logger}
}

// ────────────────────── Post ──────────────────────

func (s *messageService) Post(ctx context.Context, ident Identity, req *dto.PostMessageRequest) (*dto.MessageResponse, error) {
	ids := normalizeIDs(req.LessonIDs)
	if len(ids) == 0 {
		return nil, ErrMissingLessons
	}

	sender, err := s.repo.User.GetByID(ctx, ident.UserID)
	if err != nil {
		s.logger.Error("查询发送者失败", zap.Int64("user_id", ident.UserID), zap.Error(err))
		return nil, err
	}

	msg := &model.Message{
		SenderID: ident.UserID,
		Body:     strings.TrimSpace(req.Body),
		Data:     req.Data,
	}
	var lessons []*model.Lesson
	err = runInTx(ctx, s.repo, s.logger, func(tx *repository.Repository) error {
		// 全部课程检查通过后才写入，避免留下孤立消息
		for _, id := range ids {
			lesson, err := loadLesson(ctx, tx, id)
			if err != nil {
				return err
			}
			role, err := RoleOfLesson(ctx, tx, ident, lesson)
			if err != nil {
				return err
			}
			if !policy.Allow(policy.ActionMessagePost, policy.Subject{Role: role}) {
				return ErrNoLessonRole
			}
			lessons = append(lessons, lesson)
		}

		if err := tx.Message.Create(ctx, msg); err != nil {
			s.logger.Error("创建消息失败", zap.Error(err))
			return err
		}
		links := make([]model.LessonMessage, 0, len(lessons))
		for _, l := range lessons {
			links = append(links, model.LessonMessage{LessonID: l.ID, MessageID: msg.ID})
		}
		if err := tx.Message.BatchCreateLessonMessages(ctx, links); err != nil {
			s.logger.Error("创建消息课程关联失败", zap.Int64("message_id", msg.ID), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	msg.Sender = sender
	resp := toMessageResponse(msg, lessons)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *messageService) Delete(ctx context.Context, ident Identity, id int64) error {
	msg, err := s.repo.Message.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		s.logger.Error("查询消息失败", zap.Int64("id", id), zap.Error(err))
		return err
	}

	subject := policy.Subject{}
	if msg.SenderID == ident.UserID {
		subject.Relations |= policy.RelSender
	}
	if ident.IsAdmin {
		subject.Relations |= policy.RelAdmin
	}
	if !policy.Allow(policy.ActionMessageDelete, subject) {
		return ErrNotMessageOwner
	}

	if err := s.repo.Message.Delete(ctx, id); err != nil {
		s.logger.Error("删除消息失败", zap.Int64("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── List ──────────────────────

func (s *messageService) List(ctx context.Context, ident Identity) ([]dto.MessageResponse, error) {
	teach, err := s.repo.Lesson.ListByTeacher(ctx, ident.UserID)
	if err != nil {
		s.logger.Error("查询教授课程失败", zap.Int64("user_id", ident.UserID), zap.Error(err))
		return nil, err
	}
	regs, err := s.repo.LessonReg.ListActiveByStudent(ctx, ident.UserID)
	if err != nil {
		s.logger.Error("查询学习课程失败", zap.Int64("user_id", ident.UserID), zap.Error(err))
		return nil, err
	}

	ids := make([]int64, 0, len(teach)+len(regs))
	for i := range teach {
		ids = append(ids, teach[i].ID)
	}
	for i := range regs {
		if l := regs[i].Lesson; l != nil && !l.IsDeleted() {
			ids = append(ids, l.ID)
		}
	}

	links, err := s.repo.Message.ListByLessons(ctx, normalizeIDs(ids))
	if err != nil {
		s.logger.Error("查询课程消息失败", zap.Int64("user_id", ident.UserID), zap.Error(err))
		return nil, err
	}

	// 关联按消息 id 倒序返回，同一消息的多个课程相邻
	result := make([]dto.MessageResponse, 0)
	index := make(map[int64]int)
	for i := range links {
		link := &links[i]
		if link.Message == nil {
			continue
		}
		pos, ok := index[link.MessageID]
		if !ok {
			result = append(result, toMessageResponse(link.Message, nil))
			pos = len(result) - 1
			index[link.MessageID] = pos
		}
		if link.Lesson != nil {
			result[pos].Lessons = append(result[pos].Lessons, toLessonBrief(link.Lesson))
		}
	}
	return result, nil
}

func toMessageResponse(m *model.Message, lessons []*model.Lesson) dto.MessageResponse {
	resp := dto.MessageResponse{
		ID:        m.ID,
		Sender:    toUserBrief(m.Sender),
		Body:      m.Body,
		Data:      m.Data,
		CreatedAt: m.CreatedAt.UTC().Format(dto.TimeLayout),
		Lessons:   make([]dto.LessonBrief, 0, len(lessons)),
	}
	for _, l := range lessons {
		resp.Lessons = append(resp.Lessons, toLessonBrief(l))
	}
	return resp
}
