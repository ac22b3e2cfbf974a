package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"levelhub/internal/dto"
	"levelhub/internal/model"
	"levelhub/internal/policy"
	"levelhub/internal/repository"
)

// LessonService 课程业务接口
type LessonService interface {
	Create(ctx context.Context, ident Identity, req *dto.CreateLessonRequest) (*dto.LessonResponse, error)
	GetByID(ctx context.Context, ident Identity, id int64) (*dto.LessonResponse, error)
	// Update 基于 version 的乐观锁更新
	Update(ctx context.Context, ident Identity, id int64, req *dto.UpdateLessonRequest) (*dto.LessonResponse, error)
	// Delete 软删除，之后所有生命周期动作视该课程为不存在
	Delete(ctx context.Context, ident Identity, id int64) error
	ListMine(ctx context.Context, ident Identity) (*dto.MyLessonsResponse, error)
	Search(ctx context.Context, req *dto.LessonSearchRequest) ([]dto.LessonResponse, int64, error)
}

type lessonService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewLessonService 创建 LessonService 实例
func NewLessonService(repo *repository.Repository, logger *zap.Logger) LessonService {
	return &lessonService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *lessonService) Create(ctx context.Context, ident Identity, req *dto.CreateLessonRequest) (*dto.LessonResponse, error) {
	teacher, err := s.repo.User.GetByID(ctx, ident.UserID)
	if err != nil {
		s.logger.Error("查询教师失败", zap.Int64("user_id", ident.UserID), zap.Error(err))
		return nil, err
	}

	lesson := &model.Lesson{
		TeacherID:      ident.UserID,
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		Status:         model.LessonActive,
		Data:           req.Data,
		VersionedModel: model.VersionedModel{Version: 1},
	}
	if err := s.repo.Lesson.Create(ctx, lesson); err != nil {
		s.logger.Error("创建课程失败", zap.Error(err))
		return nil, err
	}
	lesson.Teacher = teacher

	resp := toLessonResponse(lesson, 0)
	return &resp, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *lessonService) GetByID(ctx context.Context, ident Identity, id int64) (*dto.LessonResponse, error) {
	lesson, err := loadLesson(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.LessonReg.CountActiveByLessons(ctx, []int64{lesson.ID})
	if err != nil {
		s.logger.Error("统计注册数失败", zap.Int64("lesson_id", id), zap.Error(err))
		return nil, err
	}
	resp := toLessonResponse(lesson, counts[lesson.ID])
	return &resp, nil
}

// ────────────────────── Update ──────────────────────

func (s *lessonService) Update(ctx context.Context, ident Identity, id int64, req *dto.UpdateLessonRequest) (*dto.LessonResponse, error) {
	lesson, err := loadLesson(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, ident, policy.ActionLessonUpdate, lesson); err != nil {
		return nil, err
	}

	if req.Name != nil {
		lesson.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		lesson.Description = *req.Description
	}
	if req.Status != nil {
		lesson.Status = model.LessonStatus(*req.Status)
	}
	if req.Data != nil {
		lesson.Data = req.Data
	}
	// 以客户端持有的版本号作为乐观锁条件
	lesson.Version = req.Version

	if err := s.repo.Lesson.Update(ctx, lesson); err != nil {
		s.logger.Warn("更新课程失败", zap.Int64("lesson_id", id), zap.Error(err))
		return nil, err
	}

	return s.GetByID(ctx, ident, id)
}

// ────────────────────── Delete ──────────────────────

func (s *lessonService) Delete(ctx context.Context, ident Identity, id int64) error {
	return runInTx(ctx, s.repo, s.logger, func(tx *repository.Repository) error {
		lesson, err := lockLesson(ctx, tx, id)
		if err != nil {
			return err
		}
		role, err := RoleOfLesson(ctx, tx, ident, lesson)
		if err != nil {
			return err
		}
		if !policy.Allow(policy.ActionLessonDelete, policy.Subject{Role: role}) {
			return ErrNotLessonManager
		}

		lesson.Status = model.LessonDeleted
		if err := tx.Lesson.Update(ctx, lesson); err != nil {
			s.logger.Error("删除课程失败", zap.Int64("lesson_id", id), zap.Error(err))
			return err
		}
		s.logger.Info("课程已删除", zap.Int64("lesson_id", id), zap.Int64("operator_id", ident.UserID))
		return nil
	})
}

// ────────────────────── ListMine ──────────────────────

// ListMine 我教授的课程与我作为有效学生参加的课程
func (s *lessonService) ListMine(ctx context.Context, ident Identity) (*dto.MyLessonsResponse, error) {
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

	var study []*model.Lesson
	ids := make([]int64, 0, len(teach)+len(regs))
	for i := range teach {
		ids = append(ids, teach[i].ID)
	}
	for i := range regs {
		if l := regs[i].Lesson; l != nil && !l.IsDeleted() {
			study = append(study, l)
			ids = append(ids, l.ID)
		}
	}

	counts, err := s.repo.LessonReg.CountActiveByLessons(ctx, normalizeIDs(ids))
	if err != nil {
		s.logger.Error("统计注册数失败", zap.Error(err))
		return nil, err
	}

	result := &dto.MyLessonsResponse{
		Teach: make([]dto.LessonResponse, 0, len(teach)),
		Study: make([]dto.LessonResponse, 0, len(study)),
	}
	for i := range teach {
		result.Teach = append(result.Teach, toLessonResponse(&teach[i], counts[teach[i].ID]))
	}
	for _, l := range study {
		result.Study = append(result.Study, toLessonResponse(l, counts[l.ID]))
	}
	return result, nil
}

// ────────────────────── Search ──────────────────────

func (s *lessonService) Search(ctx context.Context, req *dto.LessonSearchRequest) ([]dto.LessonResponse, int64, error) {
	lessons, total, err := s.repo.Lesson.Search(ctx, req.Q, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("搜索课程失败", zap.Error(err))
		return nil, 0, err
	}

	ids := make([]int64, len(lessons))
	for i := range lessons {
		ids[i] = lessons[i].ID
	}
	counts, err := s.repo.LessonReg.CountActiveByLessons(ctx, ids)
	if err != nil {
		s.logger.Error("统计注册数失败", zap.Error(err))
		return nil, 0, err
	}

	list := make([]dto.LessonResponse, 0, len(lessons))
	for i := range lessons {
		list = append(list, toLessonResponse(&lessons[i], counts[lessons[i].ID]))
	}
	return list, total, nil
}

func (s *lessonService) authorize(ctx context.Context, ident Identity, action policy.Action, lesson *model.Lesson) error {
	role, err := RoleOfLesson(ctx, s.repo, ident, lesson)
	if err != nil {
		return err
	}
	if !policy.Allow(action, policy.Subject{Role: role}) {
		return ErrNotLessonManager
	}
	return nil
}
