package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"levelhub/internal/dto"
	"levelhub/internal/model"
	"levelhub/internal/policy"
	"levelhub/internal/repository"
	pkgerrors "levelhub/pkg/errors"
)

// ── 注册与课时模块业务错误 ──

var (
	ErrRegNotFound    = pkgerrors.NotFound(40404, "注册不存在")
	ErrRegLogNotFound = pkgerrors.NotFound(40405, "课时记录不存在")
	ErrRegLogDenied   = pkgerrors.Forbidden(40306, "无权查看该注册的课时")
)

// RegistrationService 注册与课时管理
type RegistrationService interface {
	// List 管理者看到全部注册及课时统计，学生只看到自己的有效注册
	List(ctx context.Context, ident Identity, lessonID int64) ([]dto.RegistrationResponse, error)
	// Update 更新 daytimes/data，并可在同一事务中增改删课时
	Update(ctx context.Context, ident Identity, regID int64, req *dto.UpdateRegistrationRequest) (*dto.UpdateRegistrationResponse, error)
	Delete(ctx context.Context, ident Identity, regID int64) error

	ListLogs(ctx context.Context, ident Identity, regID int64) ([]dto.RegLogResponse, error)
	CreateLogs(ctx context.Context, ident Identity, regID int64, req *dto.CreateRegLogsRequest) ([]dto.RegLogResponse, error)
	UpdateLog(ctx context.Context, ident Identity, logID int64, req *dto.UpdateRegLogRequest) (*dto.RegLogResponse, error)
	DeleteLog(ctx context.Context, ident Identity, logID int64) error
}

type registrationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewRegistrationService 创建 RegistrationService 实例
func NewRegistrationService(repo *repository.Repository, logger *zap.Logger) RegistrationService {
	return &registrationService{repo: repo, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *registrationService) List(ctx context.Context, ident Identity, lessonID int64) ([]dto.RegistrationResponse, error) {
	lesson, err := loadLesson(ctx, s.repo, lessonID)
	if err != nil {
		return nil, err
	}
	role, err := RoleOfLesson(ctx, s.repo, ident, lesson)
	if err != nil {
		return nil, err
	}
	if !policy.Allow(policy.ActionRegList, policy.Subject{Role: role}) {
		return nil, ErrNoLessonRole
	}

	regs, err := s.repo.LessonReg.ListByLesson(ctx, lesson.ID)
	if err != nil {
		s.logger.Error("查询课程注册失败", zap.Int64("lesson_id", lesson.ID), zap.Error(err))
		return nil, err
	}

	manager := role == policy.RoleManager
	var stats map[int64]model.RegLogStats
	if manager {
		ids := make([]int64, len(regs))
		for i := range regs {
			ids[i] = regs[i].ID
		}
		if stats, err = s.repo.LessonRegLog.StatsByRegs(ctx, ids); err != nil {
			s.logger.Error("统计课时失败", zap.Int64("lesson_id", lesson.ID), zap.Error(err))
			return nil, err
		}
	}

	result := make([]dto.RegistrationResponse, 0, len(regs))
	for i := range regs {
		reg := &regs[i]
		if !manager && !(reg.IsStudent(ident.UserID) && reg.Status == model.RegActive) {
			continue
		}
		resp := toRegistrationResponse(reg)
		if manager {
			st := stats[reg.ID]
			total, unused := st.Total, st.Unused
			resp.Total, resp.Unused = &total, &unused
		}
		result = append(result, resp)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return strings.ToLower(result[i].DisplayName) < strings.ToLower(result[j].DisplayName)
	})
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *registrationService) Update(ctx context.Context, ident Identity, regID int64, req *dto.UpdateRegistrationRequest) (*dto.UpdateRegistrationResponse, error) {
	var reg *model.LessonReg
	err := runInTx(ctx, s.repo, s.logger, func(tx *repository.Repository) error {
		var lesson *model.Lesson
		var err error
		reg, lesson, err = lockRegLesson(ctx, tx, regID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, tx, ident, policy.ActionRegUpdate, reg, lesson); err != nil {
			return err
		}

		// 先确认所有被引用的课时都属于该注册，再开始写入
		var updates []*model.LessonRegLog
		var deletes []int64
		if req.Logs != nil {
			for _, item := range req.Logs.Update {
				log, err := s.ownedLog(ctx, tx, reg.ID, item.LogID)
				if err != nil {
					return err
				}
				applyLogChange(log, item.UseTime, item.ClearUseTime, item.Data)
				updates = append(updates, log)
			}
			for _, id := range req.Logs.Delete {
				if _, err := s.ownedLog(ctx, tx, reg.ID, id); err != nil {
					return err
				}
				deletes = append(deletes, id)
			}
		}

		if req.Daytimes != nil {
			reg.Daytimes = *req.Daytimes
		}
		if req.Data != nil {
			reg.Data = req.Data
		}
		if req.Daytimes != nil || req.Data != nil {
			if err := tx.LessonReg.UpdateDetails(ctx, reg); err != nil {
				s.logger.Error("更新注册失败", zap.Int64("reg_id", reg.ID), zap.Error(err))
				return err
			}
		}

		if req.Logs == nil {
			return nil
		}
		if err := tx.LessonRegLog.BatchCreate(ctx, newLogs(reg.ID, req.Logs.Create)); err != nil {
			s.logger.Error("批量创建课时失败", zap.Int64("reg_id", reg.ID), zap.Error(err))
			return err
		}
		for _, log := range updates {
			if err := tx.LessonRegLog.Update(ctx, log); err != nil {
				s.logger.Error("更新课时失败", zap.Int64("log_id", log.ID), zap.Error(err))
				return err
			}
		}
		for _, id := range deletes {
			if err := tx.LessonRegLog.Delete(ctx, id); err != nil {
				s.logger.Error("删除课时失败", zap.Int64("log_id", id), zap.Error(err))
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logs, err := s.repo.LessonRegLog.ListByReg(ctx, reg.ID)
	if err != nil {
		s.logger.Error("查询课时失败", zap.Int64("reg_id", reg.ID), zap.Error(err))
		return nil, err
	}
	return &dto.UpdateRegistrationResponse{
		Registration: toRegistrationResponse(reg),
		Logs:         toRegLogResponses(logs),
	}, nil
}

// ────────────────────── Delete ──────────────────────

// Delete 软删除注册
func (s *registrationService) Delete(ctx context.Context, ident Identity, regID int64) error {
	return runInTx(ctx, s.repo, s.logger, func(tx *repository.Repository) error {
		reg, lesson, err := lockRegLesson(ctx, tx, regID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, tx, ident, policy.ActionRegDelete, reg, lesson); err != nil {
			return err
		}
		if err := tx.LessonReg.UpdateStatus(ctx, reg.ID, model.RegDeleted); err != nil {
			s.logger.Error("删除注册失败", zap.Int64("reg_id", reg.ID), zap.Error(err))
			return err
		}
		return nil
	})
}

// ────────────────────── Logs ──────────────────────

// ListLogs 课程管理者或注册学生本人可查看，按 id 升序
func (s *registrationService) ListLogs(ctx context.Context, ident Identity, regID int64) ([]dto.RegLogResponse, error) {
	reg, lesson, err := loadReg(ctx, s.repo, regID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, s.repo, ident, policy.ActionRegLogRead, reg, lesson); err != nil {
		return nil, err
	}

	logs, err := s.repo.LessonRegLog.ListByReg(ctx, reg.ID)
	if err != nil {
		s.logger.Error("查询课时失败", zap.Int64("reg_id", reg.ID), zap.Error(err))
		return nil, err
	}
	return toRegLogResponses(logs), nil
}

func (s *registrationService) CreateLogs(ctx context.Context, ident Identity, regID int64, req *dto.CreateRegLogsRequest) ([]dto.RegLogResponse, error) {
	logs := newLogs(regID, req.Logs)
	err := runInTx(ctx, s.repo, s.logger, func(tx *repository.Repository) error {
		reg, lesson, err := lockRegLesson(ctx, tx, regID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, tx, ident, policy.ActionRegLogWrite, reg, lesson); err != nil {
			return err
		}
		if err := tx.LessonRegLog.BatchCreate(ctx, logs); err != nil {
			s.logger.Error("批量创建课时失败", zap.Int64("reg_id", reg.ID), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// BatchCreate 与调用方共享底层数组，主键已回填
	return toRegLogResponses(logs), nil
}

func (s *registrationService) UpdateLog(ctx context.Context, ident Identity, logID int64, req *dto.UpdateRegLogRequest) (*dto.RegLogResponse, error) {
	var updated *model.LessonRegLog
	err := runInTx(ctx, s.repo, s.logger, func(tx *repository.Repository) error {
		log, reg, lesson, err := s.lockLog(ctx, tx, logID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, tx, ident, policy.ActionRegLogWrite, reg, lesson); err != nil {
			return err
		}
		applyLogChange(log, req.UseTime, req.ClearUseTime, req.Data)
		if err := tx.LessonRegLog.Update(ctx, log); err != nil {
			s.logger.Error("更新课时失败", zap.Int64("log_id", log.ID), zap.Error(err))
			return err
		}
		updated = log
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := toRegLogResponse(updated)
	return &resp, nil
}

func (s *registrationService) DeleteLog(ctx context.Context, ident Identity, logID int64) error {
	return runInTx(ctx, s.repo, s.logger, func(tx *repository.Repository) error {
		log, reg, lesson, err := s.lockLog(ctx, tx, logID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, tx, ident, policy.ActionRegLogWrite, reg, lesson); err != nil {
			return err
		}
		if err := tx.LessonRegLog.Delete(ctx, log.ID); err != nil {
			s.logger.Error("删除课时失败", zap.Int64("log_id", log.ID), zap.Error(err))
			return err
		}
		return nil
	})
}

// ────────────────────── 内部方法 ──────────────────────

// authorize 按策略表判定 ident 能否对该注册执行 action
func (s *registrationService) authorize(ctx context.Context, repo *repository.Repository, ident Identity, action policy.Action, reg *model.LessonReg, lesson *model.Lesson) error {
	role, err := RoleOfLesson(ctx, repo, ident, lesson)
	if err != nil {
		return err
	}
	subject := policy.Subject{Role: role}
	if reg.IsStudent(ident.UserID) {
		subject.Relations |= policy.RelRegStudent
	}
	if policy.Allow(action, subject) {
		return nil
	}
	if action == policy.ActionRegLogRead {
		return ErrRegLogDenied
	}
	return ErrNotLessonManager
}

func (s *registrationService) lockLog(ctx context.Context, tx *repository.Repository, logID int64) (*model.LessonRegLog, *model.LessonReg, *model.Lesson, error) {
	log, err := tx.LessonRegLog.GetByID(ctx, logID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, ErrRegLogNotFound
		}
		return nil, nil, nil, err
	}
	reg, lesson, err := lockRegLesson(ctx, tx, log.LessonRegID)
	if err != nil {
		return nil, nil, nil, err
	}
	return log, reg, lesson, nil
}

// ownedLog 读取课时并确认其属于 regID
func (s *registrationService) ownedLog(ctx context.Context, tx *repository.Repository, regID, logID int64) (*model.LessonRegLog, error) {
	log, err := tx.LessonRegLog.GetByID(ctx, logID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegLogNotFound
		}
		return nil, err
	}
	if log.LessonRegID != regID {
		return nil, ErrRegLogNotFound
	}
	return log, nil
}

func newLogs(regID int64, items []dto.CreateRegLogItem) []model.LessonRegLog {
	logs := make([]model.LessonRegLog, 0, len(items))
	for _, item := range items {
		log := model.LessonRegLog{LessonRegID: regID, Data: item.Data}
		if item.UseTime != nil {
			t := item.UseTime.UTC()
			log.UseTime = &t
		}
		logs = append(logs, log)
	}
	return logs
}

func applyLogChange(log *model.LessonRegLog, useTime *time.Time, clear bool, data map[string]interface{}) {
	switch {
	case clear:
		log.UseTime = nil
	case useTime != nil:
		t := useTime.UTC()
		log.UseTime = &t
	}
	if data != nil {
		log.Data = data
	}
}

func toRegLogResponses(logs []model.LessonRegLog) []dto.RegLogResponse {
	result := make([]dto.RegLogResponse, 0, len(logs))
	for i := range logs {
		result = append(result, toRegLogResponse(&logs[i]))
	}
	return result
}
