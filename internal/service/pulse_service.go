package service

import (
	"context"

	"go.uber.org/zap"

	"levelhub/internal/repository"
)

// PulseService 未读提醒计数，附加在每个已认证响应中
type PulseService interface {
	// Peek 统计接收方的新 enroll/join/deroll/quit 与发起方的新处理结果，无副作用
	Peek(ctx context.Context, ident Identity) (int64, error)
}

type pulseService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewPulseService 创建 PulseService 实例
func NewPulseService(repo *repository.Repository, logger *zap.Logger) PulseService {
	return &pulseService{repo: repo, logger: logger}
}

func (s *pulseService) Peek(ctx context.Context, ident Identity) (int64, error) {
	n, err := s.repo.LessonRequest.CountNotices(ctx, ident.UserID)
	if err != nil {
		s.logger.Error("统计未读请求失败", zap.Int64("user_id", ident.UserID), zap.Error(err))
		return 0, err
	}
	return n, nil
}
