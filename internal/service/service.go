package service

import (
	"go.uber.org/zap"

	"levelhub/config"
	"levelhub/internal/repository"
	"levelhub/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	User         UserService
	Lesson       LessonService
	Request      RequestService
	Pulse        PulseService
	Registration RegistrationService
	Message      MessageService
	Export       ExportService
}

// NewService 创建 Service 聚合
// blacklist 可为 nil（未配置 Redis）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		User:         NewUserService(repo, logger),
		Lesson:       NewLessonService(repo, logger),
		Request:      NewRequestService(repo, logger),
		Pulse:        NewPulseService(repo, logger),
		Registration: NewRegistrationService(repo, logger),
		Message:      NewMessageService(repo, logger),
		Export:       NewExportService(repo, logger),
	}
}
