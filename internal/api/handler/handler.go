package handler

import "levelhub/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Lesson       *LessonHandler
	Request      *RequestHandler
	Registration *RegistrationHandler
	Message      *MessageHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth, svc.Pulse),
		User:         NewUserHandler(svc.User, svc.Pulse),
		Lesson:       NewLessonHandler(svc.Lesson, svc.Pulse),
		Request:      NewRequestHandler(svc.Request, svc.Pulse),
		Registration: NewRegistrationHandler(svc.Registration, svc.Pulse),
		Message:      NewMessageHandler(svc.Message, svc.Pulse),
		Export:       NewExportHandler(svc.Export),
	}
}
