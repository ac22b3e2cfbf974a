package handler

import (
	"github.com/gin-gonic/gin"

	"levelhub/internal/dto"
	"levelhub/internal/service"
)

// RegistrationHandler 注册与课时模块 HTTP 处理器
type RegistrationHandler struct {
	regSvc service.RegistrationService
	pulser
}

// NewRegistrationHandler 创建 RegistrationHandler
func NewRegistrationHandler(regSvc service.RegistrationService, pulseSvc service.PulseService) *RegistrationHandler {
	return &RegistrationHandler{regSvc: regSvc, pulser: pulser{pulseSvc: pulseSvc}}
}

// ListByLesson 课程的有效注册列表
// GET /api/v1/lessons/:id/registrations
func (h *RegistrationHandler) ListByLesson(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}
	lessonID, ok := parseID(c, "id")
	if !ok {
		return
	}

	list, err := h.regSvc.List(c.Request.Context(), ident, lessonID)
	if err != nil {
		fail(c, err)
		return
	}

	h.ok(c, ident, list)
}

// UpdateRegistration 更新注册，可同时批量增删改课时
// PUT /api/v1/registrations/:id
func (h *RegistrationHandler) UpdateRegistration(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}
	regID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.regSvc.Update(c.Request.Context(), ident, regID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	h.ok(c, ident, result)
}

// DeleteRegistration 软删除注册
// DELETE /api/v1/registrations/:id
func (h *RegistrationHandler) DeleteRegistration(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}
	regID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.regSvc.Delete(c.Request.Context(), ident, regID); err != nil {
		fail(c, err)
		return
	}

	h.ok(c, ident, nil)
}

// ListLogs 注册的课时列表
// GET /api/v1/registrations/:id/logs
func (h *RegistrationHandler) ListLogs(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}
	regID, ok := parseID(c, "id")
	if !ok {
		return
	}

	logs, err := h.regSvc.ListLogs(c.Request.Context(), ident, regID)
	if err != nil {
		fail(c, err)
		return
	}

	h.ok(c, ident, logs)
}

// CreateLogs 批量新增课时
// POST /api/v1/registrations/:id/logs
func (h *RegistrationHandler) CreateLogs(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}
	regID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.CreateRegLogsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	logs, err := h.regSvc.CreateLogs(c.Request.Context(), ident, regID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	h.created(c, ident, logs)
}

// UpdateLog 更新单条课时
// PUT /api/v1/registration-logs/:id
func (h *RegistrationHandler) UpdateLog(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}
	logID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateRegLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	log, err := h.regSvc.UpdateLog(c.Request.Context(), ident, logID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	h.ok(c, ident, log)
}

// DeleteLog 删除单条课时
// DELETE /api/v1/registration-logs/:id
func (h *RegistrationHandler) DeleteLog(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}
	logID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.regSvc.DeleteLog(c.Request.Context(), ident, logID); err != nil {
		fail(c, err)
		return
	}

	h.ok(c, ident, nil)
}
