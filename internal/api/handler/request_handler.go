package handler

import (
	"github.com/gin-gonic/gin"

	"levelhub/internal/dto"
	"levelhub/internal/service"
)

// RequestHandler 课程请求模块 HTTP 处理器
type RequestHandler struct {
	requestSvc service.RequestService
	pulser
}

// NewRequestHandler 创建 RequestHandler
func NewRequestHandler(requestSvc service.RequestService, pulseSvc service.PulseService) *RequestHandler {
	return &RequestHandler{requestSvc: requestSvc, pulser: pulser{pulseSvc: pulseSvc}}
}

// ListRequests 当前用户可见的请求（新的排在前面）
// GET /api/v1/requests
func (h *RequestHandler) ListRequests(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	list, err := h.requestSvc.List(c.Request.Context(), ident)
	if err != nil {
		fail(c, err)
		return
	}

	h.ok(c, ident, list)
}

// Submit 提交请求动作：enroll / join / deroll / quit / accept / reject / dismiss
// POST /api/v1/requests
func (h *RequestHandler) Submit(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	var req dto.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.requestSvc.Submit(c.Request.Context(), ident, &req)
	if err != nil {
		fail(c, err)
		return
	}

	// dismiss 时 result 为 nil，main 输出 null
	h.ok(c, ident, result)
}

// Pulse 仅返回未读提醒数
// GET /api/v1/requests/pulse
func (h *RequestHandler) Pulse(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	h.ok(c, ident, nil)
}
