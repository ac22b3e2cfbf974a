package handler

import (
	"github.com/gin-gonic/gin"

	"levelhub/internal/dto"
	"levelhub/internal/service"
)

// MessageHandler 课程消息模块 HTTP 处理器
type MessageHandler struct {
	messageSvc service.MessageService
	pulser
}

// NewMessageHandler 创建 MessageHandler
func NewMessageHandler(messageSvc service.MessageService, pulseSvc service.PulseService) *MessageHandler {
	return &MessageHandler{messageSvc: messageSvc, pulser: pulser{pulseSvc: pulseSvc}}
}

// ListMessages 当前用户所在课程的消息
// GET /api/v1/messages
func (h *MessageHandler) ListMessages(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	list, err := h.messageSvc.List(c.Request.Context(), ident)
	if err != nil {
		fail(c, err)
		return
	}

	h.ok(c, ident, list)
}

// PostMessage 向一门或多门课程发布消息
// POST /api/v1/messages
func (h *MessageHandler) PostMessage(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	var req dto.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	msg, err := h.messageSvc.Post(c.Request.Context(), ident, &req)
	if err != nil {
		fail(c, err)
		return
	}

	h.created(c, ident, msg)
}

// DeleteMessage 删除消息（发布者或管理员）
// DELETE /api/v1/messages/:id
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.messageSvc.Delete(c.Request.Context(), ident, id); err != nil {
		fail(c, err)
		return
	}

	h.ok(c, ident, nil)
}
