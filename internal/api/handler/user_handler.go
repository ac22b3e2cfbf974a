package handler

import (
	"github.com/gin-gonic/gin"

	"levelhub/internal/dto"
	"levelhub/internal/service"
)

// UserHandler 用户模块 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
	pulser
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService, pulseSvc service.PulseService) *UserHandler {
	return &UserHandler{userSvc: userSvc, pulser: pulser{pulseSvc: pulseSvc}}
}

// SearchUsers 按用户名或姓名搜索用户
// GET /api/v1/users/search?q=xxx
func (h *UserHandler) SearchUsers(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	var req dto.UserSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	users, err := h.userSvc.Search(c.Request.Context(), ident, req.Q)
	if err != nil {
		fail(c, err)
		return
	}

	h.ok(c, ident, users)
}
