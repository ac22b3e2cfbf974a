package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"levelhub/internal/service"
	"levelhub/pkg/response"
)

// 上下文键，由 JWTAuth 中间件写入
const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
	ctxIsAdmin  = "is_admin"
	ctxTokenJTI = "token_jti"
	ctxTokenExp = "token_exp"
)

// MustGetIdentity 从 Gin 上下文中提取当前用户身份。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetIdentity(c *gin.Context) (service.Identity, bool) {
	v, exists := c.Get(ctxUserID)
	if !exists {
		response.Unauthorized(c, 40100, "未认证")
		return service.Identity{}, false
	}
	id, ok := v.(int64)
	if !ok || id <= 0 {
		response.Unauthorized(c, 40100, "未认证")
		return service.Identity{}, false
	}
	return service.Identity{
		UserID:   id,
		Username: c.GetString(ctxUsername),
		IsAdmin:  c.GetBool(ctxIsAdmin),
	}, true
}

// tokenInfo 当前 Access Token 的 jti 与剩余有效期
func tokenInfo(c *gin.Context) (string, time.Duration) {
	jti := c.GetString(ctxTokenJTI)
	var ttl time.Duration
	if exp, ok := c.Get(ctxTokenExp); ok {
		if t, ok := exp.(time.Time); ok {
			ttl = time.Until(t)
		}
	}
	return jti, ttl
}

// parseID 读取路径中的正整数 id，失败时写入 400
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 40000, "无效的 "+name)
		return 0, false
	}
	return id, true
}

// badRequest 参数绑定失败
// 请求体超过 BodyLimit 时返回 413
func badRequest(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, 41300, "请求体过大")
		return
	}
	response.BadRequest(c, 40000, "参数校验失败")
}

// fail 写入服务层错误；非业务错误记入 c.Errors 供日志中间件输出
func fail(c *gin.Context, err error) {
	if !response.FromError(c, err) {
		_ = c.Error(err)
	}
}

// ── pulse ──

// pulser 为已认证响应附加未读请求计数
type pulser struct {
	pulseSvc service.PulseService
}

// peek 统计失败不影响主体响应，计数按 0 返回
func (p pulser) peek(c *gin.Context, ident service.Identity) int64 {
	if p.pulseSvc == nil {
		return 0
	}
	n, err := p.pulseSvc.Peek(c.Request.Context(), ident)
	if err != nil {
		_ = c.Error(err)
		return 0
	}
	return n
}

func (p pulser) ok(c *gin.Context, ident service.Identity, data interface{}) {
	response.WithPulse(c, p.peek(c, ident), data)
}

func (p pulser) created(c *gin.Context, ident service.Identity, data interface{}) {
	response.CreatedWithPulse(c, p.peek(c, ident), data)
}
