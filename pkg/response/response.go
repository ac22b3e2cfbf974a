package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "levelhub/pkg/errors"
)

// Pulse 未读请求计数，随每个已认证响应返回
type Pulse struct {
	NNewRequests int64 `json:"n_new_requests"`
}

// Envelope 成功响应外壳
// 已认证接口携带 pulse；登录注册等匿名接口省略
type Envelope struct {
	Pulse *Pulse      `json:"pulse,omitempty"`
	Main  interface{} `json:"main"`
}

// ErrorBody 错误响应体，不进入 Envelope
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Pagination 分页元数据
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PageData 分页响应数据
type PageData struct {
	List       interface{} `json:"list"`
	Pagination Pagination  `json:"pagination"`
}

// NewPageData 组装分页数据
func NewPageData(list interface{}, total int64, page, pageSize int) PageData {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(total) / pageSize
		if int(total)%pageSize > 0 {
			totalPages++
		}
	}
	return PageData{
		List: list,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	}
}

// ── 成功响应 ──

// OK 200 匿名成功响应
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Main: data})
}

// WithPulse 200 已认证成功响应
func WithPulse(c *gin.Context, nNew int64, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Pulse: &Pulse{NNewRequests: nNew}, Main: data})
}

// CreatedWithPulse 201 已认证创建成功
func CreatedWithPulse(c *gin.Context, nNew int64, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Pulse: &Pulse{NNewRequests: nNew}, Main: data})
}

// Created 201 匿名创建成功
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Main: data})
}

// ── 错误响应 ──

// Error 通用错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, ErrorBody{
		Code:    code,
		Message: message,
	})
}

// BadRequest 400
func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, code int, message string) {
	Error(c, http.StatusUnauthorized, code, message)
}

// Forbidden 403
func Forbidden(c *gin.Context, code int, message string) {
	Error(c, http.StatusForbidden, code, message)
}

// NotFound 404
func NotFound(c *gin.Context, code int, message string) {
	Error(c, http.StatusNotFound, code, message)
}

// InternalError 500
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, 50000, "服务器内部错误")
}

// StatusOf 业务错误分类对应的 HTTP 状态码
func StatusOf(kind pkgerrors.Kind) int {
	switch kind {
	case pkgerrors.KindBadRequest:
		return http.StatusBadRequest
	case pkgerrors.KindUnauthorized:
		return http.StatusUnauthorized
	case pkgerrors.KindForbidden:
		return http.StatusForbidden
	case pkgerrors.KindNotFound:
		return http.StatusNotFound
	case pkgerrors.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// FromError 将服务层错误写为响应
// 返回 false 表示非业务错误，已按 500 处理，调用方应记录日志
func FromError(c *gin.Context, err error) bool {
	if appErr, ok := pkgerrors.As(err); ok {
		Error(c, StatusOf(appErr.Kind), appErr.Code, appErr.Message)
		return true
	}
	if errors.Is(err, pkgerrors.ErrOptimisticLock) {
		Error(c, http.StatusConflict, 40900, pkgerrors.ErrOptimisticLock.Error())
		return true
	}
	InternalError(c)
	return false
}
