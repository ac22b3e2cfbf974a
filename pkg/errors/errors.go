package errors

import (
	"errors"
	"fmt"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// Kind 业务错误分类，决定 HTTP 状态码
type Kind int

const (
	KindBadRequest Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

// AppError 带分类与业务码的错误
type AppError struct {
	Kind    Kind
	Code    int
	Message string
}

func (e *AppError) Error() string { return e.Message }

// New 创建业务错误
func New(kind Kind, code int, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

// BadRequest 400 类错误
func BadRequest(code int, message string) *AppError { return New(KindBadRequest, code, message) }

// Unauthorized 401 类错误
func Unauthorized(code int, message string) *AppError { return New(KindUnauthorized, code, message) }

// Forbidden 403 类错误
func Forbidden(code int, message string) *AppError { return New(KindForbidden, code, message) }

// NotFound 404 类错误
func NotFound(code int, message string) *AppError { return New(KindNotFound, code, message) }

// Conflict 409 类错误
func Conflict(code int, message string) *AppError { return New(KindConflict, code, message) }

// As 从错误链中提取 AppError
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind 判断错误链中是否存在指定分类的 AppError
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// Wrapf 为业务错误附加上下文，errors.Is 仍可匹配原哨兵
func Wrapf(appErr *AppError, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), appErr)
}
