package errors

import (
	"errors"
	"testing"
)

func TestAppError_IsAndAs(t *testing.T) {
	sentinel := NotFound(14001, "课程不存在")
	wrapped := Wrapf(sentinel, "lesson %d", 42)

	if !errors.Is(wrapped, sentinel) {
		t.Error("包装后应仍能匹配原哨兵错误")
	}
	appErr, ok := As(wrapped)
	if !ok {
		t.Fatal("应能提取 AppError")
	}
	if appErr.Code != 14001 || appErr.Kind != KindNotFound {
		t.Errorf("期望 code=14001 kind=NotFound，实际 code=%d kind=%d", appErr.Code, appErr.Kind)
	}
	if !IsKind(wrapped, KindNotFound) || IsKind(wrapped, KindForbidden) {
		t.Error("IsKind 判断错误")
	}
}

func TestAs_PlainError(t *testing.T) {
	if _, ok := As(errors.New("boom")); ok {
		t.Error("普通错误不应被识别为 AppError")
	}
}
