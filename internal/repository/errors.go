package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicateKey 违反唯一约束（如同一学生重复的 active 注册、重复的待处理请求）
	ErrDuplicateKey = errors.New("违反唯一约束")
	// ErrNoRowsAffected 条件更新未命中任何行（状态已被并发修改）
	ErrNoRowsAffected = errors.New("未更新任何记录")
)

// pgUniqueViolation PostgreSQL unique_violation
const pgUniqueViolation = "23505"

// translateError 将驱动层错误转换为仓储层错误
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateKey
	}
	return err
}
