package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-srm/internal/srm/repository"
	"gorm.io/gorm"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = repository.ErrNotFound
	// ErrTimeout 操作超时
	ErrTimeout = errors.New("operation timed out")
)

// ValidationError 参数校验失败
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError 指定实体不存在
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s不存在: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError 并发修改冲突或状态冲突
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// TransactionError 事务内步骤失败，整体已回滚
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s失败: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// wrapTx 把事务返回的错误归类：校验/不存在/冲突原样返回，超时转ErrTimeout，其余包成TransactionError
func wrapTx(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}

	var ve *ValidationError
	var nf *NotFoundError
	var ce *ConflictError
	switch {
	case errors.As(err, &ve), errors.As(err, &nf), errors.As(err, &ce):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &ConflictError{Message: op + "失败: 编号或关联已存在"}
	case errors.Is(err, repository.ErrInsufficientStock):
		return &ConflictError{Message: op + "失败: 库存不足"}
	}
	return &TransactionError{Op: op, Err: err}
}

// mustExist 把仓库层的ErrNotFound转成带实体名的错误；payload里引用的ID不存在属于校验错误
func mustExist(err error, field, entityName, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return invalid(field, "%s不存在: %s", entityName, id)
	}
	return err
}

// notFoundOr 路径参数指向的实体不存在时返回NotFoundError
func notFoundOr(err error, entityName, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Entity: entityName, ID: id}
	}
	return err
}
