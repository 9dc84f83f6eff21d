/*
Package project - 项目领域错误定义

使用哨兵错误支持 errors.Is() 判断；NewXxxError 构造函数捕获堆栈（shared.CaptureStack(3)）。
*/
package project

import (
	"errors"

	"tasktrack/domain/shared"
)

var (
	// ErrProjectNotFound 项目未找到
	ErrProjectNotFound = errors.New("project not found")

	// ErrConcurrentModification 并发修改冲突（乐观锁），调用方应重试
	ErrConcurrentModification = errors.New("project was modified by another transaction, please retry")

	// ErrProjectArchived 已归档项目不接受新任务
	ErrProjectArchived = errors.New("project is archived")

	// ErrProjectHasOpenTasks 仍有未完成任务的项目不能归档
	ErrProjectHasOpenTasks = errors.New("project still has open tasks")

	// ErrOpenTaskUnderflow 未完成任务数不能为负
	ErrOpenTaskUnderflow = errors.New("open task count cannot go below zero")
)

type projectDomainError struct {
	sentinel error
	message  string
	stack    []uintptr
}

func (e *projectDomainError) Error() string   { return e.message }
func (e *projectDomainError) Unwrap() error   { return e.sentinel }
func (e *projectDomainError) Stack() []string { return shared.FormatStack(e.stack) }

// NewProjectNotFoundError 创建项目未找到错误（带堆栈）
// 同时满足 errors.Is(err, ErrProjectNotFound) 与 errors.Is(err, shared.ErrNotFound)
func NewProjectNotFoundError(projectID string) error {
	return &projectDomainError{
		sentinel: errors.Join(ErrProjectNotFound, shared.ErrNotFound),
		message:  "project not found: " + projectID,
		stack:    shared.CaptureStack(3),
	}
}

// NewConcurrentModificationError 创建乐观锁冲突错误（带堆栈）
func NewConcurrentModificationError(projectID string) error {
	return &projectDomainError{
		sentinel: errors.Join(ErrConcurrentModification, shared.ErrConflict),
		message:  "project " + projectID + " was modified concurrently",
		stack:    shared.CaptureStack(3),
	}
}
