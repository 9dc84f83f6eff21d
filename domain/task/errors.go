/*
Package task - 任务领域错误定义

设计原则:
1. 使用哨兵错误(sentinel errors)支持 errors.Is() 类型安全判断
2. 错误构造函数在创建时捕获堆栈，便于定位错误发生点
3. 未找到/并发冲突同时归类到 shared 哨兵，供重试策略与调用方统一判断
*/
package task

import (
	"errors"

	"tasktrack/domain/shared"
)

// ============================================================================
// 任务领域哨兵错误 (Sentinel Errors)
// ============================================================================

var (
	// ErrTaskNotFound 任务未找到
	ErrTaskNotFound = errors.New("task not found")

	// ErrConcurrentModification 并发修改冲突（乐观锁），调用方应重试
	ErrConcurrentModification = errors.New("task was modified by another transaction, please retry")

	// ErrInvalidTaskState 无效的任务状态转换
	// 例如：已完成的任务不能开始
	ErrInvalidTaskState = errors.New("invalid task state transition")

	// ErrChecklistIncomplete 仍有未勾选的检查项时不能完成任务
	ErrChecklistIncomplete = errors.New("task checklist is incomplete")

	// ErrChecklistItemNotFound 检查项不存在
	ErrChecklistItemNotFound = errors.New("checklist item not found")

	// ErrChecklistItemChecked 检查项已勾选
	ErrChecklistItemChecked = errors.New("checklist item already checked")

	// ErrAlreadyAssigned 任务已分配给该用户
	ErrAlreadyAssigned = errors.New("task is already assigned to this user")

	// ErrTaskRemoved 已删除的任务不能再修改
	ErrTaskRemoved = errors.New("task has been removed")
)

// ============================================================================
// 任务领域错误构造函数
// ============================================================================

// NewTaskNotFoundError 创建任务未找到错误（带堆栈）
// 返回的错误支持:
//   - errors.Is(err, ErrTaskNotFound)
//   - errors.Is(err, shared.ErrNotFound)
func NewTaskNotFoundError(taskID string) error {
	return &taskDomainError{
		sentinel: errors.Join(ErrTaskNotFound, shared.ErrNotFound),
		message:  "task not found: " + taskID,
		stack:    shared.CaptureStack(3),
	}
}

// NewConcurrentModificationError 创建并发修改错误
func NewConcurrentModificationError(taskID string) error {
	return &taskDomainError{
		sentinel: errors.Join(ErrConcurrentModification, shared.ErrConflict),
		message:  "task " + taskID + " was modified by another transaction, please retry",
		stack:    shared.CaptureStack(3),
	}
}

// NewInvalidTaskStateError 创建无效状态转换错误
func NewInvalidTaskStateError(current Status, action string) error {
	return &taskDomainError{
		sentinel: ErrInvalidTaskState,
		field:    "status",
		message:  "cannot " + action + " a task in status " + string(current),
		stack:    shared.CaptureStack(3),
	}
}

// NewChecklistItemNotFoundError 创建检查项不存在错误
func NewChecklistItemNotFoundError(itemID string) error {
	return &taskDomainError{
		sentinel: errors.Join(ErrChecklistItemNotFound, shared.ErrNotFound),
		field:    "checklist",
		message:  "checklist item not found: " + itemID,
		stack:    shared.CaptureStack(3),
	}
}

// ============================================================================
// 任务领域错误结构体（内部使用）
// ============================================================================

type taskDomainError struct {
	sentinel error     // 哨兵错误，用于 errors.Is()
	field    string    // 字段名（可选）
	message  string    // 错误消息
	stack    []uintptr // 调用栈
}

func (e *taskDomainError) Error() string {
	return e.message
}

func (e *taskDomainError) Unwrap() error {
	return e.sentinel
}

// Stack 实现 shared.Stacker 接口
func (e *taskDomainError) Stack() []string {
	if len(e.stack) == 0 {
		return nil
	}
	return shared.FormatStack(e.stack)
}
