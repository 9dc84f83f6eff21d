/*
Package shared - 领域层共享错误定义

设计原则:
1. 领域层定义哨兵错误(sentinel errors)，用于 errors.Is() 类型安全判断
2. DomainError 在创建时捕获堆栈，但延迟格式化（按需打印）
3. 聚合/事件管道的错误使用具名结构体，errors.As() 可取出上下文
4. 领域错误不包含 HTTP 状态码等传输层概念

堆栈捕获策略:
- 捕获时机：错误创建时（构造函数内）
- 格式化时机：日志打印时（Stack() 方法）
*/
package shared

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ============================================================================
// 哨兵错误 (Sentinel Errors)
// ============================================================================

var (
	// ErrNotFound 资源未找到
	ErrNotFound = errors.New("not found")

	// ErrConflict 资源冲突（如并发修改、唯一约束冲突）
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput 无效输入（参数校验失败）
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden 禁止访问（跨租户访问等）
	ErrForbidden = errors.New("forbidden")

	// ErrAggregateMismatch 子实体或事件与聚合根不匹配（编程错误）
	ErrAggregateMismatch = errors.New("aggregate mismatch")

	// ErrNotAssociated 子实体尚未挂载到聚合根
	ErrNotAssociated = errors.New("entity not associated with an aggregate root")

	// ErrHandlerInvocation 事件处理器执行失败
	ErrHandlerInvocation = errors.New("event handler invocation failed")

	// ErrTransaction 事务提交/回滚失败
	ErrTransaction = errors.New("transaction failed")

	// ErrCursorDecode 分页游标无法解析
	ErrCursorDecode = errors.New("invalid pagination cursor")

	// ErrIdentityAssigned 实体标识只能赋值一次
	ErrIdentityAssigned = errors.New("entity identity already assigned")
)

// ============================================================================
// 领域错误结构体 (Domain Error)
// ============================================================================

// DomainError 领域错误 - 携带业务上下文和堆栈的结构化错误
type DomainError struct {
	// Err 底层哨兵错误，用于 errors.Is() 判断
	Err error

	// Entity 发生错误的实体名称（如 "task", "project"）
	Entity string

	// Message 人类可读的错误描述
	Message string

	// Field 可选：发生错误的字段名（用于校验错误）
	Field string

	stack []uintptr
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Stack 按需格式化堆栈
func (e *DomainError) Stack() []string {
	return FormatStack(e.stack)
}

// ============================================================================
// 聚合/事件管道错误
// ============================================================================

// AggregateMismatchError 子实体挂载到错误的聚合根，或事件与聚合根的关联信息不一致。
type AggregateMismatchError struct {
	AggregateType string
	Expected      string
	Actual        string
	Reason        string
	stack         []uintptr
}

func NewAggregateMismatchError(aggregateType, expected, actual, reason string) *AggregateMismatchError {
	return &AggregateMismatchError{
		AggregateType: aggregateType,
		Expected:      expected,
		Actual:        actual,
		Reason:        reason,
		stack:         CaptureStack(3),
	}
}

func (e *AggregateMismatchError) Error() string {
	return fmt.Sprintf("aggregate mismatch on %s: %s (expected %q, got %q)", e.AggregateType, e.Reason, e.Expected, e.Actual)
}

func (e *AggregateMismatchError) Is(target error) bool { return target == ErrAggregateMismatch }
func (e *AggregateMismatchError) Stack() []string      { return FormatStack(e.stack) }

// NotAssociatedError 子实体在挂载前被用于发布事件。
type NotAssociatedError struct {
	EntityID string
	stack    []uintptr
}

func NewNotAssociatedError(entityID string) *NotAssociatedError {
	return &NotAssociatedError{EntityID: entityID, stack: CaptureStack(3)}
}

func (e *NotAssociatedError) Error() string {
	return fmt.Sprintf("entity %q is not attached to an aggregate root", e.EntityID)
}

func (e *NotAssociatedError) Is(target error) bool { return target == ErrNotAssociated }
func (e *NotAssociatedError) Stack() []string      { return FormatStack(e.stack) }

// HandlerInvocationError 处理器失败。Unwrap 返回处理器的原始错误，
// 调用方可以直接用 errors.Is/As 判断真实原因。
type HandlerInvocationError struct {
	EventName string
	EventID   string
	Handler   string
	Err       error
}

func (e *HandlerInvocationError) Error() string {
	return fmt.Sprintf("handler %s failed on %s: %v", e.Handler, e.EventName, e.Err)
}

func (e *HandlerInvocationError) Unwrap() error { return e.Err }

func (e *HandlerInvocationError) Is(target error) bool { return target == ErrHandlerInvocation }

// TransactionError 事务边界（begin/commit/rollback）失败。
type TransactionError struct {
	Op  string
	Err error
}

func NewTransactionError(op string, err error) *TransactionError {
	return &TransactionError{Op: op, Err: err}
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error        { return e.Err }
func (e *TransactionError) Is(target error) bool { return target == ErrTransaction }

// CursorDecodeError 调用方传入的游标不是系统签发的。
type CursorDecodeError struct {
	Cursor string
	Err    error
}

func (e *CursorDecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid pagination cursor %q", e.Cursor)
	}
	return fmt.Sprintf("invalid pagination cursor %q: %v", e.Cursor, e.Err)
}

func (e *CursorDecodeError) Unwrap() error        { return e.Err }
func (e *CursorDecodeError) Is(target error) bool { return target == ErrCursorDecode }

// ============================================================================
// 堆栈捕获辅助函数
// ============================================================================

// CaptureStack 捕获当前调用栈（导出供子领域包使用）
// skip: 跳过的帧数（通常为 3：Callers, CaptureStack, NewXxxError）
func CaptureStack(skip int) []uintptr {
	var pcs [32]uintptr
	n := runtime.Callers(skip, pcs[:])
	return pcs[:n]
}

// FormatStack 格式化堆栈帧为字符串切片，过滤 runtime 内部帧，最多返回 10 帧
func FormatStack(stack []uintptr) []string {
	if len(stack) == 0 {
		return nil
	}

	frames := runtime.CallersFrames(stack)
	var result []string
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			result = append(result, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more || len(result) > 10 {
			break
		}
	}
	return result
}

// ============================================================================
// 领域错误构造函数
// ============================================================================

// NewNotFoundError 创建"未找到"领域错误
func NewNotFoundError(entity string) error {
	return &DomainError{
		Err:     ErrNotFound,
		Entity:  entity,
		Message: entity + " not found",
		stack:   CaptureStack(3),
	}
}

// NewConflictError 创建"冲突"领域错误
func NewConflictError(entity, message string) error {
	return &DomainError{
		Err:     ErrConflict,
		Entity:  entity,
		Message: message,
		stack:   CaptureStack(3),
	}
}

// NewValidationError 创建"校验失败"领域错误
func NewValidationError(entity, field, reason string) error {
	return &DomainError{
		Err:     ErrInvalidInput,
		Entity:  entity,
		Field:   field,
		Message: reason,
		stack:   CaptureStack(3),
	}
}

// NewForbiddenError 创建"禁止访问"领域错误
func NewForbiddenError(entity, reason string) error {
	return &DomainError{
		Err:     ErrForbidden,
		Entity:  entity,
		Message: reason,
		stack:   CaptureStack(3),
	}
}

// Stacker 可提供堆栈的错误接口
type Stacker interface {
	Stack() []string
}
