package dashboard

import (
	"context"
	"errors"
	"fmt"
)

type ValidationReason string

const (
	ReasonTooShort      ValidationReason = "too_short"
	ReasonTooLong       ValidationReason = "too_long"
	ReasonDuplicate     ValidationReason = "duplicate"
	ReasonLimitExceeded ValidationReason = "limit_exceeded"
)

// ValidationError 本地校验失败，只在输入框旁提示，不会触发网络请求
type ValidationError struct {
	Reason ValidationReason
	Input  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %q", e.Reason, e.Input)
}

func newValidationError(reason ValidationReason, input string) *ValidationError {
	return &ValidationError{Reason: reason, Input: input}
}

// IsValidation 判断 err 是否为指定原因的校验错误
func IsValidation(err error, reason ValidationReason) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Reason == reason
}

var (
	// ErrBusy 已有生成请求在进行中，本次提交被拒绝且没有其他副作用
	ErrBusy = errors.New("a generation request is already in progress")

	// ErrAuthRequired 仅由上游认证中间件产生
	ErrAuthRequired = errors.New("authentication required")

	ErrSessionClosed = errors.New("session closed")
)

type ServiceErrorKind string

const (
	ServiceTransient ServiceErrorKind = "transient"
	ServicePermanent ServiceErrorKind = "permanent"
)

// ServiceError 生成服务调用失败；transient 可直接重试，permanent 需要用户修改输入
type ServiceError struct {
	Kind ServiceErrorKind
	Err  error
}

func NewServiceError(kind ServiceErrorKind, err error) *ServiceError {
	return &ServiceError{Kind: kind, Err: err}
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("generation service error (%s): %v", e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Retryable() bool {
	return e.Kind == ServiceTransient
}

func classifyServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewServiceError(ServiceTransient, fmt.Errorf("generation timed out: %w", err))
	}
	return NewServiceError(ServiceTransient, err)
}
