package domain

import (
	"context"
	"errors"
	"fmt"

	"git.appkode.ru/pub/go/failure"

	"trade_market/pkg/errcodes"
)

// Kind classifies an AppError for the transport layer.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
	KindTransient
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// AppError представляет доменную ошибку приложения.
type AppError struct {
	Kind    Kind
	Code    failure.ErrorCode
	Message string
	cause   error
}

// Error реализует интерфейс error.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap возвращает обёрнутую ошибку для errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.cause
}

// NewError создаёт новую доменную ошибку.
func NewError(kind Kind, code failure.ErrorCode, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// WrapError оборачивает существующую ошибку с доменным контекстом.
func WrapError(err error, kind Kind, code failure.ErrorCode, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
		cause:   err,
	}
}

func Validation(code failure.ErrorCode, message string) *AppError {
	return NewError(KindValidation, code, message)
}

func NotFound(code failure.ErrorCode, message string) *AppError {
	return NewError(KindNotFound, code, message)
}

func Forbidden(code failure.ErrorCode, message string) *AppError {
	return NewError(KindForbidden, code, message)
}

func Conflict(code failure.ErrorCode, message string) *AppError {
	return NewError(KindConflict, code, message)
}

func Unauthorized(code failure.ErrorCode, message string) *AppError {
	return NewError(KindUnauthorized, code, message)
}

// Storage wraps a failure on the storage path. It is always transient: the
// caller may retry reads but not creates.
func Storage(err error, message string) *AppError {
	if errors.Is(err, context.DeadlineExceeded) {
		return WrapError(err, KindTransient, errcodes.TimeoutExceeded, message)
	}
	return WrapError(err, KindTransient, errcodes.StorageUnavailable, message)
}

// Internal wraps an unexpected failure that is not worth retrying.
func Internal(err error, message string) *AppError {
	return WrapError(err, KindInternal, errcodes.InternalServerError, message)
}

// IsAppError проверяет, является ли ошибка доменной.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetCode извлекает код ошибки, если это AppError.
func GetCode(err error) (failure.ErrorCode, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, true
	}
	return "", false
}

// KindOf returns the kind of the outermost AppError in the chain.
func KindOf(err error) (Kind, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return KindInternal, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code failure.ErrorCode) bool {
	got, ok := GetCode(err)
	return ok && got == code
}
