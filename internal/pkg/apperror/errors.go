package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest   ErrorCode = "BAD_REQUEST"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	// Fields заполняется только для VALIDATION_ERROR: поле -> сообщение.
	Fields map[string]string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s [%s]", e.Code, e.Message, joinFields(e.Fields))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Internal оборачивает неожиданную ошибку; клиент увидит только общее сообщение.
func Internal(err error) *AppError {
	return Wrap(err, ErrCodeInternal, "внутренняя ошибка сервера")
}

// Validation собирает ошибки всех полей в одну.
func Validation(fields map[string]string) *AppError {
	e := New(ErrCodeValidation, "ошибка валидации")
	e.Fields = fields
	return e
}

func NotFound(message string) *AppError     { return New(ErrCodeNotFound, message) }
func Forbidden(message string) *AppError    { return New(ErrCodeForbidden, message) }
func Conflict(message string) *AppError     { return New(ErrCodeConflict, message) }
func InvalidState(message string) *AppError { return New(ErrCodeInvalidState, message) }

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeInvalidState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки или INTERNAL_ERROR для любых других ошибок.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func IsNotFound(err error) bool     { return CodeOf(err) == ErrCodeNotFound }
func IsForbidden(err error) bool    { return CodeOf(err) == ErrCodeForbidden }
func IsValidation(err error) bool   { return CodeOf(err) == ErrCodeValidation }
func IsConflict(err error) bool     { return CodeOf(err) == ErrCodeConflict }
func IsInvalidState(err error) bool { return CodeOf(err) == ErrCodeInvalidState }

func joinFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fields[k])
	}
	return strings.Join(parts, "; ")
}

var (
	ErrOrderNotFound   = New(ErrCodeNotFound, "заказ не найден")
	ErrServiceNotFound = New(ErrCodeNotFound, "услуга не найдена или неактивна")
	ErrEditNotFound    = New(ErrCodeNotFound, "предложение изменений не найдено")
	ErrDisputeNotFound = New(ErrCodeNotFound, "спор не найден")
	ErrTxNotFound      = New(ErrCodeNotFound, "транзакция не найдена")
	ErrUnauthorized    = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden       = New(ErrCodeForbidden, "недостаточно прав")
)
