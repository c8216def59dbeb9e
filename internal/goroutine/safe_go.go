package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/service-marketplace/internal/logger"
)

// Logger интерфейс для логирования ошибок
type Logger interface {
	Errorf(format string, args ...interface{})
}

// RecoveryHandler обрабатывает panic в горутинах
type RecoveryHandler struct {
	logger Logger
}

// NewRecoveryHandler создает новый обработчик
func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: logger}
}

// SafeGo запускает горутину с обработкой panic
func (rh *RecoveryHandler) SafeGo(fn func()) {
	go func() {
		defer rh.recover()
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом, отвязанным от отмены родителя.
// Используется для побочных эффектов после коммита: они не должны обрываться вместе с запросом.
func (rh *RecoveryHandler) SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	detached := context.WithoutCancel(ctx)
	go func() {
		defer rh.recover()
		fn(detached)
	}()
}

func (rh *RecoveryHandler) recover() {
	if r := recover(); r != nil {
		rh.logger.Errorf("Panic in goroutine: %v\nStack trace:\n%s", r, debug.Stack())
	}
}

// logrusLogger направляет ошибки в глобальный логгер; logger.Log может быть заменён в Init.
type logrusLogger struct{}

func (logrusLogger) Errorf(format string, args ...interface{}) {
	logger.Log.WithFields(logrus.Fields{"component": "goroutine"}).Errorf(format, args...)
}

// DefaultRecoveryHandler - глобальный обработчик, пишущий в logrus
var DefaultRecoveryHandler = NewRecoveryHandler(logrusLogger{})

// SafeGo - упрощенная функция для запуска безопасной горутины
func SafeGo(fn func()) {
	DefaultRecoveryHandler.SafeGo(fn)
}

// SafeGoWithContext - упрощенная функция для запуска безопасной горутины с контекстом
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	DefaultRecoveryHandler.SafeGoWithContext(ctx, fn)
}
