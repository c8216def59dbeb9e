package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/service-marketplace/internal/goroutine"
	"github.com/ignatzorin/service-marketplace/internal/logger"
	"github.com/ignatzorin/service-marketplace/internal/models"
	"github.com/ignatzorin/service-marketplace/internal/repository"
)

// TxRunner выполняет функцию в транзакции БД.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(repository.Tx) error) error
}

// Notifier сохраняет уведомление, доставляет его по WebSocket и, если нужно, по почте.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, body, category string, metadata map[string]any, sendEmail bool) (*models.Notification, error)
}

// ActivityLogger пишет журнал действий асинхронно и ошибок не возвращает.
type ActivityLogger interface {
	Log(ctx context.Context, userID uuid.UUID, action, description, subjectType string, subjectID uuid.UUID)
}

// notice - уведомление, отправляемое после коммита.
type notice struct {
	userID    uuid.UUID
	title     string
	body      string
	category  string
	metadata  map[string]any
	sendEmail bool
}

// sideEffects выполняет уведомления после успешного коммита.
// Их ошибки только логируются, операция уже завершена.
type sideEffects struct {
	notifier Notifier
	activity ActivityLogger
	dispatch func(fn func())
	clock    func() time.Time
}

func newSideEffects(notifier Notifier, activity ActivityLogger) sideEffects {
	return sideEffects{
		notifier: notifier,
		activity: activity,
		dispatch: goroutine.SafeGo,
		clock:    time.Now,
	}
}

// now возвращает время с точностью timestamptz, чтобы ответ совпадал с тем,
// что потом прочитается из БД.
func (e sideEffects) now() time.Time {
	return e.clock().UTC().Truncate(time.Microsecond)
}

func (e sideEffects) notify(ctx context.Context, notices ...notice) {
	detached := context.WithoutCancel(ctx)
	for _, n := range notices {
		n := n
		e.dispatch(func() {
			if _, err := e.notifier.Notify(detached, n.userID, n.title, n.body, n.category, n.metadata, n.sendEmail); err != nil {
				logger.WithComponent("notify").WithFields(logrus.Fields{
					"user_id":  n.userID,
					"category": n.category,
				}).WithError(err).Warn("не удалось отправить уведомление")
			}
		})
	}
}

func (e sideEffects) logActivity(ctx context.Context, userID uuid.UUID, action, description, subjectType string, subjectID uuid.UUID) {
	e.activity.Log(context.WithoutCancel(ctx), userID, action, description, subjectType, subjectID)
}
