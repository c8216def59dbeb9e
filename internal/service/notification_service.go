package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/service-marketplace/internal/logger"
	"github.com/ignatzorin/service-marketplace/internal/models"
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	MarkEmailSent(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, int, error)
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// UserReader нужен, чтобы найти адрес для письма.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Pusher доставляет событие подключённым клиентам пользователя.
type Pusher interface {
	Push(userID uuid.UUID, event string, data any) error
}

// NotificationService содержит бизнес-логику работы с уведомлениями.
type NotificationService struct {
	repo   NotificationRepository
	users  UserReader
	pusher Pusher
	mailer EmailSender
}

// NewNotificationService создаёт новый сервис уведомлений.
func NewNotificationService(repo NotificationRepository, users UserReader, pusher Pusher, mailer EmailSender) *NotificationService {
	return &NotificationService{repo: repo, users: users, pusher: pusher, mailer: mailer}
}

// Notify сохраняет уведомление, отправляет его по WebSocket и, если sendEmail, на почту.
// Ошибки доставки не отменяют сохранённое уведомление.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, title, body, category string, metadata map[string]any, sendEmail bool) (*models.Notification, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("notification service: marshal metadata %w", err)
	}

	notification := &models.Notification{
		UserID:   userID,
		Title:    title,
		Body:     body,
		Category: category,
		Metadata: raw,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}

	log := logger.WithComponent("notification").WithFields(logrus.Fields{
		"user_id":         userID,
		"notification_id": notification.ID,
	})

	if s.pusher != nil {
		if err := s.pusher.Push(userID, "notification", notification); err != nil {
			log.WithError(err).Warn("не удалось отправить уведомление по WebSocket")
		}
	}

	if sendEmail && s.mailer != nil {
		if err := s.email(ctx, notification); err != nil {
			log.WithError(err).Warn("не удалось отправить письмо")
		}
	}

	return notification, nil
}

func (s *NotificationService) email(ctx context.Context, n *models.Notification) error {
	user, err := s.users.GetByID(ctx, n.UserID)
	if err != nil {
		return err
	}
	if user.Email == "" {
		return nil
	}

	if _, err := s.mailer.Send(ctx, user.Email, n.Title, renderEmail(n.Title, n.Body)); err != nil {
		return err
	}
	if err := s.repo.MarkEmailSent(ctx, n.ID); err != nil {
		return err
	}
	n.EmailSent = true
	return nil
}

// ListNotifications возвращает уведомления пользователя и общее количество.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, int, error) {
	return s.repo.List(ctx, userID, limit, offset, unreadOnly)
}

// MarkAsRead отмечает уведомление как прочитанное. Чужое уведомление не найдено.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, userID, id)
}

// MarkAllAsRead отмечает все уведомления пользователя как прочитанные.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
