package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/service-marketplace/internal/goroutine"
	"github.com/ignatzorin/service-marketplace/internal/logger"
	"github.com/ignatzorin/service-marketplace/internal/models"
)

type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
}

// ActivityService пишет журнал действий в фоне; ошибки только логируются.
type ActivityService struct {
	repo ActivityLogRepository
	run  func(ctx context.Context, fn func(context.Context))
}

func NewActivityService(repo ActivityLogRepository) *ActivityService {
	return &ActivityService{repo: repo, run: goroutine.SafeGoWithContext}
}

// Log - uuid.Nil в userID означает системное действие.
func (s *ActivityService) Log(ctx context.Context, userID uuid.UUID, action, description, subjectType string, subjectID uuid.UUID) {
	entry := &models.ActivityLog{
		Action:      action,
		Description: description,
		SubjectType: subjectType,
	}
	if userID != uuid.Nil {
		entry.UserID = &userID
	}
	if subjectID != uuid.Nil {
		entry.SubjectID = &subjectID
	}

	s.run(ctx, func(ctx context.Context) {
		if err := s.repo.Create(ctx, entry); err != nil {
			logger.WithComponent("activity").WithFields(logrus.Fields{
				"action":     action,
				"subject_id": subjectID,
			}).WithError(err).Warn("не удалось записать действие")
		}
	})
}
