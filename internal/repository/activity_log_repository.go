package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/service-marketplace/internal/models"
)

type ActivityLogRepository struct {
	db *sqlx.DB
}

func NewActivityLogRepository(db *sqlx.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

func (r *ActivityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	query := `
		INSERT INTO activity_logs (user_id, action, description, subject_type, subject_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		entry.UserID, entry.Action, entry.Description, entry.SubjectType, entry.SubjectID,
	).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return fmt.Errorf("activity log repository: create %w", err)
	}
	return nil
}
