package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

// Категории уведомлений.
const (
	NotificationCategoryOrder   = "order"
	NotificationCategoryDispute = "dispute"
	NotificationCategoryWallet  = "wallet"
)

type Notification struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	UserID    uuid.UUID      `db:"user_id" json:"user_id"`
	Title     string         `db:"title" json:"title"`
	Body      string         `db:"body" json:"body"`
	Category  string         `db:"category" json:"category"`
	Metadata  types.JSONText `db:"metadata" json:"metadata"`
	IsRead    bool           `db:"is_read" json:"is_read"`
	EmailSent bool           `db:"email_sent" json:"email_sent"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

type ActivityLog struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	Action      string     `db:"action" json:"action"`
	Description string     `db:"description" json:"description"`
	SubjectType string     `db:"subject_type" json:"subject_type"`
	SubjectID   *uuid.UUID `db:"subject_id" json:"subject_id,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
