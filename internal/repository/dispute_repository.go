package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/service-marketplace/internal/models"
	"github.com/ignatzorin/service-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/service-marketplace/internal/repository/common"
)

type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return common.GetByID[models.Dispute](ctx, r.db, "disputes", id, apperror.ErrDisputeNotFound)
}

// List возвращает страницу споров и общее количество.
func (r *DisputeRepository) List(ctx context.Context, filter models.DisputeFilter) ([]models.Dispute, int, error) {
	var where common.Where
	if filter.CustomerID != nil {
		where.Add("customer_id = $%d", *filter.CustomerID)
	}
	if filter.VendorID != nil {
		where.Add("vendor_id = $%d", *filter.VendorID)
	}
	if filter.Status != nil {
		where.Add("status = $%d", *filter.Status)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM disputes`+where.SQL(), where.Args()...); err != nil {
		return nil, 0, fmt.Errorf("dispute repository: count %w", err)
	}

	query, args := where.Page(`SELECT * FROM disputes`+where.SQL()+` ORDER BY created_at DESC, id`, filter.Limit, filter.Offset)
	disputes := []models.Dispute{}
	if err := r.db.SelectContext(ctx, &disputes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("dispute repository: list %w", err)
	}

	return disputes, total, nil
}

// EscalateStale переводит в under_review споры, ожидающие дольше before.
// Один UPDATE, поэтому параллельный запуск не обработает спор дважды.
func (r *DisputeRepository) EscalateStale(ctx context.Context, before, now time.Time) ([]models.Dispute, error) {
	query := `
		UPDATE disputes
		SET status = 'under_review', updated_at = $2
		WHERE status = 'pending' AND created_at < $1
		RETURNING *
	`
	disputes := []models.Dispute{}
	if err := r.db.SelectContext(ctx, &disputes, query, before, now); err != nil {
		return nil, fmt.Errorf("dispute repository: escalate stale %w", err)
	}
	return disputes, nil
}
