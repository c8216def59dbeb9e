package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/service-marketplace/internal/models"
	"github.com/ignatzorin/service-marketplace/internal/repository/common"
)

// TransactionRepository - чтение журнала операций.
type TransactionRepository struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// ListByUser возвращает все записи пользователя для расчёта сводки.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	return listUserTransactions(ctx, r.db, userID)
}

// List - записи пользователя по фильтру. To включает весь указанный день.
func (r *TransactionRepository) List(ctx context.Context, userID uuid.UUID, filter models.TransactionFilter) ([]models.Transaction, int, error) {
	var where common.Where
	where.Add("user_id = $%d", userID)
	if filter.Type != nil {
		where.Add("type = $%d", *filter.Type)
	}
	if filter.Category != nil {
		where.Add("category = $%d", *filter.Category)
	}
	if filter.Status != nil {
		where.Add("status = $%d", *filter.Status)
	}
	if filter.From != nil {
		where.Add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		where.Add("created_at < $%d", filter.To.AddDate(0, 0, 1))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM transactions`+where.SQL(), where.Args()...); err != nil {
		return nil, 0, fmt.Errorf("transaction repository: count %w", err)
	}

	query, args := where.Page(`SELECT * FROM transactions`+where.SQL()+` ORDER BY created_at DESC, id`, filter.Limit, filter.Offset)
	txs := []models.Transaction{}
	if err := r.db.SelectContext(ctx, &txs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("transaction repository: list %w", err)
	}

	return txs, total, nil
}
