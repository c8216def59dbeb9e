package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/service-marketplace/internal/models"
	"github.com/ignatzorin/service-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/service-marketplace/internal/repository/common"
)

// OrderRepository - чтение заказов вне транзакций.
type OrderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if err := r.db.GetContext(ctx, &order, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrOrderNotFound
		}
		return nil, fmt.Errorf("order repository: get by id %w", err)
	}
	return &order, nil
}

// GetDetails загружает заказ, его правки, спор и историю фиксированным набором запросов.
func (r *OrderRepository) GetDetails(ctx context.Context, id uuid.UUID) (*models.OrderDetails, error) {
	order, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	details := &models.OrderDetails{
		Order:   order,
		Edits:   []models.OrderEdit{},
		History: []models.OrderStatusHistory{},
	}

	editsQuery := `SELECT ` + editColumns + ` FROM order_edits WHERE order_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &details.Edits, editsQuery, id); err != nil {
		return nil, fmt.Errorf("order repository: get details edits %w", err)
	}

	var dispute models.Dispute
	err = r.db.GetContext(ctx, &dispute, `SELECT * FROM disputes WHERE order_id = $1`, id)
	switch {
	case err == nil:
		details.Dispute = &dispute
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("order repository: get details dispute %w", err)
	}

	if details.History, err = r.ListHistory(ctx, id); err != nil {
		return nil, err
	}

	return details, nil
}

// List возвращает страницу заказов и общее количество.
func (r *OrderRepository) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int, error) {
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
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM orders`+where.SQL(), where.Args()...); err != nil {
		return nil, 0, fmt.Errorf("order repository: count %w", err)
	}

	query, args := where.Page(`SELECT `+orderColumns+` FROM orders`+where.SQL()+` ORDER BY created_at DESC, id`, filter.Limit, filter.Offset)
	orders := []models.Order{}
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, fmt.Errorf("order repository: list %w", err)
	}

	return orders, total, nil
}

// ListHistory - история статусов заказа в хронологическом порядке.
func (r *OrderRepository) ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	history := []models.OrderStatusHistory{}
	query := `SELECT * FROM order_status_history WHERE order_id = $1 ORDER BY created_at ASC, id`
	if err := r.db.SelectContext(ctx, &history, query, orderID); err != nil {
		return nil, fmt.Errorf("order repository: list history %w", err)
	}
	return history, nil
}
