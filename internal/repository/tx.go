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

// Tx - операции, доступные внутри одной транзакции. Проверки и запись
// выполняются под блокировкой строки заказа (или спора, или записи журнала).
type Tx interface {
	LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetActiveService(ctx context.Context, id uuid.UUID) (*models.Service, error)
	InsertOrder(ctx context.Context, o *models.Order) error
	UpdateOrder(ctx context.Context, o *models.Order) error
	AddHistory(ctx context.Context, h *models.OrderStatusHistory) error

	HasPendingEdit(ctx context.Context, orderID uuid.UUID) (bool, error)
	InsertEdit(ctx context.Context, e *models.OrderEdit) error
	LockEdit(ctx context.Context, orderID, editID uuid.UUID) (*models.OrderEdit, error)
	UpdateEdit(ctx context.Context, e *models.OrderEdit) error

	DisputeExists(ctx context.Context, orderID uuid.UUID) (bool, error)
	InsertDispute(ctx context.Context, d *models.Dispute) error
	LockDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	UpdateDispute(ctx context.Context, d *models.Dispute) error

	InsertTransaction(ctx context.Context, t *models.Transaction) error
	HasEarning(ctx context.Context, orderID, vendorID uuid.UUID) (bool, error)
	LockTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, t *models.Transaction) error
	LockUserLedger(ctx context.Context, userID uuid.UUID) error
	ListUserTransactions(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error)
}

// ErrDuplicateDispute - по заказу уже открыт спор (сработал UNIQUE на order_id).
var ErrDuplicateDispute = apperror.Conflict("по этому заказу уже открыт спор")

// ErrDuplicatePendingEdit - у заказа уже есть необработанное предложение.
var ErrDuplicatePendingEdit = apperror.Conflict("у заказа уже есть необработанное предложение изменений")

const (
	orderColumns = `id, order_number, customer_id, vendor_id, service_id, price, status, payment_status,
		service_date, to_char(service_time, 'HH24:MI') AS service_time, location, notes,
		completed_at, cancelled_at, created_at, updated_at`

	editColumns = `id, order_id, proposed_by, proposed_by_user_id, new_price, new_service_date,
		to_char(new_service_time, 'HH24:MI') AS new_service_time, reason, status,
		customer_response_at, created_at`
)

// TxManager открывает транзакции и отдаёт в них Tx.
type TxManager struct {
	db *sqlx.DB
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx выполняет fn в транзакции. Ошибка fn откатывает всё.
func (m *TxManager) WithinTx(ctx context.Context, fn func(Tx) error) error {
	return common.WithTransaction(ctx, m.db, func(tx *sqlx.Tx) error {
		return fn(&sqlTx{tx: tx})
	})
}

type sqlTx struct {
	tx *sqlx.Tx
}

func (s *sqlTx) LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	if err := s.tx.GetContext(ctx, &order, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrOrderNotFound
		}
		return nil, fmt.Errorf("order repository: lock order %w", err)
	}
	return &order, nil
}

func (s *sqlTx) GetActiveService(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	var service models.Service
	query := `SELECT * FROM services WHERE id = $1 AND is_active = TRUE`
	if err := s.tx.GetContext(ctx, &service, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrServiceNotFound
		}
		return nil, fmt.Errorf("order repository: get service %w", err)
	}
	return &service, nil
}

// InsertOrder заполняет ID и номер заказа. CreatedAt задаёт вызывающий.
func (s *sqlTx) InsertOrder(ctx context.Context, o *models.Order) error {
	query := `
		INSERT INTO orders (
			order_number, customer_id, vendor_id, service_id, price, status, payment_status,
			service_date, service_time, location, notes, created_at, updated_at
		)
		VALUES (
			'ORD-' || to_char($11::timestamptz AT TIME ZONE 'UTC', 'YYYYMMDD') || '-' || lpad(nextval('order_number_seq')::text, 6, '0'),
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11
		)
		RETURNING id, order_number
	`
	err := s.tx.QueryRowxContext(ctx, query,
		o.CustomerID, o.VendorID, o.ServiceID, o.Price, o.Status, o.PaymentStatus,
		o.ServiceDate, o.ServiceTime, o.Location, o.Notes, o.CreatedAt,
	).Scan(&o.ID, &o.OrderNumber)
	if err != nil {
		return fmt.Errorf("order repository: insert order %w", err)
	}
	o.UpdatedAt = o.CreatedAt
	return nil
}

// UpdateOrder сохраняет изменяемые поля заказа.
func (s *sqlTx) UpdateOrder(ctx context.Context, o *models.Order) error {
	query := `
		UPDATE orders
		SET price = $2, status = $3, payment_status = $4, service_date = $5, service_time = $6,
			completed_at = $7, cancelled_at = $8, updated_at = $9
		WHERE id = $1
	`
	result, err := s.tx.ExecContext(ctx, query,
		o.ID, o.Price, o.Status, o.PaymentStatus, o.ServiceDate, o.ServiceTime,
		o.CompletedAt, o.CancelledAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("order repository: update order %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return apperror.ErrOrderNotFound
	}
	return nil
}

func (s *sqlTx) AddHistory(ctx context.Context, h *models.OrderStatusHistory) error {
	query := `
		INSERT INTO order_status_history (order_id, from_status, to_status, changed_by, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	if err := s.tx.QueryRowxContext(ctx, query,
		h.OrderID, h.FromStatus, h.ToStatus, h.ChangedBy, h.Note, h.CreatedAt,
	).Scan(&h.ID); err != nil {
		return fmt.Errorf("order repository: add history %w", err)
	}
	return nil
}

func (s *sqlTx) HasPendingEdit(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM order_edits WHERE order_id = $1 AND status = 'pending')`
	if err := s.tx.GetContext(ctx, &exists, query, orderID); err != nil {
		return false, fmt.Errorf("order repository: has pending edit %w", err)
	}
	return exists, nil
}

func (s *sqlTx) InsertEdit(ctx context.Context, e *models.OrderEdit) error {
	query := `
		INSERT INTO order_edits (
			order_id, proposed_by, proposed_by_user_id, new_price, new_service_date, new_service_time,
			reason, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := s.tx.QueryRowxContext(ctx, query,
		e.OrderID, e.ProposedBy, e.ProposedByUserID, e.NewPrice, e.NewServiceDate, e.NewServiceTime,
		e.Reason, e.Status, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		if common.IsUniqueViolation(err, "uq_order_edits_pending") {
			return ErrDuplicatePendingEdit
		}
		return fmt.Errorf("order repository: insert edit %w", err)
	}
	return nil
}

// LockEdit ищет правку только среди правок указанного заказа.
func (s *sqlTx) LockEdit(ctx context.Context, orderID, editID uuid.UUID) (*models.OrderEdit, error) {
	var edit models.OrderEdit
	query := `SELECT ` + editColumns + ` FROM order_edits WHERE id = $1 AND order_id = $2 FOR UPDATE`
	if err := s.tx.GetContext(ctx, &edit, query, editID, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrEditNotFound
		}
		return nil, fmt.Errorf("order repository: lock edit %w", err)
	}
	return &edit, nil
}

func (s *sqlTx) UpdateEdit(ctx context.Context, e *models.OrderEdit) error {
	query := `UPDATE order_edits SET status = $2, customer_response_at = $3 WHERE id = $1`
	if _, err := s.tx.ExecContext(ctx, query, e.ID, e.Status, e.CustomerResponseAt); err != nil {
		return fmt.Errorf("order repository: update edit %w", err)
	}
	return nil
}

func (s *sqlTx) DisputeExists(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var exists bool
	if err := s.tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM disputes WHERE order_id = $1)`, orderID); err != nil {
		return false, fmt.Errorf("dispute repository: exists %w", err)
	}
	return exists, nil
}

// InsertDispute заполняет ID и номер спора.
func (s *sqlTx) InsertDispute(ctx context.Context, d *models.Dispute) error {
	query := `
		INSERT INTO disputes (
			dispute_number, order_id, customer_id, vendor_id, reason, reason_code, status, created_at, updated_at
		)
		VALUES (
			'DSP-' || to_char($7::timestamptz AT TIME ZONE 'UTC', 'YYYYMMDD') || '-' || lpad(nextval('dispute_number_seq')::text, 6, '0'),
			$1, $2, $3, $4, $5, $6, $7, $7
		)
		RETURNING id, dispute_number
	`
	err := s.tx.QueryRowxContext(ctx, query,
		d.OrderID, d.CustomerID, d.VendorID, d.Reason, d.ReasonCode, d.Status, d.CreatedAt,
	).Scan(&d.ID, &d.DisputeNumber)
	if err != nil {
		if common.IsUniqueViolation(err, "disputes_order_id_key") {
			return ErrDuplicateDispute
		}
		return fmt.Errorf("dispute repository: insert %w", err)
	}
	d.UpdatedAt = d.CreatedAt
	return nil
}

func (s *sqlTx) LockDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return common.GetForUpdate[models.Dispute](ctx, s.tx, "disputes", id, apperror.ErrDisputeNotFound)
}

// UpdateDispute пишет статус, решение и отметку о закрытии одним UPDATE.
func (s *sqlTx) UpdateDispute(ctx context.Context, d *models.Dispute) error {
	query := `
		UPDATE disputes
		SET status = $2, resolution = $3, resolution_notes = $4, resolved_by = $5, resolved_at = $6, updated_at = $7
		WHERE id = $1
	`
	if _, err := s.tx.ExecContext(ctx, query,
		d.ID, d.Status, d.Resolution, d.ResolutionNotes, d.ResolvedBy, d.ResolvedAt, d.UpdatedAt,
	); err != nil {
		return fmt.Errorf("dispute repository: update %w", err)
	}
	return nil
}

func (s *sqlTx) InsertTransaction(ctx context.Context, t *models.Transaction) error {
	query := `
		INSERT INTO transactions (
			user_id, type, category, amount, status, reference_type, reference_id, description, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id
	`
	err := s.tx.QueryRowxContext(ctx, query,
		t.UserID, t.Type, t.Category, t.Amount, t.Status, t.ReferenceType, t.ReferenceID, t.Description, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("transaction repository: insert %w", err)
	}
	t.UpdatedAt = t.CreatedAt
	return nil
}

// HasEarning - исполнителю уже начислен заработок за заказ (не сторнированный).
func (s *sqlTx) HasEarning(ctx context.Context, orderID, vendorID uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE user_id = $1 AND reference_type = $2 AND reference_id = $3
				AND type = 'credit' AND category = 'earning' AND status <> 'reversed'
		)
	`
	if err := s.tx.GetContext(ctx, &exists, query, vendorID, models.ReferenceOrder, orderID); err != nil {
		return false, fmt.Errorf("transaction repository: has earning %w", err)
	}
	return exists, nil
}

func (s *sqlTx) LockTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return common.GetForUpdate[models.Transaction](ctx, s.tx, "transactions", id, apperror.ErrTxNotFound)
}

// UpdateTransactionStatus меняет только статус; сумма и остальные поля неизменны.
func (s *sqlTx) UpdateTransactionStatus(ctx context.Context, t *models.Transaction) error {
	query := `UPDATE transactions SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := s.tx.ExecContext(ctx, query, t.ID, t.Status, t.UpdatedAt); err != nil {
		return fmt.Errorf("transaction repository: update status %w", err)
	}
	return nil
}

// LockUserLedger сериализует запись в журнал одного пользователя до конца транзакции.
func (s *sqlTx) LockUserLedger(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID.String()); err != nil {
		return fmt.Errorf("transaction repository: advisory lock %w", err)
	}
	return nil
}

func (s *sqlTx) ListUserTransactions(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	return listUserTransactions(ctx, s.tx, userID)
}

func listUserTransactions(ctx context.Context, q sqlx.QueryerContext, userID uuid.UUID) ([]models.Transaction, error) {
	var txs []models.Transaction
	query := `SELECT * FROM transactions WHERE user_id = $1 ORDER BY created_at ASC`
	if err := sqlx.SelectContext(ctx, q, &txs, query, userID); err != nil {
		return nil, fmt.Errorf("transaction repository: list by user %w", err)
	}
	return txs, nil
}
