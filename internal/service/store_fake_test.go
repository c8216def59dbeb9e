package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	vo "github.com/ignatzorin/service-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/service-marketplace/internal/models"
	"github.com/ignatzorin/service-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/service-marketplace/internal/repository"
)

var _ repository.Tx = (*memStore)(nil)

// memStore - хранилище в памяти: транзакция откатывается целиком при ошибке fn.
type memStore struct {
	mu       sync.Mutex
	services map[uuid.UUID]models.Service
	orders   map[uuid.UUID]models.Order
	edits    map[uuid.UUID]models.OrderEdit
	disputes map[uuid.UUID]models.Dispute
	history  []models.OrderStatusHistory
	txs      []models.Transaction
	seq      int

	// insertDisputeErr имитирует UNIQUE на disputes.order_id при гонке.
	insertDisputeErr error
	txCount          int
}

func newMemStore() *memStore {
	return &memStore{
		services: map[uuid.UUID]models.Service{},
		orders:   map[uuid.UUID]models.Order{},
		edits:    map[uuid.UUID]models.OrderEdit{},
		disputes: map[uuid.UUID]models.Dispute{},
	}
}

type memSnapshot struct {
	orders   map[uuid.UUID]models.Order
	edits    map[uuid.UUID]models.OrderEdit
	disputes map[uuid.UUID]models.Dispute
	history  []models.OrderStatusHistory
	txs      []models.Transaction
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		orders:   make(map[uuid.UUID]models.Order, len(m.orders)),
		edits:    make(map[uuid.UUID]models.OrderEdit, len(m.edits)),
		disputes: make(map[uuid.UUID]models.Dispute, len(m.disputes)),
		history:  append([]models.OrderStatusHistory(nil), m.history...),
		txs:      append([]models.Transaction(nil), m.txs...),
	}
	for k, v := range m.orders {
		s.orders[k] = v
	}
	for k, v := range m.edits {
		s.edits[k] = v
	}
	for k, v := range m.disputes {
		s.disputes[k] = v
	}
	return s
}

func (m *memStore) WithinTx(_ context.Context, fn func(repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.txCount++
	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.orders, m.edits, m.disputes, m.history, m.txs = snap.orders, snap.edits, snap.disputes, snap.history, snap.txs
		return err
	}
	return nil
}

func (m *memStore) addService(vendorID uuid.UUID, price string, active bool) models.Service {
	svc := models.Service{ID: uuid.New(), VendorID: vendorID, Title: "Уборка", Price: money(price), IsActive: active}
	m.services[svc.ID] = svc
	return svc
}

func (m *memStore) order(id uuid.UUID) models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id]
}

func (m *memStore) setOrderStatus(id uuid.UUID, status vo.OrderStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orders[id]
	o.Status = status
	m.orders[id] = o
}

func (m *memStore) ledgerOf(userID uuid.UUID) []models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, t := range m.txs {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

// Tx

func (m *memStore) LockOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, apperror.ErrOrderNotFound
	}
	return &o, nil
}

func (m *memStore) GetActiveService(_ context.Context, id uuid.UUID) (*models.Service, error) {
	svc, ok := m.services[id]
	if !ok || !svc.IsActive {
		return nil, apperror.ErrServiceNotFound
	}
	return &svc, nil
}

func (m *memStore) InsertOrder(_ context.Context, o *models.Order) error {
	m.seq++
	o.ID = uuid.New()
	o.OrderNumber = fmt.Sprintf("ORD-%s-%06d", o.CreatedAt.Format("20060102"), m.seq)
	o.UpdatedAt = o.CreatedAt
	m.orders[o.ID] = storedOrder(*o)
	return nil
}

func (m *memStore) UpdateOrder(_ context.Context, o *models.Order) error {
	if _, ok := m.orders[o.ID]; !ok {
		return apperror.ErrOrderNotFound
	}
	m.orders[o.ID] = storedOrder(*o)
	return nil
}

// storedOrder округляет отметки времени до микросекунд, как timestamptz.
func storedOrder(o models.Order) models.Order {
	o.CreatedAt = o.CreatedAt.Round(time.Microsecond)
	o.UpdatedAt = o.UpdatedAt.Round(time.Microsecond)
	if o.CompletedAt != nil {
		completed := o.CompletedAt.Round(time.Microsecond)
		o.CompletedAt = &completed
	}
	if o.CancelledAt != nil {
		cancelled := o.CancelledAt.Round(time.Microsecond)
		o.CancelledAt = &cancelled
	}
	return o
}

func (m *memStore) AddHistory(_ context.Context, h *models.OrderStatusHistory) error {
	h.ID = uuid.New()
	m.history = append(m.history, *h)
	return nil
}

func (m *memStore) HasPendingEdit(_ context.Context, orderID uuid.UUID) (bool, error) {
	for _, e := range m.edits {
		if e.OrderID == orderID && e.Status == vo.EditStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) InsertEdit(_ context.Context, e *models.OrderEdit) error {
	e.ID = uuid.New()
	m.edits[e.ID] = *e
	return nil
}

func (m *memStore) LockEdit(_ context.Context, orderID, editID uuid.UUID) (*models.OrderEdit, error) {
	e, ok := m.edits[editID]
	if !ok || e.OrderID != orderID {
		return nil, apperror.ErrEditNotFound
	}
	return &e, nil
}

func (m *memStore) UpdateEdit(_ context.Context, e *models.OrderEdit) error {
	m.edits[e.ID] = *e
	return nil
}

func (m *memStore) DisputeExists(_ context.Context, orderID uuid.UUID) (bool, error) {
	for _, d := range m.disputes {
		if d.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) InsertDispute(_ context.Context, d *models.Dispute) error {
	if m.insertDisputeErr != nil {
		return m.insertDisputeErr
	}
	m.seq++
	d.ID = uuid.New()
	d.DisputeNumber = fmt.Sprintf("DSP-%s-%06d", d.CreatedAt.Format("20060102"), m.seq)
	d.UpdatedAt = d.CreatedAt
	m.disputes[d.ID] = *d
	return nil
}

func (m *memStore) LockDispute(_ context.Context, id uuid.UUID) (*models.Dispute, error) {
	d, ok := m.disputes[id]
	if !ok {
		return nil, apperror.ErrDisputeNotFound
	}
	return &d, nil
}

func (m *memStore) UpdateDispute(_ context.Context, d *models.Dispute) error {
	m.disputes[d.ID] = *d
	return nil
}

func (m *memStore) InsertTransaction(_ context.Context, t *models.Transaction) error {
	t.ID = uuid.New()
	t.UpdatedAt = t.CreatedAt
	m.txs = append(m.txs, *t)
	return nil
}

func (m *memStore) HasEarning(_ context.Context, orderID, vendorID uuid.UUID) (bool, error) {
	for _, t := range m.txs {
		if t.UserID == vendorID && t.ReferenceID != nil && *t.ReferenceID == orderID &&
			t.Type == vo.TransactionTypeCredit && t.Category == vo.CategoryEarning && t.Status != vo.TransactionStatusReversed {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) LockTransaction(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	for _, t := range m.txs {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, apperror.ErrTxNotFound
}

func (m *memStore) UpdateTransactionStatus(_ context.Context, t *models.Transaction) error {
	for i := range m.txs {
		if m.txs[i].ID == t.ID {
			m.txs[i].Status = t.Status
			m.txs[i].UpdatedAt = t.UpdatedAt
			return nil
		}
	}
	return apperror.ErrTxNotFound
}

func (m *memStore) LockUserLedger(context.Context, uuid.UUID) error {
	return nil
}

func (m *memStore) ListUserTransactions(_ context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, t := range m.txs {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

// OrderReader

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LockOrder(context.Background(), id)
}

func (m *memStore) GetDetails(_ context.Context, id uuid.UUID) (*models.OrderDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, apperror.ErrOrderNotFound
	}
	details := &models.OrderDetails{Order: &o, Edits: []models.OrderEdit{}, History: m.historyOf(id)}
	for _, e := range m.edits {
		if e.OrderID == id {
			details.Edits = append(details.Edits, e)
		}
	}
	for _, d := range m.disputes {
		if d.OrderID == id {
			d := d
			details.Dispute = &d
		}
	}
	return details, nil
}

func (m *memStore) List(_ context.Context, filter models.OrderFilter) ([]models.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Order{}
	for _, o := range m.orders {
		if filter.CustomerID != nil && o.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.VendorID != nil && o.VendorID != *filter.VendorID {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		out = append(out, o)
	}
	return out, len(out), nil
}

func (m *memStore) ListHistory(_ context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historyOf(orderID), nil
}

func (m *memStore) historyOf(orderID uuid.UUID) []models.OrderStatusHistory {
	out := []models.OrderStatusHistory{}
	for _, h := range m.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out
}

// disputeReader и transactionReader - обёртки, т.к. имена методов пересекаются с OrderReader.

type disputeReader struct{ m *memStore }

func (r disputeReader) GetByID(_ context.Context, id uuid.UUID) (*models.Dispute, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.LockDispute(context.Background(), id)
}

func (r disputeReader) List(_ context.Context, filter models.DisputeFilter) ([]models.Dispute, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	out := []models.Dispute{}
	for _, d := range r.m.disputes {
		if filter.CustomerID != nil && d.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.VendorID != nil && d.VendorID != *filter.VendorID {
			continue
		}
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, len(out), nil
}

func (r disputeReader) EscalateStale(_ context.Context, before, now time.Time) ([]models.Dispute, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	out := []models.Dispute{}
	for id, d := range r.m.disputes {
		if d.Status == vo.DisputeStatusPending && d.CreatedAt.Before(before) {
			d.Status = vo.DisputeStatusUnderReview
			d.UpdatedAt = now
			r.m.disputes[id] = d
			out = append(out, d)
		}
	}
	return out, nil
}

type transactionReader struct{ m *memStore }

func (r transactionReader) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	return r.m.ledgerOf(userID), nil
}

func (r transactionReader) List(_ context.Context, userID uuid.UUID, _ models.TransactionFilter) ([]models.Transaction, int, error) {
	txs := r.m.ledgerOf(userID)
	return txs, len(txs), nil
}

// Общие помощники тестов.

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func money(s string) vo.Money {
	m, err := vo.ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func runInline(fn func()) { fn() }

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, userID uuid.UUID, title, body, category string, metadata map[string]any, sendEmail bool) (*models.Notification, error) {
	args := m.Called(ctx, userID, title, body, category, metadata, sendEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

type mockActivity struct {
	mock.Mock
}

func (m *mockActivity) Log(ctx context.Context, userID uuid.UUID, action, description, subjectType string, subjectID uuid.UUID) {
	m.Called(ctx, userID, action, description, subjectType, subjectID)
}

func newNotifierMock() *mockNotifier {
	n := new(mockNotifier)
	n.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&models.Notification{}, nil)
	return n
}

func newActivityMock() *mockActivity {
	a := new(mockActivity)
	a.On("Log", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()
	return a
}
