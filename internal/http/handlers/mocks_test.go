package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/service-marketplace/internal/domain/ledger"
	vo "github.com/ignatzorin/service-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/service-marketplace/internal/http/handlers/common"
	"github.com/ignatzorin/service-marketplace/internal/http/middleware"
	"github.com/ignatzorin/service-marketplace/internal/models"
	"github.com/ignatzorin/service-marketplace/internal/service"
)

var testPaging = common.Paging{Default: 15, Max: 50}

// newRouter - gin в тестовом режиме с ErrorHandler; caller == nil означает анонимный запрос.
func newRouter(caller *service.Caller) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	if caller != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.ContextCallerKey, *caller)
			c.Next()
		})
	}
	return r
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func do(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

type mockOrderService struct {
	mock.Mock
}

func (m *mockOrderService) Create(ctx context.Context, caller service.Caller, in service.CreateOrderInput) (*models.Order, error) {
	args := m.Called(ctx, caller, in)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *mockOrderService) Accept(ctx context.Context, caller service.Caller, orderID uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, caller, orderID)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *mockOrderService) ProposeEdit(ctx context.Context, caller service.Caller, orderID uuid.UUID, in service.ProposeEditInput) (*models.OrderEdit, error) {
	args := m.Called(ctx, caller, orderID, in)
	e, _ := args.Get(0).(*models.OrderEdit)
	return e, args.Error(1)
}

func (m *mockOrderService) RespondEdit(ctx context.Context, caller service.Caller, orderID, editID uuid.UUID, accept bool) (*models.OrderEdit, error) {
	args := m.Called(ctx, caller, orderID, editID, accept)
	e, _ := args.Get(0).(*models.OrderEdit)
	return e, args.Error(1)
}

func (m *mockOrderService) Complete(ctx context.Context, caller service.Caller, orderID uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, caller, orderID)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *mockOrderService) OpenDispute(ctx context.Context, caller service.Caller, orderID uuid.UUID, in service.OpenDisputeInput) (*models.Dispute, error) {
	args := m.Called(ctx, caller, orderID, in)
	d, _ := args.Get(0).(*models.Dispute)
	return d, args.Error(1)
}

func (m *mockOrderService) Cancel(ctx context.Context, caller service.Caller, orderID uuid.UUID, reason *string) (*models.Order, error) {
	args := m.Called(ctx, caller, orderID, reason)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *mockOrderService) Get(ctx context.Context, caller service.Caller, orderID uuid.UUID) (*models.OrderDetails, error) {
	args := m.Called(ctx, caller, orderID)
	d, _ := args.Get(0).(*models.OrderDetails)
	return d, args.Error(1)
}

func (m *mockOrderService) List(ctx context.Context, caller service.Caller, status *vo.OrderStatus, limit, offset int) ([]models.Order, int, error) {
	args := m.Called(ctx, caller, status, limit, offset)
	o, _ := args.Get(0).([]models.Order)
	return o, args.Int(1), args.Error(2)
}

func (m *mockOrderService) History(ctx context.Context, caller service.Caller, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	args := m.Called(ctx, caller, orderID)
	h, _ := args.Get(0).([]models.OrderStatusHistory)
	return h, args.Error(1)
}

type mockDisputeService struct {
	mock.Mock
}

func (m *mockDisputeService) List(ctx context.Context, caller service.Caller, status *vo.DisputeStatus, limit, offset int) ([]models.Dispute, int, error) {
	args := m.Called(ctx, caller, status, limit, offset)
	d, _ := args.Get(0).([]models.Dispute)
	return d, args.Int(1), args.Error(2)
}

func (m *mockDisputeService) Get(ctx context.Context, caller service.Caller, id uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, caller, id)
	d, _ := args.Get(0).(*models.Dispute)
	return d, args.Error(1)
}

func (m *mockDisputeService) Review(ctx context.Context, caller service.Caller, id uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, caller, id)
	d, _ := args.Get(0).(*models.Dispute)
	return d, args.Error(1)
}

func (m *mockDisputeService) Resolve(ctx context.Context, caller service.Caller, id uuid.UUID, resolution vo.DisputeResolution, notes string) (*models.Dispute, error) {
	args := m.Called(ctx, caller, id, resolution, notes)
	d, _ := args.Get(0).(*models.Dispute)
	return d, args.Error(1)
}

func (m *mockDisputeService) Reject(ctx context.Context, caller service.Caller, id uuid.UUID, notes string) (*models.Dispute, error) {
	args := m.Called(ctx, caller, id, notes)
	d, _ := args.Get(0).(*models.Dispute)
	return d, args.Error(1)
}

type mockWalletService struct {
	mock.Mock
}

func (m *mockWalletService) Summary(ctx context.Context, caller service.Caller) (ledger.Summary, error) {
	args := m.Called(ctx, caller)
	return args.Get(0).(ledger.Summary), args.Error(1)
}

func (m *mockWalletService) ListTransactions(ctx context.Context, caller service.Caller, filter models.TransactionFilter) ([]models.Transaction, int, error) {
	args := m.Called(ctx, caller, filter)
	txs, _ := args.Get(0).([]models.Transaction)
	return txs, args.Int(1), args.Error(2)
}

func (m *mockWalletService) RequestPayout(ctx context.Context, caller service.Caller, amount vo.Money) (*models.Transaction, error) {
	args := m.Called(ctx, caller, amount)
	tx, _ := args.Get(0).(*models.Transaction)
	return tx, args.Error(1)
}

func (m *mockWalletService) UpdateTransactionStatus(ctx context.Context, caller service.Caller, id uuid.UUID, status vo.TransactionStatus) (*models.Transaction, error) {
	args := m.Called(ctx, caller, id, status)
	tx, _ := args.Get(0).(*models.Transaction)
	return tx, args.Error(1)
}

type mockNotificationService struct {
	mock.Mock
}

func (m *mockNotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, int, error) {
	args := m.Called(ctx, userID, limit, offset, unreadOnly)
	n, _ := args.Get(0).([]models.Notification)
	return n, args.Int(1), args.Error(2)
}

func (m *mockNotificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *mockNotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}
