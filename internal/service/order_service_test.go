package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/service-marketplace/internal/domain/ledger"
	vo "github.com/ignatzorin/service-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/service-marketplace/internal/models"
	"github.com/ignatzorin/service-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/service-marketplace/internal/repository"
)

const disputeWindow = 21 * 24 * time.Hour

type orderFixture struct {
	svc      *OrderService
	store    *memStore
	notifier *mockNotifier
	clock    *testClock
	customer Caller
	vendor   Caller
	service  models.Service
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	f := &orderFixture{
		store:    newMemStore(),
		notifier: newNotifierMock(),
		clock:    &testClock{t: time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.UTC)},
		customer: Caller{UserID: uuid.New(), Role: vo.RoleCustomer},
		vendor:   Caller{UserID: uuid.New(), Role: vo.RoleVendor},
	}
	f.service = f.store.addService(f.vendor.UserID, "200.00", true)
	f.svc = NewOrderService(f.store, f.store, f.notifier, newActivityMock(), disputeWindow)
	f.svc.dispatch = runInline
	f.svc.clock = f.clock.Now
	return f
}

func (f *orderFixture) create(t *testing.T) *models.Order {
	t.Helper()
	order, err := f.svc.Create(context.Background(), f.customer, CreateOrderInput{ServiceID: f.service.ID})
	require.NoError(t, err)
	return order
}

func (f *orderFixture) confirmed(t *testing.T) *models.Order {
	t.Helper()
	order := f.create(t)
	_, err := f.svc.Accept(context.Background(), f.vendor, order.ID)
	require.NoError(t, err)
	return order
}

func (f *orderFixture) completed(t *testing.T) *models.Order {
	t.Helper()
	order := f.confirmed(t)
	_, err := f.svc.Complete(context.Background(), f.customer, order.ID)
	require.NoError(t, err)
	return order
}

func TestOrderService_FullScenario(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, f.customer, CreateOrderInput{ServiceID: f.service.ID})
	require.NoError(t, err)
	assert.Equal(t, vo.OrderStatusPending, order.Status)
	assert.Equal(t, vo.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, "200.00", order.Price.String())
	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-20260301-"))

	_, err = f.svc.Accept(ctx, f.vendor, order.ID)
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, f.customer, order.ID)
	require.NoError(t, err)

	dispute, err := f.svc.OpenDispute(ctx, f.customer, order.ID, OpenDisputeInput{
		Reason:     "Уборка выполнена не полностью",
		ReasonCode: vo.ReasonPoorQuality,
	})
	require.NoError(t, err)
	assert.Equal(t, vo.DisputeStatusPending, dispute.Status)
	assert.Equal(t, vo.OrderStatusDisputed, f.store.order(order.ID).Status)

	_, err = f.svc.OpenDispute(ctx, f.customer, order.ID, OpenDisputeInput{Reason: "ещё раз", ReasonCode: vo.ReasonOther})
	assert.True(t, apperror.IsConflict(err), "повторный спор: %v", err)

	history, err := f.svc.History(ctx, f.customer, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Nil(t, history[0].FromStatus)
	assert.Equal(t, vo.OrderStatusDisputed, history[3].ToStatus)

	customerLedger := f.store.ledgerOf(f.customer.UserID)
	require.Len(t, customerLedger, 1)
	assert.Equal(t, vo.TransactionTypeDebit, customerLedger[0].Type)
	assert.Equal(t, vo.CategoryOrder, customerLedger[0].Category)

	vendorLedger := f.store.ledgerOf(f.vendor.UserID)
	require.Len(t, vendorLedger, 1)
	assert.Equal(t, vo.CategoryEarning, vendorLedger[0].Category)
	assert.Equal(t, "200.00", vendorLedger[0].Amount.String())

	f.notifier.AssertCalled(t, "Notify", mock.Anything, f.vendor.UserID, "Новый заказ", mock.Anything, models.NotificationCategoryOrder, mock.Anything, false)
	f.notifier.AssertCalled(t, "Notify", mock.Anything, f.vendor.UserID, "Открыт спор по заказу", mock.Anything, models.NotificationCategoryDispute, mock.Anything, true)
}

func TestOrderService_SecondDisputeWhileCompletedIsConflict(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.completed(t)

	_, err := f.svc.OpenDispute(ctx, f.customer, order.ID, OpenDisputeInput{Reason: "плохо", ReasonCode: vo.ReasonPoorQuality})
	require.NoError(t, err)

	// Спор отклонён, заказ снова completed, но второй спор по нему невозможен.
	f.store.setOrderStatus(order.ID, vo.OrderStatusCompleted)
	_, err = f.svc.OpenDispute(ctx, f.customer, order.ID, OpenDisputeInput{Reason: "снова", ReasonCode: vo.ReasonOther})
	assert.True(t, apperror.IsConflict(err))
}

func TestOrderService_ConcurrentDisputeUniqueViolationIsConflict(t *testing.T) {
	f := newOrderFixture(t)
	order := f.completed(t)
	f.store.insertDisputeErr = repository.ErrDuplicateDispute

	_, err := f.svc.OpenDispute(context.Background(), f.customer, order.ID, OpenDisputeInput{Reason: "нет", ReasonCode: vo.ReasonNoShow})

	assert.True(t, apperror.IsConflict(err))
	assert.Equal(t, vo.OrderStatusCompleted, f.store.order(order.ID).Status)
}

func TestOrderService_AcceptOnlyFromPending(t *testing.T) {
	statuses := []vo.OrderStatus{
		vo.OrderStatusConfirmed, vo.OrderStatusInProgress, vo.OrderStatusCompleted,
		vo.OrderStatusCancelled, vo.OrderStatusDisputed, vo.OrderStatusRefunded,
	}
	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			f := newOrderFixture(t)
			order := f.create(t)
			f.store.setOrderStatus(order.ID, status)

			_, err := f.svc.Accept(context.Background(), f.vendor, order.ID)
			assert.True(t, apperror.IsInvalidState(err))
			assert.Equal(t, status, f.store.order(order.ID).Status)
		})
	}

	t.Run("pending", func(t *testing.T) {
		f := newOrderFixture(t)
		order := f.create(t)
		accepted, err := f.svc.Accept(context.Background(), f.vendor, order.ID)
		require.NoError(t, err)
		assert.Equal(t, vo.OrderStatusConfirmed, accepted.Status)
	})
}

func TestOrderService_AcceptByCustomerForbidden(t *testing.T) {
	f := newOrderFixture(t)
	order := f.create(t)

	_, err := f.svc.Accept(context.Background(), f.customer, order.ID)
	assert.True(t, apperror.IsForbidden(err))
}

func TestOrderService_StrangerSeesNotFound(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	pending := f.create(t)
	confirmed := f.confirmed(t)
	price := money("300")
	edit, err := f.svc.ProposeEdit(ctx, f.vendor, confirmed.ID, ProposeEditInput{NewPrice: &price})
	require.NoError(t, err)

	for _, stranger := range []Caller{
		{UserID: uuid.New(), Role: vo.RoleCustomer},
		{UserID: uuid.New(), Role: vo.RoleVendor},
	} {
		_, err = f.svc.Accept(ctx, stranger, pending.ID)
		assert.True(t, apperror.IsNotFound(err), "accept: %v", err)

		_, err = f.svc.ProposeEdit(ctx, stranger, pending.ID, ProposeEditInput{NewPrice: &price})
		assert.True(t, apperror.IsNotFound(err), "propose edit: %v", err)

		_, err = f.svc.RespondEdit(ctx, stranger, confirmed.ID, edit.ID, true)
		assert.True(t, apperror.IsNotFound(err), "respond edit: %v", err)

		_, err = f.svc.Complete(ctx, stranger, confirmed.ID)
		assert.True(t, apperror.IsNotFound(err), "complete: %v", err)

		_, err = f.svc.Cancel(ctx, stranger, pending.ID, nil)
		assert.True(t, apperror.IsNotFound(err), "cancel: %v", err)
	}

	assert.Equal(t, vo.OrderStatusPending, f.store.order(pending.ID).Status)
	assert.Equal(t, vo.OrderStatusConfirmed, f.store.order(confirmed.ID).Status)
	assert.Equal(t, vo.EditStatusPending, f.store.edits[edit.ID].Status)

	// участник в чужой роли и администратор видят заказ и получают запрет
	_, err = f.svc.Complete(ctx, f.vendor, confirmed.ID)
	assert.True(t, apperror.IsForbidden(err))

	admin := Caller{UserID: uuid.New(), Role: vo.RoleAdmin}
	_, err = f.svc.Accept(ctx, admin, pending.ID)
	assert.True(t, apperror.IsForbidden(err), "admin accept")
	_, err = f.svc.Cancel(ctx, admin, pending.ID, nil)
	assert.True(t, apperror.IsForbidden(err), "admin cancel")
	_, err = f.svc.ProposeEdit(ctx, admin, pending.ID, ProposeEditInput{NewPrice: &price})
	assert.True(t, apperror.IsForbidden(err), "admin propose edit")
}

func TestOrderService_CompleteTwiceLeavesOrderUnchanged(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.completed(t)
	before := f.store.order(order.ID)

	f.clock.Advance(time.Hour)
	_, err := f.svc.Complete(ctx, f.customer, order.ID)

	assert.True(t, apperror.IsInvalidState(err))
	after := f.store.order(order.ID)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, before.CompletedAt, after.CompletedAt)
	assert.Len(t, f.store.ledgerOf(f.vendor.UserID), 1)
}

func TestOrderService_DisputeWindowIsInclusive(t *testing.T) {
	t.Run("ровно 21 день", func(t *testing.T) {
		f := newOrderFixture(t)
		order := f.completed(t)
		f.clock.Advance(disputeWindow)

		_, err := f.svc.OpenDispute(context.Background(), f.customer, order.ID, OpenDisputeInput{Reason: "r", ReasonCode: vo.ReasonOther})
		assert.NoError(t, err)
	})

	t.Run("21 день и 1 секунда", func(t *testing.T) {
		f := newOrderFixture(t)
		order := f.completed(t)
		f.clock.Advance(disputeWindow + time.Second)

		_, err := f.svc.OpenDispute(context.Background(), f.customer, order.ID, OpenDisputeInput{Reason: "r", ReasonCode: vo.ReasonOther})
		assert.True(t, apperror.IsForbidden(err))
		assert.Equal(t, vo.OrderStatusCompleted, f.store.order(order.ID).Status)
	})
}

func TestOrderService_OpenDisputeGuards(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	in := OpenDisputeInput{Reason: "r", ReasonCode: vo.ReasonOther}

	pending := f.create(t)
	_, err := f.svc.OpenDispute(ctx, f.customer, pending.ID, in)
	assert.True(t, apperror.IsForbidden(err), "pending заказ")

	confirmed := f.confirmed(t)
	_, err = f.svc.OpenDispute(ctx, f.vendor, confirmed.ID, in)
	assert.True(t, apperror.IsForbidden(err), "исполнитель")

	_, err = f.svc.OpenDispute(ctx, f.customer, uuid.New(), in)
	assert.True(t, apperror.IsNotFound(err))
}

func TestOrderService_CreateGuards(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.vendor, CreateOrderInput{ServiceID: f.service.ID})
	assert.True(t, apperror.IsForbidden(err))

	inactive := f.store.addService(f.vendor.UserID, "50.00", false)
	_, err = f.svc.Create(ctx, f.customer, CreateOrderInput{ServiceID: inactive.ID})
	assert.True(t, apperror.IsNotFound(err))

	assert.Empty(t, f.store.ledgerOf(f.customer.UserID))
}

func TestOrderService_CreateThenGetRoundTrip(t *testing.T) {
	f := newOrderFixture(t)
	require.NotZero(t, f.clock.Now().Nanosecond()%int(time.Microsecond))
	order := f.create(t)

	details, err := f.svc.Get(context.Background(), f.customer, order.ID)

	require.NoError(t, err)
	assert.Zero(t, order.CreatedAt.Nanosecond()%int(time.Microsecond))
	assert.Equal(t, order.Price.String(), details.Order.Price.String())
	assert.Equal(t, order.Status, details.Order.Status)
	assert.Equal(t, order.CreatedAt, details.Order.CreatedAt)
	assert.Equal(t, order.UpdatedAt, details.Order.UpdatedAt)
	assert.Nil(t, details.Dispute)
	assert.Len(t, details.History, 1)
}

func TestOrderService_GetScope(t *testing.T) {
	f := newOrderFixture(t)
	order := f.create(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, Caller{UserID: uuid.New(), Role: vo.RoleCustomer}, order.ID)
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.svc.History(ctx, Caller{UserID: uuid.New(), Role: vo.RoleVendor}, order.ID)
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.svc.Get(ctx, Caller{UserID: uuid.New(), Role: vo.RoleAdmin}, order.ID)
	assert.NoError(t, err)
}

func TestOrderService_ListScopedByRole(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	f.create(t)
	f.create(t)

	other := Caller{UserID: uuid.New(), Role: vo.RoleCustomer}
	items, total, err := f.svc.List(ctx, other, nil, 15, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, total)

	_, total, err = f.svc.List(ctx, f.vendor, nil, 15, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	confirmed := vo.OrderStatusConfirmed
	_, total, err = f.svc.List(ctx, f.customer, &confirmed, 15, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestOrderService_EditAcceptCoalescesFields(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	slot := "10:00"
	order, err := f.svc.Create(ctx, f.customer, CreateOrderInput{ServiceID: f.service.ID, ServiceDate: &date, ServiceTime: &slot})
	require.NoError(t, err)

	price := money("250")
	edit, err := f.svc.ProposeEdit(ctx, f.vendor, order.ID, ProposeEditInput{NewPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, vo.PartyVendor, edit.ProposedBy)

	f.clock.Advance(time.Minute)
	answered, err := f.svc.RespondEdit(ctx, f.customer, order.ID, edit.ID, true)
	require.NoError(t, err)
	assert.Equal(t, vo.EditStatusAccepted, answered.Status)
	require.NotNil(t, answered.CustomerResponseAt)
	assert.Equal(t, f.clock.Now().Truncate(time.Microsecond), *answered.CustomerResponseAt)

	stored := f.store.order(order.ID)
	assert.Equal(t, "250.00", stored.Price.String())
	assert.Equal(t, date, *stored.ServiceDate)
	assert.Equal(t, "10:00", *stored.ServiceTime)
	assert.Equal(t, vo.OrderStatusConfirmed, stored.Status)
}

func TestOrderService_EditRejectKeepsOrder(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.confirmed(t)

	price := money("10")
	edit, err := f.svc.ProposeEdit(ctx, f.customer, order.ID, ProposeEditInput{NewPrice: &price})
	require.NoError(t, err)

	answered, err := f.svc.RespondEdit(ctx, f.vendor, order.ID, edit.ID, false)
	require.NoError(t, err)
	assert.Equal(t, vo.EditStatusRejected, answered.Status)
	assert.NotNil(t, answered.CustomerResponseAt)
	assert.Equal(t, "200.00", f.store.order(order.ID).Price.String())

	_, err = f.svc.RespondEdit(ctx, f.vendor, order.ID, edit.ID, true)
	assert.True(t, apperror.IsConflict(err), "повторный ответ")
}

func TestOrderService_EditGuards(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.create(t)
	price := money("300")

	_, err := f.svc.ProposeEdit(ctx, f.vendor, order.ID, ProposeEditInput{})
	assert.True(t, apperror.IsValidation(err), "пустое предложение")

	_, err = f.svc.ProposeEdit(ctx, Caller{UserID: uuid.New(), Role: vo.RoleVendor}, order.ID, ProposeEditInput{NewPrice: &price})
	assert.True(t, apperror.IsNotFound(err), "посторонний")

	edit, err := f.svc.ProposeEdit(ctx, f.vendor, order.ID, ProposeEditInput{NewPrice: &price})
	require.NoError(t, err)

	_, err = f.svc.ProposeEdit(ctx, f.customer, order.ID, ProposeEditInput{NewPrice: &price})
	assert.True(t, apperror.IsConflict(err), "второе открытое предложение")

	_, err = f.svc.RespondEdit(ctx, f.vendor, order.ID, edit.ID, true)
	assert.True(t, apperror.IsForbidden(err), "ответ автора")

	other := f.create(t)
	_, err = f.svc.RespondEdit(ctx, f.customer, other.ID, edit.ID, true)
	assert.True(t, apperror.IsNotFound(err), "правка чужого заказа")

	done := f.completed(t)
	_, err = f.svc.ProposeEdit(ctx, f.vendor, done.ID, ProposeEditInput{NewPrice: &price})
	assert.True(t, apperror.IsInvalidState(err), "завершённый заказ")
}

func TestOrderService_CancelRefundsCustomer(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.confirmed(t)
	reason := "планы изменились"

	cancelled, err := f.svc.Cancel(ctx, f.vendor, order.ID, &reason)

	require.NoError(t, err)
	assert.Equal(t, vo.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, vo.PaymentStatusRefunded, cancelled.PaymentStatus)
	assert.NotNil(t, cancelled.CancelledAt)

	summary := ledger.Summarize(f.store.ledgerOf(f.customer.UserID))
	assert.Equal(t, "0.00", summary.AvailableBalance.String())

	f.notifier.AssertCalled(t, "Notify", mock.Anything, f.customer.UserID, "Заказ отменён", mock.Anything, models.NotificationCategoryOrder, mock.Anything, false)

	done := f.completed(t)
	_, err = f.svc.Cancel(ctx, f.customer, done.ID, nil)
	assert.True(t, apperror.IsInvalidState(err))
}
