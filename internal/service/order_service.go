package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	vo "github.com/ignatzorin/service-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/service-marketplace/internal/models"
	"github.com/ignatzorin/service-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/service-marketplace/internal/repository"
)

// OrderReader - чтение заказов вне транзакций.
type OrderReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetDetails(ctx context.Context, id uuid.UUID) (*models.OrderDetails, error)
	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int, error)
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
}

type CreateOrderInput struct {
	ServiceID   uuid.UUID
	ServiceDate *time.Time
	ServiceTime *string
	Location    *string
	Notes       *string
}

// ProposeEditInput - хотя бы одно из новых значений должно быть задано.
type ProposeEditInput struct {
	NewPrice       *vo.Money
	NewServiceDate *time.Time
	NewServiceTime *string
	Reason         *string
}

func (in ProposeEditInput) empty() bool {
	return in.NewPrice == nil && in.NewServiceDate == nil && in.NewServiceTime == nil
}

type OpenDisputeInput struct {
	Reason     string
	ReasonCode vo.DisputeReasonCode
}

// OrderService управляет жизненным циклом заказа.
type OrderService struct {
	tx            TxRunner
	orders        OrderReader
	disputeWindow time.Duration
	sideEffects
}

func NewOrderService(tx TxRunner, orders OrderReader, notifier Notifier, activity ActivityLogger, disputeWindow time.Duration) *OrderService {
	return &OrderService{
		tx:            tx,
		orders:        orders,
		disputeWindow: disputeWindow,
		sideEffects:   newSideEffects(notifier, activity),
	}
}

// Create оформляет заказ по активной услуге. Оплата списывается сразу.
func (s *OrderService) Create(ctx context.Context, caller Caller, in CreateOrderInput) (*models.Order, error) {
	if caller.Role != vo.RoleCustomer {
		return nil, apperror.Forbidden("оформлять заказы могут только клиенты")
	}

	now := s.now()
	var order *models.Order
	err := s.tx.WithinTx(ctx, func(tx repository.Tx) error {
		svc, err := tx.GetActiveService(ctx, in.ServiceID)
		if err != nil {
			return err
		}

		order = &models.Order{
			CustomerID:    caller.UserID,
			VendorID:      svc.VendorID,
			ServiceID:     svc.ID,
			Price:         svc.Price,
			Status:        vo.OrderStatusPending,
			PaymentStatus: vo.PaymentStatusPaid,
			ServiceDate:   in.ServiceDate,
			ServiceTime:   in.ServiceTime,
			Location:      in.Location,
			Notes:         in.Notes,
			CreatedAt:     now,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		if err := tx.AddHistory(ctx, models.NewStatusChange(order.ID, nil, vo.OrderStatusPending, caller.UserID, nil, now)); err != nil {
			return err
		}

		return tx.InsertTransaction(ctx, ledgerEntry(
			caller.UserID, vo.TransactionTypeDebit, vo.CategoryOrder, order.Price, vo.TransactionStatusCompleted,
			models.ReferenceOrder, order.ID, "Оплата заказа "+order.OrderNumber, now,
		))
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notice{
		userID:   order.VendorID,
		title:    "Новый заказ",
		body:     fmt.Sprintf("Поступил заказ %s на сумму %s", order.OrderNumber, order.Price),
		category: models.NotificationCategoryOrder,
		metadata: orderMeta(order),
	})
	s.logActivity(ctx, caller.UserID, "order.created", "Создан заказ "+order.OrderNumber, models.ReferenceOrder, order.ID)

	return order, nil
}

// Accept - исполнитель подтверждает заказ, ожидающий решения.
func (s *OrderService) Accept(ctx context.Context, caller Caller, orderID uuid.UUID) (*models.Order, error) {
	now := s.now()
	var order *models.Order
	err := s.tx.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		if order, err = tx.LockOrder(ctx, orderID); err != nil {
			return err
		}
		if !canSeeOrder(caller, order) {
			return apperror.ErrOrderNotFound
		}
		if order.VendorID != caller.UserID {
			return apperror.Forbidden("принять заказ может только исполнитель")
		}
		if order.Status != vo.OrderStatusPending {
			return invalidTransition(order.Status, vo.OrderStatusConfirmed)
		}
		return changeOrderStatus(ctx, tx, order, vo.OrderStatusConfirmed, caller.UserID, nil, now)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notice{
		userID:   order.CustomerID,
		title:    "Заказ подтверждён",
		body:     fmt.Sprintf("Исполнитель подтвердил заказ %s", order.OrderNumber),
		category: models.NotificationCategoryOrder,
		metadata: orderMeta(order),
	})
	s.logActivity(ctx, caller.UserID, "order.accepted", "Подтверждён заказ "+order.OrderNumber, models.ReferenceOrder, order.ID)

	return order, nil
}

// ProposeEdit создаёт предложение изменить цену, дату или время.
func (s *OrderService) ProposeEdit(ctx context.Context, caller Caller, orderID uuid.UUID, in ProposeEditInput) (*models.OrderEdit, error) {
	if in.empty() {
		return nil, apperror.Validation(map[string]string{
			"edit": "укажите новую цену, дату или время",
		})
	}

	now := s.now()
	var (
		order *models.Order
		edit  *models.OrderEdit
	)
	err := s.tx.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		if order, err = tx.LockOrder(ctx, orderID); err != nil {
			return err
		}
		if !canSeeOrder(caller, order) {
			return apperror.ErrOrderNotFound
		}
		party, ok := order.PartyOf(caller.UserID)
		if !ok {
			return apperror.Forbidden("предлагать изменения могут только участники заказа")
		}
		if !order.Status.In(vo.OrderStatusPending, vo.OrderStatusConfirmed) {
			return apperror.InvalidState(fmt.Sprintf("заказ в статусе %s нельзя изменить", order.Status))
		}

		pending, err := tx.HasPendingEdit(ctx, order.ID)
		if err != nil {
			return err
		}
		if pending {
			return repository.ErrDuplicatePendingEdit
		}

		edit = &models.OrderEdit{
			OrderID:          order.ID,
			ProposedBy:       party,
			ProposedByUserID: caller.UserID,
			NewPrice:         in.NewPrice,
			NewServiceDate:   in.NewServiceDate,
			NewServiceTime:   in.NewServiceTime,
			Reason:           in.Reason,
			Status:           vo.EditStatusPending,
			CreatedAt:        now,
		}
		return tx.InsertEdit(ctx, edit)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notice{
		userID:   order.Counterparty(caller.UserID),
		title:    "Предложены изменения заказа",
		body:     fmt.Sprintf("По заказу %s предложены изменения, ожидается ваш ответ", order.OrderNumber),
		category: models.NotificationCategoryOrder,
		metadata: map[string]any{"order_id": order.ID, "edit_id": edit.ID},
	})
	s.logActivity(ctx, caller.UserID, "order.edit_proposed", "Предложены изменения заказа "+order.OrderNumber, models.ReferenceOrder, order.ID)

	return edit, nil
}

// RespondEdit - вторая сторона принимает или отклоняет предложение.
// При принятии применяются только предложенные поля, заказ подтверждается.
func (s *OrderService) RespondEdit(ctx context.Context, caller Caller, orderID, editID uuid.UUID, accept bool) (*models.OrderEdit, error) {
	now := s.now()
	var (
		order *models.Order
		edit  *models.OrderEdit
	)
	err := s.tx.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		if order, err = tx.LockOrder(ctx, orderID); err != nil {
			return err
		}
		if !canSeeOrder(caller, order) {
			return apperror.ErrOrderNotFound
		}
		if edit, err = tx.LockEdit(ctx, order.ID, editID); err != nil {
			return err
		}
		if edit.Status != vo.EditStatusPending {
			return apperror.Conflict("на предложение уже дан ответ")
		}
		if caller.UserID != order.Counterparty(edit.ProposedByUserID) {
			return apperror.Forbidden("ответить на предложение может только вторая сторона заказа")
		}

		responded := now
		edit.CustomerResponseAt = &responded
		if !accept {
			edit.Status = vo.EditStatusRejected
			return tx.UpdateEdit(ctx, edit)
		}

		if !order.Status.In(vo.OrderStatusPending, vo.OrderStatusConfirmed) {
			return invalidTransition(order.Status, vo.OrderStatusConfirmed)
		}
		edit.Status = vo.EditStatusAccepted
		if err := tx.UpdateEdit(ctx, edit); err != nil {
			return err
		}

		edit.ApplyTo(order)
		if order.Status == vo.OrderStatusConfirmed {
			order.UpdatedAt = now
			return tx.UpdateOrder(ctx, order)
		}
		note := "принято предложение изменений"
		return changeOrderStatus(ctx, tx, order, vo.OrderStatusConfirmed, caller.UserID, &note, now)
	})
	if err != nil {
		return nil, err
	}

	verdict, action := "отклонены", "order.edit_rejected"
	if accept {
		verdict, action = "приняты", "order.edit_accepted"
	}
	s.notify(ctx, notice{
		userID:   edit.ProposedByUserID,
		title:    "Ответ на предложение изменений",
		body:     fmt.Sprintf("Изменения по заказу %s %s", order.OrderNumber, verdict),
		category: models.NotificationCategoryOrder,
		metadata: map[string]any{"order_id": order.ID, "edit_id": edit.ID, "accepted": accept},
	})
	s.logActivity(ctx, caller.UserID, action, "Изменения заказа "+order.OrderNumber+" "+verdict, models.ReferenceOrder, order.ID)

	return edit, nil
}

// Complete - клиент подтверждает выполнение, исполнителю начисляется заработок.
func (s *OrderService) Complete(ctx context.Context, caller Caller, orderID uuid.UUID) (*models.Order, error) {
	now := s.now()
	var order *models.Order
	err := s.tx.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		if order, err = tx.LockOrder(ctx, orderID); err != nil {
			return err
		}
		if !canSeeOrder(caller, order) {
			return apperror.ErrOrderNotFound
		}
		if order.CustomerID != caller.UserID {
			return apperror.Forbidden("завершить заказ может только клиент")
		}
		if order.Status != vo.OrderStatusConfirmed {
			return invalidTransition(order.Status, vo.OrderStatusCompleted)
		}

		completed := now
		order.CompletedAt = &completed
		if err := changeOrderStatus(ctx, tx, order, vo.OrderStatusCompleted, caller.UserID, nil, now); err != nil {
			return err
		}
		return tx.InsertTransaction(ctx, earningEntry(order, now))
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notice{
		userID:   order.VendorID,
		title:    "Заказ завершён",
		body:     fmt.Sprintf("Клиент подтвердил выполнение заказа %s, начислено %s", order.OrderNumber, order.Price),
		category: models.NotificationCategoryOrder,
		metadata: orderMeta(order),
	})
	s.logActivity(ctx, caller.UserID, "order.completed", "Завершён заказ "+order.OrderNumber, models.ReferenceOrder, order.ID)

	return order, nil
}

// OpenDispute - клиент открывает спор по заказу в пределах окна подачи.
func (s *OrderService) OpenDispute(ctx context.Context, caller Caller, orderID uuid.UUID, in OpenDisputeInput) (*models.Dispute, error) {
	now := s.now()
	var (
		order   *models.Order
		dispute *models.Dispute
	)
	err := s.tx.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		if order, err = tx.LockOrder(ctx, orderID); err != nil {
			return err
		}
		if order.CustomerID != caller.UserID {
			return apperror.Forbidden("открыть спор может только клиент заказа")
		}
		exists, err := tx.DisputeExists(ctx, order.ID)
		if err != nil {
			return err
		}
		if exists {
			return repository.ErrDuplicateDispute
		}
		if !order.Status.In(vo.OrderStatusConfirmed, vo.OrderStatusCompleted) {
			return apperror.Forbidden("спор можно открыть только по подтверждённому или завершённому заказу")
		}

		if now.After(order.CreatedAt.Add(s.disputeWindow)) {
			return apperror.Forbidden("срок подачи спора по заказу истёк")
		}

		dispute = &models.Dispute{
			OrderID:    order.ID,
			CustomerID: order.CustomerID,
			VendorID:   order.VendorID,
			Reason:     in.Reason,
			ReasonCode: in.ReasonCode,
			Status:     vo.DisputeStatusPending,
			CreatedAt:  now,
		}
		if err := tx.InsertDispute(ctx, dispute); err != nil {
			return err
		}
		return changeOrderStatus(ctx, tx, order, vo.OrderStatusDisputed, caller.UserID, &in.Reason, now)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notice{
		userID:    order.VendorID,
		title:     "Открыт спор по заказу",
		body:      fmt.Sprintf("Клиент открыл спор %s по заказу %s: %s", dispute.DisputeNumber, order.OrderNumber, dispute.Reason),
		category:  models.NotificationCategoryDispute,
		metadata:  disputeMeta(dispute),
		sendEmail: true,
	})
	s.logActivity(ctx, caller.UserID, "dispute.opened", "Открыт спор "+dispute.DisputeNumber, models.ReferenceDispute, dispute.ID)

	return dispute, nil
}

// Cancel - любая сторона отменяет заказ до выполнения, клиенту возвращается оплата.
func (s *OrderService) Cancel(ctx context.Context, caller Caller, orderID uuid.UUID, reason *string) (*models.Order, error) {
	now := s.now()
	var order *models.Order
	err := s.tx.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		if order, err = tx.LockOrder(ctx, orderID); err != nil {
			return err
		}
		if !canSeeOrder(caller, order) {
			return apperror.ErrOrderNotFound
		}
		if !order.IsParticipant(caller.UserID) {
			return apperror.Forbidden("отменить заказ могут только его участники")
		}
		if !order.Status.In(vo.OrderStatusPending, vo.OrderStatusConfirmed) {
			return invalidTransition(order.Status, vo.OrderStatusCancelled)
		}

		cancelled := now
		order.CancelledAt = &cancelled
		order.PaymentStatus = vo.PaymentStatusRefunded
		if err := changeOrderStatus(ctx, tx, order, vo.OrderStatusCancelled, caller.UserID, reason, now); err != nil {
			return err
		}
		return tx.InsertTransaction(ctx, ledgerEntry(
			order.CustomerID, vo.TransactionTypeCredit, vo.CategoryRefund, order.Price, vo.TransactionStatusCompleted,
			models.ReferenceOrder, order.ID, "Возврат за отменённый заказ "+order.OrderNumber, now,
		))
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notice{
		userID:   order.Counterparty(caller.UserID),
		title:    "Заказ отменён",
		body:     fmt.Sprintf("Заказ %s отменён", order.OrderNumber),
		category: models.NotificationCategoryOrder,
		metadata: orderMeta(order),
	})
	s.logActivity(ctx, caller.UserID, "order.cancelled", "Отменён заказ "+order.OrderNumber, models.ReferenceOrder, order.ID)

	return order, nil
}

// Get возвращает заказ с правками, спором и историей. Посторонним заказ не виден.
func (s *OrderService) Get(ctx context.Context, caller Caller, orderID uuid.UUID) (*models.OrderDetails, error) {
	details, err := s.orders.GetDetails(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canSeeOrder(caller, details.Order) {
		return nil, apperror.ErrOrderNotFound
	}
	return details, nil
}

// List - заказы, видимые вызывающему.
func (s *OrderService) List(ctx context.Context, caller Caller, status *vo.OrderStatus, limit, offset int) ([]models.Order, int, error) {
	filter := models.OrderFilter{Status: status, Limit: limit, Offset: offset}
	switch caller.Role {
	case vo.RoleCustomer:
		filter.CustomerID = &caller.UserID
	case vo.RoleVendor:
		filter.VendorID = &caller.UserID
	case vo.RoleAdmin:
	default:
		return nil, 0, apperror.ErrForbidden
	}
	return s.orders.List(ctx, filter)
}

func (s *OrderService) History(ctx context.Context, caller Caller, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canSeeOrder(caller, order) {
		return nil, apperror.ErrOrderNotFound
	}
	return s.orders.ListHistory(ctx, orderID)
}

func canSeeOrder(caller Caller, order *models.Order) bool {
	return caller.IsAdmin() || order.IsParticipant(caller.UserID)
}

// changeOrderStatus сохраняет заказ в новом статусе и дописывает историю в той же транзакции.
func changeOrderStatus(ctx context.Context, tx repository.Tx, order *models.Order, to vo.OrderStatus, by uuid.UUID, note *string, now time.Time) error {
	from := order.Status
	if !from.CanTransitionTo(to) {
		return invalidTransition(from, to)
	}
	order.Status = to
	order.UpdatedAt = now
	if err := tx.UpdateOrder(ctx, order); err != nil {
		return err
	}
	return tx.AddHistory(ctx, models.NewStatusChange(order.ID, &from, to, by, note, now))
}

func invalidTransition(from, to vo.OrderStatus) error {
	return apperror.InvalidState(fmt.Sprintf("переход заказа из %s в %s невозможен", from, to))
}

func ledgerEntry(userID uuid.UUID, typ vo.TransactionType, category vo.TransactionCategory, amount vo.Money,
	status vo.TransactionStatus, refType string, refID uuid.UUID, description string, now time.Time) *models.Transaction {
	return &models.Transaction{
		UserID:        userID,
		Type:          typ,
		Category:      category,
		Amount:        amount,
		Status:        status,
		ReferenceType: &refType,
		ReferenceID:   &refID,
		Description:   &description,
		CreatedAt:     now,
	}
}

func earningEntry(order *models.Order, now time.Time) *models.Transaction {
	return ledgerEntry(
		order.VendorID, vo.TransactionTypeCredit, vo.CategoryEarning, order.Price, vo.TransactionStatusCompleted,
		models.ReferenceOrder, order.ID, "Заработок по заказу "+order.OrderNumber, now,
	)
}

func orderMeta(order *models.Order) map[string]any {
	return map[string]any{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"status":       order.Status,
	}
}

func disputeMeta(d *models.Dispute) map[string]any {
	return map[string]any{
		"dispute_id":     d.ID,
		"dispute_number": d.DisputeNumber,
		"order_id":       d.OrderID,
		"status":         d.Status,
	}
}
