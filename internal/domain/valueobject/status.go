package valueobject

import "github.com/ignatzorin/service-marketplace/internal/pkg/apperror"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusDisputed   OrderStatus = "disputed"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// orderTransitions - полный граф переходов заказа. Переход в тот же статус
// разрешён только для confirmed (принятая правка подтверждает заказ повторно).
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusConfirmed, OrderStatusInProgress, OrderStatusCompleted, OrderStatusCancelled, OrderStatusDisputed},
	OrderStatusInProgress: {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted:  {OrderStatusDisputed},
	OrderStatusDisputed:   {OrderStatusConfirmed, OrderStatusCompleted, OrderStatusRefunded},
	OrderStatusCancelled:  {},
	OrderStatusRefunded:   {},
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// In проверяет, входит ли статус в перечень.
func (s OrderStatus) In(statuses ...OrderStatus) bool {
	for _, st := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

func ParseOrderStatus(status string) (OrderStatus, error) {
	s := OrderStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заказа")
	}
	return s, nil
}

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type EditStatus string

const (
	EditStatusPending  EditStatus = "pending"
	EditStatusAccepted EditStatus = "accepted"
	EditStatusRejected EditStatus = "rejected"
)

// Party - сторона заказа, предложившая правку.
type Party string

const (
	PartyVendor   Party = "vendor"
	PartyCustomer Party = "customer"
)

type DisputeStatus string

const (
	DisputeStatusPending     DisputeStatus = "pending"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
	DisputeStatusRejected    DisputeStatus = "rejected"
)

func (s DisputeStatus) IsValid() bool {
	switch s {
	case DisputeStatusPending, DisputeStatusUnderReview, DisputeStatusResolved, DisputeStatusRejected:
		return true
	}
	return false
}

// IsOpen - спор ещё можно рассмотреть или закрыть.
func (s DisputeStatus) IsOpen() bool {
	return s == DisputeStatusPending || s == DisputeStatusUnderReview
}

func ParseDisputeStatus(status string) (DisputeStatus, error) {
	s := DisputeStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус спора")
	}
	return s, nil
}

type DisputeReasonCode string

const (
	ReasonServiceNotProvided DisputeReasonCode = "service_not_provided"
	ReasonPoorQuality        DisputeReasonCode = "poor_quality"
	ReasonOvercharged        DisputeReasonCode = "overcharged"
	ReasonNoShow             DisputeReasonCode = "no_show"
	ReasonOther              DisputeReasonCode = "other"
)

type DisputeResolution string

const (
	ResolutionRefund  DisputeResolution = "refund"
	ResolutionRelease DisputeResolution = "release"
)

type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

func (t TransactionType) IsValid() bool {
	return t == TransactionTypeCredit || t == TransactionTypeDebit
}

type TransactionCategory string

const (
	CategoryOrder      TransactionCategory = "order"
	CategoryRefund     TransactionCategory = "refund"
	CategoryPromotion  TransactionCategory = "promotion"
	CategoryPayout     TransactionCategory = "payout"
	CategoryEarning    TransactionCategory = "earning"
	CategoryFee        TransactionCategory = "fee"
	CategoryAdjustment TransactionCategory = "adjustment"
)

func (c TransactionCategory) IsValid() bool {
	switch c {
	case CategoryOrder, CategoryRefund, CategoryPromotion, CategoryPayout, CategoryEarning, CategoryFee, CategoryAdjustment:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusReversed  TransactionStatus = "reversed"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusReversed:
		return true
	}
	return false
}

// CanTransitionTo: запись журнала меняет только статус и только из pending.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	return s == TransactionStatusPending && (next == TransactionStatusCompleted || next == TransactionStatusReversed)
}

type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)
