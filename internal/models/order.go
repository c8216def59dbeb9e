package models

import (
	"time"

	"github.com/google/uuid"

	vo "github.com/ignatzorin/service-marketplace/internal/domain/valueobject"
)

// Order - заказ услуги клиентом у исполнителя.
type Order struct {
	ID            uuid.UUID        `db:"id" json:"id"`
	OrderNumber   string           `db:"order_number" json:"order_number"`
	CustomerID    uuid.UUID        `db:"customer_id" json:"customer_id"`
	VendorID      uuid.UUID        `db:"vendor_id" json:"vendor_id"`
	ServiceID     uuid.UUID        `db:"service_id" json:"service_id"`
	Price         vo.Money         `db:"price" json:"price"`
	Status        vo.OrderStatus   `db:"status" json:"status"`
	PaymentStatus vo.PaymentStatus `db:"payment_status" json:"payment_status"`
	ServiceDate   *time.Time       `db:"service_date" json:"service_date,omitempty"`
	ServiceTime   *string          `db:"service_time" json:"service_time,omitempty"`
	Location      *string          `db:"location" json:"location,omitempty"`
	Notes         *string          `db:"notes" json:"notes,omitempty"`
	CompletedAt   *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	CancelledAt   *time.Time       `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// PartyOf возвращает сторону заказа для пользователя.
func (o *Order) PartyOf(userID uuid.UUID) (vo.Party, bool) {
	switch userID {
	case o.CustomerID:
		return vo.PartyCustomer, true
	case o.VendorID:
		return vo.PartyVendor, true
	}
	return "", false
}

// IsParticipant - пользователь является клиентом или исполнителем заказа.
func (o *Order) IsParticipant(userID uuid.UUID) bool {
	_, ok := o.PartyOf(userID)
	return ok
}

// Counterparty возвращает вторую сторону заказа.
func (o *Order) Counterparty(userID uuid.UUID) uuid.UUID {
	if userID == o.CustomerID {
		return o.VendorID
	}
	return o.CustomerID
}

// OrderDetails - заказ со всеми связанными записями, загруженными явно.
type OrderDetails struct {
	Order   *Order               `json:"order"`
	Edits   []OrderEdit          `json:"edits"`
	Dispute *Dispute             `json:"dispute"`
	History []OrderStatusHistory `json:"history"`
}

// OrderFilter - параметры выборки заказов.
type OrderFilter struct {
	CustomerID *uuid.UUID
	VendorID   *uuid.UUID
	Status     *vo.OrderStatus
	Limit      int
	Offset     int
}
