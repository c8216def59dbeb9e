package models

import (
	"time"

	"github.com/google/uuid"

	vo "github.com/ignatzorin/service-marketplace/internal/domain/valueobject"
)

// OrderStatusHistory - запись о смене статуса заказа. Только добавляется.
type OrderStatusHistory struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	OrderID    uuid.UUID       `db:"order_id" json:"order_id"`
	FromStatus *vo.OrderStatus `db:"from_status" json:"from_status,omitempty"`
	ToStatus   vo.OrderStatus  `db:"to_status" json:"to_status"`
	ChangedBy  *uuid.UUID      `db:"changed_by" json:"changed_by,omitempty"`
	Note       *string         `db:"note" json:"note,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// NewStatusChange - запись истории для перехода from -> to. from пустой при создании заказа.
func NewStatusChange(orderID uuid.UUID, from *vo.OrderStatus, to vo.OrderStatus, by uuid.UUID, note *string, at time.Time) *OrderStatusHistory {
	changedBy := by
	return &OrderStatusHistory{
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		ChangedBy:  &changedBy,
		Note:       note,
		CreatedAt:  at,
	}
}
