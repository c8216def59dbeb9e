package models

import (
	"time"

	"github.com/google/uuid"

	vo "github.com/ignatzorin/service-marketplace/internal/domain/valueobject"
)

// OrderEdit - предложение изменить цену, дату или время заказа.
type OrderEdit struct {
	ID                 uuid.UUID     `db:"id" json:"id"`
	OrderID            uuid.UUID     `db:"order_id" json:"order_id"`
	ProposedBy         vo.Party      `db:"proposed_by" json:"proposed_by"`
	ProposedByUserID   uuid.UUID     `db:"proposed_by_user_id" json:"proposed_by_user_id"`
	NewPrice           *vo.Money     `db:"new_price" json:"new_price,omitempty"`
	NewServiceDate     *time.Time    `db:"new_service_date" json:"new_service_date,omitempty"`
	NewServiceTime     *string       `db:"new_service_time" json:"new_service_time,omitempty"`
	Reason             *string       `db:"reason" json:"reason,omitempty"`
	Status             vo.EditStatus `db:"status" json:"status"`
	CustomerResponseAt *time.Time    `db:"customer_response_at" json:"customer_response_at,omitempty"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
}

// ApplyTo переносит на заказ только предложенные поля.
func (e *OrderEdit) ApplyTo(o *Order) {
	if e.NewPrice != nil {
		o.Price = *e.NewPrice
	}
	if e.NewServiceDate != nil {
		d := *e.NewServiceDate
		o.ServiceDate = &d
	}
	if e.NewServiceTime != nil {
		t := *e.NewServiceTime
		o.ServiceTime = &t
	}
}
