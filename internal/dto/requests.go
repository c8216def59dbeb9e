package dto

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	vo "github.com/ignatzorin/service-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/service-marketplace/internal/service"
	"github.com/ignatzorin/service-marketplace/internal/validation"
)

// CreateOrderRequest - тело POST /orders.
type CreateOrderRequest struct {
	ServiceID   string  `json:"service_id" binding:"required,uuid"`
	ServiceDate *string `json:"service_date"`
	ServiceTime *string `json:"service_time"`
	Location    *string `json:"location" binding:"omitempty,max=255"`
	Notes       *string `json:"notes" binding:"omitempty,max=5000"`
}

// Input проверяет формат полей, которые не покрываются тегами binding.
func (r CreateOrderRequest) Input(v *validation.Errors) service.CreateOrderInput {
	in := service.CreateOrderInput{
		ServiceDate: v.Date("service_date", r.ServiceDate),
		ServiceTime: v.TimeOfDay("service_time", r.ServiceTime),
		Location:    r.Location,
		Notes:       r.Notes,
	}
	if !v.Has("service_id") {
		in.ServiceID, _ = uuid.Parse(r.ServiceID)
	}
	return in
}

// ProposeEditRequest - тело POST /orders/:id/edits. Хотя бы одно из new_* обязательно.
type ProposeEditRequest struct {
	NewPrice       *decimal.Decimal `json:"new_price"`
	NewServiceDate *string          `json:"new_service_date"`
	NewServiceTime *string          `json:"new_service_time"`
	Reason         *string          `json:"reason" binding:"omitempty,max=2000"`
}

func (r ProposeEditRequest) Input(v *validation.Errors) service.ProposeEditInput {
	if r.NewPrice == nil && r.NewServiceDate == nil && r.NewServiceTime == nil {
		v.Add("edit", "укажите новую цену, дату или время")
	}
	return service.ProposeEditInput{
		NewPrice:       v.Amount("new_price", r.NewPrice, false),
		NewServiceDate: v.Date("new_service_date", r.NewServiceDate),
		NewServiceTime: v.TimeOfDay("new_service_time", r.NewServiceTime),
		Reason:         r.Reason,
	}
}

// RespondEditRequest - тело POST /orders/:id/edits/:editId/respond.
type RespondEditRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

// OpenDisputeRequest - тело POST /orders/:id/dispute.
type OpenDisputeRequest struct {
	Reason     string `json:"reason" binding:"required,max=2000"`
	ReasonCode string `json:"reason_code" binding:"required,oneof=service_not_provided poor_quality overcharged no_show other"`
}

func (r OpenDisputeRequest) Input(v *validation.Errors) service.OpenDisputeInput {
	v.Check(strings.TrimSpace(r.Reason) != "", "reason", "обязательное поле")
	return service.OpenDisputeInput{Reason: r.Reason, ReasonCode: vo.DisputeReasonCode(r.ReasonCode)}
}

// CancelOrderRequest - необязательное тело POST /orders/:id/cancel.
type CancelOrderRequest struct {
	Reason *string `json:"reason" binding:"omitempty,max=2000"`
}

// ResolveDisputeRequest - тело POST /admin/disputes/:id/resolve.
type ResolveDisputeRequest struct {
	Resolution string `json:"resolution" binding:"required,oneof=refund release"`
	Notes      string `json:"notes" binding:"required,max=5000"`
}

// RejectDisputeRequest - тело POST /admin/disputes/:id/reject.
type RejectDisputeRequest struct {
	Notes string `json:"notes" binding:"required,max=5000"`
}

// PayoutRequest - тело POST /wallet/payouts.
type PayoutRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

func (r PayoutRequest) Money(v *validation.Errors) vo.Money {
	if m := v.Amount("amount", r.Amount, true); m != nil {
		return *m
	}
	return vo.Money{}
}

// UpdateTransactionStatusRequest - тело PATCH /admin/transactions/:id/status.
type UpdateTransactionStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=completed reversed"`
}
