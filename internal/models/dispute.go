package models

import (
	"time"

	"github.com/google/uuid"

	vo "github.com/ignatzorin/service-marketplace/internal/domain/valueobject"
)

type Dispute struct {
	ID              uuid.UUID             `db:"id" json:"id"`
	DisputeNumber   string                `db:"dispute_number" json:"dispute_number"`
	OrderID         uuid.UUID             `db:"order_id" json:"order_id"`
	CustomerID      uuid.UUID             `db:"customer_id" json:"customer_id"`
	VendorID        uuid.UUID             `db:"vendor_id" json:"vendor_id"`
	Reason          string                `db:"reason" json:"reason"`
	ReasonCode      vo.DisputeReasonCode  `db:"reason_code" json:"reason_code"`
	Status          vo.DisputeStatus      `db:"status" json:"status"`
	Resolution      *vo.DisputeResolution `db:"resolution" json:"resolution,omitempty"`
	ResolutionNotes *string               `db:"resolution_notes" json:"resolution_notes,omitempty"`
	ResolvedBy      *uuid.UUID            `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time            `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt       time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time             `db:"updated_at" json:"updated_at"`
}

// DisputeFilter ограничивает выборку споров. Пустые поля не фильтруют.
type DisputeFilter struct {
	CustomerID *uuid.UUID
	VendorID   *uuid.UUID
	Status     *vo.DisputeStatus
	Limit      int
	Offset     int
}
