package models

import (
	"time"

	"github.com/google/uuid"

	vo "github.com/ignatzorin/service-marketplace/internal/domain/valueobject"
)

// Reference types для записей журнала.
const (
	ReferenceOrder   = "order"
	ReferenceDispute = "dispute"
	ReferencePayout  = "payout"
)

// Transaction - запись журнала операций пользователя.
type Transaction struct {
	ID            uuid.UUID              `db:"id" json:"id"`
	UserID        uuid.UUID              `db:"user_id" json:"user_id"`
	Type          vo.TransactionType     `db:"type" json:"type"`
	Category      vo.TransactionCategory `db:"category" json:"category"`
	Amount        vo.Money               `db:"amount" json:"amount"`
	Status        vo.TransactionStatus   `db:"status" json:"status"`
	ReferenceType *string                `db:"reference_type" json:"reference_type,omitempty"`
	ReferenceID   *uuid.UUID             `db:"reference_id" json:"reference_id,omitempty"`
	Description   *string                `db:"description" json:"description,omitempty"`
	CreatedAt     time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time              `db:"updated_at" json:"updated_at"`
}

// TransactionFilter - фильтры журнала. Границы дат включительные.
type TransactionFilter struct {
	Type     *vo.TransactionType
	Category *vo.TransactionCategory
	Status   *vo.TransactionStatus
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}
