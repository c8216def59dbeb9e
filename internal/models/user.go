package models

import (
	"time"

	"github.com/google/uuid"

	vo "github.com/ignatzorin/service-marketplace/internal/domain/valueobject"
)

type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      vo.Role   `db:"role" json:"role"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Service - услуга исполнителя, по которой оформляется заказ.
type Service struct {
	ID        uuid.UUID `db:"id" json:"id"`
	VendorID  uuid.UUID `db:"vendor_id" json:"vendor_id"`
	Title     string    `db:"title" json:"title"`
	Price     vo.Money  `db:"price" json:"price"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
