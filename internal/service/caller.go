package service

import (
	"github.com/google/uuid"

	vo "github.com/ignatzorin/service-marketplace/internal/domain/valueobject"
)

// Caller - аутентифицированный пользователь, от имени которого выполняется операция.
type Caller struct {
	UserID uuid.UUID
	Role   vo.Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == vo.RoleAdmin
}
