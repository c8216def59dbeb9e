package common

import (
	"errors"

	"github.com/lib/pq"
)

// pgUniqueViolation - SQLSTATE нарушения уникальности.
const pgUniqueViolation = "23505"

// IsUniqueViolation сообщает, что запись упала на уникальном ограничении.
// constraint пустой - подходит любое ограничение.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
