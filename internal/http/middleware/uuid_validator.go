package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/service-marketplace/internal/http/response"
	"github.com/ignatzorin/service-marketplace/internal/pkg/apperror"
)

// UUIDValidator проверяет, что параметры пути являются валидными UUID.
// Использование: router.GET("/orders/:id", UUIDValidator("id"), handler.Get)
func UUIDValidator(params ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := map[string]string{}
		for _, name := range params {
			if _, err := uuid.Parse(c.Param(name)); err != nil {
				fields[name] = "ожидается UUID"
			}
		}
		if len(fields) > 0 {
			response.Abort(c, apperror.Validation(fields))
			return
		}
		c.Next()
	}
}
