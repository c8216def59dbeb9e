package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	vo "github.com/ignatzorin/service-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/service-marketplace/internal/http/response"
	"github.com/ignatzorin/service-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/service-marketplace/internal/service"
)

// ContextCallerKey - ключ gin.Context, под которым лежит service.Caller.
const ContextCallerKey = "caller"

// TokenParser проверяет access токен и возвращает вызывающего.
type TokenParser interface {
	ParseAccess(token string) (service.Caller, error)
}

// AuthMiddleware проверяет JWT access токен из заголовка Authorization.
func AuthMiddleware(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			response.Abort(c, apperror.ErrUnauthorized)
			return
		}

		caller, err := tokens.ParseAccess(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			response.Abort(c, apperror.New(apperror.ErrCodeUnauthorized, "токен невалиден"))
			return
		}

		c.Set(ContextCallerKey, caller)
		c.Next()
	}
}

// RequireRole пропускает только перечисленные роли. Ставится после AuthMiddleware.
func RequireRole(roles ...vo.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := c.Get(ContextCallerKey)
		if !ok {
			response.Abort(c, apperror.ErrUnauthorized)
			return
		}
		role := caller.(service.Caller).Role
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Abort(c, apperror.ErrForbidden)
	}
}
