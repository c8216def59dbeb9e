package common

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"

	"github.com/ignatzorin/service-marketplace/internal/http/middleware"
	"github.com/ignatzorin/service-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/service-marketplace/internal/service"
	"github.com/ignatzorin/service-marketplace/internal/validation"
)

// CurrentCaller извлекает вызывающего, положенного AuthMiddleware.
func CurrentCaller(c *gin.Context) (service.Caller, error) {
	raw, exists := c.Get(middleware.ContextCallerKey)
	if !exists {
		return service.Caller{}, apperror.ErrUnauthorized
	}
	caller, ok := raw.(service.Caller)
	if !ok {
		return service.Caller{}, apperror.ErrUnauthorized
	}
	return caller, nil
}

// ParseUUIDParam разбирает UUID из параметра пути.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.Validation(map[string]string{name: "ожидается UUID"})
	}
	return id, nil
}

// BindJSON читает тело запроса в req. Пустое тело допустимо: проверяются только теги binding.
func BindJSON(c *gin.Context, req any) *validation.Errors {
	v := validation.New()
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		v.Binding(binding.Validator.ValidateStruct(req))
		return v
	}
	v.Binding(c.ShouldBindJSON(req))
	return v
}

// Paging - размер страницы по умолчанию и максимальный.
type Paging struct {
	Default int
	Max     int
}

// Page - разобранные page и per_page.
type Page struct {
	Number  int
	PerPage int
}

func (p Page) Offset() int { return (p.Number - 1) * p.PerPage }

// ParsePage читает page и per_page. Нечисловые и неположительные значения - ошибка поля,
// per_page больше максимума урезается до максимума, page со смещением за пределами int - ошибка поля.
func (p Paging) ParsePage(c *gin.Context, v *validation.Errors) Page {
	page := Page{Number: 1, PerPage: p.Default}

	if raw, ok := c.GetQuery("page"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			v.Add("page", "ожидается целое число от 1")
		} else {
			page.Number = n
		}
	}
	if raw, ok := c.GetQuery("per_page"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			v.Add("per_page", "ожидается целое число от 1")
		} else {
			page.PerPage = min(n, p.Max)
		}
	}
	if page.Number-1 > math.MaxInt/page.PerPage {
		v.Add("page", "номер страницы слишком большой")
		page.Number = 1
	}
	return page
}
