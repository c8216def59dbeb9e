package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/service-marketplace/internal/pkg/apperror"
)

const internalMessage = "внутренняя ошибка сервера"

// Response - общий конверт всех ответов API.
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    interface{}       `json:"data"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// Page - данные списка с пагинацией.
type Page struct {
	Items      interface{} `json:"items"`
	Pagination Pagination  `json:"pagination"`
}

type Pagination struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	LastPage    int `json:"last_page"`
}

// NewPagination считает номер последней страницы; для пустого списка это 1.
func NewPagination(page, perPage, total int) Pagination {
	last := 1
	if perPage > 0 && total > 0 {
		last = (total + perPage - 1) / perPage
	}
	return Pagination{CurrentPage: page, PerPage: perPage, Total: total, LastPage: last}
}

func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Message: message, Data: data})
}

func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Message: message, Data: data})
}

// Paginated отдаёт items и блок pagination внутри data.
func Paginated(c *gin.Context, message string, items interface{}, page, perPage, total int) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: message,
		Data: Page{
			Items:      items,
			Pagination: NewPagination(page, perPage, total),
		},
	})
}

// Error отображает AppError в статус и тело ответа. Внутренние ошибки маскируются.
func Error(c *gin.Context, err error) {
	status, body := errorBody(err)
	c.JSON(status, body)
}

// Abort - то же, что Error, но прерывает цепочку обработчиков.
func Abort(c *gin.Context, err error) {
	status, body := errorBody(err)
	c.AbortWithStatusJSON(status, body)
}

func errorBody(err error) (int, Response) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code == apperror.ErrCodeInternal {
		return http.StatusInternalServerError, Response{Success: false, Message: internalMessage}
	}
	return appErr.HTTPStatus, Response{
		Success: false,
		Message: appErr.Message,
		Errors:  appErr.Fields,
	}
}
