package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	vo "github.com/ignatzorin/service-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/service-marketplace/internal/dto"
	"github.com/ignatzorin/service-marketplace/internal/http/handlers/common"
	"github.com/ignatzorin/service-marketplace/internal/http/response"
	"github.com/ignatzorin/service-marketplace/internal/models"
	"github.com/ignatzorin/service-marketplace/internal/service"
	"github.com/ignatzorin/service-marketplace/internal/validation"
)

// OrderService - операции жизненного цикла заказа.
type OrderService interface {
	Create(ctx context.Context, caller service.Caller, in service.CreateOrderInput) (*models.Order, error)
	Accept(ctx context.Context, caller service.Caller, orderID uuid.UUID) (*models.Order, error)
	ProposeEdit(ctx context.Context, caller service.Caller, orderID uuid.UUID, in service.ProposeEditInput) (*models.OrderEdit, error)
	RespondEdit(ctx context.Context, caller service.Caller, orderID, editID uuid.UUID, accept bool) (*models.OrderEdit, error)
	Complete(ctx context.Context, caller service.Caller, orderID uuid.UUID) (*models.Order, error)
	OpenDispute(ctx context.Context, caller service.Caller, orderID uuid.UUID, in service.OpenDisputeInput) (*models.Dispute, error)
	Cancel(ctx context.Context, caller service.Caller, orderID uuid.UUID, reason *string) (*models.Order, error)
	Get(ctx context.Context, caller service.Caller, orderID uuid.UUID) (*models.OrderDetails, error)
	List(ctx context.Context, caller service.Caller, status *vo.OrderStatus, limit, offset int) ([]models.Order, int, error)
	History(ctx context.Context, caller service.Caller, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
}

// OrderHandler обслуживает маршруты заказов.
type OrderHandler struct {
	orders OrderService
	paging common.Paging
}

func NewOrderHandler(orders OrderService, paging common.Paging) *OrderHandler {
	return &OrderHandler{orders: orders, paging: paging}
}

// CreateOrder обрабатывает POST /orders.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req dto.CreateOrderRequest
	v := common.BindJSON(c, &req)
	in := req.Input(v)
	if err := v.Err(); err != nil {
		_ = c.Error(err)
		return
	}

	order, err := h.orders.Create(c.Request.Context(), caller, in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Created(c, "заказ создан", order)
}

// ListOrders обрабатывает GET /orders?status=&page=&per_page=.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	v := validation.New()
	page := h.paging.ParsePage(c, v)
	var status *vo.OrderStatus
	if raw, ok := c.GetQuery("status"); ok {
		s, err := vo.ParseOrderStatus(raw)
		if err != nil {
			v.Add("status", "неизвестный статус заказа")
		} else {
			status = &s
		}
	}
	if err := v.Err(); err != nil {
		_ = c.Error(err)
		return
	}

	orders, total, err := h.orders.List(c.Request.Context(), caller, status, page.PerPage, page.Offset())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Paginated(c, "список заказов", orders, page.Number, page.PerPage, total)
}

// GetOrder обрабатывает GET /orders/:id.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	h.withOrder(c, func(ctx context.Context, caller service.Caller, id uuid.UUID) {
		details, err := h.orders.Get(ctx, caller, id)
		if err != nil {
			_ = c.Error(err)
			return
		}
		response.Success(c, "заказ", details)
	})
}

// GetHistory обрабатывает GET /orders/:id/history.
func (h *OrderHandler) GetHistory(c *gin.Context) {
	h.withOrder(c, func(ctx context.Context, caller service.Caller, id uuid.UUID) {
		history, err := h.orders.History(ctx, caller, id)
		if err != nil {
			_ = c.Error(err)
			return
		}
		response.Success(c, "история статусов", history)
	})
}

// AcceptOrder обрабатывает POST /orders/:id/accept.
func (h *OrderHandler) AcceptOrder(c *gin.Context) {
	h.withOrder(c, func(ctx context.Context, caller service.Caller, id uuid.UUID) {
		order, err := h.orders.Accept(ctx, caller, id)
		if err != nil {
			_ = c.Error(err)
			return
		}
		response.Success(c, "заказ подтверждён", order)
	})
}

// CompleteOrder обрабатывает POST /orders/:id/complete.
func (h *OrderHandler) CompleteOrder(c *gin.Context) {
	h.withOrder(c, func(ctx context.Context, caller service.Caller, id uuid.UUID) {
		order, err := h.orders.Complete(ctx, caller, id)
		if err != nil {
			_ = c.Error(err)
			return
		}
		response.Success(c, "заказ завершён", order)
	})
}

// CancelOrder обрабатывает POST /orders/:id/cancel.
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	h.withOrder(c, func(ctx context.Context, caller service.Caller, id uuid.UUID) {
		var req dto.CancelOrderRequest
		if err := common.BindJSON(c, &req).Err(); err != nil {
			_ = c.Error(err)
			return
		}

		order, err := h.orders.Cancel(ctx, caller, id, req.Reason)
		if err != nil {
			_ = c.Error(err)
			return
		}
		response.Success(c, "заказ отменён", order)
	})
}

// ProposeEdit обрабатывает POST /orders/:id/edits.
func (h *OrderHandler) ProposeEdit(c *gin.Context) {
	h.withOrder(c, func(ctx context.Context, caller service.Caller, id uuid.UUID) {
		var req dto.ProposeEditRequest
		v := common.BindJSON(c, &req)
		in := req.Input(v)
		if err := v.Err(); err != nil {
			_ = c.Error(err)
			return
		}

		edit, err := h.orders.ProposeEdit(ctx, caller, id, in)
		if err != nil {
			_ = c.Error(err)
			return
		}
		response.Created(c, "предложение изменений отправлено", edit)
	})
}

// RespondEdit обрабатывает POST /orders/:id/edits/:editId/respond.
func (h *OrderHandler) RespondEdit(c *gin.Context) {
	h.withOrder(c, func(ctx context.Context, caller service.Caller, id uuid.UUID) {
		editID, err := common.ParseUUIDParam(c, "editId")
		if err != nil {
			_ = c.Error(err)
			return
		}

		var req dto.RespondEditRequest
		if err := common.BindJSON(c, &req).Err(); err != nil {
			_ = c.Error(err)
			return
		}

		edit, err := h.orders.RespondEdit(ctx, caller, id, editID, *req.Accept)
		if err != nil {
			_ = c.Error(err)
			return
		}
		response.Success(c, "ответ на предложение сохранён", edit)
	})
}

// OpenDispute обрабатывает POST /orders/:id/dispute.
func (h *OrderHandler) OpenDispute(c *gin.Context) {
	h.withOrder(c, func(ctx context.Context, caller service.Caller, id uuid.UUID) {
		var req dto.OpenDisputeRequest
		v := common.BindJSON(c, &req)
		in := req.Input(v)
		if err := v.Err(); err != nil {
			_ = c.Error(err)
			return
		}

		dispute, err := h.orders.OpenDispute(ctx, caller, id, in)
		if err != nil {
			_ = c.Error(err)
			return
		}
		response.Created(c, "спор открыт", dispute)
	})
}

// withOrder достаёт вызывающего и :id заказа.
func (h *OrderHandler) withOrder(c *gin.Context, fn func(ctx context.Context, caller service.Caller, id uuid.UUID)) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	fn(c.Request.Context(), caller, id)
}
