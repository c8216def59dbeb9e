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

type DisputeService interface {
	List(ctx context.Context, caller service.Caller, status *vo.DisputeStatus, limit, offset int) ([]models.Dispute, int, error)
	Get(ctx context.Context, caller service.Caller, id uuid.UUID) (*models.Dispute, error)
	Review(ctx context.Context, caller service.Caller, id uuid.UUID) (*models.Dispute, error)
	Resolve(ctx context.Context, caller service.Caller, id uuid.UUID, resolution vo.DisputeResolution, notes string) (*models.Dispute, error)
	Reject(ctx context.Context, caller service.Caller, id uuid.UUID, notes string) (*models.Dispute, error)
}

// DisputeHandler обслуживает маршруты споров, в том числе административные.
type DisputeHandler struct {
	disputes DisputeService
	paging   common.Paging
}

func NewDisputeHandler(disputes DisputeService, paging common.Paging) *DisputeHandler {
	return &DisputeHandler{disputes: disputes, paging: paging}
}

// ListDisputes обрабатывает GET /disputes и GET /admin/disputes.
func (h *DisputeHandler) ListDisputes(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	v := validation.New()
	page := h.paging.ParsePage(c, v)
	var status *vo.DisputeStatus
	if raw, ok := c.GetQuery("status"); ok {
		s, err := vo.ParseDisputeStatus(raw)
		if err != nil {
			v.Add("status", "неизвестный статус спора")
		} else {
			status = &s
		}
	}
	if err := v.Err(); err != nil {
		_ = c.Error(err)
		return
	}

	disputes, total, err := h.disputes.List(c.Request.Context(), caller, status, page.PerPage, page.Offset())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Paginated(c, "список споров", disputes, page.Number, page.PerPage, total)
}

// GetDispute обрабатывает GET /disputes/:id.
func (h *DisputeHandler) GetDispute(c *gin.Context) {
	h.withDispute(c, func(ctx context.Context, caller service.Caller, id uuid.UUID) {
		dispute, err := h.disputes.Get(ctx, caller, id)
		if err != nil {
			_ = c.Error(err)
			return
		}
		response.Success(c, "спор", dispute)
	})
}

// ReviewDispute обрабатывает POST /admin/disputes/:id/review.
func (h *DisputeHandler) ReviewDispute(c *gin.Context) {
	h.withDispute(c, func(ctx context.Context, caller service.Caller, id uuid.UUID) {
		dispute, err := h.disputes.Review(ctx, caller, id)
		if err != nil {
			_ = c.Error(err)
			return
		}
		response.Success(c, "спор взят в работу", dispute)
	})
}

// ResolveDispute обрабатывает POST /admin/disputes/:id/resolve.
func (h *DisputeHandler) ResolveDispute(c *gin.Context) {
	h.withDispute(c, func(ctx context.Context, caller service.Caller, id uuid.UUID) {
		var req dto.ResolveDisputeRequest
		if err := common.BindJSON(c, &req).Err(); err != nil {
			_ = c.Error(err)
			return
		}

		dispute, err := h.disputes.Resolve(ctx, caller, id, vo.DisputeResolution(req.Resolution), req.Notes)
		if err != nil {
			_ = c.Error(err)
			return
		}
		response.Success(c, "спор решён", dispute)
	})
}

// RejectDispute обрабатывает POST /admin/disputes/:id/reject.
func (h *DisputeHandler) RejectDispute(c *gin.Context) {
	h.withDispute(c, func(ctx context.Context, caller service.Caller, id uuid.UUID) {
		var req dto.RejectDisputeRequest
		if err := common.BindJSON(c, &req).Err(); err != nil {
			_ = c.Error(err)
			return
		}

		dispute, err := h.disputes.Reject(ctx, caller, id, req.Notes)
		if err != nil {
			_ = c.Error(err)
			return
		}
		response.Success(c, "спор отклонён", dispute)
	})
}

func (h *DisputeHandler) withDispute(c *gin.Context, fn func(ctx context.Context, caller service.Caller, id uuid.UUID)) {
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
