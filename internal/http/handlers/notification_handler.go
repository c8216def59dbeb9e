package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/service-marketplace/internal/http/handlers/common"
	"github.com/ignatzorin/service-marketplace/internal/http/response"
	"github.com/ignatzorin/service-marketplace/internal/models"
	"github.com/ignatzorin/service-marketplace/internal/validation"
)

type NotificationService interface {
	ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, int, error)
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// NotificationHandler обслуживает маршруты уведомлений.
type NotificationHandler struct {
	notifications NotificationService
	paging        common.Paging
}

// NewNotificationHandler создаёт новый хэндлер.
func NewNotificationHandler(notifications NotificationService, paging common.Paging) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, paging: paging}
}

// ListNotifications обрабатывает GET /notifications?unread_only=true.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	v := validation.New()
	page := h.paging.ParsePage(c, v)
	if err := v.Err(); err != nil {
		_ = c.Error(err)
		return
	}
	unreadOnly := c.Query("unread_only") == "true"

	items, total, err := h.notifications.ListNotifications(c.Request.Context(), caller.UserID, page.PerPage, page.Offset(), unreadOnly)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Paginated(c, "уведомления", items, page.Number, page.PerPage, total)
}

// MarkAsRead обрабатывает PUT /notifications/:id/read.
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
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

	if err := h.notifications.MarkAsRead(c.Request.Context(), caller.UserID, id); err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, "уведомление отмечено как прочитанное", nil)
}

// MarkAllAsRead обрабатывает PUT /notifications/read-all.
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	updated, err := h.notifications.MarkAllAsRead(c.Request.Context(), caller.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, "все уведомления отмечены как прочитанные", gin.H{"updated": updated})
}

// CountUnread обрабатывает GET /notifications/unread/count.
func (h *NotificationHandler) CountUnread(c *gin.Context) {
	caller, err := common.CurrentCaller(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	count, err := h.notifications.CountUnread(c.Request.Context(), caller.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, "непрочитанные уведомления", gin.H{"count": count})
}
