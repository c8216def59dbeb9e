package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/service-marketplace/internal/config"
	vo "github.com/ignatzorin/service-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/service-marketplace/internal/http/handlers"
	"github.com/ignatzorin/service-marketplace/internal/http/middleware"
	"github.com/ignatzorin/service-marketplace/internal/http/response"
	"github.com/ignatzorin/service-marketplace/internal/pkg/apperror"
)

// Handlers - все хэндлеры, которые монтирует роутер.
type Handlers struct {
	Orders        *handlers.OrderHandler
	Disputes      *handlers.DisputeHandler
	Wallet        *handlers.WalletHandler
	Notifications *handlers.NotificationHandler
	WS            *handlers.WSHandler
	Health        *handlers.HealthHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokens middleware.TokenParser) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), middleware.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, apperror.NotFound("маршрут не найден"))
	})

	r.GET("/health", h.Health.Health)

	api := r.Group("/api")
	api.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	api.Use(middleware.MutationRateLimit(cfg.MutationRateLimit, cfg.RateLimitPeriod))

	// токен передаётся в query, авторизацию проверяет сам хэндлер
	api.GET("/ws", h.WS.Handle)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(tokens))
	{
		// Заказы
		protected.POST("/orders", h.Orders.CreateOrder)
		protected.GET("/orders", h.Orders.ListOrders)
		protected.GET("/orders/:id", middleware.UUIDValidator("id"), h.Orders.GetOrder)
		protected.GET("/orders/:id/history", middleware.UUIDValidator("id"), h.Orders.GetHistory)
		protected.POST("/orders/:id/accept", middleware.UUIDValidator("id"), h.Orders.AcceptOrder)
		protected.POST("/orders/:id/cancel", middleware.UUIDValidator("id"), h.Orders.CancelOrder)
		protected.POST("/orders/:id/complete", middleware.UUIDValidator("id"), h.Orders.CompleteOrder)
		protected.POST("/orders/:id/edits", middleware.UUIDValidator("id"), h.Orders.ProposeEdit)
		protected.POST("/orders/:id/edits/:editId/respond", middleware.UUIDValidator("id", "editId"), h.Orders.RespondEdit)
		protected.POST("/orders/:id/dispute", middleware.UUIDValidator("id"), h.Orders.OpenDispute)

		// Споры
		protected.GET("/disputes", h.Disputes.ListDisputes)
		protected.GET("/disputes/:id", middleware.UUIDValidator("id"), h.Disputes.GetDispute)

		// Кошелёк
		protected.GET("/wallet/summary", h.Wallet.GetSummary)
		protected.GET("/wallet/transactions", h.Wallet.ListTransactions)
		protected.POST("/wallet/payouts", h.Wallet.RequestPayout)

		// Уведомления
		protected.GET("/notifications", h.Notifications.ListNotifications)
		protected.GET("/notifications/unread/count", h.Notifications.CountUnread)
		protected.PUT("/notifications/read-all", h.Notifications.MarkAllAsRead)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), h.Notifications.MarkAsRead)
	}

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireRole(vo.RoleAdmin))
	{
		admin.GET("/disputes", h.Disputes.ListDisputes)
		admin.POST("/disputes/:id/review", middleware.UUIDValidator("id"), h.Disputes.ReviewDispute)
		admin.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), h.Disputes.ResolveDispute)
		admin.POST("/disputes/:id/reject", middleware.UUIDValidator("id"), h.Disputes.RejectDispute)
		admin.PATCH("/transactions/:id/status", middleware.UUIDValidator("id"), h.Wallet.UpdateTransactionStatus)
	}

	return r
}
