package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/service-marketplace/internal/config"
	"github.com/ignatzorin/service-marketplace/internal/db"
	httpHandlers "github.com/ignatzorin/service-marketplace/internal/http/handlers"
	"github.com/ignatzorin/service-marketplace/internal/http/handlers/common"
	httpRouter "github.com/ignatzorin/service-marketplace/internal/http/router"
	"github.com/ignatzorin/service-marketplace/internal/logger"
	"github.com/ignatzorin/service-marketplace/internal/repository"
	"github.com/ignatzorin/service-marketplace/internal/scheduler"
	"github.com/ignatzorin/service-marketplace/internal/service"
	"github.com/ignatzorin/service-marketplace/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}
	logger.Init(cfg.Env, cfg.LogLevel)
	log := logger.WithComponent("main")

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("ошибка подключения к базе")
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.WithError(err).Fatal("ошибка миграций")
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	// Репозитории.
	txManager := repository.NewTxManager(dbConn)
	userRepo := repository.NewUserRepository(dbConn)
	orderRepo := repository.NewOrderRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	transactionRepo := repository.NewTransactionRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	activityRepo := repository.NewActivityLogRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run(ctx)

	// Сервисы.
	notificationService := service.NewNotificationService(notificationRepo, userRepo, hub, service.NewEmailSender(cfg.ResendAPIKey, cfg.FromEmail))
	activityService := service.NewActivityService(activityRepo)
	orderService := service.NewOrderService(txManager, orderRepo, notificationService, activityService, cfg.DisputeWindow)
	disputeService := service.NewDisputeService(txManager, disputeRepo, notificationService, activityService, cfg.DisputeEscalateAfter)
	walletService := service.NewWalletService(txManager, transactionRepo, notificationService, activityService)

	// Фоновые задачи.
	jobs, err := scheduler.New(cfg.DisputeEscalationCron, disputeService)
	if err != nil {
		log.WithError(err).Fatal("ошибка настройки планировщика")
	}
	jobs.Start()

	// HTTP.
	paging := common.Paging{Default: cfg.DefaultPageSize, Max: cfg.MaxPageSize}
	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Orders:        httpHandlers.NewOrderHandler(orderService, paging),
		Disputes:      httpHandlers.NewDisputeHandler(disputeService, paging),
		Wallet:        httpHandlers.NewWalletHandler(walletService, paging),
		Notifications: httpHandlers.NewNotificationHandler(notificationService, paging),
		WS:            httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
		Health:        httpHandlers.NewHealthHandler(dbConn, hub),
	}, tokenManager)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("ошибка остановки http сервера")
		}
	}()

	log.WithField("port", cfg.HTTPPort).Info("HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("сервер завершился с ошибкой")
	}

	jobs.Stop()
	log.Info("сервер остановлен")
}

// safeClose закрывает соединение с базой.
func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		logger.WithComponent("main").WithError(err).Error("ошибка закрытия базы")
	}
}
