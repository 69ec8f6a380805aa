package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/agbonon/togotickets/config"
	"github.com/agbonon/togotickets/internal/handlers"
	"github.com/agbonon/togotickets/internal/helpers"
	"github.com/agbonon/togotickets/internal/middleware"
	"github.com/agbonon/togotickets/internal/models"
	"github.com/agbonon/togotickets/internal/monitoring"
	"github.com/agbonon/togotickets/internal/notify"
)

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg)
	logger.Info().Msg("starting TogoTickets backend")

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	r := NewRouter(db, cfg, logger)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	worker := notify.NewWorker(db,
		notify.NewEmailSender(cfg.ResendAPIKey, cfg.EmailFrom, logger),
		notify.NewConsoleSMSSender(logger),
		logger)
	go worker.Run(workerCtx)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()
	logger.Info().Str("addr", server.Addr).Msg("listening")

	shutdown(server, stopWorker, logger)
	return nil
}

func shutdown(server *http.Server, stopWorker context.CancelFunc, logger zerolog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
}

// NewRouter assembles the gin engine. Tests build one against their own
// database and config.
func NewRouter(db *gorm.DB, cfg *config.Config, logger zerolog.Logger) *gin.Engine {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := helpers.RegisterValidators(v); err != nil {
			logger.Error().Err(err).Msg("failed to register custom validators")
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(monitoring.HTTPMetrics())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "TogoTickets backend is running"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Static("/uploads", "./uploads")

	authHandler := handlers.NewAuthHandler(db, cfg.JWTSecret, logger)
	eventHandler := handlers.NewEventHandler(db, logger)
	ticketHandler := handlers.NewTicketHandler(db, cfg.JWTSecret, logger)
	cancellationHandler := handlers.NewCancellationHandler(db, logger)
	adminHandler := handlers.NewAdminHandler(db, logger)
	contactHandler := handlers.NewContactHandler(db, cfg.ContactInbox, logger)

	public := r.Group("/v1")
	{
		public.POST("/auth/register", authHandler.Register)
		public.POST("/auth/login", authHandler.Login)

		public.GET("/events/public", eventHandler.ListPublic)
		public.GET("/events/:id", eventHandler.Get)

		// Checkout works for guests; a token, when present, links the
		// tickets to the existing account.
		public.POST("/tickets/buy", middleware.OptionalJWTAuth(cfg.JWTSecret), ticketHandler.Buy)

		public.POST("/contact", contactHandler.Submit)
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuth(cfg.JWTSecret))
	{
		protected.GET("/auth/me", authHandler.Me)

		protected.GET("/tickets/my", ticketHandler.ListMine)
		protected.GET("/tickets/:id/qr", ticketHandler.QR)

		organizer := protected.Group("")
		organizer.Use(middleware.RequireRole(models.RoleOrganizer))
		{
			organizer.POST("/events", eventHandler.Create)
			organizer.PUT("/events/:id", eventHandler.Update)
			organizer.GET("/events/my", eventHandler.ListMine)
			organizer.POST("/events/:id/cancel-request", cancellationHandler.Request)
		}

		admin := protected.Group("")
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.POST("/events/:id/cancel-approve", cancellationHandler.Approve)

			admin.GET("/admin/stats", adminHandler.Stats)
			admin.GET("/admin/promoters", adminHandler.ListPromoters)
			admin.GET("/admin/events", adminHandler.ListAllEvents)
			admin.GET("/admin/events/pending", adminHandler.ListPendingEvents)
			admin.PATCH("/admin/events/:id/status", adminHandler.UpdateEventStatus)

			admin.GET("/contact", contactHandler.List)
		}
	}

	return r
}
