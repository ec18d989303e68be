package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nexweave/vendordesk_backend/config"
	"github.com/nexweave/vendordesk_backend/handlers"
	"github.com/nexweave/vendordesk_backend/middlewares"
	"github.com/nexweave/vendordesk_backend/models"
	"github.com/nexweave/vendordesk_backend/utils"
	"github.com/nexweave/vendordesk_backend/workflow"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("vendordesk-backend")

// outboxReplayHandler is ops tooling: puts DEAD/FAILED notification rows
// back to PENDING so the dispatcher picks them up again. PM only.
func outboxReplayHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := utils.GetRoleFromContext(c.Request.Context())
		if models.Role(role) != models.RoleProjectManager {
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
			return
		}

		db := config.GetDB()
		res := db.WithContext(c.Request.Context()).
			Model(&models.NotificationRecord{}).
			Where("publish_status IN ?", []string{models.OutboxPublishStatusDead, models.OutboxPublishStatusFailed}).
			Updates(map[string]interface{}{
				"publish_status":     models.OutboxPublishStatusPending,
				"publish_attempts":   0,
				"last_publish_error": nil,
				"next_attempt_at":    nil,
				"locked_at":          nil,
				"locked_by":          nil,
			})
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"replayed": res.RowsAffected})
	}
}

func registerRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	api.Use(middlewares.AuthMiddleware())

	api.POST("/quotations", handlers.CreateQuotation)
	api.GET("/quotations", handlers.ListQuotations)
	api.GET("/quotations/:id", handlers.GetQuotation)
	api.PUT("/quotations/:id", handlers.UpdateQuotation)
	api.PUT("/quotations/:id/status", handlers.UpdateQuotationStatus)
	api.DELETE("/quotations/:id", handlers.DeleteQuotation)

	api.POST("/purchase-orders", handlers.CreatePurchaseOrder)
	api.GET("/purchase-orders", handlers.ListPurchaseOrders)
	api.GET("/purchase-orders/:id", handlers.GetPurchaseOrder)
	api.PUT("/purchase-orders/:id/review", handlers.ReviewPurchaseOrder)
	api.DELETE("/purchase-orders/:id", handlers.DeletePurchaseOrder)

	api.POST("/invoices", handlers.CreateInvoice)
	api.GET("/invoices", handlers.ListInvoices)
	api.GET("/invoices/:id", handlers.GetInvoice)
	api.PUT("/invoices/:id", handlers.UpdateInvoice)
	api.PUT("/invoices/:id/status", handlers.UpdateInvoiceStatus)
	api.DELETE("/invoices/:id", handlers.DeleteInvoice)

	api.POST("/credit-notes", handlers.CreateCreditNote)
	api.GET("/credit-notes", handlers.ListCreditNotes)
	api.GET("/credit-notes/:id", handlers.GetCreditNote)
	api.PUT("/credit-notes/:id", handlers.UpdateCreditNote)
	api.DELETE("/credit-notes/:id", handlers.DeleteCreditNote)

	api.POST("/subscriptions", handlers.CreateSubscription)
	api.GET("/subscriptions", handlers.ListSubscriptions)
	api.GET("/subscriptions/:id", handlers.GetSubscription)
	api.PUT("/subscriptions/:id", handlers.UpdateSubscription)
	api.POST("/subscriptions/:id/pause", handlers.PauseSubscription)
	api.POST("/subscriptions/:id/resume", handlers.ResumeSubscription)
	api.POST("/subscriptions/:id/cancel", handlers.CancelSubscription)
	api.POST("/subscriptions/bulk-pause", handlers.BulkPauseSubscriptions)
	api.POST("/subscriptions/bulk-resume", handlers.BulkResumeSubscriptions)
	api.GET("/subscriptions/:id/renewals", handlers.GetRenewalHistory)
	api.POST("/subscriptions/:id/generate-invoice", handlers.GenerateSubscriptionInvoice)
	api.DELETE("/subscriptions/:id", handlers.DeleteSubscription)

	api.GET("/analytics/revenue", handlers.GetRevenueSummary)
	api.GET("/analytics/forecast", handlers.GetRevenueForecast)
	api.GET("/analytics/cohorts", handlers.GetCohortAnalysis)
	api.GET("/exports/invoices", handlers.ExportInvoiceRegister)
	api.GET("/exports/forecast", handlers.ExportRevenueForecast)

	// Ops tooling (PM only): replay outbox rows that went DEAD/FAILED.
	api.POST("/internal/ops/outbox/replay", outboxReplayHandler())
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so the platform considers the revision
	// healthy. Until DB/Redis are ready, app endpoints return 503.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production, require an explicit allowlist; elsewhere allow all.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = strings.Split(allowedOrigins, ",")
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	if !corsConfig.AllowAllOrigins {
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "token", "x-correlation-id")
	r.Use(cors.New(corsConfig))

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())
	registerRoutes(r)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations as
	// a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	if config.OutboxDispatcherEnabled() {
		go workflow.NewOutboxDispatcher(db, logger).Run(workerCtx)
	}
	if config.RecurringSchedulerEnabled() {
		scheduler := workflow.NewRecurringInvoiceScheduler(db, logger)
		scheduler.Tracer = tracer
		go scheduler.Run(workerCtx)
	}

	// Row-level CAS updates rely on READ COMMITTED semantics.
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/api/v1")
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work mid-drain.
	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger logs request errors only.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}
