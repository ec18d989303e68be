package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexweave/vendordesk_backend/config"
	"github.com/nexweave/vendordesk_backend/models"
	"github.com/nexweave/vendordesk_backend/workflow"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8081"

// Standalone recurring-invoice runner: runs the subscription billing tick
// loop without the API surface. Deployed separately when the main service
// runs with RECURRING_SCHEDULER_ENABLED=false.
func main() {
	port := os.Getenv("RUNNER_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Health endpoint only; the scheduler needs no request surface.
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	srv := &http.Server{Addr: ":" + port, Handler: r}
	go func() { _ = srv.ListenAndServe() }()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	models.MigrateTable()

	scheduler := workflow.NewRecurringInvoiceScheduler(db, logger)
	scheduler.Tracer = otel.Tracer("vendordesk-recurring-runner")
	dispatcher := workflow.NewOutboxDispatcher(db, logger)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	go scheduler.Run(workerCtx)
	go dispatcher.Run(workerCtx)

	logger.WithFields(logrus.Fields{
		"field": "recurring-invoice-runner",
		"tick":  scheduler.TickInterval.String(),
	}).Info("recurring invoice runner started")

	<-sigCtx.Done()
	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
