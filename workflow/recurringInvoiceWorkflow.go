package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/nexweave/vendordesk_backend/config"
	"github.com/nexweave/vendordesk_backend/models"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const recurringSchedulerLockKey = "recurring_invoice_scheduler:tick"

// RecurringInvoiceScheduler drives subscription billing: on every tick it
// selects due subscriptions across all vendor partitions and generates one
// invoice per due cycle through the lifecycle manager.
//
// The redis lock only keeps concurrent runners from doing redundant work.
// Correctness against overlapping ticks comes from the compare-and-swap on
// next_billing_date inside ProcessDueSubscription, so a lost or expired lock
// can never double-bill.
type RecurringInvoiceScheduler struct {
	DB          *gorm.DB
	Logger      *logrus.Logger
	Tracer      trace.Tracer
	SchedulerID string

	TickInterval time.Duration
	LockTTL      time.Duration
}

func NewRecurringInvoiceScheduler(db *gorm.DB, logger *logrus.Logger) *RecurringInvoiceScheduler {
	return &RecurringInvoiceScheduler{
		DB:           db,
		Logger:       logger,
		SchedulerID:  uuid.NewString(),
		TickInterval: config.RecurringSchedulerTickInterval(),
		LockTTL:      2 * time.Minute,
	}
}

func (s *RecurringInvoiceScheduler) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.TickOnce(ctx, time.Now().UTC())
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.TickInterval):
		}
	}
}

// TickOnce processes every subscription due at now. Subscriptions are
// independent: one failed invoice write is logged and left due for the next
// tick, never blocking the rest of the batch.
func (s *RecurringInvoiceScheduler) TickOnce(ctx context.Context, now time.Time) (generated int, skipped int, failed int) {
	if s.Tracer != nil {
		var span trace.Span
		ctx, span = s.Tracer.Start(ctx, "recurring_invoice.tick")
		defer func() {
			span.SetAttributes(
				attribute.Int("billing.generated", generated),
				attribute.Int("billing.skipped", skipped),
				attribute.Int("billing.failed", failed),
			)
			span.End()
		}()
	}

	lock, proceed := s.obtainTickLock(ctx)
	if !proceed {
		return 0, 0, 0
	}
	if lock != nil {
		defer func() { _ = lock.Release(ctx) }()
	}

	due, err := models.GetDueSubscriptions(ctx, now)
	if err != nil {
		config.LogError(s.Logger, "recurringInvoiceWorkflow.go", "TickOnce", "GetDueSubscriptions", s.SchedulerID, err)
		return 0, 0, 0
	}
	if len(due) == 0 {
		return 0, 0, 0
	}

	for _, sub := range due {
		invoice, err := models.ProcessDueSubscription(ctx, sub, now)
		if err != nil {
			failed++
			config.LogError(s.Logger, "recurringInvoiceWorkflow.go", "TickOnce", "ProcessDueSubscription", sub.DocumentId, err)
			continue
		}
		if invoice == nil {
			// No longer due: a concurrent tick advanced it, or the vendor
			// paused or cancelled between selection and processing.
			skipped++
			continue
		}
		generated++
		if s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{
				"field":           "RecurringInvoiceScheduler",
				"subscription_id": sub.DocumentId,
				"vendor_id":       sub.VendorId,
				"invoice_id":      invoice.DocumentId,
				"billing_date":    sub.NextBillingDate.Format(time.RFC3339),
			}).Info("generated recurring invoice")
		}
	}

	if s.Logger != nil && (generated > 0 || failed > 0) {
		s.Logger.WithFields(logrus.Fields{
			"field":     "RecurringInvoiceScheduler",
			"due":       len(due),
			"generated": generated,
			"skipped":   skipped,
			"failed":    failed,
		}).Info("recurring invoice tick complete")
	}
	return generated, skipped, failed
}

// obtainTickLock takes the cross-runner tick lock. Another runner holding it
// means this tick is redundant and is skipped. Redis being unreachable must
// not stop billing, so the tick proceeds without a lock and the
// compare-and-swap carries correctness alone.
func (s *RecurringInvoiceScheduler) obtainTickLock(ctx context.Context) (lock *redislock.Lock, proceed bool) {
	locker := config.GetRedisLock()
	if locker == nil {
		return nil, true
	}
	lock, err := locker.Obtain(ctx, recurringSchedulerLockKey, s.LockTTL, nil)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, false
		}
		config.LogError(s.Logger, "recurringInvoiceWorkflow.go", "obtainTickLock", "Obtain", s.SchedulerID, err)
		return nil, true
	}
	return lock, true
}
