package models_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nexweave/vendordesk_backend/config"
	"github.com/nexweave/vendordesk_backend/models"
	"github.com/nexweave/vendordesk_backend/utils"
	"github.com/shopspring/decimal"
)

func startBillingStack(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "vendordesk_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	vendorCtx := context.Background()
	vendorCtx = utils.SetVendorIdInContext(vendorCtx, "vendor-billing-1")
	vendorCtx = utils.SetRoleInContext(vendorCtx, string(models.RoleVendor))
	vendorCtx = utils.SetUserNameInContext(vendorCtx, "Billing Vendor")
	return vendorCtx
}

func createDueSubscription(t *testing.T, ctx context.Context) *models.Subscription {
	t.Helper()
	// Started two months back on a monthly cycle, so the first billing date
	// is a month behind us and the subscription is due right now.
	sub, err := models.CreateSubscription(ctx, &models.NewSubscription{
		PlanName:     "Retainer",
		ClientName:   "Acme Ltd",
		BillingCycle: models.BillingCycleMonthly,
		Amount:       decimal.NewFromInt(1180),
		StartDate:    time.Now().UTC().AddDate(0, -2, 0),
		Items: []models.NewTaxedLine{
			{
				Description: "Monthly retainer",
				Quantity:    decimal.NewFromInt(1),
				UnitAmount:  decimal.NewFromInt(1000),
				CgstRate:    decimal.NewFromInt(9),
				SgstRate:    decimal.NewFromInt(9),
			},
		},
	})
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	if !sub.NextBillingDate.Before(time.Now().UTC()) {
		t.Fatalf("next billing date %s should already be due", sub.NextBillingDate)
	}
	return sub
}

// Two workers picking up the same due subscription must produce exactly one
// invoice and bump the counter exactly once; the loser's conditional update
// misses and it walks away empty-handed.
func TestConcurrentDueProcessing_BillsExactlyOnce(t *testing.T) {
	vendorCtx := startBillingStack(t)
	sub := createDueSubscription(t, vendorCtx)

	now := time.Now().UTC()
	invoices := make([]*models.Invoice, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			invoices[slot], errs[slot] = models.ProcessDueSubscription(vendorCtx, sub, now)
		}(i)
	}
	wg.Wait()

	generated := 0
	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: ProcessDueSubscription: %v", i, errs[i])
		}
		if invoices[i] != nil {
			generated++
		}
	}
	if generated != 1 {
		t.Fatalf("got %d invoices from 2 concurrent workers, want exactly 1", generated)
	}

	reread, err := models.GetSubscription(vendorCtx, sub.DocumentId)
	if err != nil {
		t.Fatalf("re-read subscription: %v", err)
	}
	if reread.InvoicesGenerated != 1 {
		t.Fatalf("invoices_generated = %d, want 1", reread.InvoicesGenerated)
	}
	if !reread.NextBillingDate.After(sub.NextBillingDate) {
		t.Fatalf("next billing date %s not advanced past %s",
			reread.NextBillingDate, sub.NextBillingDate)
	}

	stored, err := models.GetInvoices(vendorCtx, utils.Filter{
		Cond: "subscription_id = ?", Values: []interface{}{sub.DocumentId},
	})
	if err != nil {
		t.Fatalf("GetInvoices: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("found %d invoices for the subscription, want 1", len(stored))
	}

	renewals, err := models.GetRenewalHistory(vendorCtx, sub.DocumentId)
	if err != nil {
		t.Fatalf("GetRenewalHistory: %v", err)
	}
	if len(renewals) != 1 {
		t.Fatalf("found %d renewal records, want 1", len(renewals))
	}
}

// A resumed subscription bills one cycle forward from the resume instant,
// never from the stale date it carried into the pause.
func TestPauseResume_RecomputesNextBillingDate(t *testing.T) {
	vendorCtx := startBillingStack(t)
	sub := createDueSubscription(t, vendorCtx)
	staleDue := sub.NextBillingDate

	paused, err := models.PauseSubscription(vendorCtx, sub.DocumentId)
	if err != nil {
		t.Fatalf("PauseSubscription: %v", err)
	}
	if paused.Status != models.SubscriptionStatusPaused {
		t.Fatalf("status after pause = %s, want paused", paused.Status)
	}
	if paused.PausedAt == nil {
		t.Fatal("paused_at not stamped")
	}

	// Let the clock move so the recompute is visibly anchored to resume time.
	time.Sleep(1100 * time.Millisecond)
	beforeResume := time.Now().UTC()

	resumed, err := models.ResumeSubscription(vendorCtx, sub.DocumentId)
	if err != nil {
		t.Fatalf("ResumeSubscription: %v", err)
	}
	if resumed.Status != models.SubscriptionStatusActive {
		t.Fatalf("status after resume = %s, want active", resumed.Status)
	}
	if resumed.ResumedAt == nil {
		t.Fatal("resumed_at not stamped")
	}
	if !resumed.NextBillingDate.After(staleDue) {
		t.Fatalf("next billing date %s still at the stale pre-pause value %s",
			resumed.NextBillingDate, staleDue)
	}
	if !resumed.NextBillingDate.After(beforeResume) {
		t.Fatalf("next billing date %s should land a full cycle past the resume at %s",
			resumed.NextBillingDate, beforeResume)
	}
}
