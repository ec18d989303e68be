package reports

import (
	"testing"
	"time"

	"github.com/nexweave/vendordesk_backend/models"
	"github.com/shopspring/decimal"
)

func testSub(cycle models.BillingCycle, amount string, status models.SubscriptionStatus) *models.Subscription {
	return &models.Subscription{
		DocumentId:   models.NewDocumentId("SUB"),
		VendorId:     "vendor-1",
		PlanName:     "Plan",
		BillingCycle: cycle,
		Amount:       decimal.RequireFromString(amount),
		Status:       status,
	}
}

func TestMonthlyEquivalent(t *testing.T) {
	cases := []struct {
		cycle  models.BillingCycle
		amount string
		want   string
	}{
		{models.BillingCycleMonthly, "100", "100"},
		{models.BillingCycleQuarterly, "300", "100"},
		{models.BillingCycleAnnual, "1200", "100"},
		{models.BillingCycleQuarterly, "100", "33.3333"},
		{models.BillingCycleAnnual, "100", "8.3333"},
	}
	for _, tc := range cases {
		sub := testSub(tc.cycle, tc.amount, models.SubscriptionStatusActive)
		got := MonthlyEquivalent(sub)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("%s %s: monthly equivalent = %s, want %s", tc.cycle, tc.amount, got, tc.want)
		}
	}
}

func TestComputeRevenueSummary(t *testing.T) {
	subs := []*models.Subscription{
		testSub(models.BillingCycleMonthly, "100", models.SubscriptionStatusActive),
		testSub(models.BillingCycleQuarterly, "300", models.SubscriptionStatusActive),
		testSub(models.BillingCycleAnnual, "1200", models.SubscriptionStatusActive),
		testSub(models.BillingCycleMonthly, "999", models.SubscriptionStatusPaused),
		testSub(models.BillingCycleMonthly, "999", models.SubscriptionStatusCancelled),
	}

	summary := ComputeRevenueSummary(subs)

	if summary.ActiveCount != 3 {
		t.Fatalf("active count = %d, want 3", summary.ActiveCount)
	}
	if summary.MonthlyCount != 1 || summary.QuarterlyCount != 1 || summary.AnnualCount != 1 {
		t.Fatalf("cycle counts = %d/%d/%d, want 1/1/1",
			summary.MonthlyCount, summary.QuarterlyCount, summary.AnnualCount)
	}
	if !summary.Mrr.Equal(decimal.RequireFromString("300")) {
		t.Fatalf("mrr = %s, want 300", summary.Mrr)
	}
	if !summary.Arr.Equal(decimal.RequireFromString("3600")) {
		t.Fatalf("arr = %s, want 3600", summary.Arr)
	}
}

func TestComputeRevenueSummary_Empty(t *testing.T) {
	summary := ComputeRevenueSummary(nil)
	if summary.ActiveCount != 0 || !summary.Mrr.IsZero() || !summary.Arr.IsZero() {
		t.Fatalf("empty input should yield a zero summary, got %+v", summary)
	}
}

func TestComputeForecast_MonthlyBaseline(t *testing.T) {
	from := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	subs := []*models.Subscription{
		testSub(models.BillingCycleMonthly, "100", models.SubscriptionStatusActive),
		testSub(models.BillingCycleMonthly, "50", models.SubscriptionStatusActive),
	}

	forecast := ComputeForecast(subs, from, 3)
	if len(forecast) != 3 {
		t.Fatalf("forecast length = %d, want 3", len(forecast))
	}
	wantMonths := []string{"2025-06", "2025-07", "2025-08"}
	for i, fm := range forecast {
		if fm.Month != wantMonths[i] {
			t.Errorf("month[%d] = %s, want %s", i, fm.Month, wantMonths[i])
		}
		if !fm.ProjectedRevenue.Equal(decimal.RequireFromString("150")) {
			t.Errorf("month %s revenue = %s, want 150", fm.Month, fm.ProjectedRevenue)
		}
	}
}

func TestComputeForecast_QuarterlyLandsOnBillingMonths(t *testing.T) {
	from := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	quarterly := testSub(models.BillingCycleQuarterly, "300", models.SubscriptionStatusActive)
	quarterly.NextBillingDate = time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)

	forecast := ComputeForecast([]*models.Subscription{quarterly}, from, 6)

	want := map[string]string{
		"2025-06": "0",
		"2025-07": "300",
		"2025-08": "0",
		"2025-09": "0",
		"2025-10": "300",
		"2025-11": "0",
	}
	for _, fm := range forecast {
		if !fm.ProjectedRevenue.Equal(decimal.RequireFromString(want[fm.Month])) {
			t.Errorf("month %s revenue = %s, want %s", fm.Month, fm.ProjectedRevenue, want[fm.Month])
		}
	}
}

func TestComputeForecast_AnnualOutsideWindow(t *testing.T) {
	from := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	annual := testSub(models.BillingCycleAnnual, "1200", models.SubscriptionStatusActive)
	annual.NextBillingDate = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	forecast := ComputeForecast([]*models.Subscription{annual}, from, 6)
	for _, fm := range forecast {
		if !fm.ProjectedRevenue.IsZero() {
			t.Errorf("month %s revenue = %s, want 0 (billing date beyond window)",
				fm.Month, fm.ProjectedRevenue)
		}
	}
}

func TestComputeForecast_IgnoresInactive(t *testing.T) {
	from := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	paused := testSub(models.BillingCycleMonthly, "100", models.SubscriptionStatusPaused)
	cancelled := testSub(models.BillingCycleMonthly, "100", models.SubscriptionStatusCancelled)

	forecast := ComputeForecast([]*models.Subscription{paused, cancelled}, from, 2)
	for _, fm := range forecast {
		if !fm.ProjectedRevenue.IsZero() {
			t.Errorf("month %s revenue = %s, want 0", fm.Month, fm.ProjectedRevenue)
		}
	}
}

func TestComputeCohorts(t *testing.T) {
	jan := time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC)

	a := testSub(models.BillingCycleMonthly, "100", models.SubscriptionStatusActive)
	a.CreatedAt = jan
	b := testSub(models.BillingCycleMonthly, "200", models.SubscriptionStatusCancelled)
	b.CreatedAt = jan
	c := testSub(models.BillingCycleQuarterly, "300", models.SubscriptionStatusPaused)
	c.CreatedAt = mar

	rows := ComputeCohorts([]*models.Subscription{c, a, b})
	if len(rows) != 2 {
		t.Fatalf("cohort rows = %d, want 2", len(rows))
	}
	if rows[0].Month != "2025-01" || rows[1].Month != "2025-03" {
		t.Fatalf("cohorts not sorted oldest first: %s, %s", rows[0].Month, rows[1].Month)
	}

	first := rows[0]
	if first.TotalCount != 2 || first.ActiveCount != 1 || first.CancelledCount != 1 {
		t.Fatalf("2025-01 counts = total %d active %d cancelled %d, want 2/1/1",
			first.TotalCount, first.ActiveCount, first.CancelledCount)
	}
	if !first.Revenue.Equal(decimal.RequireFromString("300")) {
		t.Fatalf("2025-01 revenue = %s, want 300", first.Revenue)
	}

	second := rows[1]
	if second.TotalCount != 1 || second.PausedCount != 1 {
		t.Fatalf("2025-03 counts = total %d paused %d, want 1/1", second.TotalCount, second.PausedCount)
	}
}

func TestComputeForecast_ZeroMonths(t *testing.T) {
	if got := ComputeForecast(nil, time.Now(), 0); got != nil {
		t.Fatalf("zero months should yield nil, got %v", got)
	}
}
