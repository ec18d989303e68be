package reports

import (
	"context"
	"sort"
	"time"

	"github.com/nexweave/vendordesk_backend/models"
	"github.com/nexweave/vendordesk_backend/utils"
	"github.com/shopspring/decimal"
)

// Revenue analytics over subscription state. Read-only projections: nothing
// here ever writes back to the subscriptions it reads.

type RevenueSummaryResponse struct {
	ActiveCount    int             `json:"active_count"`
	MonthlyCount   int             `json:"monthly_count"`
	QuarterlyCount int             `json:"quarterly_count"`
	AnnualCount    int             `json:"annual_count"`
	Mrr            decimal.Decimal `json:"mrr"`
	Arr            decimal.Decimal `json:"arr"`
}

type ForecastMonth struct {
	Month            string          `json:"month"`
	ProjectedRevenue decimal.Decimal `json:"projected_revenue"`
}

type CohortRow struct {
	Month          string          `json:"month"`
	TotalCount     int             `json:"total_count"`
	ActiveCount    int             `json:"active_count"`
	PausedCount    int             `json:"paused_count"`
	CancelledCount int             `json:"cancelled_count"`
	Revenue        decimal.Decimal `json:"revenue"`
}

// MonthlyEquivalent normalizes a subscription's amount to a per-month
// figure: quarterly / 3, annual / 12, division rounded to 4 places.
func MonthlyEquivalent(sub *models.Subscription) decimal.Decimal {
	switch sub.BillingCycle {
	case models.BillingCycleQuarterly:
		return sub.Amount.DivRound(decimal.NewFromInt(3), 4)
	case models.BillingCycleAnnual:
		return sub.Amount.DivRound(decimal.NewFromInt(12), 4)
	default:
		return sub.Amount
	}
}

// ComputeRevenueSummary derives MRR/ARR from active subscriptions only.
func ComputeRevenueSummary(subs []*models.Subscription) RevenueSummaryResponse {
	var summary RevenueSummaryResponse
	for _, sub := range subs {
		if sub.Status != models.SubscriptionStatusActive {
			continue
		}
		summary.ActiveCount++
		switch sub.BillingCycle {
		case models.BillingCycleQuarterly:
			summary.QuarterlyCount++
		case models.BillingCycleAnnual:
			summary.AnnualCount++
		default:
			summary.MonthlyCount++
		}
		summary.Mrr = summary.Mrr.Add(MonthlyEquivalent(sub))
	}
	summary.Arr = summary.Mrr.Mul(decimal.NewFromInt(12))
	return summary
}

// ComputeForecast projects revenue per month for the next months starting at
// from. Monthly subscriptions contribute their amount every month; quarterly
// and annual subscriptions contribute their full amount in each month one of
// their billing dates lands in, walking forward from next_billing_date.
func ComputeForecast(subs []*models.Subscription, from time.Time, months int) []ForecastMonth {
	if months <= 0 {
		return nil
	}

	windowStart := utils.MonthStart(from)
	windowEnd := windowStart.AddDate(0, months, 0)

	byMonth := make(map[string]decimal.Decimal, months)
	keys := make([]string, 0, months)
	cursor := windowStart
	for i := 0; i < months; i++ {
		key := utils.MonthKey(cursor)
		byMonth[key] = decimal.Zero
		keys = append(keys, key)
		cursor = cursor.AddDate(0, 1, 0)
	}

	var monthlyBaseline decimal.Decimal
	for _, sub := range subs {
		if sub.Status != models.SubscriptionStatusActive {
			continue
		}
		if sub.BillingCycle == models.BillingCycleMonthly {
			monthlyBaseline = monthlyBaseline.Add(sub.Amount)
			continue
		}
		billing := sub.NextBillingDate
		for billing.Before(windowEnd) {
			if !billing.Before(windowStart) {
				key := utils.MonthKey(billing)
				if existing, ok := byMonth[key]; ok {
					byMonth[key] = existing.Add(sub.Amount)
				}
			}
			billing = models.AdvanceBillingDate(billing, sub.BillingCycle)
		}
	}

	forecast := make([]ForecastMonth, 0, months)
	for _, key := range keys {
		forecast = append(forecast, ForecastMonth{
			Month:            key,
			ProjectedRevenue: monthlyBaseline.Add(byMonth[key]),
		})
	}
	return forecast
}

// ComputeCohorts groups subscriptions by creation month, reporting counts
// per status and total contracted amount per cohort, oldest first.
func ComputeCohorts(subs []*models.Subscription) []CohortRow {
	byMonth := make(map[string]*CohortRow)
	for _, sub := range subs {
		key := utils.MonthKey(sub.CreatedAt)
		row, ok := byMonth[key]
		if !ok {
			row = &CohortRow{Month: key}
			byMonth[key] = row
		}
		row.TotalCount++
		switch sub.Status {
		case models.SubscriptionStatusActive:
			row.ActiveCount++
		case models.SubscriptionStatusPaused:
			row.PausedCount++
		case models.SubscriptionStatusCancelled:
			row.CancelledCount++
		}
		row.Revenue = row.Revenue.Add(sub.Amount)
	}

	rows := make([]CohortRow, 0, len(byMonth))
	for _, row := range byMonth {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Month < rows[j].Month })
	return rows
}

// GetRevenueSummary reports MRR/ARR over the caller's visible subscriptions:
// the vendor's own partition, or every vendor's for a PM.
func GetRevenueSummary(ctx context.Context) (*RevenueSummaryResponse, error) {
	subs, err := models.GetSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	summary := ComputeRevenueSummary(subs)
	return &summary, nil
}

// GetRevenueForecast projects the next months of subscription revenue.
func GetRevenueForecast(ctx context.Context, months int) ([]ForecastMonth, error) {
	subs, err := models.GetSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeForecast(subs, time.Now().UTC(), months), nil
}

// GetCohortAnalysis groups the caller's visible subscriptions by creation
// month.
func GetCohortAnalysis(ctx context.Context) ([]CohortRow, error) {
	subs, err := models.GetSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeCohorts(subs), nil
}
