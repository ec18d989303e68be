package models

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nexweave/vendordesk_backend/utils"
)

func storedTotals() utils.DocumentTotals {
	return utils.DocumentTotals{
		Subtotal:   decimal.NewFromInt(1000),
		CgstAmount: decimal.NewFromInt(90),
		SgstAmount: decimal.NewFromInt(90),
		Total:      decimal.NewFromInt(1180),
	}
}

func TestResolveUpdateTotals_ReplacedLinesOverrideEverything(t *testing.T) {
	amounts := []utils.LineItemAmounts{
		{Amount: decimal.NewFromInt(500), IgstAmount: decimal.NewFromInt(90)},
	}
	supplied := &SuppliedTotals{Total: decimal.NewFromInt(9999)}

	totals := resolveUpdateTotals(storedTotals(), supplied, amounts, true)

	if !totals.Total.Equal(decimal.NewFromInt(590)) {
		t.Fatalf("total = %s, want 590 recomputed from the replaced lines", totals.Total)
	}
	if !totals.Subtotal.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("subtotal = %s, want 500", totals.Subtotal)
	}
}

func TestResolveUpdateTotals_LinelessEditHonorsSuppliedAggregates(t *testing.T) {
	supplied := &SuppliedTotals{
		Subtotal: decimal.NewFromInt(2000),
		Total:    decimal.NewFromInt(2360),
	}

	totals := resolveUpdateTotals(storedTotals(), supplied, nil, false)

	if !totals.Subtotal.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("subtotal = %s, want supplied 2000", totals.Subtotal)
	}
	if !totals.Total.Equal(decimal.NewFromInt(2360)) {
		t.Fatalf("total = %s, want supplied 2360", totals.Total)
	}
}

func TestResolveUpdateTotals_LinelessEditKeepsStoredWhenNothingSupplied(t *testing.T) {
	for name, supplied := range map[string]*SuppliedTotals{
		"nil":      nil,
		"all-zero": {},
	} {
		totals := resolveUpdateTotals(storedTotals(), supplied, nil, false)
		if !totals.Total.Equal(decimal.NewFromInt(1180)) {
			t.Fatalf("%s supplied: total = %s, want stored 1180 kept", name, totals.Total)
		}
		if !totals.Subtotal.Equal(decimal.NewFromInt(1000)) {
			t.Fatalf("%s supplied: subtotal = %s, want stored 1000 kept", name, totals.Subtotal)
		}
	}
}
