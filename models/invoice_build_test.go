package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testSubscription() *Subscription {
	return &Subscription{
		DocumentId:   "SUB-1-abcd1234",
		VendorId:     "vendor-1",
		PlanName:     "Retainer",
		ClientId:     "client-9",
		ClientName:   "Acme Studios",
		BillingCycle: BillingCycleMonthly,
		Amount:       decimal.NewFromInt(1180),
		Items: []SubscriptionItem{
			{TaxedLine: TaxedLine{
				Description: "Monthly retainer",
				Quantity:    decimal.NewFromInt(1),
				UnitAmount:  decimal.NewFromInt(1000),
				Amount:      decimal.NewFromInt(1000),
				CgstAmount:  decimal.NewFromInt(90),
				SgstAmount:  decimal.NewFromInt(90),
			}},
		},
	}
}

func TestBuildInvoiceFromSubscription_CarriesReferenceAndTotals(t *testing.T) {
	sub := testSubscription()
	now := time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)

	invoice := buildInvoiceFromSubscription(sub, now)

	if invoice.SubscriptionId != sub.DocumentId {
		t.Fatalf("invoice.SubscriptionId = %q, want %q", invoice.SubscriptionId, sub.DocumentId)
	}
	if invoice.VendorId != sub.VendorId {
		t.Fatalf("invoice owner = %q, want subscription owner %q", invoice.VendorId, sub.VendorId)
	}
	if invoice.ClientName != sub.ClientName || invoice.ClientId != sub.ClientId {
		t.Fatal("counterparty not copied from subscription")
	}
	if invoice.Status != InvoiceStatusDraft {
		t.Fatalf("generated invoice status = %s, want draft", invoice.Status)
	}
	if len(invoice.LineItems) != 1 {
		t.Fatalf("expected 1 line copied from template, got %d", len(invoice.LineItems))
	}
	if !invoice.Total.Equal(decimal.NewFromInt(1180)) {
		t.Fatalf("invoice total = %s, want 1180", invoice.Total)
	}
	expected := invoice.Subtotal.Add(invoice.CgstAmount).Add(invoice.SgstAmount).Add(invoice.IgstAmount)
	if !invoice.Total.Equal(expected) {
		t.Fatalf("total %s != subtotal+taxes %s", invoice.Total, expected)
	}
}

func TestBuildInvoiceFromSubscription_FlatAmountWithoutTemplate(t *testing.T) {
	sub := testSubscription()
	sub.Items = nil
	sub.Amount = decimal.NewFromInt(500)

	invoice := buildInvoiceFromSubscription(sub, time.Now().UTC())

	if !invoice.Total.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("template-less invoice total = %s, want flat 500", invoice.Total)
	}
	if len(invoice.LineItems) != 1 || invoice.LineItems[0].Description != sub.PlanName {
		t.Fatalf("expected a single synthesized plan line, got %+v", invoice.LineItems)
	}
}

func TestBuildInvoiceFromSubscription_FreshIdPerInvoice(t *testing.T) {
	sub := testSubscription()
	now := time.Now().UTC()
	first := buildInvoiceFromSubscription(sub, now)
	second := buildInvoiceFromSubscription(sub, now)
	if first.DocumentId == second.DocumentId {
		t.Fatal("each generated invoice must get its own document id")
	}
}
