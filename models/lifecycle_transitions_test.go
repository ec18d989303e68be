package models

import (
	"errors"
	"testing"

	"github.com/nexweave/vendordesk_backend/utils"
)

func TestQuotationTransitions(t *testing.T) {
	cases := []struct {
		from    QuotationStatus
		to      QuotationStatus
		allowed bool
	}{
		{QuotationStatusDraft, QuotationStatusSentToPmForReview, true},
		{QuotationStatusDraft, QuotationStatusApproved, false},
		// A PO raised against a draft quotation bumps it directly.
		{QuotationStatusDraft, QuotationStatusPoSentToPmForReview, true},
		{QuotationStatusSentToPmForReview, QuotationStatusPoSentToPmForReview, true},
		{QuotationStatusSentToPmForReview, QuotationStatusApproved, true},
		{QuotationStatusSentToPmForReview, QuotationStatusRejected, true},
		{QuotationStatusPoSentToPmForReview, QuotationStatusApproved, true},
		{QuotationStatusPoSentToPmForReview, QuotationStatusRejected, true},
		{QuotationStatusApproved, QuotationStatusRejected, false},
		{QuotationStatusRejected, QuotationStatusSentToPmForReview, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.allowed {
			t.Errorf("%s -> %s: allowed = %v, want %v", c.from, c.to, got, c.allowed)
		}
	}
}

func TestCheckQuotationTransition_RoleGates(t *testing.T) {
	// Vendor submits a draft for review.
	if err := CheckQuotationTransition(RoleVendor, QuotationStatusDraft, QuotationStatusSentToPmForReview); err != nil {
		t.Fatalf("vendor draft -> sent: %v", err)
	}
	// Vendor may not approve.
	err := CheckQuotationTransition(RoleVendor, QuotationStatusSentToPmForReview, QuotationStatusApproved)
	if !errors.Is(err, utils.ErrorUnauthorized) {
		t.Fatalf("vendor approve should be unauthorized, got %v", err)
	}
	// PM approves and rejects submitted quotations.
	if err := CheckQuotationTransition(RoleProjectManager, QuotationStatusSentToPmForReview, QuotationStatusApproved); err != nil {
		t.Fatalf("pm approve: %v", err)
	}
	if err := CheckQuotationTransition(RoleProjectManager, QuotationStatusPoSentToPmForReview, QuotationStatusRejected); err != nil {
		t.Fatalf("pm reject: %v", err)
	}
	// PM may not submit on a vendor's behalf.
	err = CheckQuotationTransition(RoleProjectManager, QuotationStatusDraft, QuotationStatusSentToPmForReview)
	if !errors.Is(err, utils.ErrorUnauthorized) {
		t.Fatalf("pm submit should be unauthorized, got %v", err)
	}
	// po_sent_to_pm_for_review is a side effect, never a direct request.
	if err := CheckQuotationTransition(RoleVendor, QuotationStatusSentToPmForReview, QuotationStatusPoSentToPmForReview); err == nil {
		t.Fatal("direct po_sent_to_pm_for_review must be rejected")
	}
	if err := CheckQuotationTransition(RoleVendor, QuotationStatusDraft, QuotationStatusPoSentToPmForReview); err == nil {
		t.Fatal("direct po_sent_to_pm_for_review from draft must be rejected")
	}
	// Reviewed quotations are terminal.
	if err := CheckQuotationTransition(RoleProjectManager, QuotationStatusApproved, QuotationStatusRejected); err == nil {
		t.Fatal("approved -> rejected must be rejected")
	}
}

func TestCheckInvoiceTransition(t *testing.T) {
	if err := CheckInvoiceTransition(RoleVendor, InvoiceStatusDraft, InvoiceStatusSentToPmForReview); err != nil {
		t.Fatalf("vendor draft -> sent: %v", err)
	}
	if err := CheckInvoiceTransition(RoleProjectManager, InvoiceStatusSentToPmForReview, InvoiceStatusApproved); err != nil {
		t.Fatalf("pm approve: %v", err)
	}
	err := CheckInvoiceTransition(RoleVendor, InvoiceStatusSentToPmForReview, InvoiceStatusApproved)
	if !errors.Is(err, utils.ErrorUnauthorized) {
		t.Fatalf("vendor approve should be unauthorized, got %v", err)
	}
	if err := CheckInvoiceTransition(RoleProjectManager, InvoiceStatusDraft, InvoiceStatusApproved); err == nil {
		t.Fatal("draft -> approved skips review and must be rejected")
	}
	if err := CheckInvoiceTransition(RoleProjectManager, InvoiceStatusApproved, InvoiceStatusRejected); err == nil {
		t.Fatal("approved invoices are terminal")
	}
}

func TestCheckPurchaseOrderReview(t *testing.T) {
	if err := CheckPurchaseOrderReview(RoleProjectManager, PurchaseOrderStatusTypePending, PurchaseOrderStatusTypeApproved); err != nil {
		t.Fatalf("pm approve pending: %v", err)
	}
	err := CheckPurchaseOrderReview(RoleVendor, PurchaseOrderStatusTypePending, PurchaseOrderStatusTypeApproved)
	if !errors.Is(err, utils.ErrorUnauthorized) {
		t.Fatalf("vendor review should be unauthorized, got %v", err)
	}
	if err := CheckPurchaseOrderReview(RoleProjectManager, PurchaseOrderStatusTypeApproved, PurchaseOrderStatusTypeRejected); err == nil {
		t.Fatal("reviewed purchase order must not be re-reviewed")
	}
	if err := CheckPurchaseOrderReview(RoleProjectManager, PurchaseOrderStatusTypePending, PurchaseOrderStatusTypePending); err == nil {
		t.Fatal("pending is not a reviewable target status")
	}
}
