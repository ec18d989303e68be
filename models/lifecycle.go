package models

import (
	"fmt"

	"github.com/nexweave/vendordesk_backend/utils"
)

// Status machines for the billing documents. Transitions are the only way a
// persisted document's status moves; each transition carries a role gate.

var quotationTransitions = map[QuotationStatus][]QuotationStatus{
	QuotationStatusDraft: {
		QuotationStatusSentToPmForReview,
		QuotationStatusPoSentToPmForReview,
	},
	QuotationStatusSentToPmForReview: {
		QuotationStatusPoSentToPmForReview,
		QuotationStatusApproved,
		QuotationStatusRejected,
	},
	QuotationStatusPoSentToPmForReview: {
		QuotationStatusApproved,
		QuotationStatusRejected,
	},
}

func (s QuotationStatus) CanTransitionTo(next QuotationStatus) bool {
	for _, allowed := range quotationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// quotationTransitionRole returns which caller role may request the given
// target status. po_sent_to_pm_for_review is only ever entered as the side
// effect of purchase-order creation, never by a direct status call.
func quotationTransitionRole(next QuotationStatus) (Role, error) {
	switch next {
	case QuotationStatusSentToPmForReview:
		return RoleVendor, nil
	case QuotationStatusApproved, QuotationStatusRejected:
		return RoleProjectManager, nil
	default:
		return "", fmt.Errorf("status %s cannot be set directly", next)
	}
}

// CheckQuotationTransition validates a requested quotation status change
// against the machine and the caller's role.
func CheckQuotationTransition(role Role, from QuotationStatus, to QuotationStatus) error {
	requiredRole, err := quotationTransitionRole(to)
	if err != nil {
		return err
	}
	if role != requiredRole {
		return utils.ErrorUnauthorized
	}
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("cannot move quotation from %s to %s", from, to)
	}
	return nil
}

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft: {
		InvoiceStatusSentToPmForReview,
	},
	InvoiceStatusSentToPmForReview: {
		InvoiceStatusApproved,
		InvoiceStatusRejected,
	},
}

func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func invoiceTransitionRole(next InvoiceStatus) (Role, error) {
	switch next {
	case InvoiceStatusSentToPmForReview:
		return RoleVendor, nil
	case InvoiceStatusApproved, InvoiceStatusRejected:
		return RoleProjectManager, nil
	default:
		return "", fmt.Errorf("status %s cannot be set directly", next)
	}
}

// CheckInvoiceTransition validates a requested invoice status change against
// the machine and the caller's role.
func CheckInvoiceTransition(role Role, from InvoiceStatus, to InvoiceStatus) error {
	requiredRole, err := invoiceTransitionRole(to)
	if err != nil {
		return err
	}
	if role != requiredRole {
		return utils.ErrorUnauthorized
	}
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("cannot move invoice from %s to %s", from, to)
	}
	return nil
}

// CheckPurchaseOrderReview validates a PM decision on a pending purchase
// order.
func CheckPurchaseOrderReview(role Role, from PurchaseOrderStatusType, to PurchaseOrderStatusType) error {
	if role != RoleProjectManager {
		return utils.ErrorUnauthorized
	}
	if to != PurchaseOrderStatusTypeApproved && to != PurchaseOrderStatusTypeRejected {
		return fmt.Errorf("status %s cannot be set directly", to)
	}
	if from != PurchaseOrderStatusTypePending {
		return fmt.Errorf("purchase order already reviewed (%s)", from)
	}
	return nil
}
