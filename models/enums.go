package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// Role is the caller role resolved upstream and trusted here.
type Role string

const (
	RoleVendor         Role = "vendor"
	RoleProjectManager Role = "project-manager"
)

func (r Role) Valid() bool {
	return r == RoleVendor || r == RoleProjectManager
}

type QuotationStatus string

const (
	QuotationStatusDraft               QuotationStatus = "draft"
	QuotationStatusSentToPmForReview   QuotationStatus = "sent_to_pm_for_review"
	QuotationStatusPoSentToPmForReview QuotationStatus = "po_sent_to_pm_for_review"
	QuotationStatusApproved            QuotationStatus = "approved"
	QuotationStatusRejected            QuotationStatus = "rejected"
)

func (s *QuotationStatus) Scan(value interface{}) error {
	str, err := scanEnumString(value)
	if err != nil {
		return err
	}
	*s = QuotationStatus(str)
	return nil
}

func (s QuotationStatus) Value() (driver.Value, error) {
	return string(s), nil
}

type PurchaseOrderStatus string

const (
	PurchaseOrderStatusSentToPm PurchaseOrderStatus = "sent_to_pm"
)

type PurchaseOrderStatusType string

const (
	PurchaseOrderStatusTypePending  PurchaseOrderStatusType = "pending"
	PurchaseOrderStatusTypeApproved PurchaseOrderStatusType = "approved"
	PurchaseOrderStatusTypeRejected PurchaseOrderStatusType = "rejected"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft             InvoiceStatus = "draft"
	InvoiceStatusSentToPmForReview InvoiceStatus = "sent_to_pm_for_review"
	InvoiceStatusApproved          InvoiceStatus = "approved"
	InvoiceStatusRejected          InvoiceStatus = "rejected"
)

func (s *InvoiceStatus) Scan(value interface{}) error {
	str, err := scanEnumString(value)
	if err != nil {
		return err
	}
	*s = InvoiceStatus(str)
	return nil
}

func (s InvoiceStatus) Value() (driver.Value, error) {
	return string(s), nil
}

type CreditNoteStatus string

const (
	CreditNoteStatusDraft CreditNoteStatus = "draft"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

type BillingCycle string

const (
	BillingCycleMonthly   BillingCycle = "Monthly"
	BillingCycleQuarterly BillingCycle = "Quarterly"
	BillingCycleAnnual    BillingCycle = "Annual"
)

func (c BillingCycle) Valid() bool {
	switch c {
	case BillingCycleMonthly, BillingCycleQuarterly, BillingCycleAnnual:
		return true
	}
	return false
}

// LifecycleEvent names the notification/activity events emitted after a
// document write commits.
type LifecycleEvent string

const (
	EventQuotationCreated      LifecycleEvent = "quotation.created"
	EventQuotationSentToPm     LifecycleEvent = "quotation.sent_to_pm"
	EventQuotationReviewed     LifecycleEvent = "quotation.reviewed"
	EventPurchaseOrderCreated  LifecycleEvent = "purchase_order.created"
	EventPurchaseOrderReviewed LifecycleEvent = "purchase_order.reviewed"
	EventInvoiceCreated        LifecycleEvent = "invoice.created"
	EventInvoiceGenerated      LifecycleEvent = "invoice.generated"
	EventInvoiceStatusChanged  LifecycleEvent = "invoice.status_changed"
	EventCreditNoteCreated     LifecycleEvent = "credit_note.created"
	EventSubscriptionCreated   LifecycleEvent = "subscription.created"
	EventSubscriptionPaused    LifecycleEvent = "subscription.paused"
	EventSubscriptionResumed   LifecycleEvent = "subscription.resumed"
	EventSubscriptionCancelled LifecycleEvent = "subscription.cancelled"
)

// ReferenceType tags which document table an outbox row points at.
type ReferenceType string

const (
	ReferenceTypeQuotation     ReferenceType = "quotations"
	ReferenceTypePurchaseOrder ReferenceType = "purchase_orders"
	ReferenceTypeInvoice       ReferenceType = "invoices"
	ReferenceTypeCreditNote    ReferenceType = "credit_notes"
	ReferenceTypeSubscription  ReferenceType = "subscriptions"
)

const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

func scanEnumString(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", errors.New(fmt.Sprint("cannot scan enum value: ", value))
	}
}
