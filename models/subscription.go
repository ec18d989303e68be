package models

import (
	"context"
	"errors"
	"time"

	"github.com/nexweave/vendordesk_backend/config"
	"github.com/nexweave/vendordesk_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Subscription is a recurring billing agreement. Its item template is copied
// onto every generated invoice; next_billing_date is the scheduler's sole
// re-entry gate and only ever moves forward.
type Subscription struct {
	DocumentId        string             `gorm:"primaryKey;size:64" json:"subscription_id"`
	VendorId          string             `gorm:"size:64;index;not null" json:"vendor_id"`
	PlanName          string             `gorm:"size:255" json:"plan_name"`
	ClientId          string             `gorm:"size:64;index" json:"client_id_ref"`
	ClientName        string             `gorm:"size:255" json:"client_name"`
	BillingCycle      BillingCycle       `gorm:"type:enum('Monthly','Quarterly','Annual');not null" json:"billing_cycle"`
	Amount            decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"amount"`
	StartDate         time.Time          `gorm:"not null" json:"start_date"`
	NextBillingDate   time.Time          `gorm:"index;not null" json:"next_billing_date"`
	Status            SubscriptionStatus `gorm:"type:enum('active','paused','cancelled');default:active;index" json:"status"`
	PausedAt          *time.Time         `json:"paused_at"`
	ResumedAt         *time.Time         `json:"resumed_at"`
	CancelledAt       *time.Time         `json:"cancelled_at"`
	InvoicesGenerated int                `gorm:"default:0" json:"invoices_generated"`
	LastInvoiceDate   *time.Time         `json:"last_invoice_date"`
	ProjectLinkage    `gorm:"embedded"`
	Items             []SubscriptionItem `gorm:"foreignKey:SubscriptionId;references:DocumentId" json:"items"`
	Metadata          JSONMap            `gorm:"type:json" json:"metadata"`
	CreatedAt         time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// SubscriptionItem is one line of the invoice template.
type SubscriptionItem struct {
	ID             int    `gorm:"primary_key" json:"id"`
	SubscriptionId string `gorm:"size:64;index;not null" json:"subscription_id"`
	TaxedLine      `gorm:"embedded"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// SubscriptionRenewal records one generated invoice per billing cycle, the
// subscription's renewal history.
type SubscriptionRenewal struct {
	ID             int             `gorm:"primary_key" json:"id"`
	VendorId       string          `gorm:"size:64;index;not null" json:"vendor_id"`
	SubscriptionId string          `gorm:"size:64;uniqueIndex:idx_renewal_cycle;not null" json:"subscription_id"`
	InvoiceId      string          `gorm:"size:64;index;not null" json:"invoice_id"`
	BilledAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"billed_amount"`
	BillingDate    time.Time       `gorm:"uniqueIndex:idx_renewal_cycle;not null" json:"billing_date"`
	Trigger        string          `gorm:"size:32;uniqueIndex:idx_renewal_cycle;default:scheduled" json:"trigger"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

const (
	RenewalTriggerScheduled = "scheduled"
	RenewalTriggerOnDemand  = "on_demand"
)

type NewSubscription struct {
	PlanName     string          `json:"plan_name" binding:"required"`
	ClientId     string          `json:"client_id"`
	ClientName   string          `json:"client_name" binding:"required"`
	BillingCycle BillingCycle    `json:"billing_cycle" binding:"required"`
	Amount       decimal.Decimal `json:"amount"`
	StartDate    time.Time       `json:"start_date" binding:"required"`
	ProjectId    string          `json:"project_id"`
	WorkspaceId  string          `json:"workspace_id"`
	Items        []NewTaxedLine  `json:"items"`
	Metadata     JSONMap         `json:"metadata"`
}

// BulkOpResult is one item's outcome in a bulk pause/resume call. The batch
// never fails as a whole; every id reports for itself.
type BulkOpResult struct {
	SubscriptionId string `json:"subscription_id"`
	Ok             bool   `json:"ok"`
	Error          string `json:"error,omitempty"`
}

// addMonthsClamped advances by whole calendar months, clamping the day to
// the last day of the target month. time.AddDate would normalize Jan 31 +1
// month into March; billing dates must stay inside the target month.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	hour, minute, sec := t.Clock()
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}

// AdvanceBillingDate moves a billing date forward one cycle. Quarterly and
// annual advance by calendar +3 and +12 months directly, not by repeated
// monthly steps.
func AdvanceBillingDate(date time.Time, cycle BillingCycle) time.Time {
	switch cycle {
	case BillingCycleQuarterly:
		return addMonthsClamped(date, 3)
	case BillingCycleAnnual:
		return addMonthsClamped(date, 12)
	default:
		return addMonthsClamped(date, 1)
	}
}

// CreateSubscription creates an active subscription in the calling vendor's
// partition with next_billing_date one cycle past the start date.
func CreateSubscription(ctx context.Context, input *NewSubscription) (*Subscription, error) {
	vendorId, err := requireVendor(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	if !input.BillingCycle.Valid() {
		return nil, errors.New("billing cycle must be Monthly, Quarterly or Annual")
	}

	lines, _, err := buildTaxedLines(input.Items)
	if err != nil {
		return nil, err
	}

	linkage := ProjectLinkage{
		ProjectId:   input.ProjectId,
		WorkspaceId: input.WorkspaceId,
	}
	stampProjectLinkage(ctx, &linkage)
	if input.ClientId != "" {
		linkage.ClientId = input.ClientId
	}

	documentId := NewDocumentId(PrefixSubscription)
	subscription := Subscription{
		DocumentId:      documentId,
		VendorId:        vendorId,
		PlanName:        input.PlanName,
		ClientId:        linkage.ClientId,
		ClientName:      input.ClientName,
		BillingCycle:    input.BillingCycle,
		Amount:          input.Amount,
		StartDate:       input.StartDate,
		NextBillingDate: AdvanceBillingDate(input.StartDate, input.BillingCycle),
		Status:          SubscriptionStatusActive,
		ProjectLinkage:  linkage,
		Items:           make([]SubscriptionItem, 0, len(lines)),
		Metadata:        input.Metadata,
	}
	for _, line := range lines {
		subscription.Items = append(subscription.Items, SubscriptionItem{
			SubscriptionId: documentId,
			TaxedLine:      line,
		})
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	if err := PutDocument(ctx, tx, &subscription); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	EmitLifecycleEvent(ctx, vendorId, EventSubscriptionCreated, ReferenceTypeSubscription, documentId, subscription)
	return &subscription, nil
}

// UpdateSubscription edits a subscription's template: plan, amount, items,
// counterparty. Billing state (status, next_billing_date, counters) moves
// only through pause/resume/cancel and the scheduler.
func UpdateSubscription(ctx context.Context, documentId string, input *NewSubscription) (*Subscription, error) {
	vendorId, err := requireVendor(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}

	existing, err := GetByVendorAndId[Subscription](ctx, vendorId, documentId, "Items")
	if err != nil {
		return nil, err
	}
	if existing.Status == SubscriptionStatusCancelled {
		return nil, errors.New("subscription is cancelled")
	}
	if input.BillingCycle != "" && !input.BillingCycle.Valid() {
		return nil, errors.New("billing cycle must be Monthly, Quarterly or Annual")
	}

	replacingItems := len(input.Items) > 0
	var lines []TaxedLine
	if replacingItems {
		lines, _, err = buildTaxedLines(input.Items)
		if err != nil {
			return nil, err
		}
	}

	updated := *existing
	updated.PlanName = utils.FirstNonEmpty(input.PlanName, existing.PlanName)
	updated.ClientName = utils.FirstNonEmpty(input.ClientName, existing.ClientName)
	if input.ClientId != "" {
		updated.ClientId = input.ClientId
	}
	if !input.Amount.IsZero() {
		updated.Amount = input.Amount
	}
	if input.BillingCycle != "" {
		updated.BillingCycle = input.BillingCycle
	}
	if input.Metadata != nil {
		updated.Metadata = input.Metadata
	}
	updated.UpdatedAt = time.Now().UTC()

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	if replacingItems {
		if err := tx.Where("subscription_id = ?", documentId).Delete(&SubscriptionItem{}).Error; err != nil {
			return nil, err
		}
		updated.Items = make([]SubscriptionItem, 0, len(lines))
		for _, line := range lines {
			updated.Items = append(updated.Items, SubscriptionItem{
				SubscriptionId: documentId,
				TaxedLine:      line,
			})
		}
	} else {
		updated.Items = nil
	}

	if err := PutDocument(ctx, tx, &updated); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

// PauseSubscription stops billing without touching next_billing_date, so the
// pre-pause schedule is preserved for inspection but never acted on.
func PauseSubscription(ctx context.Context, documentId string) (*Subscription, error) {
	vendorId, err := requireVendor(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := GetByVendorAndId[Subscription](ctx, vendorId, documentId)
	if err != nil {
		return nil, err
	}
	if existing.Status != SubscriptionStatusActive {
		return nil, errors.New("only an active subscription can be paused")
	}

	now := time.Now().UTC()
	deltas := map[string]interface{}{
		"status":    SubscriptionStatusPaused,
		"paused_at": &now,
	}
	if err := UpdateDocumentFields[Subscription](ctx, vendorId, documentId, deltas); err != nil {
		return nil, err
	}

	updated, err := GetByVendorAndId[Subscription](ctx, vendorId, documentId, "Items")
	if err != nil {
		return nil, err
	}
	EmitLifecycleEvent(ctx, vendorId, EventSubscriptionPaused, ReferenceTypeSubscription, documentId, updated)
	return updated, nil
}

// ResumeSubscription reactivates a paused subscription. The next billing
// date is recomputed one cycle forward from now; a stale pre-pause date is
// never honored, so a long pause cannot trigger an immediate back-billing.
func ResumeSubscription(ctx context.Context, documentId string) (*Subscription, error) {
	vendorId, err := requireVendor(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := GetByVendorAndId[Subscription](ctx, vendorId, documentId)
	if err != nil {
		return nil, err
	}
	if existing.Status != SubscriptionStatusPaused {
		return nil, errors.New("only a paused subscription can be resumed")
	}

	now := time.Now().UTC()
	deltas := map[string]interface{}{
		"status":            SubscriptionStatusActive,
		"resumed_at":        &now,
		"next_billing_date": AdvanceBillingDate(now, existing.BillingCycle),
	}
	if err := UpdateDocumentFields[Subscription](ctx, vendorId, documentId, deltas); err != nil {
		return nil, err
	}

	updated, err := GetByVendorAndId[Subscription](ctx, vendorId, documentId, "Items")
	if err != nil {
		return nil, err
	}
	EmitLifecycleEvent(ctx, vendorId, EventSubscriptionResumed, ReferenceTypeSubscription, documentId, updated)
	return updated, nil
}

// CancelSubscription retires a subscription permanently.
func CancelSubscription(ctx context.Context, documentId string) (*Subscription, error) {
	vendorId, err := requireVendor(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := GetByVendorAndId[Subscription](ctx, vendorId, documentId)
	if err != nil {
		return nil, err
	}
	if existing.Status == SubscriptionStatusCancelled {
		return existing, nil
	}

	now := time.Now().UTC()
	deltas := map[string]interface{}{
		"status":       SubscriptionStatusCancelled,
		"cancelled_at": &now,
	}
	if err := UpdateDocumentFields[Subscription](ctx, vendorId, documentId, deltas); err != nil {
		return nil, err
	}

	updated, err := GetByVendorAndId[Subscription](ctx, vendorId, documentId)
	if err != nil {
		return nil, err
	}
	EmitLifecycleEvent(ctx, vendorId, EventSubscriptionCancelled, ReferenceTypeSubscription, documentId, updated)
	return updated, nil
}

// bulkApply runs one operation across a list of subscription ids. Each item
// reports its own outcome; completed items stay applied when the caller's
// context is cancelled mid-batch.
func bulkApply(ctx context.Context, ids []string, op func(context.Context, string) error) []BulkOpResult {
	results := make([]BulkOpResult, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			results = append(results, BulkOpResult{SubscriptionId: id, Error: err.Error()})
			continue
		}
		if err := op(ctx, id); err != nil {
			results = append(results, BulkOpResult{SubscriptionId: id, Error: err.Error()})
			continue
		}
		results = append(results, BulkOpResult{SubscriptionId: id, Ok: true})
	}
	return results
}

// BulkPauseSubscriptions pauses a batch, tolerating per-item failure.
func BulkPauseSubscriptions(ctx context.Context, ids []string) []BulkOpResult {
	return bulkApply(ctx, utils.UniqueSlice(ids), func(ctx context.Context, id string) error {
		_, err := PauseSubscription(ctx, id)
		return err
	})
}

// BulkResumeSubscriptions resumes a batch, tolerating per-item failure.
func BulkResumeSubscriptions(ctx context.Context, ids []string) []BulkOpResult {
	return bulkApply(ctx, utils.UniqueSlice(ids), func(ctx context.Context, id string) error {
		_, err := ResumeSubscription(ctx, id)
		return err
	})
}

// GetSubscription reads one subscription, vendor-scoped or PM cross-owner.
func GetSubscription(ctx context.Context, documentId string) (*Subscription, error) {
	vendorId, role, err := callerIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if role == RoleVendor {
		return GetByVendorAndId[Subscription](ctx, vendorId, documentId, "Items")
	}
	docs, err := ScanAllDocumentsPreloading[Subscription](ctx, []string{"Items"},
		utils.Filter{Cond: "document_id = ?", Values: []interface{}{documentId}},
	)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return docs[0], nil
}

// GetSubscriptions lists subscriptions for the caller's visible scope.
func GetSubscriptions(ctx context.Context, filters ...utils.Filter) ([]*Subscription, error) {
	vendorId, role, err := callerIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if role == RoleVendor {
		return QueryByVendor[Subscription](ctx, vendorId, filters...)
	}
	return ScanAllDocuments[Subscription](ctx, filters...)
}

// GetRenewalHistory lists the generated-invoice history of one subscription
// in the calling vendor's partition, newest first.
func GetRenewalHistory(ctx context.Context, subscriptionId string) ([]*SubscriptionRenewal, error) {
	vendorId, err := requireVendor(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[Subscription](ctx, vendorId, subscriptionId); err != nil {
		return nil, err
	}

	var renewals []*SubscriptionRenewal
	db := config.GetDB()
	err = db.WithContext(ctx).
		Where("vendor_id = ? AND subscription_id = ?", vendorId, subscriptionId).
		Order("billing_date DESC").
		Find(&renewals).Error
	if err != nil {
		return nil, err
	}
	return renewals, nil
}

// GetDueSubscriptions selects the scheduler's work: active subscriptions
// whose next billing date has arrived, across all vendor partitions.
func GetDueSubscriptions(ctx context.Context, now time.Time) ([]*Subscription, error) {
	scanCtx := utils.SetSkipOwnerScopeInContext(ctx, true)

	var due []*Subscription
	db := config.GetDB()
	err := db.WithContext(scanCtx).
		Preload("Items").
		Where("status = ? AND next_billing_date <= ?", SubscriptionStatusActive, now).
		Find(&due).Error
	if err != nil {
		return nil, utils.Retryable(err)
	}
	return due, nil
}

// ProcessDueSubscription generates one invoice for a due subscription and
// advances its billing state, in a single transaction.
//
// The compare-and-swap on next_billing_date is the only concurrency control:
// the update matches the exact date observed at selection time, so a
// concurrent tick that already advanced it makes this update match zero rows
// and the invoice write never happens. The advanced date is computed from the
// scheduled date, not from now, so late ticks do not drift the cadence.
//
// Returns (nil, nil) when the subscription was no longer due (race lost or
// state changed); a non-nil error means the subscription is still due and
// will be retried on the next tick.
func ProcessDueSubscription(ctx context.Context, sub *Subscription, now time.Time) (*Invoice, error) {
	if sub == nil {
		return nil, errors.New("subscription is required")
	}
	scanCtx := utils.SetSkipOwnerScopeInContext(ctx, true)

	db := config.GetDB()
	tx := db.WithContext(scanCtx).Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	nowUTC := now.UTC()
	advanced := AdvanceBillingDate(sub.NextBillingDate, sub.BillingCycle)
	res := tx.Model(&Subscription{}).
		Where("document_id = ? AND vendor_id = ? AND status = ? AND next_billing_date = ?",
			sub.DocumentId, sub.VendorId, SubscriptionStatusActive, sub.NextBillingDate).
		Updates(map[string]interface{}{
			"next_billing_date":  advanced,
			"invoices_generated": gorm.Expr("invoices_generated + 1"),
			"last_invoice_date":  &nowUTC,
			"updated_at":         nowUTC,
		})
	if res.Error != nil {
		return nil, utils.Retryable(res.Error)
	}
	if res.RowsAffected == 0 {
		// A concurrent tick won the race, or the subscription was paused or
		// cancelled between selection and processing. Nothing to bill.
		return nil, nil
	}

	invoice := buildInvoiceFromSubscription(sub, nowUTC)
	if err := PutDocument(scanCtx, tx, invoice); err != nil {
		return nil, utils.Retryable(err)
	}

	renewal := SubscriptionRenewal{
		VendorId:       sub.VendorId,
		SubscriptionId: sub.DocumentId,
		InvoiceId:      invoice.DocumentId,
		BilledAmount:   invoice.Total,
		BillingDate:    sub.NextBillingDate,
		Trigger:        RenewalTriggerScheduled,
	}
	if err := tx.Create(&renewal).Error; err != nil {
		if utils.IsDuplicateKeyErr(err) {
			// Backstop behind the conditional update: this cycle was already
			// billed. Roll back and report nothing due.
			return nil, nil
		}
		return nil, utils.Retryable(err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, utils.Retryable(err)
	}

	EmitLifecycleEvent(ctx, sub.VendorId, EventInvoiceGenerated, ReferenceTypeInvoice, invoice.DocumentId, invoice)
	return invoice, nil
}

// GenerateInvoiceOnDemand bills a subscription immediately at the vendor's
// request, outside the schedule. The invoice counter and last-invoice date
// move; next_billing_date is untouched, so the regular cadence is unaffected.
func GenerateInvoiceOnDemand(ctx context.Context, subscriptionId string) (*Invoice, error) {
	vendorId, err := requireVendor(ctx)
	if err != nil {
		return nil, err
	}

	sub, err := GetByVendorAndId[Subscription](ctx, vendorId, subscriptionId, "Items")
	if err != nil {
		return nil, err
	}
	if sub.Status == SubscriptionStatusCancelled {
		return nil, errors.New("subscription is cancelled")
	}

	now := time.Now().UTC()
	invoice := buildInvoiceFromSubscription(sub, now)

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	if err := PutDocument(ctx, tx, invoice); err != nil {
		return nil, err
	}
	res := tx.Model(&Subscription{}).
		Where("document_id = ? AND vendor_id = ?", subscriptionId, vendorId).
		Updates(map[string]interface{}{
			"invoices_generated": gorm.Expr("invoices_generated + 1"),
			"last_invoice_date":  &now,
			"updated_at":         now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	renewal := SubscriptionRenewal{
		VendorId:       vendorId,
		SubscriptionId: subscriptionId,
		InvoiceId:      invoice.DocumentId,
		BilledAmount:   invoice.Total,
		BillingDate:    now,
		Trigger:        RenewalTriggerOnDemand,
	}
	if err := tx.Create(&renewal).Error; err != nil {
		if utils.IsDuplicateKeyErr(err) {
			return nil, errors.New("an invoice was just generated for this subscription, try again")
		}
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	EmitLifecycleEvent(ctx, vendorId, EventInvoiceGenerated, ReferenceTypeInvoice, invoice.DocumentId, invoice)
	return invoice, nil
}

// DeleteSubscription is the administrative removal path for the owning
// vendor. Renewal history stays for audit.
func DeleteSubscription(ctx context.Context, documentId string) error {
	vendorId, err := requireVendor(ctx)
	if err != nil {
		return err
	}
	if err := utils.ValidateResourceId[Subscription](ctx, vendorId, documentId); err != nil {
		return err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	if err := tx.Where("subscription_id = ?", documentId).Delete(&SubscriptionItem{}).Error; err != nil {
		return err
	}
	if err := tx.Where("vendor_id = ? AND document_id = ?", vendorId, documentId).
		Delete(&Subscription{}).Error; err != nil {
		return err
	}
	return tx.Commit().Error
}
