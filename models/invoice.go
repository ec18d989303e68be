package models

import (
	"context"
	"errors"
	"time"

	"github.com/nexweave/vendordesk_backend/config"
	"github.com/nexweave/vendordesk_backend/utils"
	"github.com/shopspring/decimal"
)

// Invoice is the billable document: either vendor-authored (optionally
// referencing a quotation) or generated mechanically from a subscription,
// in which case SubscriptionId carries the predecessor reference.
type Invoice struct {
	DocumentId      string        `gorm:"primaryKey;size:64" json:"invoice_id"`
	VendorId        string        `gorm:"size:64;index;not null" json:"vendor_id"`
	CustomInvoiceId string        `gorm:"size:100;index" json:"custom_invoice_id"`
	InvoiceNumber   string        `gorm:"size:100" json:"invoice_number"`
	QuoteId         string        `gorm:"size:64;index" json:"quote_id"`
	SubscriptionId  string        `gorm:"size:64;index" json:"subscription_id"`
	ClientId        string        `gorm:"size:64;index" json:"client_id_ref"`
	ClientName      string        `gorm:"size:255" json:"client_name"`
	InvoiceDate     *time.Time    `json:"invoice_date"`
	DueDate         *time.Time    `json:"due_date"`
	Status          InvoiceStatus `gorm:"type:enum('draft','sent_to_pm_for_review','approved','rejected');default:draft" json:"status"`
	Feedback        string        `gorm:"type:text" json:"feedback"`
	ReviewedBy      string        `gorm:"size:255" json:"reviewed_by"`
	ReviewedAt      *time.Time    `json:"reviewed_at"`
	ProjectLinkage  `gorm:"embedded"`
	LineItems       []InvoiceLineItem `gorm:"foreignKey:InvoiceId;references:DocumentId" json:"line_items"`
	Subtotal        decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	CgstAmount      decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"cgst_amount"`
	SgstAmount      decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"sgst_amount"`
	IgstAmount      decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"igst_amount"`
	Total           decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"total"`
	Notes           string            `gorm:"type:text" json:"notes"`
	Metadata        JSONMap           `gorm:"type:json" json:"metadata"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type InvoiceLineItem struct {
	ID        int    `gorm:"primary_key" json:"id"`
	InvoiceId string `gorm:"size:64;index;not null" json:"invoice_id"`
	TaxedLine `gorm:"embedded"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInvoice struct {
	CustomInvoiceId string          `json:"custom_invoice_id"`
	InvoiceNumber   string          `json:"invoice_number"`
	QuoteId         string          `json:"quote_id"`
	ClientId        string          `json:"client_id"`
	ClientName      string          `json:"client_name" binding:"required"`
	InvoiceDate     *time.Time      `json:"invoice_date"`
	DueDate         *time.Time      `json:"due_date"`
	ProjectId       string          `json:"project_id"`
	WorkspaceId     string          `json:"workspace_id"`
	TaskId          string          `json:"task_id"`
	SubtaskId       string          `json:"subtask_id"`
	LineItems       []NewTaxedLine  `json:"line_items"`
	Totals          *SuppliedTotals `json:"totals"`
	Notes           string          `json:"notes"`
	Metadata        JSONMap         `json:"metadata"`
}

type UpdateInvoiceStatusInput struct {
	VendorId string        `json:"vendor_id"`
	Status   InvoiceStatus `json:"status" binding:"required"`
	Feedback string        `json:"feedback"`
}

// CreateInvoice creates a vendor-authored draft invoice. When a quote id is
// supplied it must name a quotation in the caller's own partition; linkage
// and counterparty default from that quotation.
func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {
	vendorId, err := requireVendor(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}

	linkage := ProjectLinkage{
		ProjectId:   input.ProjectId,
		WorkspaceId: input.WorkspaceId,
		TaskId:      input.TaskId,
		SubtaskId:   input.SubtaskId,
	}
	clientName := input.ClientName
	if input.QuoteId != "" {
		quotation, err := GetByVendorAndId[Quotation](ctx, vendorId, input.QuoteId)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				return nil, errors.New("quotation not found")
			}
			return nil, err
		}
		if linkage.ProjectId == "" {
			linkage = quotation.ProjectLinkage
		}
		clientName = utils.FirstNonEmpty(clientName, quotation.ClientName)
	}
	stampProjectLinkage(ctx, &linkage)
	if input.ClientId != "" {
		linkage.ClientId = input.ClientId
	}

	lines, amounts, err := buildTaxedLines(input.LineItems)
	if err != nil {
		return nil, err
	}
	totals := utils.ComputeTotals(amounts, input.Totals.toDocumentTotals())

	documentId := NewDocumentId(PrefixInvoice)
	displayNumber := nextDisplayNumber(ctx, vendorId, "invoices", PrefixInvoice)
	customId := CanonicalCustomId(documentId,
		input.CustomInvoiceId, input.InvoiceNumber, displayNumber)

	invoice := Invoice{
		DocumentId:      documentId,
		VendorId:        vendorId,
		CustomInvoiceId: customId,
		InvoiceNumber:   utils.FirstNonEmpty(input.InvoiceNumber, customId),
		QuoteId:         input.QuoteId,
		ClientId:        linkage.ClientId,
		ClientName:      clientName,
		InvoiceDate:     input.InvoiceDate,
		DueDate:         input.DueDate,
		Status:          InvoiceStatusDraft,
		ProjectLinkage:  linkage,
		LineItems:       make([]InvoiceLineItem, 0, len(lines)),
		Subtotal:        totals.Subtotal,
		CgstAmount:      totals.CgstAmount,
		SgstAmount:      totals.SgstAmount,
		IgstAmount:      totals.IgstAmount,
		Total:           totals.Total,
		Notes:           input.Notes,
		Metadata:        input.Metadata,
	}
	for _, line := range lines {
		invoice.LineItems = append(invoice.LineItems, InvoiceLineItem{
			InvoiceId: documentId,
			TaxedLine: line,
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

	if err := PutDocument(ctx, tx, &invoice); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	EmitLifecycleEvent(ctx, vendorId, EventInvoiceCreated, ReferenceTypeInvoice, documentId, invoice)
	return &invoice, nil
}

// buildInvoiceFromSubscription materializes a draft invoice from a
// subscription's item template. Pure construction: no identity checks, no
// persistence; the scheduler and the on-demand path both insert the result
// inside their own transactions.
func buildInvoiceFromSubscription(sub *Subscription, now time.Time) *Invoice {
	documentId := NewDocumentId(PrefixInvoice)
	invoiceDate := now.UTC()

	lines := make([]InvoiceLineItem, 0, len(sub.Items))
	amounts := make([]utils.LineItemAmounts, 0, len(sub.Items))
	for _, item := range sub.Items {
		lines = append(lines, InvoiceLineItem{
			InvoiceId: documentId,
			TaxedLine: item.TaxedLine,
		})
		amounts = append(amounts, item.TaxedLine.amounts())
	}

	var supplied *utils.DocumentTotals
	if len(amounts) == 0 {
		// Template-less subscriptions bill their flat amount, untaxed.
		supplied = &utils.DocumentTotals{
			Subtotal: sub.Amount,
			Total:    sub.Amount,
		}
		lines = append(lines, InvoiceLineItem{
			InvoiceId: documentId,
			TaxedLine: TaxedLine{
				Description: sub.PlanName,
				Quantity:    decimal.NewFromInt(1),
				UnitAmount:  sub.Amount,
				Amount:      sub.Amount,
			},
		})
	}
	totals := utils.ComputeTotals(amounts, supplied)

	return &Invoice{
		DocumentId:      documentId,
		VendorId:        sub.VendorId,
		CustomInvoiceId: documentId,
		InvoiceNumber:   documentId,
		SubscriptionId:  sub.DocumentId,
		ClientId:        sub.ClientId,
		ClientName:      sub.ClientName,
		InvoiceDate:     &invoiceDate,
		Status:          InvoiceStatusDraft,
		ProjectLinkage:  sub.ProjectLinkage,
		LineItems:       lines,
		Subtotal:        totals.Subtotal,
		CgstAmount:      totals.CgstAmount,
		SgstAmount:      totals.SgstAmount,
		IgstAmount:      totals.IgstAmount,
		Total:           totals.Total,
	}
}

// UpdateInvoice rewrites a vendor's invoice; replacing line items forces a
// totals recomputation. Reviewed invoices are frozen.
func UpdateInvoice(ctx context.Context, documentId string, input *NewInvoice) (*Invoice, error) {
	vendorId, err := requireVendor(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}

	existing, err := GetByVendorAndId[Invoice](ctx, vendorId, documentId, "LineItems")
	if err != nil {
		return nil, err
	}
	if existing.Status == InvoiceStatusApproved || existing.Status == InvoiceStatusRejected {
		return nil, errors.New("invoice has been reviewed and can no longer be edited")
	}

	replacingLines := len(input.LineItems) > 0
	var lines []TaxedLine
	var amounts []utils.LineItemAmounts
	if replacingLines {
		lines, amounts, err = buildTaxedLines(input.LineItems)
		if err != nil {
			return nil, err
		}
	}
	totals := resolveUpdateTotals(utils.DocumentTotals{
		Subtotal:   existing.Subtotal,
		CgstAmount: existing.CgstAmount,
		SgstAmount: existing.SgstAmount,
		IgstAmount: existing.IgstAmount,
		Total:      existing.Total,
	}, input.Totals, amounts, replacingLines)

	customId := CanonicalCustomId(documentId,
		input.CustomInvoiceId, input.InvoiceNumber, existing.CustomInvoiceId)

	updated := *existing
	updated.CustomInvoiceId = customId
	updated.InvoiceNumber = utils.FirstNonEmpty(input.InvoiceNumber, customId)
	updated.ClientName = utils.FirstNonEmpty(input.ClientName, existing.ClientName)
	if input.ClientId != "" {
		updated.ClientId = input.ClientId
	}
	if input.InvoiceDate != nil {
		updated.InvoiceDate = input.InvoiceDate
	}
	if input.DueDate != nil {
		updated.DueDate = input.DueDate
	}
	updated.Subtotal = totals.Subtotal
	updated.CgstAmount = totals.CgstAmount
	updated.SgstAmount = totals.SgstAmount
	updated.IgstAmount = totals.IgstAmount
	updated.Total = totals.Total
	updated.Notes = utils.FirstNonEmpty(input.Notes, existing.Notes)
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

	if replacingLines {
		if err := tx.Where("invoice_id = ?", documentId).Delete(&InvoiceLineItem{}).Error; err != nil {
			return nil, err
		}
		updated.LineItems = make([]InvoiceLineItem, 0, len(lines))
		for _, line := range lines {
			updated.LineItems = append(updated.LineItems, InvoiceLineItem{
				InvoiceId: documentId,
				TaxedLine: line,
			})
		}
	} else {
		updated.LineItems = nil
	}

	if err := PutDocument(ctx, tx, &updated); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

// UpdateInvoiceStatus moves an invoice through its state machine, keyed by
// (vendor, invoice id). Vendors submit their own drafts; PMs approve or
// reject and must name the target vendor partition.
func UpdateInvoiceStatus(ctx context.Context, documentId string, input *UpdateInvoiceStatusInput) (*Invoice, error) {
	callerVendorId, role, err := callerIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}

	vendorId := callerVendorId
	if role == RoleProjectManager {
		vendorId = input.VendorId
		if vendorId == "" {
			return nil, errors.New("vendor id is required")
		}
	}

	existing, err := GetByVendorAndId[Invoice](ctx, vendorId, documentId)
	if err != nil {
		return nil, err
	}
	if err := CheckInvoiceTransition(role, existing.Status, input.Status); err != nil {
		return nil, err
	}

	deltas := map[string]interface{}{
		"status": input.Status,
	}
	if input.Status == InvoiceStatusApproved || input.Status == InvoiceStatusRejected {
		reviewer, _ := utils.GetUserNameFromContext(ctx)
		now := time.Now().UTC()
		deltas["feedback"] = input.Feedback
		deltas["reviewed_by"] = reviewer
		deltas["reviewed_at"] = &now
	}
	if err := UpdateDocumentFields[Invoice](ctx, vendorId, documentId, deltas); err != nil {
		return nil, err
	}

	updated, err := GetByVendorAndId[Invoice](ctx, vendorId, documentId, "LineItems")
	if err != nil {
		return nil, err
	}
	EmitLifecycleEvent(ctx, vendorId, EventInvoiceStatusChanged, ReferenceTypeInvoice, documentId, updated)
	return updated, nil
}

// GetInvoice reads one invoice, vendor-scoped or PM cross-owner.
func GetInvoice(ctx context.Context, documentId string) (*Invoice, error) {
	vendorId, role, err := callerIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if role == RoleVendor {
		return GetByVendorAndId[Invoice](ctx, vendorId, documentId, "LineItems")
	}
	docs, err := ScanAllDocumentsPreloading[Invoice](ctx, []string{"LineItems"},
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

// GetInvoices lists invoices for the caller's visible scope.
func GetInvoices(ctx context.Context, filters ...utils.Filter) ([]*Invoice, error) {
	vendorId, role, err := callerIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if role == RoleVendor {
		return QueryByVendor[Invoice](ctx, vendorId, filters...)
	}
	return ScanAllDocuments[Invoice](ctx, filters...)
}

// DeleteInvoice is the administrative removal path for the owning vendor.
func DeleteInvoice(ctx context.Context, documentId string) error {
	vendorId, err := requireVendor(ctx)
	if err != nil {
		return err
	}
	if err := utils.ValidateResourceId[Invoice](ctx, vendorId, documentId); err != nil {
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

	if err := tx.Where("invoice_id = ?", documentId).Delete(&InvoiceLineItem{}).Error; err != nil {
		return err
	}
	if err := tx.Where("vendor_id = ? AND document_id = ?", vendorId, documentId).
		Delete(&Invoice{}).Error; err != nil {
		return err
	}
	return tx.Commit().Error
}
