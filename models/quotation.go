package models

import (
	"context"
	"errors"
	"time"

	"github.com/nexweave/vendordesk_backend/config"
	"github.com/nexweave/vendordesk_backend/utils"
	"github.com/shopspring/decimal"
)

// Quotation is a priced offer a vendor issues to a client, pending
// project-manager review. It is the head of the Quotation -> Purchase Order
// -> Invoice -> Credit Note chain.
type Quotation struct {
	DocumentId        string          `gorm:"primaryKey;size:64" json:"quotation_id"`
	VendorId          string          `gorm:"size:64;index;not null" json:"vendor_id"`
	CustomQuotationId string          `gorm:"size:100;index" json:"custom_quotation_id"`
	QuoteNumber       string          `gorm:"size:100" json:"quote_number"`
	QuoteCode         string          `gorm:"size:100" json:"quote_code"`
	ClientId          string          `gorm:"size:64;index" json:"client_id_ref"`
	ClientName        string          `gorm:"size:255" json:"client_name"`
	QuotationDate     *time.Time      `json:"quotation_date"`
	ValidUntil        *time.Time      `json:"valid_until"`
	Status            QuotationStatus `gorm:"type:enum('draft','sent_to_pm_for_review','po_sent_to_pm_for_review','approved','rejected');default:draft" json:"status"`
	Feedback          string          `gorm:"type:text" json:"feedback"`
	ReviewedBy        string          `gorm:"size:255" json:"reviewed_by"`
	ReviewedAt        *time.Time      `json:"reviewed_at"`
	ProjectLinkage    `gorm:"embedded"`
	LineItems         []QuotationLineItem `gorm:"foreignKey:QuotationId;references:DocumentId" json:"line_items"`
	Subtotal          decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	CgstAmount        decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"cgst_amount"`
	SgstAmount        decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"sgst_amount"`
	IgstAmount        decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"igst_amount"`
	Total             decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"total"`
	Notes             string              `gorm:"type:text" json:"notes"`
	Metadata          JSONMap             `gorm:"type:json" json:"metadata"`
	CreatedAt         time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type QuotationLineItem struct {
	ID          int    `gorm:"primary_key" json:"id"`
	QuotationId string `gorm:"size:64;index;not null" json:"quotation_id"`
	TaxedLine   `gorm:"embedded"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewQuotation struct {
	CustomQuotationId string          `json:"custom_quotation_id"`
	QuoteNumber       string          `json:"quote_number"`
	QuoteCode         string          `json:"quote_code"`
	ClientId          string          `json:"client_id"`
	ClientName        string          `json:"client_name" binding:"required"`
	QuotationDate     *time.Time      `json:"quotation_date"`
	ValidUntil        *time.Time      `json:"valid_until"`
	ProjectId         string          `json:"project_id"`
	WorkspaceId       string          `json:"workspace_id"`
	TaskId            string          `json:"task_id"`
	SubtaskId         string          `json:"subtask_id"`
	LineItems         []NewTaxedLine  `json:"line_items"`
	Totals            *SuppliedTotals `json:"totals"`
	Notes             string          `json:"notes"`
	Metadata          JSONMap         `json:"metadata"`
}

type UpdateQuotationStatusInput struct {
	VendorId string          `json:"vendor_id"`
	Status   QuotationStatus `json:"status" binding:"required"`
	Feedback string          `json:"feedback"`
}

// CreateQuotation creates a draft quotation in the calling vendor's
// partition. Totals follow the calculator's override semantics; project
// linkage is stamped best-effort from the workspace registry.
func CreateQuotation(ctx context.Context, input *NewQuotation) (*Quotation, error) {
	vendorId, err := requireVendor(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}

	lines, amounts, err := buildTaxedLines(input.LineItems)
	if err != nil {
		return nil, err
	}
	totals := utils.ComputeTotals(amounts, input.Totals.toDocumentTotals())

	linkage := ProjectLinkage{
		ProjectId:   input.ProjectId,
		WorkspaceId: input.WorkspaceId,
		TaskId:      input.TaskId,
		SubtaskId:   input.SubtaskId,
	}
	stampProjectLinkage(ctx, &linkage)
	if input.ClientId != "" {
		linkage.ClientId = input.ClientId
	}

	documentId := NewDocumentId(PrefixQuotation)
	displayNumber := nextDisplayNumber(ctx, vendorId, "quotations", PrefixQuotation)
	customId := CanonicalCustomId(documentId,
		input.CustomQuotationId, input.QuoteNumber, input.QuoteCode, displayNumber)

	quotation := Quotation{
		DocumentId:        documentId,
		VendorId:          vendorId,
		CustomQuotationId: customId,
		QuoteNumber:       utils.FirstNonEmpty(input.QuoteNumber, customId),
		QuoteCode:         utils.FirstNonEmpty(input.QuoteCode, customId),
		ClientId:          linkage.ClientId,
		ClientName:        input.ClientName,
		QuotationDate:     input.QuotationDate,
		ValidUntil:        input.ValidUntil,
		Status:            QuotationStatusDraft,
		ProjectLinkage:    linkage,
		LineItems:         make([]QuotationLineItem, 0, len(lines)),
		Subtotal:          totals.Subtotal,
		CgstAmount:        totals.CgstAmount,
		SgstAmount:        totals.SgstAmount,
		IgstAmount:        totals.IgstAmount,
		Total:             totals.Total,
		Notes:             input.Notes,
		Metadata:          input.Metadata,
	}
	for _, line := range lines {
		quotation.LineItems = append(quotation.LineItems, QuotationLineItem{
			QuotationId: documentId,
			TaxedLine:   line,
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

	if err := PutDocument(ctx, tx, &quotation); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	EmitLifecycleEvent(ctx, vendorId, EventQuotationCreated, ReferenceTypeQuotation, documentId, quotation)
	return &quotation, nil
}

// UpdateQuotation rewrites a quotation owned by the calling vendor. When line
// items are present in the payload they replace the stored set and force a
// totals recomputation, discarding any caller-supplied aggregates for this
// update. Reviewed quotations are frozen.
func UpdateQuotation(ctx context.Context, documentId string, input *NewQuotation) (*Quotation, error) {
	vendorId, err := requireVendor(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}

	existing, err := GetByVendorAndId[Quotation](ctx, vendorId, documentId, "LineItems")
	if err != nil {
		return nil, err
	}
	if existing.Status == QuotationStatusApproved || existing.Status == QuotationStatusRejected {
		return nil, errors.New("quotation has been reviewed and can no longer be edited")
	}

	replacingLines := len(input.LineItems) > 0
	lines := make([]TaxedLine, 0)
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

	linkage := ProjectLinkage{
		ProjectId:   utils.FirstNonEmpty(input.ProjectId, existing.ProjectId),
		WorkspaceId: utils.FirstNonEmpty(input.WorkspaceId, existing.WorkspaceId),
		TaskId:      utils.FirstNonEmpty(input.TaskId, existing.TaskId),
		SubtaskId:   utils.FirstNonEmpty(input.SubtaskId, existing.SubtaskId),
		ClientId:    utils.FirstNonEmpty(input.ClientId, existing.ClientId),
	}
	stampProjectLinkage(ctx, &linkage)

	customId := CanonicalCustomId(documentId,
		input.CustomQuotationId, input.QuoteNumber, input.QuoteCode, existing.CustomQuotationId)

	updated := *existing
	updated.CustomQuotationId = customId
	updated.QuoteNumber = utils.FirstNonEmpty(input.QuoteNumber, customId)
	updated.QuoteCode = utils.FirstNonEmpty(input.QuoteCode, customId)
	updated.ClientName = utils.FirstNonEmpty(input.ClientName, existing.ClientName)
	updated.ClientId = linkage.ClientId
	updated.ProjectLinkage = linkage
	if input.QuotationDate != nil {
		updated.QuotationDate = input.QuotationDate
	}
	if input.ValidUntil != nil {
		updated.ValidUntil = input.ValidUntil
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
		if err := tx.Where("quotation_id = ?", documentId).Delete(&QuotationLineItem{}).Error; err != nil {
			return nil, err
		}
		updated.LineItems = make([]QuotationLineItem, 0, len(lines))
		for _, line := range lines {
			updated.LineItems = append(updated.LineItems, QuotationLineItem{
				QuotationId: documentId,
				TaxedLine:   line,
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

// UpdateQuotationStatus moves a quotation through its state machine. Vendors
// send their own drafts to review; PMs approve or reject (with feedback and
// reviewer identity) any vendor's submitted quotation, naming the target
// vendor partition in the input.
func UpdateQuotationStatus(ctx context.Context, documentId string, input *UpdateQuotationStatusInput) (*Quotation, error) {
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

	existing, err := GetByVendorAndId[Quotation](ctx, vendorId, documentId)
	if err != nil {
		return nil, err
	}
	// Drafts are invisible to PMs until the vendor submits them.
	if role == RoleProjectManager && existing.Status == QuotationStatusDraft {
		return nil, utils.ErrorRecordNotFound
	}
	if err := CheckQuotationTransition(role, existing.Status, input.Status); err != nil {
		return nil, err
	}

	deltas := map[string]interface{}{
		"status": input.Status,
	}
	event := EventQuotationSentToPm
	if input.Status == QuotationStatusApproved || input.Status == QuotationStatusRejected {
		reviewer, _ := utils.GetUserNameFromContext(ctx)
		now := time.Now().UTC()
		deltas["feedback"] = input.Feedback
		deltas["reviewed_by"] = reviewer
		deltas["reviewed_at"] = &now
		event = EventQuotationReviewed
	}
	if err := UpdateDocumentFields[Quotation](ctx, vendorId, documentId, deltas); err != nil {
		return nil, err
	}

	updated, err := GetByVendorAndId[Quotation](ctx, vendorId, documentId, "LineItems")
	if err != nil {
		return nil, err
	}
	EmitLifecycleEvent(ctx, vendorId, event, ReferenceTypeQuotation, documentId, updated)
	return updated, nil
}

// markQuotationPoSent is the best-effort side effect of purchase-order
// creation: it advances the source quotation from draft or PM review to
// po_sent_to_pm_for_review. Already-reviewed quotations are left alone. Runs
// after the PO's own write commits; the caller logs failures and never fails
// the PO on this.
func markQuotationPoSent(ctx context.Context, vendorId string, quotationId string) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&Quotation{}).
		Where("vendor_id = ? AND document_id = ? AND status IN ?",
			vendorId, quotationId,
			[]QuotationStatus{QuotationStatusDraft, QuotationStatusSentToPmForReview}).
		Updates(map[string]interface{}{
			"status":     QuotationStatusPoSentToPmForReview,
			"updated_at": time.Now().UTC(),
		}).Error
}

// GetQuotation reads one quotation. A vendor only sees its own partition; a
// PM may read any vendor's quotation but never a draft.
func GetQuotation(ctx context.Context, documentId string) (*Quotation, error) {
	vendorId, role, err := callerIdentity(ctx)
	if err != nil {
		return nil, err
	}

	if role == RoleVendor {
		return GetByVendorAndId[Quotation](ctx, vendorId, documentId, "LineItems")
	}

	docs, err := ScanAllDocumentsPreloading[Quotation](ctx, []string{"LineItems"},
		utils.Filter{Cond: "document_id = ?", Values: []interface{}{documentId}},
		utils.Filter{Cond: "status <> ?", Values: []interface{}{QuotationStatusDraft}},
	)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return docs[0], nil
}

// GetQuotations lists quotations: the vendor's own partition, or all vendors'
// submitted quotations for a PM.
func GetQuotations(ctx context.Context, filters ...utils.Filter) ([]*Quotation, error) {
	vendorId, role, err := callerIdentity(ctx)
	if err != nil {
		return nil, err
	}

	if role == RoleVendor {
		return QueryByVendor[Quotation](ctx, vendorId, filters...)
	}
	filters = append(filters, utils.Filter{
		Cond:   "status <> ?",
		Values: []interface{}{QuotationStatusDraft},
	})
	return ScanAllDocuments[Quotation](ctx, filters...)
}

// DeleteQuotation is the administrative removal path for the owning vendor.
// Lifecycle rules do not apply here; the row and its lines are gone.
func DeleteQuotation(ctx context.Context, documentId string) error {
	vendorId, err := requireVendor(ctx)
	if err != nil {
		return err
	}
	if err := utils.ValidateResourceId[Quotation](ctx, vendorId, documentId); err != nil {
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

	if err := tx.Where("quotation_id = ?", documentId).Delete(&QuotationLineItem{}).Error; err != nil {
		return err
	}
	if err := tx.Where("vendor_id = ? AND document_id = ?", vendorId, documentId).
		Delete(&Quotation{}).Error; err != nil {
		return err
	}
	return tx.Commit().Error
}
