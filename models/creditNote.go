package models

import (
	"context"
	"errors"
	"time"

	"github.com/nexweave/vendordesk_backend/config"
	"github.com/nexweave/vendordesk_backend/utils"
	"github.com/shopspring/decimal"
)

// CreditNote is a corrective document reducing a prior invoice's billed
// amount. The invoice reference is optional; standalone credit notes are
// allowed. Draft is the only defined state in this lifecycle.
type CreditNote struct {
	DocumentId         string           `gorm:"primaryKey;size:64" json:"credit_note_id"`
	VendorId           string           `gorm:"size:64;index;not null" json:"vendor_id"`
	CustomCreditNoteId string           `gorm:"size:100;index" json:"custom_credit_note_id"`
	CreditNoteNumber   string           `gorm:"size:100" json:"credit_note_number"`
	InvoiceId          string           `gorm:"size:64;index" json:"invoice_id"`
	ClientId           string           `gorm:"size:64;index" json:"client_id_ref"`
	ClientName         string           `gorm:"size:255" json:"client_name"`
	CreditNoteDate     *time.Time       `json:"credit_note_date"`
	Reason             string           `gorm:"type:text" json:"reason"`
	Status             CreditNoteStatus `gorm:"type:enum('draft');default:draft" json:"status"`
	ProjectLinkage     `gorm:"embedded"`
	LineItems          []CreditNoteLineItem `gorm:"foreignKey:CreditNoteId;references:DocumentId" json:"line_items"`
	Subtotal           decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	CgstAmount         decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"cgst_amount"`
	SgstAmount         decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"sgst_amount"`
	IgstAmount         decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"igst_amount"`
	Total              decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"total"`
	Notes              string               `gorm:"type:text" json:"notes"`
	Metadata           JSONMap              `gorm:"type:json" json:"metadata"`
	CreatedAt          time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

type CreditNoteLineItem struct {
	ID           int    `gorm:"primary_key" json:"id"`
	CreditNoteId string `gorm:"size:64;index;not null" json:"credit_note_id"`
	TaxedLine    `gorm:"embedded"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCreditNote struct {
	CustomCreditNoteId string          `json:"custom_credit_note_id"`
	CreditNoteNumber   string          `json:"credit_note_number"`
	InvoiceId          string          `json:"invoice_id"`
	ClientId           string          `json:"client_id"`
	ClientName         string          `json:"client_name" binding:"required"`
	CreditNoteDate     *time.Time      `json:"credit_note_date"`
	Reason             string          `json:"reason"`
	ProjectId          string          `json:"project_id"`
	WorkspaceId        string          `json:"workspace_id"`
	LineItems          []NewTaxedLine  `json:"line_items"`
	Totals             *SuppliedTotals `json:"totals"`
	Notes              string          `json:"notes"`
	Metadata           JSONMap         `json:"metadata"`
}

// CreateCreditNote creates a draft credit note in the calling vendor's
// partition. A supplied invoice id must name an invoice in the same
// partition; linkage and counterparty default from it.
func CreateCreditNote(ctx context.Context, input *NewCreditNote) (*CreditNote, error) {
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
	}
	clientName := input.ClientName
	if input.InvoiceId != "" {
		invoice, err := GetByVendorAndId[Invoice](ctx, vendorId, input.InvoiceId)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				return nil, errors.New("invoice not found")
			}
			return nil, err
		}
		if linkage.ProjectId == "" {
			linkage = invoice.ProjectLinkage
		}
		clientName = utils.FirstNonEmpty(clientName, invoice.ClientName)
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

	documentId := NewDocumentId(PrefixCreditNote)
	displayNumber := nextDisplayNumber(ctx, vendorId, "credit_notes", PrefixCreditNote)
	customId := CanonicalCustomId(documentId,
		input.CustomCreditNoteId, input.CreditNoteNumber, displayNumber)

	creditNote := CreditNote{
		DocumentId:         documentId,
		VendorId:           vendorId,
		CustomCreditNoteId: customId,
		CreditNoteNumber:   utils.FirstNonEmpty(input.CreditNoteNumber, customId),
		InvoiceId:          input.InvoiceId,
		ClientId:           linkage.ClientId,
		ClientName:         clientName,
		CreditNoteDate:     input.CreditNoteDate,
		Reason:             input.Reason,
		Status:             CreditNoteStatusDraft,
		ProjectLinkage:     linkage,
		LineItems:          make([]CreditNoteLineItem, 0, len(lines)),
		Subtotal:           totals.Subtotal,
		CgstAmount:         totals.CgstAmount,
		SgstAmount:         totals.SgstAmount,
		IgstAmount:         totals.IgstAmount,
		Total:              totals.Total,
		Notes:              input.Notes,
		Metadata:           input.Metadata,
	}
	for _, line := range lines {
		creditNote.LineItems = append(creditNote.LineItems, CreditNoteLineItem{
			CreditNoteId: documentId,
			TaxedLine:    line,
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

	if err := PutDocument(ctx, tx, &creditNote); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	EmitLifecycleEvent(ctx, vendorId, EventCreditNoteCreated, ReferenceTypeCreditNote, documentId, creditNote)
	return &creditNote, nil
}

// UpdateCreditNote rewrites a vendor's credit note; replacing line items
// forces a totals recomputation.
func UpdateCreditNote(ctx context.Context, documentId string, input *NewCreditNote) (*CreditNote, error) {
	vendorId, err := requireVendor(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}

	existing, err := GetByVendorAndId[CreditNote](ctx, vendorId, documentId, "LineItems")
	if err != nil {
		return nil, err
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
		input.CustomCreditNoteId, input.CreditNoteNumber, existing.CustomCreditNoteId)

	updated := *existing
	updated.CustomCreditNoteId = customId
	updated.CreditNoteNumber = utils.FirstNonEmpty(input.CreditNoteNumber, customId)
	updated.ClientName = utils.FirstNonEmpty(input.ClientName, existing.ClientName)
	if input.ClientId != "" {
		updated.ClientId = input.ClientId
	}
	if input.CreditNoteDate != nil {
		updated.CreditNoteDate = input.CreditNoteDate
	}
	updated.Reason = utils.FirstNonEmpty(input.Reason, existing.Reason)
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
		if err := tx.Where("credit_note_id = ?", documentId).Delete(&CreditNoteLineItem{}).Error; err != nil {
			return nil, err
		}
		updated.LineItems = make([]CreditNoteLineItem, 0, len(lines))
		for _, line := range lines {
			updated.LineItems = append(updated.LineItems, CreditNoteLineItem{
				CreditNoteId: documentId,
				TaxedLine:    line,
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

// GetCreditNote reads one credit note, vendor-scoped or PM cross-owner.
func GetCreditNote(ctx context.Context, documentId string) (*CreditNote, error) {
	vendorId, role, err := callerIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if role == RoleVendor {
		return GetByVendorAndId[CreditNote](ctx, vendorId, documentId, "LineItems")
	}
	docs, err := ScanAllDocumentsPreloading[CreditNote](ctx, []string{"LineItems"},
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

// GetCreditNotes lists credit notes for the caller's visible scope.
func GetCreditNotes(ctx context.Context, filters ...utils.Filter) ([]*CreditNote, error) {
	vendorId, role, err := callerIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if role == RoleVendor {
		return QueryByVendor[CreditNote](ctx, vendorId, filters...)
	}
	return ScanAllDocuments[CreditNote](ctx, filters...)
}

// DeleteCreditNote is the administrative removal path for the owning vendor.
func DeleteCreditNote(ctx context.Context, documentId string) error {
	vendorId, err := requireVendor(ctx)
	if err != nil {
		return err
	}
	if err := utils.ValidateResourceId[CreditNote](ctx, vendorId, documentId); err != nil {
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

	if err := tx.Where("credit_note_id = ?", documentId).Delete(&CreditNoteLineItem{}).Error; err != nil {
		return err
	}
	if err := tx.Where("vendor_id = ? AND document_id = ?", vendorId, documentId).
		Delete(&CreditNote{}).Error; err != nil {
		return err
	}
	return tx.Commit().Error
}
