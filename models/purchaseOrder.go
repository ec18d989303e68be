package models

import (
	"context"
	"errors"
	"time"

	"github.com/nexweave/vendordesk_backend/config"
	"github.com/nexweave/vendordesk_backend/utils"
	"github.com/shopspring/decimal"
)

// PurchaseOrder is the commitment document raised against an existing
// quotation. It always carries its source quotation id; cross-vendor
// creation is rejected outright.
type PurchaseOrder struct {
	DocumentId     string                  `gorm:"primaryKey;size:64" json:"purchase_order_id"`
	VendorId       string                  `gorm:"size:64;index;not null" json:"vendor_id"`
	CustomPoId     string                  `gorm:"size:100;index" json:"custom_po_id"`
	PoNumber       string                  `gorm:"size:100" json:"po_number"`
	QuotationId    string                  `gorm:"size:64;index;not null" json:"quotation_id"`
	ClientId       string                  `gorm:"size:64;index" json:"client_id_ref"`
	ClientName     string                  `gorm:"size:255" json:"client_name"`
	PoDate         *time.Time              `json:"po_date"`
	Status         PurchaseOrderStatus     `gorm:"type:enum('sent_to_pm');default:sent_to_pm" json:"status"`
	StatusType     PurchaseOrderStatusType `gorm:"type:enum('pending','approved','rejected');default:pending" json:"status_type"`
	Feedback       string                  `gorm:"type:text" json:"feedback"`
	ReviewedBy     string                  `gorm:"size:255" json:"reviewed_by"`
	ReviewedAt     *time.Time              `json:"reviewed_at"`
	ProjectLinkage `gorm:"embedded"`
	LineItems      []PurchaseOrderLineItem `gorm:"foreignKey:PurchaseOrderId;references:DocumentId" json:"line_items"`
	Subtotal       decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	CgstAmount     decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"cgst_amount"`
	SgstAmount     decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"sgst_amount"`
	IgstAmount     decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"igst_amount"`
	Total          decimal.Decimal         `gorm:"type:decimal(20,4);default:0" json:"total"`
	Notes          string                  `gorm:"type:text" json:"notes"`
	Metadata       JSONMap                 `gorm:"type:json" json:"metadata"`
	CreatedAt      time.Time               `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time               `gorm:"autoUpdateTime" json:"updated_at"`
}

type PurchaseOrderLineItem struct {
	ID              int    `gorm:"primary_key" json:"id"`
	PurchaseOrderId string `gorm:"size:64;index;not null" json:"purchase_order_id"`
	TaxedLine       `gorm:"embedded"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPurchaseOrder struct {
	QuotationId string          `json:"quotation_id" binding:"required"`
	CustomPoId  string          `json:"custom_po_id"`
	PoNumber    string          `json:"po_number"`
	PoDate      *time.Time      `json:"po_date"`
	LineItems   []NewTaxedLine  `json:"line_items"`
	Totals      *SuppliedTotals `json:"totals"`
	Notes       string          `json:"notes"`
	Metadata    JSONMap         `json:"metadata"`
}

type ReviewPurchaseOrderInput struct {
	VendorId   string                  `json:"vendor_id" binding:"required"`
	StatusType PurchaseOrderStatusType `json:"status_type" binding:"required"`
	Feedback   string                  `json:"feedback"`
}

// CreatePurchaseOrder raises a PO against one of the calling vendor's own
// quotations. Line items default to a copy of the quotation's when the
// payload carries none. After the PO commits, the source quotation is bumped
// to po_sent_to_pm_for_review best-effort: a failed bump is logged and never
// fails the PO.
func CreatePurchaseOrder(ctx context.Context, input *NewPurchaseOrder) (*PurchaseOrder, error) {
	vendorId, err := requireVendor(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}

	// The quotation lookup runs in the caller's own partition, so a
	// cross-vendor quotation id surfaces as not-found.
	quotation, err := GetByVendorAndId[Quotation](ctx, vendorId, input.QuotationId, "LineItems")
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, errors.New("quotation not found")
		}
		return nil, err
	}

	var lines []TaxedLine
	var amounts []utils.LineItemAmounts
	if len(input.LineItems) > 0 {
		lines, amounts, err = buildTaxedLines(input.LineItems)
		if err != nil {
			return nil, err
		}
	} else {
		for _, item := range quotation.LineItems {
			lines = append(lines, item.TaxedLine)
			amounts = append(amounts, item.TaxedLine.amounts())
		}
	}

	supplied := input.Totals.toDocumentTotals()
	if supplied == nil && len(input.LineItems) == 0 {
		// Lines copied unchanged carry the quotation's aggregates with them.
		supplied = &utils.DocumentTotals{
			Subtotal:   quotation.Subtotal,
			CgstAmount: quotation.CgstAmount,
			SgstAmount: quotation.SgstAmount,
			IgstAmount: quotation.IgstAmount,
			Total:      quotation.Total,
		}
	}
	totals := utils.ComputeTotals(amounts, supplied)

	documentId := NewDocumentId(PrefixPurchaseOrder)
	displayNumber := nextDisplayNumber(ctx, vendorId, "purchase_orders", PrefixPurchaseOrder)
	customId := CanonicalCustomId(documentId, input.CustomPoId, input.PoNumber, displayNumber)

	po := PurchaseOrder{
		DocumentId:     documentId,
		VendorId:       vendorId,
		CustomPoId:     customId,
		PoNumber:       utils.FirstNonEmpty(input.PoNumber, customId),
		QuotationId:    quotation.DocumentId,
		ClientId:       quotation.ClientId,
		ClientName:     quotation.ClientName,
		PoDate:         input.PoDate,
		Status:         PurchaseOrderStatusSentToPm,
		StatusType:     PurchaseOrderStatusTypePending,
		ProjectLinkage: quotation.ProjectLinkage,
		LineItems:      make([]PurchaseOrderLineItem, 0, len(lines)),
		Subtotal:       totals.Subtotal,
		CgstAmount:     totals.CgstAmount,
		SgstAmount:     totals.SgstAmount,
		IgstAmount:     totals.IgstAmount,
		Total:          totals.Total,
		Notes:          input.Notes,
		Metadata:       input.Metadata,
	}
	for _, line := range lines {
		po.LineItems = append(po.LineItems, PurchaseOrderLineItem{
			PurchaseOrderId: documentId,
			TaxedLine:       line,
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

	if err := PutDocument(ctx, tx, &po); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// Secondary effect, outside the PO's transaction on purpose.
	if err := markQuotationPoSent(ctx, vendorId, quotation.DocumentId); err != nil {
		config.LogError(config.GetLogger(), "purchaseOrder.go", "CreatePurchaseOrder",
			"markQuotationPoSent", quotation.DocumentId, err)
	}

	EmitLifecycleEvent(ctx, vendorId, EventPurchaseOrderCreated, ReferenceTypePurchaseOrder, documentId, po)
	return &po, nil
}

// ReviewPurchaseOrder records a PM decision on a pending purchase order.
func ReviewPurchaseOrder(ctx context.Context, documentId string, input *ReviewPurchaseOrderInput) (*PurchaseOrder, error) {
	_, role, err := callerIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}

	existing, err := GetByVendorAndId[PurchaseOrder](ctx, input.VendorId, documentId)
	if err != nil {
		return nil, err
	}
	if err := CheckPurchaseOrderReview(role, existing.StatusType, input.StatusType); err != nil {
		return nil, err
	}

	reviewer, _ := utils.GetUserNameFromContext(ctx)
	now := time.Now().UTC()
	deltas := map[string]interface{}{
		"status_type": input.StatusType,
		"feedback":    input.Feedback,
		"reviewed_by": reviewer,
		"reviewed_at": &now,
	}
	if err := UpdateDocumentFields[PurchaseOrder](ctx, input.VendorId, documentId, deltas); err != nil {
		return nil, err
	}

	updated, err := GetByVendorAndId[PurchaseOrder](ctx, input.VendorId, documentId, "LineItems")
	if err != nil {
		return nil, err
	}
	EmitLifecycleEvent(ctx, input.VendorId, EventPurchaseOrderReviewed, ReferenceTypePurchaseOrder, documentId, updated)
	return updated, nil
}

// GetPurchaseOrder reads one purchase order, vendor-scoped or PM cross-owner.
func GetPurchaseOrder(ctx context.Context, documentId string) (*PurchaseOrder, error) {
	vendorId, role, err := callerIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if role == RoleVendor {
		return GetByVendorAndId[PurchaseOrder](ctx, vendorId, documentId, "LineItems")
	}
	docs, err := ScanAllDocumentsPreloading[PurchaseOrder](ctx, []string{"LineItems"},
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

// GetPurchaseOrders lists purchase orders for the caller's visible scope.
func GetPurchaseOrders(ctx context.Context, filters ...utils.Filter) ([]*PurchaseOrder, error) {
	vendorId, role, err := callerIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if role == RoleVendor {
		return QueryByVendor[PurchaseOrder](ctx, vendorId, filters...)
	}
	return ScanAllDocuments[PurchaseOrder](ctx, filters...)
}

// DeletePurchaseOrder is the administrative removal path for the owning
// vendor.
func DeletePurchaseOrder(ctx context.Context, documentId string) error {
	vendorId, err := requireVendor(ctx)
	if err != nil {
		return err
	}
	if err := utils.ValidateResourceId[PurchaseOrder](ctx, vendorId, documentId); err != nil {
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

	if err := tx.Where("purchase_order_id = ?", documentId).Delete(&PurchaseOrderLineItem{}).Error; err != nil {
		return err
	}
	if err := tx.Where("vendor_id = ? AND document_id = ?", vendorId, documentId).
		Delete(&PurchaseOrder{}).Error; err != nil {
		return err
	}
	return tx.Commit().Error
}
