package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nexweave/vendordesk_backend/config"
	"github.com/nexweave/vendordesk_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// The document store adapter: every billing document is addressed by
// (vendor_id, document_id). Writes always refresh updated_at; targeted
// updates are named-field deltas, never blind merges of a payload, so stale
// fields cannot be resurrected by a partial client object.

// immutableFields may never appear in a field delta. The owner and identity
// of a document are fixed at creation.
var immutableFields = map[string]bool{
	"vendor_id":   true,
	"document_id": true,
	"created_at":  true,
}

// ValidateFieldDeltas rejects deltas that touch immutable key fields.
func ValidateFieldDeltas(deltas map[string]interface{}) error {
	if len(deltas) == 0 {
		return errors.New("field deltas are required")
	}
	for field := range deltas {
		if immutableFields[strings.ToLower(strings.TrimSpace(field))] {
			return fmt.Errorf("field %s is immutable", field)
		}
	}
	return nil
}

// PutDocument upserts a full document row (creation and whole-document
// rewrites). The conflict target is the primary key, so a rewrite replaces
// every column except the creation timestamp.
func PutDocument[T any](ctx context.Context, tx *gorm.DB, doc *T) error {
	if tx == nil {
		tx = config.GetDB()
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		UpdateAll: true,
	}).Create(doc).Error
}

// UpdateDocumentFields applies a named-field delta to one document, keyed by
// (vendorId, documentId). updated_at is always refreshed. Returns
// ErrorRecordNotFound when no row matched.
func UpdateDocumentFields[T any](ctx context.Context, vendorId string, documentId string, deltas map[string]interface{}) error {
	if err := ValidateFieldDeltas(deltas); err != nil {
		return err
	}
	applied := make(map[string]interface{}, len(deltas)+1)
	for k, v := range deltas {
		applied[k] = v
	}
	applied["updated_at"] = time.Now().UTC()

	var model T
	db := config.GetDB()
	res := db.WithContext(ctx).Model(&model).
		Where("vendor_id = ? AND document_id = ?", vendorId, documentId).
		Updates(applied)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

// GetByVendorAndId fetches one document from a vendor partition.
func GetByVendorAndId[T any](ctx context.Context, vendorId string, documentId string, associations ...string) (*T, error) {
	var doc T
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	for _, assoc := range associations {
		dbCtx = dbCtx.Preload(assoc)
	}
	err := dbCtx.Where("vendor_id = ? AND document_id = ?", vendorId, documentId).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// QueryByVendor lists a vendor partition's documents, newest first.
func QueryByVendor[T any](ctx context.Context, vendorId string, filters ...utils.Filter) ([]*T, error) {
	var docs []*T
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("vendor_id = ?", vendorId)
	for _, f := range filters {
		dbCtx = dbCtx.Where(f.Cond, f.Values...)
	}
	if err := dbCtx.Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// ScanAllDocuments is the cross-owner read path. Project-manager callers
// only; a vendor-role caller never reaches past its own partition.
func ScanAllDocuments[T any](ctx context.Context, filters ...utils.Filter) ([]*T, error) {
	return ScanAllDocumentsPreloading[T](ctx, nil, filters...)
}

// ScanAllDocumentsPreloading is ScanAllDocuments with association preloads,
// for cross-owner reads that need child rows (line items, templates).
func ScanAllDocumentsPreloading[T any](ctx context.Context, associations []string, filters ...utils.Filter) ([]*T, error) {
	if !config.ShouldBypassOwnerScope(ctx) {
		return nil, utils.ErrorUnauthorized
	}

	var docs []*T
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	for _, assoc := range associations {
		dbCtx = dbCtx.Preload(assoc)
	}
	for _, f := range filters {
		dbCtx = dbCtx.Where(f.Cond, f.Values...)
	}
	if err := dbCtx.Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}
