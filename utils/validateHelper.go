package utils

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/nexweave/vendordesk_backend/config"
)

var validate = validator.New()

// ValidateInput runs struct-tag validation for inputs built outside gin
// binding (scheduler-generated invoices, bulk operations).
func ValidateInput(input interface{}) error {
	if err := validate.Struct(input); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) && len(vErrs) > 0 {
			field := vErrs[0]
			return fmt.Errorf("%s failed validation (%s)", field.Field(), field.Tag())
		}
		return err
	}
	return nil
}

// ValidateResourceId checks an id exists inside the given vendor partition.
// Returns ErrorRecordNotFound when missing.
func ValidateResourceId[T any](ctx context.Context, vendorId string, id interface{}) error {
	count, err := ResourceCountWhere[T](ctx, vendorId, "document_id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

type Filter struct {
	Cond   string
	Values []interface{}
}

// ResourceCountWhere counts records, using WHERE vendor_id = ? AND $condition.
// vendor_id can be blank for project-manager (cross-owner) callers.
func ResourceCountWhere[T any](ctx context.Context, vendorId string, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	var count int64
	if vendorId != "" {
		dbCtx.Where("vendor_id = ?", vendorId)
	}
	dbCtx.Where(condition, value...)
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
