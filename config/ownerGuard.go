package config

import (
	"context"
	"strings"

	"github.com/nexweave/vendordesk_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OwnerGuardPlugin enforces vendor-partition isolation by automatically scoping
// queries/updates/deletes to the request's vendor_id when the model has a vendor_id column.
//
// NOTE:
// - This does NOT apply to Raw SQL queries. Those must include vendor_id manually.
// - Project-manager callers read across all vendors, so their reads bypass the scope.
// - Background workers bypass explicitly via ContextKeySkipOwnerScope.
type OwnerGuardPlugin struct{}

func NewOwnerGuardPlugin() *OwnerGuardPlugin { return &OwnerGuardPlugin{} }

func (p *OwnerGuardPlugin) Name() string { return "owner_guard" }

func (p *OwnerGuardPlugin) Initialize(db *gorm.DB) error {
	// Query
	if err := db.Callback().Query().Before("gorm:query").Register("owner_guard:query", ownerGuardCallback); err != nil {
		return err
	}
	// Row (First/Take)
	if err := db.Callback().Row().Before("gorm:row").Register("owner_guard:row", ownerGuardCallback); err != nil {
		return err
	}
	// Update
	if err := db.Callback().Update().Before("gorm:update").Register("owner_guard:update", ownerGuardCallback); err != nil {
		return err
	}
	// Delete
	if err := db.Callback().Delete().Before("gorm:delete").Register("owner_guard:delete", ownerGuardCallback); err != nil {
		return err
	}
	return nil
}

func ownerGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	if ShouldBypassOwnerScope(ctx) {
		return
	}
	vendorID := vendorIdFromContext(ctx)
	if vendorID == "" {
		return
	}

	// Only apply if the current model/table includes a vendor_id column.
	if db.Statement.Schema == nil {
		return
	}
	hasVendorID := false
	for _, f := range db.Statement.Schema.Fields {
		if strings.EqualFold(f.DBName, "vendor_id") {
			hasVendorID = true
			break
		}
	}
	if !hasVendorID {
		return
	}

	// Don't duplicate an explicit vendor filter.
	if whereHasVendorID(db.Statement.Clauses["WHERE"]) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: "vendor_id"},
				Value:  vendorID,
			},
		},
	})
}

func vendorIdFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(appctx.ContextKeyVendorId).(string); ok && v != "" {
		return v
	}
	return ""
}

// ShouldBypassOwnerScope reports whether the current caller may read across
// vendor partitions: project-manager role, or an explicit internal skip flag.
func ShouldBypassOwnerScope(ctx context.Context) bool {
	if v, ok := ctx.Value(appctx.ContextKeySkipOwnerScope).(bool); ok && v {
		return true
	}
	if v, ok := ctx.Value(appctx.ContextKeyRole).(string); ok && v == "project-manager" {
		return true
	}
	return false
}

func whereHasVendorID(c clause.Clause) bool {
	if c.Expression == nil {
		return false
	}
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasVendorID(e) {
			return true
		}
	}
	return false
}

func exprHasVendorID(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return colIsVendorID(v.Column)
	case clause.Neq:
		return colIsVendorID(v.Column)
	case clause.IN:
		return colIsVendorID(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprHasVendorID(x) {
				return true
			}
		}
		return false
	case clause.OrConditions:
		for _, x := range v.Exprs {
			if exprHasVendorID(x) {
				return true
			}
		}
		return false
	case clause.Expr:
		// Best-effort for raw expressions.
		return strings.Contains(strings.ToLower(v.SQL), "vendor_id")
	default:
		return false
	}
}

func colIsVendorID(col interface{}) bool {
	switch c := col.(type) {
	case clause.Column:
		return strings.EqualFold(c.Name, "vendor_id")
	case string:
		return strings.EqualFold(c, "vendor_id")
	default:
		return false
	}
}
