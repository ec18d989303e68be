package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nexweave/vendordesk_backend/config"
	"github.com/nexweave/vendordesk_backend/utils"
)

// Document id prefixes per module.
const (
	PrefixQuotation     = "QT"
	PrefixPurchaseOrder = "PO"
	PrefixInvoice       = "INV"
	PrefixCreditNote    = "CN"
	PrefixSubscription  = "SUB"
)

// NewDocumentId builds a "{PREFIX}-{timestamp}-{random}" identifier, unique
// within a vendor partition for all practical purposes.
func NewDocumentId(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UTC().UnixMilli(), suffix)
}

// CanonicalCustomId picks the caller-facing display number from the legacy
// aliases: the first non-empty alias in priority order wins, and every alias
// is stored back for backward-compatible lookups. Falls back to the system
// document id when no alias is set.
func CanonicalCustomId(documentId string, aliases ...string) string {
	if v := utils.FirstNonEmpty(aliases...); v != "" {
		return v
	}
	return documentId
}

// nextDisplayNumber reserves a per-vendor sequential number ("QT-12") for
// display. Best effort: when Redis is down the canonical id falls back to the
// document id, never blocking a create.
func nextDisplayNumber(ctx context.Context, vendorId string, moduleName string, prefix string) string {
	seq, err := utils.NextSequence(ctx, vendorId, moduleName)
	if err != nil || seq == 0 {
		return ""
	}
	return fmt.Sprintf("%s-%d", prefix, seq)
}

// ProjectLinkage ties a billing document back to the workspace/project it was
// issued under. Stamped at creation via the reference resolver; child
// documents inherit it from their predecessor.
type ProjectLinkage struct {
	ProjectId   string `gorm:"size:64;index" json:"project_id"`
	WorkspaceId string `gorm:"size:64;index" json:"workspace_id"`
	TaskId      string `gorm:"size:64" json:"task_id"`
	SubtaskId   string `gorm:"size:64" json:"subtask_id"`
	ClientId    string `gorm:"size:64" json:"client_id"`
}

// JSONMap is the open-ended metadata extension carried by every document for
// rarely-used passthrough fields. Typed columns stay the source of truth.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("cannot scan metadata column")
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(data, m)
}

// callerIdentity resolves the trusted caller context. Vendor-role callers must
// carry a vendor id.
func callerIdentity(ctx context.Context) (vendorId string, role Role, err error) {
	roleStr, _ := utils.GetRoleFromContext(ctx)
	role = Role(roleStr)
	if !role.Valid() {
		return "", "", errors.New("caller role is required")
	}
	vendorId, _ = utils.GetVendorIdFromContext(ctx)
	if role == RoleVendor && vendorId == "" {
		return "", "", errors.New("vendor id is required")
	}
	return vendorId, role, nil
}

// requireVendor gates create/edit operations: only a vendor acting on its own
// partition may pass.
func requireVendor(ctx context.Context) (string, error) {
	vendorId, role, err := callerIdentity(ctx)
	if err != nil {
		return "", err
	}
	if role != RoleVendor {
		return "", utils.ErrorUnauthorized
	}
	return vendorId, nil
}

// requireProjectManager gates approval/rejection/status-escalation transitions.
func requireProjectManager(ctx context.Context) error {
	_, role, err := callerIdentity(ctx)
	if err != nil {
		return err
	}
	if role != RoleProjectManager {
		return utils.ErrorUnauthorized
	}
	return nil
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

// EmitLifecycleEvent records a notification outbox row for the given event.
// Strictly best-effort: called after the primary write commits, and failures
// are logged, never returned to the caller.
func EmitLifecycleEvent(ctx context.Context, vendorId string, event LifecycleEvent, refType ReferenceType, refId string, payload interface{}) {
	db := config.GetDB()
	logger := config.GetLogger()
	if db == nil {
		return
	}

	var payloadBytes []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			config.LogError(logger, "base.go", "EmitLifecycleEvent", "json.Marshal", refId, err)
			return
		}
		payloadBytes = b
	}

	record := NotificationRecord{
		VendorId:      vendorId,
		Event:         string(event),
		ReferenceType: string(refType),
		ReferenceId:   refId,
		OccurredAt:    time.Now().UTC(),
		Payload:       payloadBytes,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		config.LogError(logger, "base.go", "EmitLifecycleEvent", string(event), refId, err)
	}
}
