package models

import (
	"context"
	"errors"
	"time"

	"github.com/nexweave/vendordesk_backend/config"
	"github.com/nexweave/vendordesk_backend/utils"
	"gorm.io/gorm"
)

// WorkspaceProject is the resolver's backing record: the project/workspace
// registry maintained by the collaboration side of the platform. The billing
// core only reads it to stamp linkage onto documents.
type WorkspaceProject struct {
	WorkspaceId string    `gorm:"primaryKey;size:64" json:"workspace_id"`
	ProjectId   string    `gorm:"size:64;index;not null" json:"project_id"`
	ClientId    string    `gorm:"size:64" json:"client_id"`
	VendorId    string    `gorm:"size:64;index" json:"vendor_id"`
	ProjectName string    `gorm:"size:255" json:"project_name"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProjectContext is what the resolver stamps onto documents.
type ProjectContext struct {
	ClientId  string `json:"client_id"`
	ProjectId string `json:"project_id"`
}

// ResolveProjectContext looks up a workspace's owning client and canonical
// project id, redis first, then the registry table. May return
// ErrorRecordNotFound; callers treat that as non-fatal.
func ResolveProjectContext(ctx context.Context, workspaceId string) (*ProjectContext, error) {
	if workspaceId == "" {
		return nil, utils.ErrorRecordNotFound
	}

	cached, err := utils.RetrieveRedis[ProjectContext](workspaceId)
	if err == nil && cached != nil {
		return cached, nil
	}

	var record WorkspaceProject
	db := config.GetDB()
	// Registry rows are platform-wide, not vendor-partitioned reads.
	lookupCtx := utils.SetSkipOwnerScopeInContext(ctx, true)
	if err := db.WithContext(lookupCtx).Where("workspace_id = ?", workspaceId).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}

	resolved := &ProjectContext{
		ClientId:  record.ClientId,
		ProjectId: record.ProjectId,
	}
	if err := utils.StoreRedis[ProjectContext](resolved, workspaceId); err != nil {
		config.LogError(config.GetLogger(), "projectRef.go", "ResolveProjectContext", "StoreRedis", workspaceId, err)
	}
	return resolved, nil
}

// stampProjectLinkage fills client/project ids from the resolver when a
// workspace is referenced. Resolution failure is non-fatal: caller-supplied
// linkage values survive untouched and the miss is logged.
func stampProjectLinkage(ctx context.Context, linkage *ProjectLinkage) {
	if linkage == nil || linkage.WorkspaceId == "" {
		return
	}
	resolved, err := ResolveProjectContext(ctx, linkage.WorkspaceId)
	if err != nil {
		if !errors.Is(err, utils.ErrorRecordNotFound) {
			config.LogError(config.GetLogger(), "projectRef.go", "stampProjectLinkage", "ResolveProjectContext", linkage.WorkspaceId, err)
		}
		return
	}
	if resolved.ProjectId != "" {
		linkage.ProjectId = resolved.ProjectId
	}
	if resolved.ClientId != "" {
		linkage.ClientId = resolved.ClientId
	}
}
