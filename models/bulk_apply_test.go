package models

import (
	"context"
	"testing"

	"github.com/nexweave/vendordesk_backend/utils"
)

func TestBulkApply_PartialFailure(t *testing.T) {
	exists := map[string]bool{"SUB-1": true, "SUB-2": true}
	results := bulkApply(context.Background(), []string{"SUB-1", "SUB-missing", "SUB-2"},
		func(_ context.Context, id string) error {
			if !exists[id] {
				return utils.ErrorRecordNotFound
			}
			return nil
		})

	if len(results) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(results))
	}
	ok := 0
	for _, r := range results {
		if r.Ok {
			ok++
		}
	}
	if ok != 2 {
		t.Fatalf("expected 2 successes, got %d", ok)
	}
	if results[1].Ok || results[1].Error == "" {
		t.Fatalf("missing id must report its own failure: %+v", results[1])
	}
}

func TestBulkApply_CancellationKeepsCompletedItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	applied := make([]string, 0, 3)
	results := bulkApply(ctx, []string{"SUB-1", "SUB-2", "SUB-3"},
		func(_ context.Context, id string) error {
			applied = append(applied, id)
			if id == "SUB-1" {
				cancel()
			}
			return nil
		})
	defer cancel()

	if len(applied) != 1 || applied[0] != "SUB-1" {
		t.Fatalf("expected only SUB-1 applied before cancellation, got %v", applied)
	}
	if !results[0].Ok {
		t.Fatal("completed item must stay reported as success")
	}
	for _, r := range results[1:] {
		if r.Ok || r.Error == "" {
			t.Fatalf("post-cancel item should report cancellation: %+v", r)
		}
	}
}

func TestBulkApply_DeduplicatedUpstream(t *testing.T) {
	calls := 0
	ids := utils.UniqueSlice([]string{"SUB-1", "SUB-1", "SUB-2"})
	bulkApply(context.Background(), ids, func(_ context.Context, _ string) error {
		calls++
		return nil
	})
	if calls != 2 {
		t.Fatalf("expected 2 calls after dedupe, got %d", calls)
	}
}
