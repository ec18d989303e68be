package models

import (
	"strings"
	"testing"
)

func TestValidateFieldDeltas_RejectsImmutableKeys(t *testing.T) {
	for _, field := range []string{"vendor_id", "document_id", "created_at", "Vendor_Id", " DOCUMENT_ID "} {
		err := ValidateFieldDeltas(map[string]interface{}{field: "x"})
		if err == nil {
			t.Errorf("delta touching %q must be rejected", field)
		}
	}
}

func TestValidateFieldDeltas_AllowsNamedFields(t *testing.T) {
	err := ValidateFieldDeltas(map[string]interface{}{
		"status":   "approved",
		"feedback": "looks good",
	})
	if err != nil {
		t.Fatalf("named-field delta rejected: %v", err)
	}
}

func TestValidateFieldDeltas_RejectsEmpty(t *testing.T) {
	if err := ValidateFieldDeltas(nil); err == nil {
		t.Fatal("empty delta must be rejected")
	}
}

func TestCanonicalCustomId_PriorityOrder(t *testing.T) {
	got := CanonicalCustomId("QT-1-abc", "", "QTN-7", "legacy-3")
	if got != "QTN-7" {
		t.Fatalf("canonical id = %q, want first non-empty alias QTN-7", got)
	}
}

func TestCanonicalCustomId_FallsBackToDocumentId(t *testing.T) {
	got := CanonicalCustomId("QT-1-abc", "", "")
	if got != "QT-1-abc" {
		t.Fatalf("canonical id = %q, want document id fallback", got)
	}
}

func TestNewDocumentId_Shape(t *testing.T) {
	id := NewDocumentId(PrefixInvoice)
	parts := strings.SplitN(id, "-", 3)
	if len(parts) != 3 || parts[0] != PrefixInvoice {
		t.Fatalf("document id %q does not match PREFIX-timestamp-random", id)
	}
	if len(parts[2]) != 8 {
		t.Fatalf("random suffix %q should be 8 chars", parts[2])
	}
	if NewDocumentId(PrefixInvoice) == id {
		t.Fatal("consecutive document ids must differ")
	}
}
