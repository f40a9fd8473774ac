package did_test

import (
	"strings"
	"testing"

	"github.com/anp-net/anpd/internal/did"
)

func TestRewriteHosted_mintsHostuserDIDAndRewritesReferences(t *testing.T) {
	doc := map[string]any{
		"id": "did:wba:origin.example%3A8000:wba:user:AAAA",
		"verificationMethod": []any{
			map[string]any{
				"id":         "did:wba:origin.example%3A8000:wba:user:AAAA#key-1",
				"controller": "did:wba:origin.example%3A8000:wba:user:AAAA",
			},
		},
	}

	newDoc, oldID, newID, err := did.RewriteHosted(doc, "localhost", "9527")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if oldID != "did:wba:origin.example%3A8000:wba:user:AAAA" {
		t.Errorf("unexpected oldID: %q", oldID)
	}

	parsed, err := did.Parse(newID)
	if err != nil {
		t.Fatalf("new id does not parse: %v", err)
	}
	if parsed.Host != "localhost" || parsed.Port != "9527" || parsed.Kind != did.KindHostUser {
		t.Errorf("unexpected new did shape: %+v", parsed)
	}
	if len(parsed.UniqueID) != 16 {
		t.Errorf("expected 16-hex-char short id, got %q (len %d)", parsed.UniqueID, len(parsed.UniqueID))
	}

	if newDoc["id"] != newID {
		t.Errorf("doc id not rewritten: %v", newDoc["id"])
	}
	vms := newDoc["verificationMethod"].([]any)
	vm := vms[0].(map[string]any)
	if !strings.HasPrefix(vm["id"].(string), newID) {
		t.Errorf("verificationMethod id not rewritten: %v", vm["id"])
	}
	if vm["controller"] != newID {
		t.Errorf("controller not rewritten: %v", vm["controller"])
	}
}

func TestRewriteHosted_isIdempotent(t *testing.T) {
	doc := map[string]any{"id": "did:wba:origin.example%3A8000:wba:user:AAAA"}

	once, _, newID, err := did.RewriteHosted(doc, "localhost", "9527")
	if err != nil {
		t.Fatal(err)
	}

	twice, _, newID2, err := did.RewriteHosted(once, "localhost", "9527")
	if err != nil {
		t.Fatal(err)
	}
	if twice["id"] != newID {
		t.Errorf("second pass changed the already-rewritten id: %v vs %v", twice["id"], newID)
	}
	_ = newID2
}

func TestRewriteHosted_missingID(t *testing.T) {
	_, _, _, err := did.RewriteHosted(map[string]any{}, "localhost", "9527")
	if err == nil {
		t.Fatal("expected error for missing id field")
	}
}

func TestNewShortID_isSixteenHexChars(t *testing.T) {
	id, err := did.NewShortID("seed")
	if err != nil {
		t.Fatal(err)
	}
	if len(id) != 16 {
		t.Errorf("got length %d, want 16", len(id))
	}
}
