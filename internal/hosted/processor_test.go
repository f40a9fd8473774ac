package hosted_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/anp-net/anpd/internal/hosted"
)

func newTestProcessor(t *testing.T) (*hosted.Processor, *hosted.QueueManager, *hosted.ResultStore, string) {
	t.Helper()
	root := t.TempDir()
	queueDir := filepath.Join(root, "requests")
	resultsDir := filepath.Join(root, "results")
	hostedDir := filepath.Join(root, "anp_users_hosted")

	q, err := hosted.NewQueueManager(queueDir, nil)
	if err != nil {
		t.Fatal(err)
	}
	rs, err := hosted.NewResultStore(resultsDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(hostedDir, 0o700); err != nil {
		t.Fatal(err)
	}
	p := hosted.NewProcessor("localhost", "9527", hostedDir, q, rs, time.Millisecond, nil, nil)
	return p, q, rs, hostedDir
}

func TestProcessor_happyPath(t *testing.T) {
	p, q, rs, _ := newTestProcessor(t)
	ctx := context.Background()

	doc := map[string]any{"id": "did:wba:origin.example%3A8000:wba:user:CCCC"}
	if _, err := q.AddRequest(ctx, "req-1", "did:wba:origin.example%3A8000:wba:user:CCCC", doc, nil); err != nil {
		t.Fatal(err)
	}

	pending, err := q.GetPendingRequests()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending request, got %d", len(pending))
	}

	ok, hostedDoc, errMsg := p.PerformBusinessLogic(pending[0])
	if !ok {
		t.Fatalf("expected success, got error: %s", errMsg)
	}
	id, _ := hostedDoc["id"].(string)
	if !strings.Contains(id, ":wba:localhost%3A9527:wba:hostuser:") {
		t.Errorf("unexpected hosted did shape: %q", id)
	}
	_ = rs
}

func TestProcessor_duplicateRequestIsRejected(t *testing.T) {
	p, q, _, _ := newTestProcessor(t)
	ctx := context.Background()
	requesterDID := "did:wba:origin.example%3A8000:wba:user:DDDD"
	doc := map[string]any{"id": requesterDID}

	if _, err := q.AddRequest(ctx, "req-1", requesterDID, doc, nil); err != nil {
		t.Fatal(err)
	}
	req1, _ := q.GetRequestStatus("req-1")
	ok, _, _ := p.PerformBusinessLogic(req1)
	if !ok {
		t.Fatal("expected first request to succeed")
	}

	if _, err := q.AddRequest(ctx, "req-2", requesterDID, doc, nil); err != nil {
		t.Fatal(err)
	}
	req2, _ := q.GetRequestStatus("req-2")
	ok, _, errMsg := p.PerformBusinessLogic(req2)
	if ok {
		t.Fatal("expected second request for the same requester to be rejected as a duplicate")
	}
	if !strings.Contains(errMsg, "duplicate") {
		t.Errorf("expected duplicate error message, got %q", errMsg)
	}
}
