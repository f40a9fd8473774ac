package hosted_test

import (
	"testing"

	"github.com/anp-net/anpd/internal/hosted"
)

func TestPublishResult_thenAcknowledgeStopsReturningIt(t *testing.T) {
	s, err := hosted.NewResultStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	result, err := s.PublishResult("req-1", requesterDID, "localhost", "9527", map[string]any{"id": "x"}, true, "")
	if err != nil {
		t.Fatal(err)
	}

	results, err := s.GetResultsForRequester(result.RequesterShortID)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	if err := s.AcknowledgeResult(result.ResultID); err != nil {
		t.Fatal(err)
	}

	results, err = s.GetResultsForRequester(result.RequesterShortID)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("expected zero results after acknowledgement, got %d", len(results))
	}
}

func TestGetResultsForRequester_newestFirst(t *testing.T) {
	s, err := hosted.NewResultStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.PublishResult("req-1", requesterDID, "localhost", "9527", nil, false, "first"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.PublishResult("req-2", requesterDID, "localhost", "9527", nil, false, "second"); err != nil {
		t.Fatal(err)
	}

	results, err := s.GetResultsForRequester("CCCC")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
}
