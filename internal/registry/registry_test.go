package registry_test

import (
	"context"
	"testing"

	"github.com/anp-net/anpd/internal/registry"
)

const testDID = "did:wba:localhost%3A9527:wba:user:AAAA"

func TestCreateAgent_exclusiveThenConflict(t *testing.T) {
	r := registry.New(nil, nil)
	ctx := context.Background()

	if _, err := r.CreateAgent(ctx, testDID, "Calc", false, "", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := r.CreateAgent(ctx, testDID, "Other", false, "", false)
	var conflict *registry.ConflictError
	if err == nil {
		t.Fatal("expected ExclusiveConflict")
	}
	if !asConflict(err, &conflict) || conflict.Kind != registry.ExclusiveConflict {
		t.Fatalf("got %v, want ExclusiveConflict", err)
	}
	if conflict.Existing != "Calc" {
		t.Errorf("Existing: got %q, want Calc", conflict.Existing)
	}
}

func TestCreateAgent_sharedRequiresPrefix(t *testing.T) {
	r := registry.New(nil, nil)
	_, err := r.CreateAgent(context.Background(), testDID, "Weather", true, "", true)
	var conflict *registry.ConflictError
	if !asConflict(err, &conflict) || conflict.Kind != registry.MissingPrefix {
		t.Fatalf("got %v, want MissingPrefix", err)
	}
}

func TestCreateAgent_modeConflict(t *testing.T) {
	r := registry.New(nil, nil)
	ctx := context.Background()
	if _, err := r.CreateAgent(ctx, testDID, "Calc", false, "", false); err != nil {
		t.Fatal(err)
	}
	_, err := r.CreateAgent(ctx, testDID, "Weather", true, "/weather", true)
	var conflict *registry.ConflictError
	if !asConflict(err, &conflict) || conflict.Kind != registry.ModeConflict {
		t.Fatalf("got %v, want ModeConflict", err)
	}
}

func TestCreateAgent_prefixAndPrimaryConflicts(t *testing.T) {
	r := registry.New(nil, nil)
	ctx := context.Background()

	if _, err := r.CreateAgent(ctx, testDID, "Weather", true, "/weather", true); err != nil {
		t.Fatal(err)
	}

	_, err := r.CreateAgent(ctx, testDID, "Weather2", true, "/weather", false)
	var conflict *registry.ConflictError
	if !asConflict(err, &conflict) || conflict.Kind != registry.PrefixConflict {
		t.Fatalf("got %v, want PrefixConflict", err)
	}

	_, err = r.CreateAgent(ctx, testDID, "Help", true, "/assistant", true)
	if !asConflict(err, &conflict) || conflict.Kind != registry.PrimaryConflict {
		t.Fatalf("got %v, want PrimaryConflict", err)
	}
}

func TestGet_singleVsAmbiguous(t *testing.T) {
	r := registry.New(nil, nil)
	ctx := context.Background()

	if _, err := r.CreateAgent(ctx, testDID, "Weather", true, "/weather", true); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get(testDID); err != nil {
		t.Fatalf("expected single-entry Get to succeed: %v", err)
	}

	if _, err := r.CreateAgent(ctx, testDID, "Help", true, "/assistant", false); err != nil {
		t.Fatal(err)
	}
	_, err := r.Get(testDID)
	var ambiguous *registry.AmbiguousError
	if err == nil {
		t.Fatal("expected ambiguous error with two agents")
	}
	if e, ok := err.(*registry.AmbiguousError); ok {
		ambiguous = e
	} else {
		t.Fatalf("got %T, want *AmbiguousError", err)
	}
	if len(ambiguous.Names) != 2 {
		t.Errorf("expected 2 names, got %d", len(ambiguous.Names))
	}
}

func TestRemoveAgent_erasesEmptyDID(t *testing.T) {
	r := registry.New(nil, nil)
	ctx := context.Background()
	if _, err := r.CreateAgent(ctx, testDID, "Calc", false, "", false); err != nil {
		t.Fatal(err)
	}
	if !r.RemoveAgent(testDID, "Calc") {
		t.Fatal("expected removal to succeed")
	}
	if _, err := r.Get(testDID); err == nil {
		t.Fatal("expected NotFoundError after removing the only agent")
	}
	if r.RemoveAgent(testDID, "Calc") {
		t.Error("expected second removal to report false")
	}
}

func TestOrderedAgents_preservesRegistrationOrder(t *testing.T) {
	r := registry.New(nil, nil)
	ctx := context.Background()
	if _, err := r.CreateAgent(ctx, testDID, "Weather", true, "/weather", true); err != nil {
		t.Fatal(err)
	}
	if _, err := r.CreateAgent(ctx, testDID, "Help", true, "/assistant", false); err != nil {
		t.Fatal(err)
	}
	agents, err := r.OrderedAgents(testDID)
	if err != nil {
		t.Fatal(err)
	}
	if len(agents) != 2 || agents[0].Name != "Weather" || agents[1].Name != "Help" {
		t.Fatalf("unexpected order: %+v", agents)
	}
}

func TestClearAll(t *testing.T) {
	r := registry.New(nil, nil)
	ctx := context.Background()
	if _, err := r.CreateAgent(ctx, testDID, "Calc", false, "", false); err != nil {
		t.Fatal(err)
	}
	r.ClearAll()
	if _, err := r.Get(testDID); err == nil {
		t.Fatal("expected empty registry after ClearAll")
	}
}

func asConflict(err error, out **registry.ConflictError) bool {
	c, ok := err.(*registry.ConflictError)
	if ok {
		*out = c
	}
	return ok
}
