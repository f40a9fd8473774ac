package router_test

import (
	"context"
	"testing"

	"github.com/anp-net/anpd/internal/registry"
	"github.com/anp-net/anpd/internal/router"
)

const calcDID = "did:wba:localhost%3A9527:wba:user:AAAA"
const sharedDID = "did:wba:localhost%3A9527:wba:user:BBBB"

func newTestRouter(t *testing.T) (*router.Router, *registry.Registry) {
	t.Helper()
	reg := registry.New(nil, nil)
	return router.New(reg, nil), reg
}

func TestResolve_exclusiveRegistrationThenAPICall(t *testing.T) {
	rt, reg := newTestRouter(t)
	ctx := context.Background()
	agent, err := reg.CreateAgent(ctx, calcDID, "Calc", false, "", false)
	if err != nil {
		t.Fatal(err)
	}
	agent.RegisterAPI("/add", func(ctx context.Context, callerDID string, requestData map[string]any) (any, error) {
		return "added", nil
	}, registry.APIConfig{})

	resolved, err := rt.Resolve(ctx, "localhost", "9527", calcDID, "", map[string]any{
		"type": "api_call", "path": "/add",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved != agent {
		t.Error("expected to resolve the registered agent")
	}
}

func TestResolve_sharedDIDPrefixRouting(t *testing.T) {
	rt, reg := newTestRouter(t)
	ctx := context.Background()

	weather, err := reg.CreateAgent(ctx, sharedDID, "Weather", true, "/weather", true)
	if err != nil {
		t.Fatal(err)
	}
	help, err := reg.CreateAgent(ctx, sharedDID, "Help", true, "/assistant", false)
	if err != nil {
		t.Fatal(err)
	}
	weather.RegisterAPI("/weather/current", nil, registry.APIConfig{})
	help.RegisterAPI("/assistant/help", nil, registry.APIConfig{})

	resolved, err := rt.Resolve(ctx, "localhost", "9527", sharedDID, "", map[string]any{
		"type": "api_call", "path": "/weather/current",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resolved != weather {
		t.Error("expected /weather/current to resolve to Weather")
	}

	resolved, err = rt.Resolve(ctx, "localhost", "9527", sharedDID, "", map[string]any{
		"type": "api_call", "path": "/assistant/help",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resolved != help {
		t.Error("expected /assistant/help to resolve to Help")
	}
}

func TestResolve_messageBypassesSharedPrefixAndHitsPrimary(t *testing.T) {
	rt, reg := newTestRouter(t)
	ctx := context.Background()

	weather, err := reg.CreateAgent(ctx, sharedDID, "Weather", true, "/weather", true)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.CreateAgent(ctx, sharedDID, "Help", true, "/assistant", false); err != nil {
		t.Fatal(err)
	}

	resolved, err := rt.Resolve(ctx, "localhost", "9527", sharedDID, "", map[string]any{
		"type": "message", "content": "hi",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resolved != weather {
		t.Error("expected message to route to the primary agent regardless of path")
	}
}

func TestResolve_crossPortFallsBackWithWarning(t *testing.T) {
	rt, reg := newTestRouter(t)
	ctx := context.Background()
	agent, err := reg.CreateAgent(ctx, calcDID, "Calc", false, "", false)
	if err != nil {
		t.Fatal(err)
	}
	agent.RegisterAPI("/add", nil, registry.APIConfig{})

	// Prime the cache under port 9527 by resolving once there.
	if _, err := rt.Resolve(ctx, "localhost", "9527", calcDID, "", map[string]any{
		"type": "api_call", "path": "/add",
	}); err != nil {
		t.Fatal(err)
	}

	resolved, err := rt.Resolve(ctx, "localhost", "9999", calcDID, "", map[string]any{
		"type": "api_call", "path": "/add",
	})
	if err != nil {
		t.Fatalf("expected cross-port lookup to succeed, got %v", err)
	}
	if resolved != agent {
		t.Error("expected cross-port lookup to find the same agent")
	}
}

func TestResolve_notFoundListsAvailable(t *testing.T) {
	rt, _ := newTestRouter(t)
	_, err := rt.Resolve(context.Background(), "localhost", "9527", calcDID, "", map[string]any{
		"type": "api_call", "path": "/nope",
	})
	var nf *router.NotFoundError
	if !asNotFound(err, &nf) {
		t.Fatalf("got %T, want *NotFoundError", err)
	}
}

func TestSharedRouteFor_wildcardRemainder(t *testing.T) {
	rt, _ := newTestRouter(t)
	rt.RegisterSharedRoute(sharedDID, "/x/*", "Agent1", "/y")

	agentName, resolvedPath, ok := rt.SharedRouteFor(sharedDID, "/x/abc")
	if !ok {
		t.Fatal("expected wildcard match")
	}
	if agentName != "Agent1" || resolvedPath != "/y/abc" {
		t.Errorf("got (%q, %q)", agentName, resolvedPath)
	}
}

func asNotFound(err error, out **router.NotFoundError) bool {
	nf, ok := err.(*router.NotFoundError)
	if ok {
		*out = nf
	}
	return ok
}
