package loader_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/anp-net/anpd/internal/loader"
	"github.com/anp-net/anpd/internal/registry"
)

const testDID = "did:wba:localhost%3A9527:wba:user:AAAA"
const sharedDID = "did:wba:localhost%3A9527:wba:user:SHARED"

type stubModule struct {
	api      map[string]registry.APIHandler
	messages map[string]registry.MessageHandler
}

func (m *stubModule) APIHandlers() map[string]registry.APIHandler { return m.api }
func (m *stubModule) MessageHandlers() map[string]registry.MessageHandler {
	return m.messages
}

func echoHandler(ctx context.Context, callerDID string, requestData map[string]any) (any, error) {
	return "ok", nil
}

func TestMain(m *testing.M) {
	loader.RegisterFactory("test.echo", func() loader.Module {
		return &stubModule{
			api: map[string]registry.APIHandler{"echo": echoHandler},
			messages: map[string]registry.MessageHandler{
				"*": func(ctx context.Context, callerDID string, requestData map[string]any) (any, error) {
					return "message-ok", nil
				},
			},
		}
	})
	os.Exit(m.Run())
}

func TestLoad_wiresAPIRoutesFromDescriptor(t *testing.T) {
	reg := registry.New(nil, nil)
	l := loader.New(reg, nil)

	loaded, err := l.Load(context.Background(), &loader.AgentDescriptor{
		Name:    "Echo",
		DID:     testDID,
		Handler: "test.echo",
		API: []loader.APIEntry{
			{Path: "/echo", Handler: "echo", Summary: "echoes input"},
		},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Agent.Routes()) != 1 || loaded.Agent.Routes()[0] != "/echo" {
		t.Errorf("expected a single /echo route, got %+v", loaded.Agent.Routes())
	}
}

func TestLoad_unknownHandlerNameErrors(t *testing.T) {
	reg := registry.New(nil, nil)
	l := loader.New(reg, nil)
	_, err := l.Load(context.Background(), &loader.AgentDescriptor{
		Name: "Ghost", DID: testDID, Handler: "does.not.exist",
	})
	if err == nil {
		t.Fatal("expected an error for an unregistered handler factory")
	}
}

func TestLoad_unknownAPIHandlerNameErrors(t *testing.T) {
	reg := registry.New(nil, nil)
	l := loader.New(reg, nil)
	_, err := l.Load(context.Background(), &loader.AgentDescriptor{
		Name: "Echo", DID: testDID, Handler: "test.echo",
		API: []loader.APIEntry{{Path: "/x", Handler: "nonexistent"}},
	})
	if err == nil {
		t.Fatal("expected an error when a descriptor references an undeclared handler")
	}
}

func TestLoad_sharedDIDNonPrimarySkipsMessageHandlerPermissionError(t *testing.T) {
	reg := registry.New(nil, nil)
	l := loader.New(reg, nil)

	// First agent is primary and takes the message handler.
	if _, err := l.Load(context.Background(), &loader.AgentDescriptor{
		Name: "Primary", DID: testDID, Handler: "test.echo",
		ShareDID: &loader.ShareDIDConfig{Enabled: true, SharedDID: sharedDID, PathPrefix: "/primary", PrimaryAgent: true},
	}); err != nil {
		t.Fatalf("primary Load: %v", err)
	}

	// Second, non-primary shared agent must not error even though its
	// message handler registration is rejected by the registry.
	loaded, err := l.Load(context.Background(), &loader.AgentDescriptor{
		Name: "Secondary", DID: testDID, Handler: "test.echo",
		ShareDID: &loader.ShareDIDConfig{Enabled: true, SharedDID: sharedDID, PathPrefix: "/secondary", PrimaryAgent: false},
	})
	if err != nil {
		t.Fatalf("expected non-primary load to succeed despite the permission rule, got: %v", err)
	}
	if loaded.Agent.HasMessageHandlers() {
		t.Error("expected the non-primary agent to have no message handlers registered")
	}
}

func TestLoadDirectory_readsYAMLDescriptor(t *testing.T) {
	dir := t.TempDir()
	content := `
name: Echo
did: ` + testDID + `
handler: test.echo
api:
  - path: /echo
    handler: echo
    summary: echoes input
`
	if err := os.WriteFile(filepath.Join(dir, "agent.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := registry.New(nil, nil)
	l := loader.New(reg, nil)
	loaded, err := l.LoadDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("LoadDirectory: %v", err)
	}
	if loaded.Agent.Name != "Echo" {
		t.Errorf("expected agent name Echo, got %q", loaded.Agent.Name)
	}
}

func TestLoadDirectory_missingDescriptorErrors(t *testing.T) {
	reg := registry.New(nil, nil)
	l := loader.New(reg, nil)
	if _, err := l.LoadDirectory(context.Background(), t.TempDir()); err == nil {
		t.Fatal("expected an error for a missing agent.yaml")
	}
}
