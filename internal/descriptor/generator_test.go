package descriptor_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/anp-net/anpd/internal/descriptor"
	"github.com/anp-net/anpd/internal/domain"
	"github.com/anp-net/anpd/internal/registry"
)

const testDID = "did:wba:localhost%3A9527:wba:user:AAAA"

func TestGenerateDescriptors_writesAllThreeFiles(t *testing.T) {
	reg := registry.New(nil, nil)
	dom := domain.New(t.TempDir())
	dom.Register("localhost", "9527")
	gen := descriptor.New(reg, dom, nil)
	ctx := context.Background()

	agent, err := reg.CreateAgent(ctx, testDID, "Calc", false, "", false)
	if err != nil {
		t.Fatal(err)
	}
	agent.RegisterAPI("/add", func(ctx context.Context, callerDID string, requestData map[string]any) (any, error) {
		return nil, nil
	}, registry.APIConfig{Summary: "add two numbers", Params: map[string]any{"a": 1, "b": 1}})

	if err := gen.GenerateDescriptors(testDID); err != nil {
		t.Fatalf("GenerateDescriptors: %v", err)
	}

	paths, _ := dom.Paths("localhost", "9527")
	readAll(t, filepath.Join(paths.UserDIDPath, "AAAA"))
}

func TestGenerateDescriptors_isByteIdenticalAcrossRuns(t *testing.T) {
	reg := registry.New(nil, nil)
	dom := domain.New(t.TempDir())
	dom.Register("localhost", "9527")
	gen := descriptor.New(reg, dom, nil)
	ctx := context.Background()

	agent, err := reg.CreateAgent(ctx, testDID, "Calc", false, "", false)
	if err != nil {
		t.Fatal(err)
	}
	agent.RegisterAPI("/add", func(ctx context.Context, callerDID string, requestData map[string]any) (any, error) {
		return nil, nil
	}, registry.APIConfig{Params: map[string]any{"a": 1, "b": 1}})
	agent.RegisterAPI("/subtract", func(ctx context.Context, callerDID string, requestData map[string]any) (any, error) {
		return nil, nil
	}, registry.APIConfig{Params: map[string]any{"x": 1, "y": 1}})

	if err := gen.GenerateDescriptors(testDID); err != nil {
		t.Fatal(err)
	}
	paths, _ := dom.Paths("localhost", "9527")
	outDir := filepath.Join(paths.UserDIDPath, "AAAA")

	first := readAll(t, outDir)

	if err := gen.GenerateDescriptors(testDID); err != nil {
		t.Fatal(err)
	}
	second := readAll(t, outDir)

	for name := range first {
		if string(first[name]) != string(second[name]) {
			t.Errorf("%s differs between generations:\n--- first ---\n%s\n--- second ---\n%s", name, first[name], second[name])
		}
	}
}

func readAll(t *testing.T, dir string) map[string][]byte {
	t.Helper()
	names := []string{"ad.json", "api_interface.yaml", "api_interface.json"}
	out := make(map[string][]byte, len(names))
	for _, n := range names {
		data, err := os.ReadFile(filepath.Join(dir, n))
		if err != nil {
			t.Fatalf("read %s: %v", n, err)
		}
		out[n] = data
	}
	return out
}

func TestGenerateDescriptors_adJSONIsValidAndReferencesDID(t *testing.T) {
	reg := registry.New(nil, nil)
	dom := domain.New(t.TempDir())
	dom.Register("localhost", "9527")
	gen := descriptor.New(reg, dom, nil)
	ctx := context.Background()
	agent, err := reg.CreateAgent(ctx, testDID, "Calc", false, "", false)
	if err != nil {
		t.Fatal(err)
	}
	agent.RegisterAPI("/add", func(ctx context.Context, callerDID string, requestData map[string]any) (any, error) {
		return nil, nil
	}, registry.APIConfig{})

	if err := gen.GenerateDescriptors(testDID); err != nil {
		t.Fatal(err)
	}
	paths, _ := dom.Paths("localhost", "9527")
	data, err := os.ReadFile(filepath.Join(paths.UserDIDPath, "AAAA", "ad.json"))
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("ad.json is not valid JSON: %v", err)
	}
	if doc["id"] != testDID {
		t.Errorf("expected id %q, got %v", testDID, doc["id"])
	}
}

func TestGenerateDescriptors_unregisteredDomainErrors(t *testing.T) {
	reg := registry.New(nil, nil)
	dom := domain.New(t.TempDir())
	gen := descriptor.New(reg, dom, nil)
	ctx := context.Background()
	if _, err := reg.CreateAgent(ctx, testDID, "Calc", false, "", false); err != nil {
		t.Fatal(err)
	}
	if err := gen.GenerateDescriptors(testDID); err == nil {
		t.Fatal("expected an error for an unregistered domain")
	}
}
