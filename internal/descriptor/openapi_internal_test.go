package descriptor

import (
	"testing"

	"github.com/anp-net/anpd/internal/registry"
	"gopkg.in/yaml.v3"
)

func TestOpenAPIDocument_pathOrderIsStable(t *testing.T) {
	routes := []route{
		{Path: "/zzz", AgentName: "A", Config: registry.APIConfig{}},
		{Path: "/aaa", AgentName: "A", Config: registry.APIConfig{}},
		{Path: "/mmm", AgentName: "A", Config: registry.APIConfig{}},
	}
	doc := &openAPIDocument{targetDID: "did:wba:localhost%3A9527:wba:user:X", routes: routes}

	var first, second []byte
	var err error
	if first, err = yaml.Marshal(doc); err != nil {
		t.Fatal(err)
	}
	if second, err = yaml.Marshal(doc); err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Fatal("expected repeated marshaling of the same document to be byte-identical")
	}
}

func TestBuildRequestBody_sortsPropertyNames(t *testing.T) {
	body := buildRequestBody(map[string]any{"zeta": "x", "alpha": 1, "mid": true})
	data, err := yaml.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	// properties must appear in sorted order: alpha, mid, zeta
	alphaIdx := indexOf(string(data), "alpha")
	midIdx := indexOf(string(data), "mid")
	zetaIdx := indexOf(string(data), "zeta")
	if !(alphaIdx < midIdx && midIdx < zetaIdx) {
		t.Errorf("expected sorted property order, got alpha=%d mid=%d zeta=%d", alphaIdx, midIdx, zetaIdx)
	}
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func TestOperationID_stripsPathSeparators(t *testing.T) {
	id := operationID("Calc", "/add/numbers")
	if id == "" || id == "Calc" {
		t.Errorf("expected a non-trivial operation id, got %q", id)
	}
}
