package descriptor

import (
	"testing"

	"github.com/anp-net/anpd/internal/registry"
)

func TestMethodName_convertsPathToDotted(t *testing.T) {
	cases := map[string]string{
		"/add":          "add",
		"/weather/today": "weather.today",
		"add":           "add",
		"/":             "",
	}
	for path, want := range cases {
		if got := methodName(path); got != want {
			t.Errorf("methodName(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestBuildJSONRPCDocument_onePerRoute(t *testing.T) {
	routes := []route{
		{Path: "/add", AgentName: "Calc", Config: registry.APIConfig{Summary: "add"}},
		{Path: "/subtract", AgentName: "Calc", Config: registry.APIConfig{Summary: "subtract"}},
	}
	doc := buildJSONRPCDocument(routes)
	if doc.JSONRPC != "2.0" {
		t.Errorf("expected jsonrpc version 2.0, got %q", doc.JSONRPC)
	}
	if len(doc.Methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(doc.Methods))
	}
	if doc.Methods[0].Name != "add" || doc.Methods[1].Name != "subtract" {
		t.Errorf("unexpected method names: %+v", doc.Methods)
	}
}
