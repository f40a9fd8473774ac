package descriptor

import (
	"testing"

	"github.com/anp-net/anpd/internal/registry"
)

func TestBuildAgentDescription_includesOneInterfacePerRoute(t *testing.T) {
	routes := []route{
		{Path: "/add", AgentName: "Calc", Config: registry.APIConfig{Summary: "add two numbers"}},
		{Path: "/subtract", AgentName: "Calc", Config: registry.APIConfig{}},
	}
	ad := buildAgentDescription("did:wba:localhost%3A9527:wba:user:AAAA", routes)

	if ad.ID != "did:wba:localhost%3A9527:wba:user:AAAA" {
		t.Errorf("unexpected id %q", ad.ID)
	}
	// 3 fixed interfaces (natural language + 2 structured) + 2 routes
	if len(ad.Interfaces) != 5 {
		t.Fatalf("expected 5 interfaces, got %d: %+v", len(ad.Interfaces), ad.Interfaces)
	}
	last := ad.Interfaces[len(ad.Interfaces)-1]
	if last.Type != "ad:StructuredHttpInterface" || last.URL != "/subtract" {
		t.Errorf("expected last interface to describe /subtract, got %+v", last)
	}
}
