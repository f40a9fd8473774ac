// Package descriptor generates the three per-DID description files kept
// in sync with the registry (§4.4): ad.json (JSON-LD agent description),
// api_interface.yaml (OpenAPI 3.0), and api_interface.json (JSON-RPC 2.0
// methods). All three are per-DID, union-merged across every agent
// sharing that DID.
package descriptor

import (
	"sort"

	"github.com/anp-net/anpd/internal/registry"
)

// route is one (path, config, owning agent) triple collected while
// aggregating a DID's agents. Path is the path exactly as registered on
// the agent, so a shared-DID agent's routes keep their prefix.
type route struct {
	Path      string
	AgentName string
	Config    registry.APIConfig
}

// collectRoutes unions every API path across agents sharing a DID,
// sorted by path so repeated generation is byte-identical (§8
// round-trip property: "generateDescriptors(did) × 2 produces
// byte-identical files").
func collectRoutes(agents map[string]*registry.Agent) []route {
	var out []route
	for name, agent := range agents {
		for _, path := range agent.Routes() {
			cfg, _ := agent.APIConfig(path)
			out = append(out, route{Path: path, AgentName: name, Config: cfg})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
