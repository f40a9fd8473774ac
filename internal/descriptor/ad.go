package descriptor

import "fmt"

// adContext is the fixed @context block every ad.json carries.
var adContext = map[string]any{
	"ad":   "https://agent-network-protocol.org/ns/ad#",
	"name": "ad:name",
	"id":   "@id",
	"type": "@type",
}

// AgentDescription is the ad.json JSON-LD document (§4.4).
type AgentDescription struct {
	Context    map[string]any `json:"@context"`
	Type       string         `json:"@type"`
	ID         string         `json:"id"`
	Interfaces []adInterface  `json:"interfaces"`
}

type adInterface struct {
	Type        string `json:"type"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// buildAgentDescription assembles the JSON-LD document for targetDID:
// one NaturalLanguageInterface pointing at the human-readable DID
// document, one StructuredInterface per generated description format,
// and one StructuredHttpInterface per registered API path.
func buildAgentDescription(targetDID string, routes []route) *AgentDescription {
	ad := &AgentDescription{
		Context: adContext,
		Type:    "ad:AgentDescription",
		ID:      targetDID,
	}
	ad.Interfaces = append(ad.Interfaces,
		adInterface{Type: "ad:NaturalLanguageInterface", URL: "did.json", Description: "DID document"},
		adInterface{Type: "ad:StructuredInterface", URL: "api_interface.yaml", Description: "OpenAPI 3.0 description"},
		adInterface{Type: "ad:StructuredInterface", URL: "api_interface.json", Description: "JSON-RPC 2.0 method list"},
	)
	for _, r := range routes {
		summary := r.Config.Summary
		if summary == "" {
			summary = fmt.Sprintf("%s (agent %s)", r.Path, r.AgentName)
		}
		ad.Interfaces = append(ad.Interfaces, adInterface{
			Type:        "ad:StructuredHttpInterface",
			URL:         r.Path,
			Description: summary,
		})
	}
	return ad
}
