package descriptor

import "strings"

// jsonRPCDocument is the api_interface.json content: a JSON-RPC 2.0
// method catalogue, one entry per aggregated route. Field order in the
// struct (not map iteration) is what encoding/json serializes, so this
// needs no special handling for the byte-identical-regeneration
// property — unlike api_interface.yaml.
type jsonRPCDocument struct {
	JSONRPC string         `json:"jsonrpc"`
	Methods []jsonRPCEntry `json:"methods"`
}

type jsonRPCEntry struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
}

// buildJSONRPCDocument turns routes into method.name = path with "/"
// replaced by "." and leading separators trimmed, per §4.4.
func buildJSONRPCDocument(routes []route) *jsonRPCDocument {
	doc := &jsonRPCDocument{JSONRPC: "2.0"}
	for _, r := range routes {
		doc.Methods = append(doc.Methods, jsonRPCEntry{
			Name:        methodName(r.Path),
			Description: r.Config.Summary,
			Params:      r.Config.Params,
		})
	}
	return doc
}

func methodName(path string) string {
	trimmed := strings.Trim(path, "/")
	return strings.ReplaceAll(trimmed, "/", ".")
}
