package descriptor

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// openAPIDocument builds the api_interface.yaml content for a DID's
// aggregated routes. It implements yaml.Marshaler itself, building the
// node tree by hand in sorted order, rather than marshaling a Go map —
// map iteration order is randomized, and §8's round-trip property
// requires byte-identical regeneration.
type openAPIDocument struct {
	targetDID string
	routes    []route
}

func (d *openAPIDocument) MarshalYAML() (any, error) {
	root := newMapping()
	addScalar(root, "openapi", "3.0.3")

	info := newMapping()
	addScalar(info, "title", fmt.Sprintf("Agent API for %s", d.targetDID))
	addScalar(info, "version", "1.0.0")
	addNode(root, "info", info)

	paths := newMapping()
	for _, r := range d.routes {
		method := strings.ToLower(r.Config.Method)
		if method == "" {
			method = "post"
		}
		pathItem := newMapping()
		addNode(pathItem, method, buildOperation(r))
		addNode(paths, r.Path, pathItem)
	}
	addNode(root, "paths", paths)

	return root, nil
}

func buildOperation(r route) *yaml.Node {
	op := newMapping()
	summary := r.Config.Summary
	if summary == "" {
		summary = fmt.Sprintf("%s handler for %s", r.AgentName, r.Path)
	}
	addScalar(op, "summary", summary)
	addScalar(op, "operationId", operationID(r.AgentName, r.Path))
	addNode(op, "requestBody", buildRequestBody(r.Config.Params))

	responses := newMapping()
	ok := newMapping()
	addScalar(ok, "description", "Successful response")
	addNode(responses, "200", ok)
	addNode(op, "responses", responses)
	return op
}

func buildRequestBody(params map[string]any) *yaml.Node {
	body := newMapping()
	content := newMapping()
	mediaType := newMapping()
	schema := newMapping()
	addScalar(schema, "type", "object")

	if len(params) == 0 {
		addNode(mediaType, "schema", schema)
		addNode(content, "application/json", mediaType)
		addNode(body, "content", content)
		return body
	}

	properties := newMapping()
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		prop := newMapping()
		addScalar(prop, "type", jsonSchemaType(params[name]))
		addNode(properties, name, prop)
	}
	addNode(schema, "properties", properties)
	addNode(mediaType, "schema", schema)
	addNode(content, "application/json", mediaType)
	addNode(body, "content", content)
	return body
}

func jsonSchemaType(v any) string {
	switch v.(type) {
	case int, int64, float32, float64:
		return "number"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return "string"
	}
}

func operationID(agentName, path string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '/' || r == '{' || r == '}' {
			return '_'
		}
		return r
	}, path)
	return strings.Trim(agentName+cleaned, "_")
}

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func addScalar(parent *yaml.Node, key, value string) {
	parent.Content = append(parent.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}

func addNode(parent *yaml.Node, key string, value *yaml.Node) {
	parent.Content = append(parent.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}
