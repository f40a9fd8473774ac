package loader

// AgentDescriptor is the YAML deployment descriptor an agent directory
// carries (§4.5's "Descriptor fields").
type AgentDescriptor struct {
	Name    string          `yaml:"name"`
	DID     string          `yaml:"did"`
	Handler string          `yaml:"handler"`
	ShareDID *ShareDIDConfig `yaml:"share_did,omitempty"`
	API     []APIEntry      `yaml:"api"`
}

// ShareDIDConfig mirrors a descriptor's share_did block: when Enabled, the
// agent is created in shared mode against SharedDID instead of its own DID.
type ShareDIDConfig struct {
	Enabled      bool   `yaml:"enabled"`
	SharedDID    string `yaml:"shared_did"`
	PathPrefix   string `yaml:"path_prefix"`
	PrimaryAgent bool   `yaml:"primary_agent"`
}

// APIEntry is one api: list item: a path routed to a named handler,
// carrying the schema metadata the description generator later reads.
type APIEntry struct {
	Path    string         `yaml:"path"`
	Handler string         `yaml:"handler"`
	Params  map[string]any `yaml:"params,omitempty"`
	Summary string         `yaml:"summary,omitempty"`
	Result  string         `yaml:"result,omitempty"`
	Method  string         `yaml:"method,omitempty"`
}
