package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/anp-net/anpd/internal/registry"
)

const descriptorFileName = "agent.yaml"

// Loader reads agent descriptors from directories and wires them into a
// registry (§4.5).
type Loader struct {
	reg    *registry.Registry
	logger *zap.Logger
}

// New builds a Loader that creates agents in reg.
func New(reg *registry.Registry, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{reg: reg, logger: logger}
}

// Loaded is what LoadDirectory hands back: the created agent plus whatever
// optional lifecycle hooks its module exported.
type Loaded struct {
	Agent       *registry.Agent
	Initializer Initializer // non-nil if the module exports initializeAgent
	Cleaner     Cleaner     // non-nil if the module exports cleanupAgent
}

// LoadDirectory reads dir/agent.yaml, looks up its declared handler
// factory, creates the agent, and wires handlers per §4.5's algorithm.
func (l *Loader) LoadDirectory(ctx context.Context, dir string) (*Loaded, error) {
	desc, err := readDescriptor(filepath.Join(dir, descriptorFileName))
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, desc)
}

// Load runs the §4.5 wiring algorithm against an already-parsed descriptor.
func (l *Loader) Load(ctx context.Context, desc *AgentDescriptor) (*Loaded, error) {
	factory, ok := lookupFactory(desc.Handler)
	if !ok {
		return nil, fmt.Errorf("loader: no registered factory for handler %q (agent %q)", desc.Handler, desc.Name)
	}
	module := factory()

	targetDID := desc.DID
	shared := false
	prefix := ""
	primary := false
	if desc.ShareDID != nil && desc.ShareDID.Enabled {
		targetDID = desc.ShareDID.SharedDID
		shared = true
		prefix = desc.ShareDID.PathPrefix
		primary = desc.ShareDID.PrimaryAgent
	}

	agent, err := l.reg.CreateAgent(ctx, targetDID, desc.Name, shared, prefix, primary)
	if err != nil {
		return nil, fmt.Errorf("loader: create agent %q: %w", desc.Name, err)
	}

	if self, ok := module.(SelfRegisterer); ok {
		if err := self.Register(agent); err != nil {
			return nil, fmt.Errorf("loader: self-register agent %q: %w", desc.Name, err)
		}
	} else {
		if err := l.wireAPIRoutes(agent, module, desc, prefix); err != nil {
			return nil, err
		}
		l.wireMessageHandlers(agent, module)
		l.wireGroupHandlers(agent, module)
	}

	loaded := &Loaded{Agent: agent}
	if init, ok := module.(Initializer); ok {
		loaded.Initializer = init
	}
	if cleaner, ok := module.(Cleaner); ok {
		loaded.Cleaner = cleaner
	}
	return loaded, nil
}

func (l *Loader) wireAPIRoutes(agent *registry.Agent, module Module, desc *AgentDescriptor, prefix string) error {
	handlers := module.APIHandlers()
	for _, entry := range desc.API {
		h, ok := handlers[entry.Handler]
		if !ok {
			return fmt.Errorf("loader: agent %q declares unknown handler %q for path %q", desc.Name, entry.Handler, entry.Path)
		}
		path := prefix + entry.Path
		agent.RegisterAPI(path, h, registry.APIConfig{
			Params:  entry.Params,
			Summary: entry.Summary,
			Result:  entry.Result,
			Method:  entry.Method,
		})
	}
	return nil
}

// wireMessageHandlers registers every handler a module exposes under the
// well-known "*" wildcard or a specific message type. A PermissionError
// from a non-primary shared agent is expected behavior, not a failure of
// loading — it is logged and the handler is simply skipped (§4.5 step 1).
func (l *Loader) wireMessageHandlers(agent *registry.Agent, module Module) {
	source, ok := module.(MessageHandlerSource)
	if !ok {
		return
	}
	for msgType, h := range source.MessageHandlers() {
		if err := agent.RegisterMessageHandler(msgType, h); err != nil {
			l.logger.Info("skipping message handler registration (expected for non-primary shared agents)",
				zap.String("agent", agent.Name), zap.String("message_type", msgType), zap.Error(err))
		}
	}
}

func (l *Loader) wireGroupHandlers(agent *registry.Agent, module Module) {
	source, ok := module.(GroupHandlerSource)
	if !ok {
		return
	}
	for key, h := range source.GroupHandlers() {
		groupID, eventType := splitGroupKey(key)
		agent.RegisterGroupHandler(groupID, eventType, h)
	}
}

// splitGroupKey parses a "groupID/eventType" key, with an empty groupID
// meaning "all groups" ("/eventType").
func splitGroupKey(key string) (groupID, eventType string) {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return key[:i], key[i+1:]
		}
	}
	return "", key
}

func readDescriptor(path string) (*AgentDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor %s: %w", path, err)
	}
	var desc AgentDescriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parse descriptor %s: %w", path, err)
	}
	if desc.Name == "" || desc.DID == "" || desc.Handler == "" {
		return nil, fmt.Errorf("descriptor %s missing required field(s) name/did/handler", path)
	}
	return &desc, nil
}
