// Package loader reads an agent's deployment descriptor and wires it into
// the registry (§4.5). Go has no runtime dynamic import, so the
// "import its handler module" step is a factory-registration pattern: a
// handler package calls RegisterFactory in its own init(), and the loader
// looks the name up by string instead of importing a path at runtime.
package loader

import (
	"context"
	"fmt"
	"sync"

	"github.com/anp-net/anpd/internal/registry"
)

// Module is what a registered factory produces: a set of named API and
// message handlers the loader wires onto a freshly created Agent.
type Module interface {
	// APIHandlers returns every handler keyed by the name descriptor.yaml
	// API entries reference in their "handler" field.
	APIHandlers() map[string]registry.APIHandler
}

// MessageHandlerSource is implemented by modules that export well-known
// message handlers by name convention (handle_message, handle_text_message,
// ...). Optional: most modules only expose API handlers.
type MessageHandlerSource interface {
	MessageHandlers() map[string]registry.MessageHandler
}

// GroupHandlerSource is implemented by modules that handle group events.
type GroupHandlerSource interface {
	GroupHandlers() map[string]registry.GroupEventHandler
}

// SelfRegisterer corresponds to a sibling agent_register.py exporting
// register(agent): the module wires its own handlers directly rather than
// the loader doing it from descriptor fields.
type SelfRegisterer interface {
	Register(agent *registry.Agent) error
}

// Initializer corresponds to a module exporting initializeAgent(): an
// async hook the framework awaits after the server is up.
type Initializer interface {
	InitializeAgent(ctx context.Context, agent *registry.Agent) error
}

// Cleaner corresponds to a module exporting cleanupAgent(), called on
// shutdown.
type Cleaner interface {
	CleanupAgent(ctx context.Context) error
}

// Factory constructs a fresh Module instance for one agent descriptor.
type Factory func() Module

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory makes name available to Load's "handler" lookup. Call from a handler package's init().
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("loader: factory %q already registered", name))
	}
	factories[name] = f
}

func lookupFactory(name string) (Factory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := factories[name]
	return f, ok
}
