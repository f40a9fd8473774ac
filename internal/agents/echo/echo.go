// Package echo is a reference agent module: it registers itself under the
// handler name "echo" so a bare agents/<name>/agent.yaml descriptor has a
// working factory to load without writing any Go code of its own. It
// answers every API call and message with the request it was sent.
package echo

import (
	"context"

	"github.com/anp-net/anpd/internal/loader"
	"github.com/anp-net/anpd/internal/registry"
)

func init() {
	loader.RegisterFactory("echo", func() loader.Module { return &module{} })
}

type module struct{}

func (m *module) APIHandlers() map[string]registry.APIHandler {
	return map[string]registry.APIHandler{
		"echo": m.handle,
	}
}

func (m *module) MessageHandlers() map[string]registry.MessageHandler {
	return map[string]registry.MessageHandler{
		"*": m.handle,
	}
}

func (m *module) handle(_ context.Context, callerDID string, requestData map[string]any) (any, error) {
	return map[string]any{
		"echo":      requestData,
		"callerDID": callerDID,
	}, nil
}
