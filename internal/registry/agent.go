package registry

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// APIHandler serves one registered API path. requestData carries the
// decoded request body plus the synthesized "type"/"path"/"req_did" keys
// the HTTP layer adds (§4.8).
type APIHandler func(ctx context.Context, callerDID string, requestData map[string]any) (any, error)

// MessageHandler serves one message type ("*" is the wildcard fallback).
type MessageHandler func(ctx context.Context, callerDID string, requestData map[string]any) (any, error)

// GroupEventHandler serves a group event, either scoped to one
// (groupID, eventType) pair or registered globally (groupID == "").
type GroupEventHandler func(ctx context.Context, callerDID, groupID, eventType string, requestData map[string]any) (any, error)

// APIConfig is the description-generator metadata attached to a path at
// registration time; any field left zero falls back to reflection or the
// static params.get scan (§4.4).
type APIConfig struct {
	Params  map[string]any
	Summary string
	Result  string
	Method  string
}

type groupKey struct {
	groupID   string
	eventType string
}

// Agent is the in-memory functional unit attached to a user DID. It is
// created exclusively through Registry.CreateAgent so ownership
// invariants always hold; there is no exported constructor.
type Agent struct {
	DID          string
	Name         string
	CreatedAt    time.Time
	Shared       bool
	Prefix       string
	PrimaryAgent bool

	mu                  sync.RWMutex
	apiRoutes           map[string]APIHandler
	apiConfigs          map[string]APIConfig
	messageHandlers     map[string]MessageHandler
	groupEventHandlers  map[groupKey][]GroupEventHandler
	globalGroupHandlers []GroupEventHandler
}

func newAgent(did, name string, shared bool, prefix string, primary bool) *Agent {
	return &Agent{
		DID:                did,
		Name:               name,
		CreatedAt:          time.Now().UTC(),
		Shared:             shared,
		Prefix:             prefix,
		PrimaryAgent:       primary,
		apiRoutes:          make(map[string]APIHandler),
		apiConfigs:         make(map[string]APIConfig),
		messageHandlers:    make(map[string]MessageHandler),
		groupEventHandlers: make(map[groupKey][]GroupEventHandler),
	}
}

// RegisterAPI attaches a handler to path (already prefixed, per §3's
// "apiRoutes: map[path → handler] where path is already prefixed").
func (a *Agent) RegisterAPI(path string, h APIHandler, cfg APIConfig) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.apiRoutes[path] = h
	a.apiConfigs[path] = cfg
}

// RegisterMessageHandler attaches a handler for msgType ("*" for the
// wildcard). Non-primary agents on a shared DID are forbidden from
// registering message handlers (§4.5 step 1); the loader is expected to
// catch and log this as a warning rather than fail agent setup.
func (a *Agent) RegisterMessageHandler(msgType string, h MessageHandler) error {
	if a.Shared && !a.PrimaryAgent {
		return &PermissionError{DID: a.DID, Name: a.Name, Action: "register a message handler"}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messageHandlers[msgType] = h
	return nil
}

// RegisterGroupHandler attaches a group event handler. An empty groupID
// registers a global handler invoked for every group regardless of ID.
func (a *Agent) RegisterGroupHandler(groupID, eventType string, h GroupEventHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if groupID == "" {
		a.globalGroupHandlers = append(a.globalGroupHandlers, h)
		return
	}
	key := groupKey{groupID: groupID, eventType: eventType}
	a.groupEventHandlers[key] = append(a.groupEventHandlers[key], h)
}

// HasMessageHandlers reports whether this agent has any registered
// message handler, used by the router's message-capable agent selection.
func (a *Agent) HasMessageHandlers() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.messageHandlers) > 0
}

// Routes returns every registered API path, for the description generator's
// union-merge across agents sharing a DID.
func (a *Agent) Routes() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.apiRoutes))
	for p := range a.apiRoutes {
		out = append(out, p)
	}
	return out
}

// APIConfig returns the declared config for path, if any.
func (a *Agent) APIConfig(path string) (APIConfig, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	cfg, ok := a.apiConfigs[path]
	return cfg, ok
}

// HandleRequest is the single dispatch entry point the router awaits
// (§4.2 "Dispatch contract"). requestData["type"] selects between the
// message-handler table and the API-route table.
func (a *Agent) HandleRequest(ctx context.Context, callerDID string, requestData map[string]any, _ *http.Request) (any, error) {
	reqType, _ := requestData["type"].(string)
	if reqType == "message" {
		return a.dispatchMessage(ctx, callerDID, requestData)
	}
	return a.dispatchAPICall(ctx, callerDID, requestData)
}

func (a *Agent) dispatchMessage(ctx context.Context, callerDID string, requestData map[string]any) (any, error) {
	msgType, _ := requestData["msg_type"].(string)

	a.mu.RLock()
	h, ok := a.messageHandlers[msgType]
	if !ok {
		h, ok = a.messageHandlers["*"]
	}
	a.mu.RUnlock()

	if !ok {
		return nil, &NotCallableError{DID: a.DID, Detail: "no message handler for msg_type " + msgType}
	}
	return h(ctx, callerDID, requestData)
}

func (a *Agent) dispatchAPICall(ctx context.Context, callerDID string, requestData map[string]any) (any, error) {
	path, _ := requestData["path"].(string)

	a.mu.RLock()
	h, ok := a.apiRoutes[path]
	a.mu.RUnlock()

	if !ok {
		return nil, &NotCallableError{DID: a.DID, Detail: "no api route registered for path " + path}
	}
	return h(ctx, callerDID, requestData)
}

// HandleGroupEvent dispatches a group-scoped event to every matching
// handler: global handlers always run, plus any handler registered for
// this exact (groupID, eventType). The last non-nil result wins; the
// first error aborts dispatch.
func (a *Agent) HandleGroupEvent(ctx context.Context, callerDID, groupID, eventType string, requestData map[string]any) (any, error) {
	a.mu.RLock()
	handlers := append([]GroupEventHandler{}, a.globalGroupHandlers...)
	handlers = append(handlers, a.groupEventHandlers[groupKey{groupID: groupID, eventType: eventType}]...)
	a.mu.RUnlock()

	if len(handlers) == 0 {
		return nil, &NotCallableError{DID: a.DID, Detail: "no group handler for " + groupID + "/" + eventType}
	}

	var result any
	for _, h := range handlers {
		r, err := h(ctx, callerDID, groupID, eventType, requestData)
		if err != nil {
			return nil, err
		}
		if r != nil {
			result = r
		}
	}
	return result, nil
}
