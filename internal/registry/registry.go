// Package registry implements the process-wide agent registry (§4.1): the
// single authority mediating agent creation so that the exclusive/shared
// ownership invariants always hold. It never becomes the system of
// record on its own — agent creation and every conflict optionally append
// to an audit ledger (removal does not) — but the in-memory table here is what the router consults on
// every request.
package registry

import (
	"context"
	"sync"

	"github.com/anp-net/anpd/internal/ledger"
	"github.com/anp-net/anpd/internal/metrics"
	"go.uber.org/zap"
)

type mode string

const (
	modeExclusive mode = "exclusive"
	modeShared    mode = "shared"
)

// didEntry is the RegistryEntry of §3: per-DID bookkeeping of which
// agents own it and under which mode.
type didEntry struct {
	mode   mode
	order  []string // agent names in registration order, for prefix matching
	agents map[string]*Agent
}

// Registry is the process-wide singleton described by §4.1. Construct one
// with New and share it; there is deliberately no package-level global so
// tests can create independent instances.
type Registry struct {
	mu     sync.RWMutex
	byDID  map[string]*didEntry
	ledger ledger.Ledger
	logger *zap.Logger
}

// New builds an empty Registry. l may be nil to disable audit logging;
// logger may be nil, in which case a no-op logger is used.
func New(l ledger.Ledger, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		byDID:  make(map[string]*didEntry),
		ledger: l,
		logger: logger,
	}
}

// CreateAgent registers a new agent under did, enforcing the five ordered
// conflict checks of §4.1. On success the agent is returned with empty
// route/handler maps ready for the loader to populate.
func (r *Registry) CreateAgent(ctx context.Context, did, name string, shared bool, prefix string, primaryAgent bool) (*Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.byDID[did]

	// 1. shared=false and the DID already has any entry.
	if !shared && entry != nil {
		existing := firstName(entry)
		r.recordConflict(ctx, ExclusiveConflict, did)
		return nil, &ConflictError{Kind: ExclusiveConflict, DID: did, Existing: existing}
	}

	// 2. shared=true and prefix is empty.
	if shared && prefix == "" {
		r.recordConflict(ctx, MissingPrefix, did)
		return nil, &ConflictError{Kind: MissingPrefix, DID: did}
	}

	if shared && entry != nil {
		// 3. existing entry is exclusive.
		if entry.mode == modeExclusive {
			existing := firstName(entry)
			r.recordConflict(ctx, ModeConflict, did)
			return nil, &ConflictError{Kind: ModeConflict, DID: did, Existing: existing}
		}

		// 4. an existing agent already uses this prefix.
		for _, n := range entry.order {
			if entry.agents[n].Prefix == prefix {
				r.recordConflict(ctx, PrefixConflict, did)
				return nil, &ConflictError{Kind: PrefixConflict, DID: did, Existing: n}
			}
		}

		// 5. primaryAgent requested but another agent is already primary.
		if primaryAgent {
			for _, n := range entry.order {
				if entry.agents[n].PrimaryAgent {
					r.recordConflict(ctx, PrimaryConflict, did)
					return nil, &ConflictError{Kind: PrimaryConflict, DID: did, Existing: n}
				}
			}
		}
	}

	agent := newAgent(did, name, shared, prefix, primaryAgent)

	if entry == nil {
		m := modeExclusive
		if shared {
			m = modeShared
		}
		entry = &didEntry{mode: m, agents: make(map[string]*Agent)}
		r.byDID[did] = entry
	}
	entry.agents[name] = agent
	entry.order = append(entry.order, name)

	r.logger.Debug("agent registered",
		zap.String("did", did), zap.String("name", name),
		zap.Bool("shared", shared), zap.String("prefix", prefix))
	ledger.Append(ctx, r.ledger, did, "registry.create", name, map[string]any{
		"name": name, "shared": shared, "prefix": prefix, "primary_agent": primaryAgent,
	})
	metrics.RegistryAgentsTotal.WithLabelValues(string(entry.mode)).Inc()

	return agent, nil
}

func firstName(e *didEntry) string {
	if len(e.order) == 0 {
		return ""
	}
	return e.order[0]
}

func (r *Registry) recordConflict(ctx context.Context, kind ConflictKind, did string) {
	metrics.RegistryConflictsTotal.WithLabelValues(string(kind)).Inc()
	ledger.Append(ctx, r.ledger, did, "registry.conflict", "", map[string]any{"kind": kind})
}

// Get returns the single agent registered under did. If more than one
// agent is registered, it returns an AmbiguousError (callers needing a
// specific one should use GetNamed).
func (r *Registry) Get(did string) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.byDID[did]
	if !ok {
		return nil, &NotFoundError{DID: did}
	}
	if len(entry.order) == 1 {
		return entry.agents[entry.order[0]], nil
	}
	return nil, &AmbiguousError{DID: did, Names: append([]string{}, entry.order...)}
}

// GetNamed returns the exact (did, name) agent.
func (r *Registry) GetNamed(did, name string) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.byDID[did]
	if !ok {
		return nil, &NotFoundError{DID: did}
	}
	agent, ok := entry.agents[name]
	if !ok {
		return nil, &NotFoundError{DID: did, Name: name}
	}
	return agent, nil
}

// GetAll returns every agent registered under did, keyed by name.
func (r *Registry) GetAll(did string) (map[string]*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.byDID[did]
	if !ok {
		return nil, &NotFoundError{DID: did}
	}
	out := make(map[string]*Agent, len(entry.agents))
	for n, a := range entry.agents {
		out[n] = a
	}
	return out, nil
}

// OrderedAgents returns the agents under did in registration order, the
// order the router's shared-DID prefix match iterates (§4.2 step 2).
func (r *Registry) OrderedAgents(did string) ([]*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.byDID[did]
	if !ok {
		return nil, &NotFoundError{DID: did}
	}
	out := make([]*Agent, 0, len(entry.order))
	for _, n := range entry.order {
		out = append(out, entry.agents[n])
	}
	return out, nil
}

// IsShared reports whether did is registered in shared mode.
func (r *Registry) IsShared(did string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byDID[did]
	return ok && entry.mode == modeShared
}

// RemoveAgent erases the (did, name) entry, erasing the DID entirely if
// it becomes empty. Returns false if nothing matched.
func (r *Registry) RemoveAgent(did, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byDID[did]
	if !ok {
		return false
	}
	if _, ok := entry.agents[name]; !ok {
		return false
	}
	delete(entry.agents, name)
	for i, n := range entry.order {
		if n == name {
			entry.order = append(entry.order[:i], entry.order[i+1:]...)
			break
		}
	}
	if len(entry.agents) == 0 {
		delete(r.byDID, did)
	}
	metrics.RegistryAgentsTotal.WithLabelValues(string(entry.mode)).Dec()
	return true
}

// AgentSummary is a diagnostics-only snapshot of one registered agent.
type AgentSummary struct {
	DID          string
	Name         string
	Shared       bool
	Prefix       string
	PrimaryAgent bool
	Routes       int
}

// ListAgents returns a snapshot of every registered agent, for diagnostics.
func (r *Registry) ListAgents() []AgentSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []AgentSummary
	for did, entry := range r.byDID {
		for _, n := range entry.order {
			a := entry.agents[n]
			out = append(out, AgentSummary{
				DID: did, Name: n, Shared: a.Shared, Prefix: a.Prefix,
				PrimaryAgent: a.PrimaryAgent, Routes: len(a.Routes()),
			})
		}
	}
	return out
}

// ClearAll wipes every registration. Test-only, per §4.1.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byDID = make(map[string]*didEntry)
}
