// Package router implements the domain-aware request router (§4.2): given
// a caller, target DID, and request body, it resolves a single agent to
// dispatch to, or fails with NotFoundError.
//
// The router keeps its own domain-bucketed cache over the registry
// (DomainIndex in §3) so repeated lookups for the same (domain, port,
// key) don't re-walk the registry; a miss falls through to the registry
// and, on success, attaches the result to the cache for next time.
package router

import (
	"context"
	"strings"
	"sync"

	"github.com/anp-net/anpd/internal/did"
	"github.com/anp-net/anpd/internal/metrics"
	"github.com/anp-net/anpd/internal/registry"
	"go.uber.org/zap"
)

// sharedRoute is one entry of the SharedDIDRoutingTable (§3): the agent
// and original (unprefixed) path a fullPath maps to.
type sharedRoute struct {
	AgentName    string
	OriginalPath string
}

// Router resolves inbound requests to a single agent. It is built once
// per server and shared across requests; all state is mutex-guarded.
type Router struct {
	mu     sync.RWMutex
	reg    *registry.Registry
	logger *zap.Logger

	// index[domain][port][registrationKey] = agent
	index map[string]map[string]map[string]*registry.Agent
	// flat[registrationKey] = agent, the global fallback table
	flat map[string]*registry.Agent
	// sharedTable[sharedDID][fullPath] = sharedRoute, exposed for
	// enumeration only; not consulted by Resolve.
	sharedTable map[string]map[string]sharedRoute
}

// New builds a Router over reg. logger may be nil (a no-op logger is used).
func New(reg *registry.Registry, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		reg:         reg,
		logger:      logger,
		index:       make(map[string]map[string]map[string]*registry.Agent),
		flat:        make(map[string]*registry.Agent),
		sharedTable: make(map[string]map[string]sharedRoute),
	}
}

func registrationKey(targetDID, name string) string {
	if name == "" {
		return targetDID
	}
	return targetDID + "#" + name
}

// RegisterSharedRoute records one entry of the shared-DID path table for
// external discovery (§4.2 "Shared-DID path table"). fullPath is
// prefix+apiPath; a fullPath ending in "*" is a wildcard prefix.
func (rt *Router) RegisterSharedRoute(sharedDID, fullPath, agentName, originalPath string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.sharedTable[sharedDID] == nil {
		rt.sharedTable[sharedDID] = make(map[string]sharedRoute)
	}
	rt.sharedTable[sharedDID][fullPath] = sharedRoute{AgentName: agentName, OriginalPath: originalPath}
}

// SharedRouteFor looks up the shared-DID path table for diagnostics and
// descriptor generation, resolving wildcard entries by prefix.
func (rt *Router) SharedRouteFor(sharedDID, path string) (agentName, resolvedPath string, ok bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	table, ok := rt.sharedTable[sharedDID]
	if !ok {
		return "", "", false
	}
	if r, ok := table[path]; ok {
		return r.AgentName, r.OriginalPath, true
	}
	for fullPath, r := range table {
		if !strings.HasSuffix(fullPath, "*") {
			continue
		}
		base := strings.TrimSuffix(strings.TrimSuffix(fullPath, "*"), "/")
		if strings.HasPrefix(path, base) {
			remainder := strings.TrimPrefix(path, base)
			return r.AgentName, r.OriginalPath + remainder, true
		}
	}
	return "", "", false
}

func (rt *Router) attach(domain, port, key string, agent *registry.Agent) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.index[domain] == nil {
		rt.index[domain] = make(map[string]map[string]*registry.Agent)
	}
	if rt.index[domain][port] == nil {
		rt.index[domain][port] = make(map[string]*registry.Agent)
	}
	rt.index[domain][port][key] = agent
	rt.flat[key] = agent
}

func (rt *Router) lookupBucket(domain, port, key string) *registry.Agent {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	ports, ok := rt.index[domain]
	if !ok {
		return nil
	}
	bucket, ok := ports[port]
	if !ok {
		return nil
	}
	return bucket[key]
}

func (rt *Router) lookupSameDomainOtherPort(domain, port, key string) *registry.Agent {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	ports, ok := rt.index[domain]
	if !ok {
		return nil
	}
	for p, bucket := range ports {
		if p == port {
			continue
		}
		if agent, ok := bucket[key]; ok {
			return agent
		}
	}
	return nil
}

func (rt *Router) lookupGlobal(key string) *registry.Agent {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.flat[key]
}

// Resolve implements the §4.2 resolution algorithm. inboundHost/Port are
// the already-normalized (domain, port) pair from the Host header
// (§4.6); name is an optional explicit agent name ("" selects the bare
// DID's single/primary agent).
func (rt *Router) Resolve(ctx context.Context, inboundHost, inboundPort, targetDID, name string, requestData map[string]any) (*registry.Agent, error) {
	if inboundHost == "" {
		inboundHost = "localhost"
	}
	if inboundPort == "" {
		inboundPort = "9527"
	}

	canonical, err := did.Canonicalize(targetDID)
	if err == nil {
		targetDID = canonical
	}

	reqType, _ := requestData["type"].(string)
	path, _ := requestData["path"].(string)
	isMessage := reqType == "message" || strings.HasPrefix(path, "/message/")

	if isMessage {
		agent, err := rt.resolveMessageCapable(targetDID)
		if err != nil {
			metrics.RouterLookupsTotal.WithLabelValues("miss").Inc()
			return nil, err
		}
		metrics.RouterLookupsTotal.WithLabelValues("hit_message").Inc()
		return agent, nil
	}

	if rt.reg.IsShared(targetDID) {
		if agent := rt.resolveSharedPrefix(targetDID, path); agent != nil {
			metrics.RouterLookupsTotal.WithLabelValues("hit_prefix").Inc()
			rt.attach(inboundHost, inboundPort, registrationKey(targetDID, agent.Name), agent)
			return agent, nil
		}
	}

	key := registrationKey(targetDID, name)

	if agent := rt.lookupBucket(inboundHost, inboundPort, key); agent != nil {
		metrics.RouterLookupsTotal.WithLabelValues("hit_exact").Inc()
		return agent, nil
	}
	if agent := rt.lookupSameDomainOtherPort(inboundHost, inboundPort, key); agent != nil {
		rt.logger.Warn("router resolved via a different port on the same domain",
			zap.String("domain", inboundHost), zap.String("requested_port", inboundPort), zap.String("did", targetDID))
		metrics.RouterLookupsTotal.WithLabelValues("hit_cross_port").Inc()
		return agent, nil
	}
	if agent := rt.lookupGlobal(key); agent != nil {
		rt.logger.Warn("router resolved via the global fallback table",
			zap.String("domain", inboundHost), zap.String("port", inboundPort), zap.String("did", targetDID))
		metrics.RouterLookupsTotal.WithLabelValues("hit_global").Inc()
		return agent, nil
	}

	agent, err := rt.lookupRegistry(targetDID, name)
	if err == nil {
		rt.attach(inboundHost, inboundPort, key, agent)
		metrics.RouterLookupsTotal.WithLabelValues("hit_registry").Inc()
		return agent, nil
	}

	metrics.RouterLookupsTotal.WithLabelValues("miss").Inc()
	return nil, &NotFoundError{DID: targetDID, Domain: inboundHost, Port: inboundPort, Available: rt.availableFor(inboundHost, inboundPort)}
}

func (rt *Router) lookupRegistry(targetDID, name string) (*registry.Agent, error) {
	if name != "" {
		return rt.reg.GetNamed(targetDID, name)
	}
	return rt.reg.Get(targetDID)
}

// resolveSharedPrefix implements §4.2 step 2's shared-DID branch:
// iterate the DID's agents in insertion order and return the first
// whose prefix is a prefix of path. Returns nil if none match (falls
// through to generic lookup).
func (rt *Router) resolveSharedPrefix(targetDID, path string) *registry.Agent {
	agents, err := rt.reg.OrderedAgents(targetDID)
	if err != nil || len(agents) < 2 {
		return nil
	}
	for _, a := range agents {
		if a.Prefix != "" && strings.HasPrefix(path, a.Prefix) {
			return a
		}
	}
	return nil
}

// resolveMessageCapable implements §4.2's "Message-capable agent
// selection": the primary agent; else the first with a non-empty
// messageHandlers map; else any agent (it will return its own
// NotCallableError).
func (rt *Router) resolveMessageCapable(targetDID string) (*registry.Agent, error) {
	agents, err := rt.reg.OrderedAgents(targetDID)
	if err != nil {
		return nil, err
	}
	if len(agents) == 0 {
		return nil, &NotFoundError{DID: targetDID}
	}
	for _, a := range agents {
		if a.PrimaryAgent {
			return a, nil
		}
	}
	for _, a := range agents {
		if a.HasMessageHandlers() {
			return a, nil
		}
	}
	return agents[0], nil
}

// availableFor lists registration keys known for (domain, port), used to
// build the NotFoundError hint.
func (rt *Router) availableFor(domain, port string) []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	ports, ok := rt.index[domain]
	if !ok {
		return nil
	}
	bucket, ok := ports[port]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(bucket))
	for k := range bucket {
		out = append(out, k)
	}
	return out
}
