package registry

import "fmt"

// ConflictKind enumerates the five ordered conflict checks createAgent runs.
type ConflictKind string

const (
	ExclusiveConflict ConflictKind = "exclusive_conflict"
	MissingPrefix     ConflictKind = "missing_prefix"
	ModeConflict      ConflictKind = "mode_conflict"
	PrefixConflict    ConflictKind = "prefix_conflict"
	PrimaryConflict   ConflictKind = "primary_conflict"
)

// ConflictError is returned by CreateAgent when an ownership invariant
// would be violated. It is fatal to that one registration attempt; the
// registry never silently replaces an existing entry instead.
type ConflictError struct {
	Kind ConflictKind
	DID  string
	// Existing names the agent already occupying the conflicting slot,
	// when applicable (empty for MissingPrefix).
	Existing string
}

func (e *ConflictError) Error() string {
	switch e.Kind {
	case ExclusiveConflict:
		return fmt.Sprintf("did %q already has exclusive agent %q registered", e.DID, e.Existing)
	case MissingPrefix:
		return fmt.Sprintf("shared agent on did %q requires a non-empty prefix", e.DID)
	case ModeConflict:
		return fmt.Sprintf("did %q is registered exclusive by %q, cannot add a shared agent", e.DID, e.Existing)
	case PrefixConflict:
		return fmt.Sprintf("did %q already has an agent %q using this prefix", e.DID, e.Existing)
	case PrimaryConflict:
		return fmt.Sprintf("did %q already has primary agent %q", e.DID, e.Existing)
	default:
		return fmt.Sprintf("registration conflict on did %q", e.DID)
	}
}

// NotFoundError reports that no agent is registered for the given key.
type NotFoundError struct {
	DID  string
	Name string
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("no agent named %q registered under did %q", e.Name, e.DID)
	}
	return fmt.Sprintf("no agent registered under did %q", e.DID)
}

// AmbiguousError reports that a name-less lookup matched more than one
// agent under a shared DID.
type AmbiguousError struct {
	DID   string
	Names []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("did %q has %d agents, a name is required", e.DID, len(e.Names))
}

// PermissionError reports a loader-time rule violation: a non-primary
// shared agent attempted to register a message handler. The loader
// catches this and downgrades it to a warning log rather than failing
// the whole agent.
type PermissionError struct {
	DID, Name, Action string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("agent %q on did %q is not permitted to %s: only the primary agent of a shared did handles messages", e.Name, e.DID, e.Action)
}

// NotCallableError reports that an agent was resolved but has no handler
// matching the request (unknown path or message type).
type NotCallableError struct {
	DID, Detail string
}

func (e *NotCallableError) Error() string {
	return fmt.Sprintf("agent for did %q has no handler for this request: %s", e.DID, e.Detail)
}
