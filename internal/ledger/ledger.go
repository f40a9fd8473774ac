// Package ledger implements an append-only, hash-chained audit log for
// registry and hosted-DID lifecycle events.
//
// This is deliberately NOT the system of record for the runtime: the agent
// registry lives in memory (internal/registry) and the hosted-DID queue is
// file-backed (internal/hosted). The ledger is an optional observability
// sink — every call site treats a nil Ledger as "auditing disabled" — so it
// never becomes a hidden source of truth the rest of the system depends on.
//
// Two implementations are provided:
//   - MemoryLedger: in-process, for tests and single-node deployments.
//   - PostgresLedger: durable, for operators who want audit history to
//     survive a restart.
package ledger

import "context"

// GenesisHash is the well-known hash of the genesis entry. It anchors the
// chain; every subsequent entry's hash is derived from its predecessor.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Entry is a single audit record.
type Entry struct {
	Index     int    `json:"index"`
	Timestamp string `json:"timestamp"` // RFC3339Nano
	DID       string `json:"did"`
	Kind      string `json:"kind"` // registry.create, registry.conflict, hosted.complete, dispatch.ok, dispatch.error, genesis
	Actor     string `json:"actor"`
	DataHash  string `json:"data_hash"`
	PrevHash  string `json:"prev_hash"`
	Hash      string `json:"hash"`
}

// Ledger is the append-only audit log interface.
type Ledger interface {
	// Append adds a new entry chained to the previous one. payload is
	// JSON-marshalled and its SHA-256 digest stored as DataHash.
	Append(ctx context.Context, did, kind, actor string, payload any) (*Entry, error)

	// Len returns the total number of entries, including genesis.
	Len(ctx context.Context) (int, error)

	// Verify walks the chain and checks hash consistency end to end.
	Verify(ctx context.Context) error

	// Root returns the hash of the most recent entry.
	Root(ctx context.Context) (string, error)
}

// Append is a nil-safe helper: it is a no-op when l is nil. Call sites in
// registry/hosted use this instead of checking for nil themselves.
func Append(ctx context.Context, l Ledger, did, kind, actor string, payload any) {
	if l == nil {
		return
	}
	_, _ = l.Append(ctx, did, kind, actor, payload)
}
