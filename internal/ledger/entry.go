package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// hashEntry computes a deterministic SHA-256 hash over an entry's fields.
// Must never be called on the genesis entry (index 0): its hash is the
// well-known GenesisHash constant, not a computed value.
func hashEntry(e *Entry) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s|%s|%s|%s|%s",
		e.Index, e.Timestamp, e.DID, e.Kind, e.Actor, e.DataHash, e.PrevHash,
	)
	return hex.EncodeToString(h.Sum(nil))
}

// sha256Sum returns the hex-encoded SHA-256 digest of data.
func sha256Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
