// Package did parses and canonicalizes the WBA DID strings used throughout
// the runtime: did:wba:<host>%3A<port>:wba:<kind>:<uniqueId>.
//
// DID cryptographic verification lives outside this package (§1 of the
// spec this runtime implements treats it as an external collaborator) —
// did only handles the string shape: parsing, canonicalization of the
// host-port separator, and the hosted-DID rewrite transform.
package did

import (
	"fmt"
	"strings"
)

// Kind distinguishes a DID minted for a regular user from one minted for a
// hosted sub-identity.
type Kind string

const (
	KindUser     Kind = "user"
	KindHostUser Kind = "hostuser"
)

const method = "did:wba:"

// DID is a parsed did:wba:... identifier.
type DID struct {
	Host     string // e.g. "localhost"
	Port     string // e.g. "9527"
	Kind     Kind
	UniqueID string
	raw      string // canonical string form if set; Parse leaves it empty
}

// Parse accepts both URL-decoded (":") and URL-encoded ("%3A") forms of the
// host:port separator and returns a canonical DID. A bare decoded colon
// between host and port is normalized to "%3A" on output, matching the
// canonical form mandated by §4.2 ("Normalization").
func Parse(s string) (*DID, error) {
	if !strings.HasPrefix(s, "did:wba:") {
		return nil, fmt.Errorf("not a did:wba identifier: %q", s)
	}
	rest := strings.TrimPrefix(s, "did:wba:")

	// rest = "<host><sep><port>:wba:<kind>:<uniqueId>"
	var hostPort, tail string
	if idx := strings.Index(rest, ":wba:"); idx >= 0 {
		hostPort = rest[:idx]
		tail = rest[idx+len(":wba:"):]
	} else {
		return nil, fmt.Errorf("malformed did:wba identifier, missing :wba: segment: %q", s)
	}

	host, port, err := splitHostPort(hostPort)
	if err != nil {
		return nil, fmt.Errorf("parse did host:port: %w", err)
	}

	parts := strings.SplitN(tail, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed did:wba identifier, missing kind/id: %q", s)
	}
	kind := Kind(parts[0])
	if kind != KindUser && kind != KindHostUser {
		return nil, fmt.Errorf("unknown did kind %q", parts[0])
	}
	uniqueID := parts[1]
	if uniqueID == "" {
		return nil, fmt.Errorf("empty unique id in did %q", s)
	}

	return &DID{Host: host, Port: port, Kind: kind, UniqueID: uniqueID}, nil
}

// splitHostPort accepts "host%3Aport" or "host:port" and returns (host, port).
func splitHostPort(hostPort string) (string, string, error) {
	if idx := strings.Index(hostPort, "%3A"); idx >= 0 {
		return hostPort[:idx], hostPort[idx+len("%3A"):], nil
	}
	if idx := strings.LastIndex(hostPort, ":"); idx >= 0 {
		return hostPort[:idx], hostPort[idx+1:], nil
	}
	return "", "", fmt.Errorf("no host:port separator found in %q", hostPort)
}

// String returns the canonical did:wba:... form, always using "%3A" as the
// host/port separator.
func (d *DID) String() string {
	if d.raw != "" {
		return d.raw
	}
	return fmt.Sprintf("did:wba:%s%%3A%s:wba:%s:%s", d.Host, d.Port, d.Kind, d.UniqueID)
}

// ShortID returns the last colon-separated segment — the "requester short ID"
// used by the hosted-DID result inbox (§4.3, §6).
func ShortID(rawDID string) string {
	idx := strings.LastIndex(rawDID, ":")
	if idx < 0 {
		return rawDID
	}
	return rawDID[idx+1:]
}

// Canonicalize normalizes any accepted encoding of targetDID to the
// canonical did:wba:<host>%3A<port>:wba:<kind>:<id> form used as map keys
// throughout the registry and router. On a parse error it returns an empty
// string alongside the error.
func Canonicalize(raw string) (string, error) {
	d, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}
