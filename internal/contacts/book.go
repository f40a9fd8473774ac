// Package contacts implements the per-user contact book and token cache
// (§4.7): a bidirectional record of tokens issued to and received from
// peers, plus a lazily-updated roster of who a user has talked to.
package contacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const fileName = "contacts.json"

// Contact is one entry in a user's roster.
type Contact struct {
	DID              string    `json:"did"`
	Host             string    `json:"host"`
	Port             string    `json:"port"`
	Name             string    `json:"name,omitempty"`
	FirstContact     time.Time `json:"firstContact"`
	LastContact      time.Time `json:"lastContact"`
	InteractionCount int       `json:"interactionCount"`
	Tags             []string  `json:"tags,omitempty"`
}

// TokenToRemote is a token this user issued to a peer.
type TokenToRemote struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Revoked   bool      `json:"revoked"`
}

// TokenFromRemote is a token this user received from a peer.
type TokenFromRemote struct {
	Token      string    `json:"token"`
	ReceivedAt time.Time `json:"receivedAt"`
	Revoked    bool      `json:"revoked"`
}

// state is the on-disk shape of contacts.json.
type state struct {
	Contacts         map[string]*Contact         `json:"contacts"`
	TokensToRemote   map[string]*TokenToRemote   `json:"tokensToRemote"`
	TokensFromRemote map[string]*TokenFromRemote `json:"tokensFromRemote"`
}

func newState() *state {
	return &state{
		Contacts:         make(map[string]*Contact),
		TokensToRemote:   make(map[string]*TokenToRemote),
		TokensFromRemote: make(map[string]*TokenFromRemote),
	}
}

// Book is one user's contact book, serialized by a per-user mutex so
// concurrent requests for the same user never interleave writes (§5:
// "serialized per user; not shared across users").
type Book struct {
	mu   sync.Mutex
	path string
	st   *state
}

// Open loads userDIDPath/contacts.json, creating an empty book if it
// doesn't exist yet.
func Open(userDIDPath string) (*Book, error) {
	path := filepath.Join(userDIDPath, fileName)
	b := &Book{path: path, st: newState()}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read contact book %s: %w", path, err)
	}
	if err := json.Unmarshal(data, b.st); err != nil {
		return nil, fmt.Errorf("parse contact book %s: %w", path, err)
	}
	if b.st.Contacts == nil {
		b.st.Contacts = make(map[string]*Contact)
	}
	if b.st.TokensToRemote == nil {
		b.st.TokensToRemote = make(map[string]*TokenToRemote)
	}
	if b.st.TokensFromRemote == nil {
		b.st.TokensFromRemote = make(map[string]*TokenFromRemote)
	}
	return b, nil
}

// AddContact is idempotent by remoteDID: a repeat call only bumps
// lastContact and interactionCount, leaving firstContact and name alone
// unless name is non-empty.
func (b *Book) AddContact(remoteDID, host, port, name string) (*Contact, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()
	c, exists := b.st.Contacts[remoteDID]
	if !exists {
		c = &Contact{
			DID:          remoteDID,
			Host:         host,
			Port:         port,
			Name:         name,
			FirstContact: now,
		}
		b.st.Contacts[remoteDID] = c
	} else if name != "" {
		c.Name = name
	}
	c.LastContact = now
	c.InteractionCount++

	if err := b.saveLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

// GetContact returns remoteDID's entry, if any.
func (b *Book) GetContact(remoteDID string) (*Contact, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.st.Contacts[remoteDID]
	return c, ok
}

// ListContacts returns a snapshot of every contact.
func (b *Book) ListContacts() []*Contact {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Contact, 0, len(b.st.Contacts))
	for _, c := range b.st.Contacts {
		out = append(out, c)
	}
	return out
}

// IssueToken records a token this user issued to remoteDID.
func (b *Book) IssueToken(remoteDID, token string, expiresAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.st.TokensToRemote[remoteDID] = &TokenToRemote{Token: token, ExpiresAt: expiresAt}
	return b.saveLocked()
}

// RecordReceivedToken records a token received from remoteDID.
func (b *Book) RecordReceivedToken(remoteDID, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.st.TokensFromRemote[remoteDID] = &TokenFromRemote{Token: token, ReceivedAt: time.Now().UTC()}
	return b.saveLocked()
}

// RevokeIssuedToken flips the revoked flag on a token issued to
// remoteDID. Revocation never deletes the record (§4.7: "a flag, not
// deletion").
func (b *Book) RevokeIssuedToken(remoteDID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.st.TokensToRemote[remoteDID]
	if !ok {
		return fmt.Errorf("no token issued to %q", remoteDID)
	}
	t.Revoked = true
	return b.saveLocked()
}

// TokenIssuedTo returns the token this user issued to remoteDID, if any
// and not revoked.
func (b *Book) TokenIssuedTo(remoteDID string) (*TokenToRemote, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.st.TokensToRemote[remoteDID]
	if !ok || t.Revoked {
		return nil, false
	}
	return t, true
}

func (b *Book) saveLocked() error {
	data, err := json.MarshalIndent(b.st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal contact book: %w", err)
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	return os.Rename(tmp, b.path)
}
