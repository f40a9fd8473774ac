package hosted

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anp-net/anpd/internal/did"
)

// Result is the on-disk HostedDIDResult record (§3, §6).
type Result struct {
	ResultID          string         `json:"resultID"`
	RequestID         string         `json:"requestID"`
	RequesterDID      string         `json:"requesterDID"`
	RequesterShortID  string         `json:"requesterShortID"`
	Success           bool           `json:"success"`
	HostedDIDDocument map[string]any `json:"hostedDIDDocument,omitempty"`
	ErrorMessage      string         `json:"errorMessage,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	AcknowledgedAt    *time.Time     `json:"acknowledgedAt,omitempty"`
	Host              string         `json:"host"`
	Port              string         `json:"port"`
}

const (
	resultPending      = "pending"
	resultAcknowledged = "acknowledged"
)

// ResultStore owns one domain's result inbox.
type ResultStore struct {
	mu   sync.Mutex
	root string // domain base path; pending/ and acknowledged/ live under root/results
}

// NewResultStore creates the pending/ and acknowledged/ directories
// under root if they don't already exist.
func NewResultStore(root string) (*ResultStore, error) {
	for _, d := range []string{resultPending, resultAcknowledged} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o700); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", d, err)
		}
	}
	return &ResultStore{root: root}, nil
}

// PublishResult writes a new result to pending/. resultID embeds the
// requester's short ID, the unix timestamp, and the first 8 characters
// of requestID (§3 "HostedDIDResult").
func (s *ResultStore) PublishResult(requestID, requesterDID, host, port string, doc map[string]any, success bool, errorMessage string) (*Result, error) {
	shortID := did.ShortID(requesterDID)
	now := time.Now().UTC()
	first8 := requestID
	if len(first8) > 8 {
		first8 = first8[:8]
	}
	resultID := fmt.Sprintf("%s_%d_%s", shortID, now.Unix(), first8)

	result := &Result{
		ResultID:          resultID,
		RequestID:         requestID,
		RequesterDID:      requesterDID,
		RequesterShortID:  shortID,
		Success:           success,
		HostedDIDDocument: doc,
		ErrorMessage:      errorMessage,
		CreatedAt:         now,
		Host:              host,
		Port:              port,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeJSONAtomic(s.pendingPath(resultID), result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ResultStore) pendingPath(resultID string) string {
	return filepath.Join(s.root, resultPending, resultID+".json")
}

func (s *ResultStore) acknowledgedPath(resultID string) string {
	return filepath.Join(s.root, resultAcknowledged, resultID+".json")
}

// GetResultsForRequester returns every pending result whose
// requesterShortID matches, newest first (§4.3).
func (s *ResultStore) GetResultsForRequester(requesterShortID string) ([]*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.root, resultPending))
	if err != nil {
		return nil, err
	}
	var out []*Result
	prefix := requesterShortID + "_"
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.root, resultPending, e.Name()))
		if err != nil {
			continue
		}
		var r Result
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// AcknowledgeResult stamps acknowledgedAt and moves the result to
// acknowledged/, making it permanently invisible to future
// GetResultsForRequester calls (§8 property 6).
func (s *ResultStore) AcknowledgeResult(resultID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pendingPath := s.pendingPath(resultID)
	data, err := os.ReadFile(pendingPath)
	if err != nil {
		return fmt.Errorf("read pending result %q: %w", resultID, err)
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("parse result %q: %w", resultID, err)
	}
	now := time.Now().UTC()
	r.AcknowledgedAt = &now

	if err := writeJSONAtomic(s.acknowledgedPath(resultID), &r); err != nil {
		return err
	}
	return os.Remove(pendingPath)
}

// CleanupOldResults deletes acknowledged results older than maxAgeDays,
// returning the number removed.
func (s *ResultStore) CleanupOldResults(maxAgeDays int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays)
	dir := filepath.Join(s.root, resultAcknowledged)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var r Result
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		if r.AcknowledgedAt != nil && r.AcknowledgedAt.Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
