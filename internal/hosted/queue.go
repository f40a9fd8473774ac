package hosted

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const maxMoveRetries = 3

var allStatuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}

// DuplicateError reports that requestID already exists in one of the
// four status directories.
type DuplicateError struct{ RequestID string }

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("hosted-did request %q already submitted (重复 / duplicate)", e.RequestID)
}

// ValidationError reports a malformed AddRequest payload.
type ValidationError struct{ Reason string }

func (e *ValidationError) Error() string { return "invalid hosted-did request: " + e.Reason }

// QueueManager owns one domain's four status directories.
type QueueManager struct {
	mu     sync.Mutex
	root   string
	logger *zap.Logger
}

// NewQueueManager creates the four status directories under root (a
// domain's basePath/requests) if they don't already exist.
func NewQueueManager(root string, logger *zap.Logger) (*QueueManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, s := range allStatuses {
		if err := os.MkdirAll(filepath.Join(root, string(s)), 0o700); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", s, err)
		}
	}
	return &QueueManager{root: root, logger: logger}, nil
}

func (q *QueueManager) pathFor(status Status, requestID string) string {
	return filepath.Join(q.root, string(status), requestID+".json")
}

// AddRequest validates and writes a new request to pending/.
func (q *QueueManager) AddRequest(ctx context.Context, requestID, requesterDID string, didDocument map[string]any, callback *CallbackInfo) (*Request, error) {
	if requesterDID == "" || !strings.HasPrefix(requesterDID, "did:wba:") {
		return nil, &ValidationError{Reason: "requesterDID must be a did:wba: identifier"}
	}
	if len(didDocument) == 0 {
		return nil, &ValidationError{Reason: "didDocument is required"}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for _, s := range allStatuses {
		if _, err := os.Stat(q.pathFor(s, requestID)); err == nil {
			return nil, &DuplicateError{RequestID: requestID}
		}
	}

	now := time.Now().UTC()
	req := &Request{
		RequestID:    requestID,
		RequesterDID: requesterDID,
		DIDDocument:  didDocument,
		CallbackInfo: callback,
		Status:       StatusPending,
		StatusLog:    []StatusLogEntry{{Timestamp: now, Note: "submitted"}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := writeJSONAtomic(q.pathFor(StatusPending, requestID), req); err != nil {
		return nil, err
	}
	return req, nil
}

// GetRequestStatus locates requestID across the four directories.
func (q *QueueManager) GetRequestStatus(requestID string) (*Request, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.readAny(requestID)
}

func (q *QueueManager) readAny(requestID string) (*Request, error) {
	for _, s := range allStatuses {
		req, err := readRequest(q.pathFor(s, requestID))
		if err == nil {
			return req, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("hosted-did request %q not found", requestID)
}

func readRequest(path string) (*Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &req, nil
}

// MoveRequestStatus is the only mutator: it moves requestID's file from
// one status directory to another, appending note to its log. The move
// happens before the JSON is rewritten with the new status, so a crash
// mid-transition leaves the file in exactly one directory (§8 property 3).
func (q *QueueManager) MoveRequestStatus(ctx context.Context, requestID string, from, to Status, note string) (*Request, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	fromPath := q.pathFor(from, requestID)
	toPath := q.pathFor(to, requestID)

	req, err := readRequest(fromPath)
	if err != nil {
		return nil, fmt.Errorf("read %s before move: %w", fromPath, err)
	}

	var renameErr error
	for attempt := 0; attempt < maxMoveRetries; attempt++ {
		if renameErr = os.Rename(fromPath, toPath); renameErr == nil {
			break
		}
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	if renameErr != nil {
		return nil, fmt.Errorf("move %s -> %s after %d attempts: %w", from, to, maxMoveRetries, renameErr)
	}

	now := time.Now().UTC()
	req.Status = to
	req.UpdatedAt = now
	req.StatusLog = append(req.StatusLog, StatusLogEntry{Timestamp: now, Note: note})

	if err := writeJSONAtomic(toPath, req); err != nil {
		q.logger.Error("failed to persist status update after move; file location is authoritative",
			zap.String("request_id", requestID), zap.String("to", string(to)), zap.Error(err))
		return nil, err
	}
	return req, nil
}

// RecoverProcessing moves every request found in processing/ back to
// pending/ with a recovery note. A file can only be in processing/ at
// startup because the previous process died mid-request (no component
// of this runtime leaves it there otherwise), so this is always safe.
func (q *QueueManager) RecoverProcessing(ctx context.Context) (int, error) {
	q.mu.Lock()
	entries, err := os.ReadDir(filepath.Join(q.root, string(StatusProcessing)))
	q.mu.Unlock()
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		requestID := strings.TrimSuffix(e.Name(), ".json")
		if _, err := q.MoveRequestStatus(ctx, requestID, StatusProcessing, StatusPending, "recovered after restart"); err != nil {
			q.logger.Warn("failed to recover in-flight request", zap.String("request_id", requestID), zap.Error(err))
			continue
		}
		recovered++
	}
	return recovered, nil
}

// GetPendingRequests returns a creation-order snapshot of pending/.
func (q *QueueManager) GetPendingRequests() ([]*Request, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(q.root, string(StatusPending)))
	if err != nil {
		return nil, err
	}
	out := make([]*Request, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		req, err := readRequest(filepath.Join(q.root, string(StatusPending), e.Name()))
		if err != nil {
			q.logger.Warn("skipping unreadable pending request", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// CountByStatus returns the number of requests currently in each of the
// four status directories, keyed by Status.
func (q *QueueManager) CountByStatus() (map[Status]int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	counts := make(map[Status]int, len(allStatuses))
	for _, s := range allStatuses {
		entries, err := os.ReadDir(filepath.Join(q.root, string(s)))
		if err != nil {
			return nil, err
		}
		n := 0
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
				n++
			}
		}
		counts[s] = n
	}
	return counts, nil
}

// writeJSONAtomic writes v to path via a temp file plus rename, so a
// reader never observes a partially written file.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}
