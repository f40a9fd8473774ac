// Package hosted implements the hosted-DID asynchronous workflow (§4.3):
// a file-backed queue with four status directories, a background
// processor per served domain, and a result inbox with at-least-once
// delivery.
//
// Every request or result is one JSON file whose name embeds its ID;
// state transitions are move-file-then-update-JSON so a request never
// exists in two directories at once.
package hosted

import (
	"encoding/json"
	"time"
)

// Status is one of the four directories a request can live in.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// StatusLogEntry records one transition.
type StatusLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note"`
}

// CallbackInfo is an optional caller-supplied callback attached to a
// request; this runtime does not invoke it itself (no outbound webhook
// delivery is in scope) but preserves it for operators who poll requests
// directly.
type CallbackInfo struct {
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Request is the on-disk HostedDIDRequest record (§3, §6).
type Request struct {
	RequestID    string           `json:"requestID"`
	RequesterDID string           `json:"requesterDID"`
	DIDDocument  map[string]any   `json:"didDocument"`
	CallbackInfo *CallbackInfo    `json:"callbackInfo,omitempty"`
	Status       Status           `json:"status"`
	StatusLog    []StatusLogEntry `json:"statusLog"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

func (r *Request) clone() *Request {
	cp := *r
	cp.StatusLog = append([]StatusLogEntry{}, r.StatusLog...)
	return &cp
}

func (r *Request) marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
