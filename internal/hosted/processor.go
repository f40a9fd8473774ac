package hosted

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anp-net/anpd/internal/did"
	"github.com/anp-net/anpd/internal/ledger"
	"github.com/anp-net/anpd/internal/metrics"
	"go.uber.org/zap"
)

// Processor is the single per-domain background worker described by
// §4.3: it polls pending/ on a ticker, runs PerformBusinessLogic on
// each request, and moves it to completed/ or failed/.
type Processor struct {
	Domain  string
	Port    string
	Queue   *QueueManager
	Results *ResultStore

	hostedPath string
	interval   time.Duration
	logger     *zap.Logger
	ledger     ledger.Ledger
}

// NewProcessor builds a Processor for one served domain. hostedPath is
// the domain's anp_users_hosted directory (where issued hosted DID
// documents are materialized).
func NewProcessor(domain, port, hostedPath string, queue *QueueManager, results *ResultStore, interval time.Duration, logger *zap.Logger, l ledger.Ledger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		Domain: domain, Port: port, Queue: queue, Results: results,
		hostedPath: hostedPath, interval: interval, logger: logger, ledger: l,
	}
}

// Run polls every p.interval until ctx is cancelled. It is meant to be
// launched in its own goroutine, one per served domain.
func (p *Processor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Processor) tick(ctx context.Context) {
	if counts, err := p.Queue.CountByStatus(); err != nil {
		p.logger.Warn("count hosted-did queue depth", zap.Error(err))
	} else {
		for status, n := range counts {
			metrics.HostedQueueDepth.WithLabelValues(string(status)).Set(float64(n))
		}
	}

	pending, err := p.Queue.GetPendingRequests()
	if err != nil {
		p.logger.Error("list pending hosted-did requests", zap.Error(err))
		return
	}
	for _, req := range pending {
		p.processOne(ctx, req)
	}
}

func (p *Processor) processOne(ctx context.Context, req *Request) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic processing hosted-did request, moving to failed",
				zap.String("request_id", req.RequestID), zap.Any("panic", r))
			if _, err := p.Queue.MoveRequestStatus(ctx, req.RequestID, StatusProcessing, StatusFailed, fmt.Sprintf("panic: %v", r)); err != nil {
				p.logger.Error("failed to move panicking request to failed", zap.Error(err))
			}
		}
	}()

	if _, err := p.Queue.MoveRequestStatus(ctx, req.RequestID, StatusPending, StatusProcessing, "start"); err != nil {
		p.logger.Error("move to processing", zap.String("request_id", req.RequestID), zap.Error(err))
		return
	}

	ok, doc, errMsg := p.PerformBusinessLogic(req)

	if ok {
		if _, err := p.Queue.MoveRequestStatus(ctx, req.RequestID, StatusProcessing, StatusCompleted, "done"); err != nil {
			p.logger.Error("move to completed", zap.String("request_id", req.RequestID), zap.Error(err))
			return
		}
		if _, err := p.Results.PublishResult(req.RequestID, req.RequesterDID, p.Domain, p.Port, doc, true, ""); err != nil {
			p.logger.Error("publish success result", zap.String("request_id", req.RequestID), zap.Error(err))
		}
		metrics.HostedRequestsTotal.WithLabelValues("completed").Inc()
		ledger.Append(ctx, p.ledger, req.RequesterDID, "hosted.complete", req.RequestID, map[string]any{"request_id": req.RequestID})
		return
	}

	if _, err := p.Queue.MoveRequestStatus(ctx, req.RequestID, StatusProcessing, StatusFailed, "fail: "+errMsg); err != nil {
		p.logger.Error("move to failed", zap.String("request_id", req.RequestID), zap.Error(err))
		return
	}
	if _, err := p.Results.PublishResult(req.RequestID, req.RequesterDID, p.Domain, p.Port, nil, false, errMsg); err != nil {
		p.logger.Error("publish failure result", zap.String("request_id", req.RequestID), zap.Error(err))
	}
	metrics.HostedRequestsTotal.WithLabelValues("failed").Inc()
}

// PerformBusinessLogic runs the six-step validation and issuance
// sequence of §4.3 ("Processor (background worker)").
func (p *Processor) PerformBusinessLogic(req *Request) (ok bool, hostedDoc map[string]any, errMsg string) {
	if req.RequesterDID == "" || len(req.DIDDocument) == 0 {
		return false, nil, "missing requesterDID or didDocument"
	}
	if !strings.HasPrefix(req.RequesterDID, "did:wba:") {
		return false, nil, "requesterDID is not a did:wba: identifier"
	}

	if dup, err := p.isDuplicate(req.RequesterDID); err != nil {
		return false, nil, fmt.Sprintf("dedup check failed: %v", err)
	} else if dup {
		return false, nil, "duplicate hosted-did request (重复 / duplicate) for this requester"
	}

	// Identity/whitelist and approval-policy checks are pluggable
	// extension points; this runtime ships the default "allow" policy
	// (no whitelist, no approval gate configured).

	newDoc, _, newID, err := did.RewriteHosted(req.DIDDocument, p.Domain, p.Port)
	if err != nil {
		return false, nil, fmt.Sprintf("rewrite did document: %v", err)
	}

	sid := did.ShortID(newID)
	if err := p.persistHosted(sid, newDoc, req); err != nil {
		return false, nil, fmt.Sprintf("persist hosted did: %v", err)
	}

	return true, newDoc, ""
}

func (p *Processor) userDir(sid string) string {
	return filepath.Join(p.hostedPath, "user_"+sid)
}

func (p *Processor) persistHosted(sid string, doc map[string]any, req *Request) error {
	dir := p.userDir(sid)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := writeJSONAtomic(filepath.Join(dir, "did_document.json"), doc); err != nil {
		return err
	}
	return writeJSONAtomic(filepath.Join(dir, "did_document_request.json"), req)
}

// isDuplicate scans the hosted-DID directory for an existing issuance
// whose original request came from the same requesterDID.
func (p *Processor) isDuplicate(requesterDID string) (bool, error) {
	entries, err := os.ReadDir(p.hostedPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "user_") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(p.hostedPath, e.Name(), "did_document_request.json"))
		if err != nil {
			continue
		}
		var prior Request
		if err := json.Unmarshal(data, &prior); err != nil {
			continue
		}
		if prior.RequesterDID == requesterDID {
			return true, nil
		}
	}
	return false, nil
}
