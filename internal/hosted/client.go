package hosted

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Poller is the client side of the hosted-DID workflow (§4.3 "Client-side
// polling"): it polls one destination host for results addressed to a
// requester short ID, persists each as a sibling local user directory,
// and acknowledges it.
type Poller struct {
	httpClient *http.Client
	logger     *zap.Logger
	localRoot  string // where user_hosted_<host>_<port>_<shortID> directories are written
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithHTTPClient overrides the Poller's http.Client (e.g. for tests).
func WithHTTPClient(hc *http.Client) PollerOption {
	return func(p *Poller) { p.httpClient = hc }
}

// NewPoller builds a Poller that writes discovered hosted DIDs under
// localRoot.
func NewPoller(localRoot string, logger *zap.Logger, opts ...PollerOption) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Poller{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		localRoot:  localRoot,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SubmitRequest POSTs a hosted-DID issuance request to baseURL and
// returns the requestID the server assigned.
func (p *Poller) SubmitRequest(ctx context.Context, baseURL string, didDocument map[string]any, requesterDID string, callback *CallbackInfo) (requestID string, estimatedSeconds int, err error) {
	body, err := json.Marshal(map[string]any{
		"didDocument":  didDocument,
		"requesterDID": requesterDID,
		"callbackInfo": callback,
	})
	if err != nil {
		return "", 0, fmt.Errorf("marshal request: %w", err)
	}

	var out struct {
		Success                 bool   `json:"success"`
		RequestID               string `json:"requestID"`
		EstimatedProcessingTime int    `json:"estimatedProcessingTime"`
	}
	if err := p.doJSON(ctx, http.MethodPost, baseURL+"/wba/hosted-did/request", body, &out); err != nil {
		return "", 0, err
	}
	if !out.Success {
		return "", 0, fmt.Errorf("hosted-did request submission was not accepted")
	}
	return out.RequestID, out.EstimatedProcessingTime, nil
}

// PollUntilResult polls baseURL every interval, up to maxAttempts times,
// for a result addressed to requesterShortID. On the first result found
// it persists the hosted DID locally, acknowledges the result, and
// returns it. Polling one destination host never blocks polling another
// (callers run one Poller call per destination, concurrently, if needed).
func (p *Poller) PollUntilResult(ctx context.Context, baseURL, host, port, requesterShortID string, interval time.Duration, maxAttempts int) (*Result, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		results, err := p.checkResults(ctx, baseURL, requesterShortID)
		if err != nil {
			p.logger.Warn("hosted-did check failed", zap.String("base_url", baseURL), zap.Error(err))
		} else if len(results) > 0 {
			result := results[0]
			if err := p.persistLocal(host, port, requesterShortID, result); err != nil {
				return nil, fmt.Errorf("persist local hosted did: %w", err)
			}
			if err := p.acknowledge(ctx, baseURL, result.ResultID); err != nil {
				p.logger.Warn("failed to acknowledge hosted-did result", zap.String("result_id", result.ResultID), zap.Error(err))
			}
			return result, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
	return nil, fmt.Errorf("no hosted-did result for %q after %d attempts", requesterShortID, maxAttempts)
}

func (p *Poller) checkResults(ctx context.Context, baseURL, requesterShortID string) ([]*Result, error) {
	var out struct {
		Results []*Result `json:"results"`
	}
	url := fmt.Sprintf("%s/wba/hosted-did/check/%s", baseURL, requesterShortID)
	if err := p.doJSON(ctx, http.MethodGet, url, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (p *Poller) acknowledge(ctx context.Context, baseURL, resultID string) error {
	url := fmt.Sprintf("%s/wba/hosted-did/acknowledge/%s", baseURL, resultID)
	return p.doJSON(ctx, http.MethodPost, url, nil, nil)
}

func (p *Poller) persistLocal(host, port, requesterShortID string, result *Result) error {
	dirName := fmt.Sprintf("user_hosted_%s_%s_%s", host, port, requesterShortID)
	dir := filepath.Join(p.localRoot, dirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	return writeJSONAtomic(filepath.Join(dir, "did_document.json"), result.HostedDIDDocument)
}

func (p *Poller) doJSON(ctx context.Context, method, url string, body []byte, out any) error {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
