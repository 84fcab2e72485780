package replication

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/mydotey/artemis/pkg/model"
)

// HTTPClient is a PeerClient implementation over the peer wire protocol,
// using a retryablehttp.Client with the library's retry policy switched off:
// each call is one attempt, post classifies every non-2xx status with
// ClassifyStatus, and the worker (sendWithRetry) owns the retry loop and
// terminal/retryable decision per batch.
type HTTPClient struct {
	baseURL string
	client  *retryablehttp.Client
}

// NewHTTPClient creates an HTTPClient for one peer's base URL.
func NewHTTPClient(baseURL string, cfg Config, logger *slog.Logger) *HTTPClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0 // the replication worker drives its own retry loop
	// Return every response to post; the default policy would turn 5xx
	// answers into errors before ClassifyStatus sees them.
	rc.CheckRetry = func(ctx context.Context, _ *http.Response, _ error) (bool, error) {
		return false, ctx.Err()
	}
	rc.Logger = nil
	rc.HTTPClient.Timeout = 10 * time.Second
	if logger != nil {
		rc.Logger = slogAdapter{logger}
	}
	return &HTTPClient{baseURL: baseURL, client: rc}
}

// slogAdapter satisfies retryablehttp.LeveledLogger using the application's
// structured logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Error(msg string, kv ...interface{}) { a.logger.Error(msg, kv...) }
func (a slogAdapter) Info(msg string, kv ...interface{})  { a.logger.Info(msg, kv...) }
func (a slogAdapter) Debug(msg string, kv ...interface{}) { a.logger.Debug(msg, kv...) }
func (a slogAdapter) Warn(msg string, kv ...interface{})  { a.logger.Warn(msg, kv...) }

func (c *HTTPClient) post(ctx context.Context, path string, reqBody, respBody any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return &Error{Classification: Terminal, Err: fmt.Errorf("marshaling request: %w", err)}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &Error{Classification: Terminal, Err: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Classification: Retryable, Err: fmt.Errorf("calling peer: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return &Error{Classification: ClassifyStatus(resp.StatusCode), Err: fmt.Errorf("peer returned %d: %s", resp.StatusCode, string(data))}
	}

	if respBody == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return &Error{Classification: Terminal, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// ReplicateBatch issues a single batched replication call for one event kind.
func (c *HTTPClient) ReplicateBatch(ctx context.Context, kind model.BatchKind, req model.BatchRequest) error {
	var resp model.BatchResponse
	return c.post(ctx, "/replicate/batch/"+string(kind), req, &resp)
}

// SyncFullData bootstraps this node's state from a peer at startup.
func (c *HTTPClient) SyncFullData(ctx context.Context, nodeID string) (*model.SyncFullDataResponse, error) {
	var resp model.SyncFullDataResponse
	if err := c.post(ctx, "/replicate/sync-full-data", model.SyncFullDataRequest{RequestingNodeID: nodeID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ServicesDelta is used for warm-restart delta sync against a peer.
func (c *HTTPClient) ServicesDelta(ctx context.Context, sinceTsMs int64) (*model.ServicesDeltaResponse, error) {
	var resp model.ServicesDeltaResponse
	if err := c.post(ctx, "/replicate/delta", model.ServicesDeltaRequest{SinceTimestampMs: sinceTsMs}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
