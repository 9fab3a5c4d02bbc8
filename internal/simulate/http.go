package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/penaltyhub/pkg/logger"
)

// ErrUnexpectedStatus is returned when the service answers with a status the
// caller did not expect.
var ErrUnexpectedStatus = errors.New("unexpected status")

// HTTPClient wraps http.Client with the service base URL.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Do sends body as JSON to path and decodes a successful reply into out.
// It returns the status code; statuses outside want are reported as
// ErrUnexpectedStatus together with the server's message.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body, out any, want ...int) (int, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if len(want) > 0 && !slices.Contains(want, resp.StatusCode) {
		return resp.StatusCode, fmt.Errorf("%w: %s %s: %d %s", ErrUnexpectedStatus, method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

// Submission outcomes.
const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)

// submitUpdates posts updates concurrently using a worker pool.
func submitUpdates(ctx context.Context, cfg *Config, client *HTTPClient, matchID string, updates []Update, stats *Stats) {
	logger.Get().Info(ctx, "submitting updates",
		logger.Int("updates", len(updates)),
		logger.Int("workers", cfg.Workers))

	path := "/matches/" + matchID + "/updates"

	var accepted, duplicate, rejected, failed, submitted int64

	updateChan := make(chan Update, cfg.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range updateChan {
				switch submitSingleUpdate(ctx, client, path, u) {
				case outcomeAccepted:
					atomic.AddInt64(&accepted, 1)
				case outcomeDuplicate:
					atomic.AddInt64(&duplicate, 1)
				case outcomeRejected:
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
				if n := atomic.AddInt64(&submitted, 1); cfg.Verbose && n%progressEvery == 0 {
					logger.Get().Debug(ctx, "progress",
						logger.Int("submitted", int(n)),
						logger.Int("total", len(updates)))
				}
			}
		}()
	}

	go func() {
		defer close(updateChan)
		for _, u := range updates {
			select {
			case <-ctx.Done():
				return
			case updateChan <- u:
			}
		}
	}()

	wg.Wait()

	stats.UpdatesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.UpdatesAccepted = int(atomic.LoadInt64(&accepted))
	stats.UpdatesDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.UpdatesRejected = int(atomic.LoadInt64(&rejected))
	stats.UpdatesFailed = int(atomic.LoadInt64(&failed))

	logger.Get().Info(ctx, "update submission completed",
		logger.Int("accepted", stats.UpdatesAccepted),
		logger.Int("duplicate", stats.UpdatesDuplicate),
		logger.Int("rejected", stats.UpdatesRejected),
		logger.Int("failed", stats.UpdatesFailed))
}

// submitSingleUpdate posts one update. 202 is a new update, 200 a duplicate
// and 429 backpressure from a full queue.
func submitSingleUpdate(ctx context.Context, client *HTTPClient, path string, u Update) string {
	var ack AckResponse
	code, err := client.Do(ctx, http.MethodPost, path, u, &ack, http.StatusAccepted, http.StatusOK)
	switch {
	case err == nil && (code == http.StatusOK || ack.Duplicate):
		return outcomeDuplicate
	case err == nil:
		return outcomeAccepted
	case code == http.StatusTooManyRequests:
		return outcomeRejected
	default:
		return outcomeFailed
	}
}
