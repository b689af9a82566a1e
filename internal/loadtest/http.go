package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/fwi/pkg/logger"
)

// Retry settings for backpressure responses.
const (
	maxAttempts    = 8
	initialBackoff = 10 * time.Millisecond
	maxBackoff     = time.Second
)

// Submission outcomes.
const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
)

// HTTPClient wraps http.Client with JSON helpers.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Get performs a GET request and decodes a JSON answer into out when out is
// not nil.
func (c *HTTPClient) Get(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body, out any) (int, error) {
	return c.send(ctx, http.MethodPost, path, body, out)
}

// Put performs a PUT request with a JSON body.
func (c *HTTPClient) Put(ctx context.Context, path string, body, out any) (int, error) {
	return c.send(ctx, http.MethodPut, path, body, out)
}

func (c *HTTPClient) send(ctx context.Context, method, path string, body, out any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) (int, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if out != nil && resp.StatusCode < http.StatusBadRequest && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// submitAll posts every station's days. A station is owned by one worker and
// its days are posted in order, since the service rejects out-of-order days.
func submitAll(ctx context.Context, cfg *Config, client *HTTPClient, stations [][]Observation, stats *Stats) {
	log := logger.Get().Named("loadtest")
	log.Info(ctx, "submitting observations",
		logger.Int("stations", len(stations)),
		logger.Int("workers", cfg.Workers))

	var submitted, accepted, duplicate, failed, retried atomic.Int64
	stationCh := make(chan []Observation, cfg.Workers)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for days := range stationCh {
				for _, obs := range days {
					if ctx.Err() != nil {
						return
					}
					outcome, retries := submitOne(ctx, client, obs)
					submitted.Add(1)
					retried.Add(int64(retries))
					switch outcome {
					case outcomeAccepted:
						accepted.Add(1)
					case outcomeDuplicate:
						duplicate.Add(1)
					default:
						failed.Add(1)
						if cfg.Verbose {
							log.Warn(ctx, "observation failed",
								logger.String("station", obs.StationID),
								logger.String("date", obs.Date))
						}
					}
				}
			}
		}()
	}

	go func() {
		defer close(stationCh)
		for _, days := range stations {
			select {
			case <-ctx.Done():
				return
			case stationCh <- days:
			}
		}
	}()
	wg.Wait()

	stats.Submitted = int(submitted.Load())
	stats.Accepted = int(accepted.Load())
	stats.Duplicate = int(duplicate.Load())
	stats.Failed = int(failed.Load())
	stats.Retried = int(retried.Load())
	log.Info(ctx, "observation submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Int("retried", stats.Retried))
}

// submitOne posts one observation, backing off while the service reports
// backpressure.
func submitOne(ctx context.Context, client *HTTPClient, obs Observation) (string, int) {
	backoff := initialBackoff
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var ack AckResponse
		status, err := client.Post(ctx, "/observations", obs, &ack)
		switch {
		case err != nil:
			return outcomeFailed, attempt
		case status == http.StatusAccepted:
			return outcomeAccepted, attempt
		case status == http.StatusOK && ack.Duplicate:
			return outcomeDuplicate, attempt
		case status != http.StatusTooManyRequests:
			return outcomeFailed, attempt
		}

		select {
		case <-ctx.Done():
			return outcomeFailed, attempt
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
	return outcomeFailed, maxAttempts
}
