package probe

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

	"github.com/okian/huematch/pkg/logger"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// submitLookups posts every query to /lookup through a worker pool. Results
// keep the order of queries.
func submitLookups(ctx context.Context, cfg *Config, queries []Query, stats *Stats) []Result {
	log := logger.Get().Named("probe")
	log.Info(ctx, "submitting lookups", logger.Int("count", len(queries)), logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.Timeout)
	url := cfg.BaseURL + "/lookup"
	results := make([]Result, len(queries))

	var submitted, successful, busy, failed int64

	jobs := make(chan int, cfg.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					return
				}
				res := lookupOne(ctx, client, url, queries[i])
				results[i] = res
				atomic.AddInt64(&submitted, 1)
				switch {
				case res.Code == http.StatusOK:
					atomic.AddInt64(&successful, 1)
				case res.Code == http.StatusTooManyRequests:
					atomic.AddInt64(&busy, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
				if cfg.Verbose {
					log.Debug(ctx, "lookup",
						logger.Int("status", res.Code),
						logger.String("name", res.Answer.Name),
						logger.String("method", res.Answer.Method))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range queries {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	wg.Wait()

	stats.Submitted = int(submitted)
	stats.Successful = int(successful)
	stats.Busy = int(busy)
	stats.Failed = int(failed)
	log.Info(ctx, "lookup submission completed",
		logger.Int("successful", stats.Successful),
		logger.Int("busy", stats.Busy),
		logger.Int("failed", stats.Failed))
	return results
}

func lookupOne(ctx context.Context, client *HTTPClient, url string, q Query) Result {
	res := Result{Query: q}
	resp, err := client.Post(ctx, url, map[string]uint8{"r": q.R, "g": q.G, "b": q.B})
	if err != nil {
		res.Err = err.Error()
		return res
	}
	defer resp.Body.Close()
	res.Code = resp.StatusCode

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	if resp.StatusCode != http.StatusOK {
		res.Err = string(bytes.TrimSpace(body))
		return res
	}
	if err := json.Unmarshal(body, &res.Answer); err != nil {
		res.Err = err.Error()
	}
	return res
}
