// Package scrapehub provides a client for the ScrapeHub crawling service
// that harvests restaurant listings and menus.
package scrapehub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Event types delivered by the completion webhook.
const (
	EventSucceeded = "succeeded"
	EventFailed    = "failed"
	EventAborted   = "aborted"
	EventTimedOut  = "timedOut"
)

// Notification is the asynchronous completion payload posted to our webhook.
type Notification struct {
	EventType     string `json:"eventType"`
	JobID         string `json:"jobId"`
	DatasetID     string `json:"datasetId"`
	StatusMessage string `json:"statusMessage,omitempty"`
}

// Terminal reports whether the event ends the job without usable results.
func (n *Notification) Terminal() bool {
	return n.EventType == EventFailed || n.EventType == EventAborted || n.EventType == EventTimedOut
}

// JobInfo describes a started crawl job.
type JobInfo struct {
	JobID     string `json:"jobId"`
	DatasetID string `json:"datasetId"`
	Status    string `json:"status"`
}

// Client defines the scraping-service operations the ingestion core needs.
type Client interface {
	// StartJob launches a crawl of the given listing URLs.
	StartJob(ctx context.Context, sourceURLs []string) (*JobInfo, error)
	// FetchBatch retrieves the full item batch for a completed dataset.
	FetchBatch(ctx context.Context, datasetID string) ([]map[string]any, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit overrides the default request throttle.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *httpClient) { c.limiter = l }
}

// WithWebhook configures the completion webhook registered on StartJob.
func WithWebhook(url string) Option {
	return func(c *httpClient) { c.webhookURL = url }
}

type httpClient struct {
	token      string
	actorID    string
	baseURL    string
	webhookURL string
	http       *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a ScrapeHub client for the given actor.
func NewClient(token, actorID string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		actorID: actorID,
		baseURL: "https://api.scrapehub.dev/v2",
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type startJobRequest struct {
	StartURLs  []string `json:"startUrls"`
	WebhookURL string   `json:"webhookUrl,omitempty"`
}

func (c *httpClient) StartJob(ctx context.Context, sourceURLs []string) (*JobInfo, error) {
	if len(sourceURLs) == 0 {
		return nil, eris.New("scrapehub: no source urls")
	}

	body, err := json.Marshal(startJobRequest{StartURLs: sourceURLs, WebhookURL: c.webhookURL})
	if err != nil {
		return nil, eris.Wrap(err, "scrapehub: marshal start request")
	}

	url := fmt.Sprintf("%s/actors/%s/runs", c.baseURL, c.actorID)
	data, status, err := c.retryDo(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, eris.Wrap(err, "scrapehub: start job")
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, eris.Errorf("scrapehub: start job: status %d: %s", status, truncate(data, 200))
	}

	var info JobInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, eris.Wrap(err, "scrapehub: decode job info")
	}
	return &info, nil
}

func (c *httpClient) FetchBatch(ctx context.Context, datasetID string) ([]map[string]any, error) {
	if datasetID == "" {
		return nil, eris.New("scrapehub: empty dataset id")
	}

	url := fmt.Sprintf("%s/datasets/%s/items", c.baseURL, datasetID)
	data, status, err := c.retryDo(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "scrapehub: fetch dataset %s", datasetID)
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("scrapehub: fetch dataset %s: status %d: %s", datasetID, status, truncate(data, 200))
	}

	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, eris.Wrapf(err, "scrapehub: decode dataset %s", datasetID)
	}
	return items, nil
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes a request with the rate limiter applied and exponential
// backoff on transient failures (429, 500, 502, 503). Returns the response
// body and status code on success, or the last error after exhausting
// retries.
func (c *httpClient) retryDo(ctx context.Context, method, url string, body []byte) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, eris.Wrap(err, "scrapehub: rate limit wait")
		}

		var reader *bytes.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		} else {
			reader = bytes.NewReader(nil)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, 0, eris.Wrap(err, "scrapehub: build request")
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
		} else {
			data, readErr := readAll(resp)
			if readErr != nil {
				lastErr = readErr
			} else if retryableStatusCode(resp.StatusCode) {
				lastErr = eris.Errorf("transient status %d", resp.StatusCode)
			} else {
				return data, resp.StatusCode, nil
			}
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, 0, eris.Wrapf(lastErr, "after %d attempts", maxAttempts)
}

func readAll(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, eris.Wrap(err, "read response body")
	}
	return buf.Bytes(), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
