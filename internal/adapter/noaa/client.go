// Package noaa fetches inventory and observation files from the NCEI public
// HTTP servers. No authentication, no retries: a task either succeeds, is
// skipped because the file already exists, hits an expected 404, or fails.
package noaa

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Outcome classifies the result of a single fetch task.
type Outcome int

const (
	OutcomeFetched Outcome = iota
	OutcomeSkipped
	OutcomeNotFound
	OutcomeFailed
)

// String returns the metrics/log label for an outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeFetched:
		return "fetched"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// Client performs plain HTTP GETs with a bounded per-request timeout.
type Client struct {
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// NewClient creates a client. The timeout bounds each whole request,
// including the body read.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: "climate-station-etl",
		logger:    logger,
	}
}

// Get fetches a small resource (a station inventory) fully into memory.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.do(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	return body, nil
}

// Fetch downloads url to destPath, writing body bytes verbatim.
//
// An existing destination file means the task already completed on a previous
// run and is skipped without a network call. The body is streamed to a
// temporary file and renamed into place so a killed run never leaves a
// truncated file behind the existence marker. A 404 is reported as
// OutcomeNotFound with a nil error; callers decide whether that is benign.
func (c *Client) Fetch(ctx context.Context, url, destPath string) (Outcome, error) {
	if _, err := os.Stat(destPath); err == nil {
		return OutcomeSkipped, nil
	}

	resp, err := c.do(ctx, url)
	if err != nil {
		return OutcomeFailed, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return OutcomeNotFound, nil
	case resp.StatusCode != http.StatusOK:
		return OutcomeFailed, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	tmp := destPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return OutcomeFailed, fmt.Errorf("write %s: %w", destPath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return OutcomeFailed, fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, destPath); err != nil {
		os.Remove(tmp)
		return OutcomeFailed, fmt.Errorf("finalize %s: %w", destPath, err)
	}
	return OutcomeFetched, nil
}

func (c *Client) do(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	return resp, nil
}
