// Package wdc fetches real-time Dst monthly documents from the World Data
// Center for Geomagnetism, Kyoto. It is the engine's only network-facing
// collaborator; retry and scheduling live with the caller.
package wdc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultBaseURL is the Kyoto WDC real-time Dst service root.
const DefaultBaseURL = "https://wdc.kugi.kyoto-u.ac.jp/dst_realtime"

const userAgent = "geomag-dst-ingest"

// Client retrieves monthly Dst documents over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a fetcher against baseURL (DefaultBaseURL in
// production; tests and mirrors override it).
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
	}
}

// PresentMonth fetches the in-progress document for the month containing t.
func (c *Client) PresentMonth(ctx context.Context, t time.Time) (string, error) {
	u := fmt.Sprintf("%s/presentmonth/dst%s.for.request", c.baseURL, t.UTC().Format("0601"))
	return c.fetch(ctx, u)
}

// ArchiveMonth fetches the archived document for the month containing t.
// Used for the previous-month fallback around month boundaries.
func (c *Client) ArchiveMonth(ctx context.Context, t time.Time) (string, error) {
	tu := t.UTC()
	u := fmt.Sprintf("%s/%s/dst%s.for.request", c.baseURL, tu.Format("200601"), tu.Format("0601"))
	return c.fetch(ctx, u)
}

// PreviousMonth returns a time inside the month before the one containing t.
func PreviousMonth(t time.Time) time.Time {
	tu := t.UTC()
	firstOfMonth := time.Date(tu.Year(), tu.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.Add(-24 * time.Hour)
}

func (c *Client) fetch(ctx context.Context, url string) (string, error) {
	c.logger.Debug("fetching dst document", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	return string(body), nil
}
