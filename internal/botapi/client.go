package botapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"capedash/internal/infra"
)

const (
	defaultBaseURL       = "http://localhost:5001"
	defaultStatsTimeout  = 3 * time.Second
	defaultTicketTimeout = 2 * time.Second
)

// Options configures the bot API client.
type Options struct {
	BaseURL       string
	HTTPClient    *http.Client
	Logger        *infra.Logger
	StatsTimeout  time.Duration
	TicketTimeout time.Duration
}

// Client talks to the HTTP API the Discord bot exposes locally. The bot may
// not be running; every call has a short timeout.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	logger        *infra.Logger
	statsTimeout  time.Duration
	ticketTimeout time.Duration
}

// NewClient constructs a client with sane defaults.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	statsTimeout := opts.StatsTimeout
	if statsTimeout <= 0 {
		statsTimeout = defaultStatsTimeout
	}
	ticketTimeout := opts.TicketTimeout
	if ticketTimeout <= 0 {
		ticketTimeout = defaultTicketTimeout
	}
	return &Client{
		baseURL:       baseURL,
		httpClient:    httpClient,
		logger:        infra.LoggerOrDiscard(opts.Logger),
		statsTimeout:  statsTimeout,
		ticketTimeout: ticketTimeout,
	}
}

// Stats returns the bot's live statistics document. ok is false unless the
// document carries a totalMembers field.
func (c *Client) Stats(ctx context.Context) (stats map[string]any, ok bool, err error) {
	if err := c.get(ctx, "/api/stats", c.statsTimeout, &stats); err != nil {
		return nil, false, err
	}
	if _, has := stats["totalMembers"]; !has {
		return stats, false, nil
	}
	return stats, true, nil
}

// Tickets returns the open tickets the bot knows about.
func (c *Client) Tickets(ctx context.Context) ([]any, error) {
	var tickets []any
	if err := c.get(ctx, "/api/tickets", c.ticketTimeout, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (c *Client) get(ctx context.Context, path string, timeout time.Duration, v any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("botapi: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("botapi: %s: %w", path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("botapi: read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("botapi: %s status %d", path, resp.StatusCode)
	}
	// Ids are snowflakes; keep numbers exact for the passthrough.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("botapi: decode %s: %w", path, err)
	}
	c.logger.Debug().Str("path", path).Msg("botapi: fetched")
	return nil
}
