package roblox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"capedash/internal/infra"
)

const (
	defaultThumbnailsURL    = "https://thumbnails.roblox.com"
	defaultAssetDeliveryURL = "https://assetdelivery.roblox.com"
	defaultRequestTimeout   = 20 * time.Second

	thumbnailSize   = "420x420"
	thumbnailFormat = "Png"
)

// Options configures the Roblox lookup client.
type Options struct {
	ThumbnailsURL    string
	AssetDeliveryURL string
	HTTPClient       *http.Client
	Logger           *infra.Logger
	RequestTimeout   time.Duration
}

// Client performs the two lookups used to map an asset id to an image id:
// the thumbnails batch endpoint and the asset delivery redirect.
type Client struct {
	thumbnailsURL    string
	assetDeliveryURL string
	httpClient       *http.Client
	logger           *infra.Logger
	requestTimeout   time.Duration
}

// ThumbnailEntry is one element of the thumbnails API "data" array. TargetID
// arrives as a number or a string depending on the API version.
type ThumbnailEntry struct {
	TargetID json.RawMessage `json:"targetId"`
	State    string          `json:"state"`
	ImageURL string          `json:"imageUrl"`
	Version  string          `json:"version"`
}

type thumbnailResponse struct {
	Data []ThumbnailEntry `json:"data"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	thumbnails := strings.TrimRight(opts.ThumbnailsURL, "/")
	if thumbnails == "" {
		thumbnails = defaultThumbnailsURL
	}
	delivery := strings.TrimRight(opts.AssetDeliveryURL, "/")
	if delivery == "" {
		delivery = defaultAssetDeliveryURL
	}
	return &Client{
		thumbnailsURL:    thumbnails,
		assetDeliveryURL: delivery,
		httpClient:       httpClient,
		logger:           infra.LoggerOrDiscard(opts.Logger),
		requestTimeout:   timeout,
	}
}

// Thumbnails fetches the thumbnail metadata for a single asset. An error is
// returned for transport failures, non-200 statuses and undecodable bodies.
func (c *Client) Thumbnails(ctx context.Context, assetID string) ([]ThumbnailEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("assetIds", assetID)
	q.Set("size", thumbnailSize)
	q.Set("format", thumbnailFormat)
	q.Set("isCircular", "false")
	endpoint := c.thumbnailsURL + "/v1/assets?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("roblox: build thumbnails request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("roblox: thumbnails request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("roblox: read thumbnails response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("roblox: thumbnails status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var decoded thumbnailResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("roblox: decode thumbnails response: %w", err)
	}
	return decoded.Data, nil
}

// DeliveryURL requests the asset from the delivery service, following
// redirects, and returns the final URL that served it.
func (c *Client) DeliveryURL(ctx context.Context, assetID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	endpoint := c.assetDeliveryURL + "/v1/asset?id=" + url.QueryEscape(assetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("roblox: build delivery request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("roblox: delivery request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("roblox: delivery status %d", resp.StatusCode)
	}
	if resp.Request == nil || resp.Request.URL == nil {
		return "", fmt.Errorf("roblox: delivery response without request url")
	}
	return resp.Request.URL.String(), nil
}
