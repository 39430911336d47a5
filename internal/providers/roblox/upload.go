package roblox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"capedash/internal/domain"
	"capedash/internal/infra"
)

// ErrMissingCredentials indicates that the uploader was configured without an
// API key or creator id.
var ErrMissingCredentials = fmt.Errorf("roblox: api key and creator id are required: %w", domain.ErrUploadUnavailable)

const (
	defaultAPIsURL      = "https://apis.roblox.com"
	defaultPollInterval = time.Second
	defaultMaxPolls     = 30
)

// UploaderOptions configures the Open Cloud assets client.
type UploaderOptions struct {
	APIKey       string
	CreatorID    string
	ToGroup      bool
	BaseURL      string
	HTTPClient   *http.Client
	Logger       *infra.Logger
	PollInterval time.Duration
	MaxPolls     int
}

// Uploader creates decal assets through the Open Cloud assets API.
type Uploader struct {
	apiKey       string
	creatorID    string
	toGroup      bool
	baseURL      string
	httpClient   *http.Client
	logger       *infra.Logger
	pollInterval time.Duration
	maxPolls     int
}

// DecalRequest describes an image to upload.
type DecalRequest struct {
	DisplayName string
	Description string
	Filename    string
	ContentType string
	Data        []byte
}

type assetCreateRequest struct {
	AssetType       string          `json:"assetType"`
	DisplayName     string          `json:"displayName"`
	Description     string          `json:"description"`
	CreationContext creationContext `json:"creationContext"`
}

type creationContext struct {
	Creator creator `json:"creator"`
}

type creator struct {
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
}

type operation struct {
	Path     string             `json:"path"`
	Done     bool               `json:"done"`
	Error    *operationError    `json:"error"`
	Response *operationResponse `json:"response"`
}

type operationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type operationResponse struct {
	AssetID string `json:"assetId"`
}

// NewUploader constructs an uploader with sane defaults.
func NewUploader(opts UploaderOptions) *Uploader {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultAPIsURL
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	maxPolls := opts.MaxPolls
	if maxPolls <= 0 {
		maxPolls = defaultMaxPolls
	}
	return &Uploader{
		apiKey:       strings.TrimSpace(opts.APIKey),
		creatorID:    strings.TrimSpace(opts.CreatorID),
		toGroup:      opts.ToGroup,
		baseURL:      baseURL,
		httpClient:   httpClient,
		logger:       infra.LoggerOrDiscard(opts.Logger),
		pollInterval: interval,
		maxPolls:     maxPolls,
	}
}

// HasCredentials reports whether the uploader can perform remote calls.
func (u *Uploader) HasCredentials() bool {
	return u.apiKey != "" && u.creatorID != ""
}

// UploadDecal uploads an image and waits for the create operation to finish,
// returning the new asset id.
func (u *Uploader) UploadDecal(ctx context.Context, req DecalRequest) (domain.AssetID, error) {
	if !u.HasCredentials() {
		return "", ErrMissingCredentials
	}
	if len(req.Data) == 0 {
		return "", domain.ErrEmptyFile
	}
	body, contentType, err := u.encodeCreate(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/assets/v1/assets", body)
	if err != nil {
		return "", fmt.Errorf("roblox: build upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("x-api-key", u.apiKey)

	op, err := u.doOperation(httpReq)
	if err != nil {
		return "", err
	}
	u.logger.Debug().Str("operation", op.Path).Msg("roblox: upload accepted")

	for poll := 0; !op.Done; poll++ {
		if poll >= u.maxPolls {
			return "", fmt.Errorf("roblox: upload operation %s not done after %d polls", op.Path, u.maxPolls)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(u.pollInterval):
		}
		pollReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+"/assets/v1/"+strings.TrimLeft(op.Path, "/"), nil)
		if err != nil {
			return "", fmt.Errorf("roblox: build operation request: %w", err)
		}
		pollReq.Header.Set("x-api-key", u.apiKey)
		if op, err = u.doOperation(pollReq); err != nil {
			return "", err
		}
	}

	if op.Error != nil {
		return "", fmt.Errorf("roblox: upload failed: %s (%d): %w", op.Error.Message, op.Error.Code, domain.ErrProviderFailure)
	}
	if op.Response == nil {
		return "", fmt.Errorf("roblox: upload operation %s finished without asset id: %w", op.Path, domain.ErrProviderFailure)
	}
	assetID, err := domain.ParseAssetID(strings.TrimSpace(op.Response.AssetID))
	if err != nil {
		return "", fmt.Errorf("roblox: upload returned asset id %q: %w", op.Response.AssetID, err)
	}
	u.logger.Info().Str("asset_id", assetID.String()).Msg("roblox: decal uploaded")
	return assetID, nil
}

func (u *Uploader) encodeCreate(req DecalRequest) (io.Reader, string, error) {
	meta := assetCreateRequest{
		AssetType:   "Decal",
		DisplayName: req.DisplayName,
		Description: req.Description,
	}
	if u.toGroup {
		meta.CreationContext.Creator.GroupID = u.creatorID
	} else {
		meta.CreationContext.Creator.UserID = u.creatorID
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, "", fmt.Errorf("roblox: encode upload metadata: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("request", string(metaJSON)); err != nil {
		return nil, "", fmt.Errorf("roblox: write upload metadata: %w", err)
	}
	filename := req.Filename
	if filename == "" {
		filename = "cape.png"
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "image/png"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="fileContent"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("roblox: create file part: %w", err)
	}
	if _, err := part.Write(req.Data); err != nil {
		return nil, "", fmt.Errorf("roblox: write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("roblox: close multipart body: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

func (u *Uploader) doOperation(req *http.Request) (*operation, error) {
	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("roblox: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("roblox: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("roblox: status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(raw)), domain.ErrProviderFailure)
	}
	var op operation
	if err := json.Unmarshal(raw, &op); err != nil {
		return nil, fmt.Errorf("roblox: decode operation: %w", err)
	}
	return &op, nil
}
