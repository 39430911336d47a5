package handlers

import (
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"capedash/internal/domain"
	"capedash/internal/middleware"
	"capedash/internal/providers/roblox"
	"capedash/internal/storage"
)

const (
	statusCompleted  = "completed"
	statusProcessing = "processing"

	defaultUploadMaxBytes = 10 << 20
)

type uploadResponse struct {
	Success bool    `json:"success"`
	AssetID string  `json:"asset_id"`
	ImageID *string `json:"image_id"`
	Status  string  `json:"status"`
	Message string  `json:"message"`
}

type capeStatusResponse struct {
	AssetID   string  `json:"asset_id"`
	ImageID   *string `json:"image_id"`
	Status    string  `json:"status"`
	Source    string  `json:"source,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
}

type capeHistoryResponse struct {
	Username string              `json:"username"`
	Capes    []domain.CapeRecord `json:"capes"`
	Total    int                 `json:"total"`
}

// UploadCape uploads the posted image as a decal and makes a short attempt
// at resolving its image id. The dashboard polls CapeStatus when the id is
// not ready yet.
func (a *App) UploadCape(w http.ResponseWriter, r *http.Request) {
	if a.Uploader == nil {
		a.json(w, statusFor(domain.ErrUploadUnavailable), map[string]any{
			"error":   "Roblox upload not configured. Please set ROBLOX_API_KEY and ROBLOX_CREATOR_ID in .env file.",
			"success": false,
		})
		return
	}
	maxBytes := int64(defaultUploadMaxBytes)
	if a.Config != nil && a.Config.UploadMaxBytes > 0 {
		maxBytes = a.Config.UploadMaxBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		a.error(w, http.StatusBadRequest, "No file provided")
		return
	}
	file, header, err := r.FormFile("cape_image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		a.error(w, http.StatusBadRequest, "No file selected")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "Failed to read file")
		return
	}
	if len(data) == 0 {
		a.error(w, http.StatusBadRequest, "Empty file")
		return
	}

	uploadedBy := ""
	if user, ok := middleware.SessionUserFromContext(r.Context()); ok {
		uploadedBy = user.ID
	}
	assetID, err := a.Uploader.UploadDecal(r.Context(), roblox.DecalRequest{
		DisplayName: "Cape Upload - " + a.now().Format("20060102_150405"),
		Description: "Cape uploaded via website",
		Filename:    header.Filename,
		ContentType: http.DetectContentType(data),
		Data:        data,
	})
	if err != nil {
		a.log(r).Error().Err(err).Str("user_id", uploadedBy).Msg("capes: upload failed")
		a.json(w, statusFor(err), map[string]any{
			"error":   "Upload failed: " + err.Error(),
			"success": false,
		})
		return
	}
	a.log(r).Info().Str("asset_id", assetID.String()).Str("user_id", uploadedBy).Msg("capes: uploaded")

	resp := uploadResponse{Success: true, AssetID: assetID.String(), Status: statusProcessing}
	res := a.Resolver.Resolve(r.Context(), assetID.String(), a.uploadRetries())
	if res.Resolved() {
		id := res.ImageID.String()
		resp.ImageID = &id
		resp.Status = statusCompleted
		resp.Message = "Upload successful! Asset ID: " + resp.AssetID + ". Image ID: " + id
	} else {
		resp.Message = "Upload successful! Asset ID: " + resp.AssetID + ". Image ID: Resolving..."
	}
	a.json(w, http.StatusOK, resp)
}

// CapeStatus resolves the image id of an uploaded asset with a larger retry
// budget, then falls back to what the bot has recorded.
func (a *App) CapeStatus(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "asset_id")
	res := a.Resolver.Resolve(r.Context(), raw, a.statusRetries())
	switch res.Outcome {
	case roblox.OutcomeInvalid:
		a.json(w, statusFor(domain.ErrInvalidAssetID), map[string]any{"error": domain.ErrInvalidAssetID.Error(), "asset_id": raw})
		return
	case roblox.OutcomeResolved:
		id := res.ImageID.String()
		a.json(w, http.StatusOK, capeStatusResponse{
			AssetID:   res.AssetID.String(),
			ImageID:   &id,
			Status:    statusCompleted,
			Source:    res.Source,
			Timestamp: a.now().Format(time.RFC3339),
		})
		return
	}

	assetID := res.AssetID.String()
	if a.Data != nil {
		if rec, ok := a.Data.FindCape(r.Context(), assetID); ok {
			a.json(w, http.StatusOK, capeStatusResponse{
				AssetID:   assetID,
				ImageID:   &rec.ImageID,
				Status:    statusCompleted,
				Source:    "cape_log",
				Timestamp: a.timestampOrNow(rec.Timestamp),
			})
			return
		}
		if p, ok := a.Data.FindPurchaseByDecal(r.Context(), assetID); ok {
			decal := p.DecalID()
			a.json(w, http.StatusOK, capeStatusResponse{
				AssetID:   assetID,
				ImageID:   &decal,
				Status:    statusCompleted,
				Source:    "purchase",
				Timestamp: a.timestampOrNow(p.Timestamp()),
			})
			return
		}
	}
	a.json(w, http.StatusOK, capeStatusResponse{AssetID: assetID, Status: statusProcessing})
}

// CapeHistory lists capes from the cape log, or from purchases when the log
// is empty, newest first.
func (a *App) CapeHistory(w http.ResponseWriter, r *http.Request) {
	upper := cases.Upper(language.Und)
	filter := upper.String(strings.ReplaceAll(r.URL.Query().Get("username"), "+", " "))

	capes := a.Data.CapeLogs(r.Context())
	if len(capes) == 0 {
		capes = storage.PurchaseRecords(a.Data.AllPurchases(r.Context()))
	}
	if filter != "" {
		filtered := capes[:0]
		for _, c := range capes {
			if strings.Contains(upper.String(c.Username), filter) {
				filtered = append(filtered, c)
			}
		}
		capes = filtered
	}
	sort.SliceStable(capes, func(i, j int) bool { return capes[i].Timestamp > capes[j].Timestamp })
	if capes == nil {
		capes = []domain.CapeRecord{}
	}

	label := filter
	if label == "" {
		label = "ALL"
	}
	a.log(r).Debug().Int("total", len(capes)).Msg("capes: history loaded")
	a.json(w, http.StatusOK, capeHistoryResponse{Username: label, Capes: capes, Total: len(capes)})
}

func (a *App) uploadRetries() int {
	if a.Config != nil && a.Config.UploadResolveRetries > 0 {
		return a.Config.UploadResolveRetries
	}
	return 3
}

func (a *App) statusRetries() int {
	if a.Config != nil && a.Config.StatusResolveRetries > 0 {
		return a.Config.StatusResolveRetries
	}
	return 10
}

func (a *App) timestampOrNow(ts string) string {
	if ts != "" {
		return ts
	}
	return a.now().Format(time.RFC3339)
}
