package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"capedash/internal/discord"
	"capedash/internal/domain"
	"capedash/internal/infra"
	"capedash/internal/providers/roblox"
	"capedash/internal/storage"
)

// ImageResolver maps an uploaded asset id to its image id.
type ImageResolver interface {
	Resolve(ctx context.Context, assetID string, maxRetries int) roblox.Resolution
}

// DecalUploader uploads an image to Roblox and returns the new asset id.
type DecalUploader interface {
	UploadDecal(ctx context.Context, req roblox.DecalRequest) (domain.AssetID, error)
}

// BotAPI is the bot's local HTTP API.
type BotAPI interface {
	Stats(ctx context.Context) (map[string]any, bool, error)
	Tickets(ctx context.Context) ([]any, error)
}

// GuildDirectory reads guild and member data through the bot account.
type GuildDirectory interface {
	MainGuildID() string
	GuildCounts(ctx context.Context) (discord.GuildCounts, error)
	IsStaff(ctx context.Context, userID string) (bool, error)
}

// App carries the process-wide dependencies of the HTTP handlers. Optional
// collaborators are nil when not configured.
type App struct {
	Config   *infra.Config
	Logger   infra.Logger
	Data     *storage.BotData
	Bot      BotAPI
	Guild    GuildDirectory
	Resolver ImageResolver
	Uploader DecalUploader
	OAuth    *oauth2.Config
	Identity discord.IdentityFetcher
	Now      func() time.Time
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// log returns the request scoped logger installed by the access log
// middleware, falling back to the application logger.
func (a *App) log(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]any{"error": message})
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAssetID), errors.Is(err, domain.ErrEmptyFile):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// NotFound answers unknown routes with a JSON error.
func (a *App) NotFound(w http.ResponseWriter, r *http.Request) {
	a.error(w, statusFor(domain.ErrNotFound), "not found")
}
