package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"capedash/internal/discord"
	"capedash/internal/domain"
	"capedash/internal/infra"
	"capedash/internal/providers/roblox"
	"capedash/internal/storage"
)

type stubResolver struct {
	mu      sync.Mutex
	budgets []int
	result  roblox.Resolution
}

func (s *stubResolver) Resolve(_ context.Context, raw string, maxRetries int) roblox.Resolution {
	s.mu.Lock()
	s.budgets = append(s.budgets, maxRetries)
	s.mu.Unlock()
	id, err := domain.ParseAssetID(raw)
	if err != nil {
		return roblox.Resolution{Outcome: roblox.OutcomeInvalid}
	}
	res := s.result
	res.AssetID = id
	return res
}

func (s *stubResolver) lastBudget() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.budgets) == 0 {
		return 0
	}
	return s.budgets[len(s.budgets)-1]
}

type stubUploader struct {
	assetID domain.AssetID
	err     error
	got     roblox.DecalRequest
}

func (s *stubUploader) UploadDecal(_ context.Context, req roblox.DecalRequest) (domain.AssetID, error) {
	s.got = req
	return s.assetID, s.err
}

type stubBot struct {
	stats   map[string]any
	ok      bool
	tickets []any
	err     error
}

func (s stubBot) Stats(context.Context) (map[string]any, bool, error) { return s.stats, s.ok, s.err }

func (s stubBot) Tickets(context.Context) ([]any, error) { return s.tickets, s.err }

type stubGuild struct {
	counts discord.GuildCounts
	staff  bool
	err    error
}

func (s stubGuild) MainGuildID() string { return "42" }

func (s stubGuild) GuildCounts(context.Context) (discord.GuildCounts, error) { return s.counts, s.err }

func (s stubGuild) IsStaff(context.Context, string) (bool, error) { return s.staff, s.err }

var errBotDown = errors.New("bot down")

func newTestApp(t *testing.T, files map[string]string) *App {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	store, err := storage.NewFileStore(dir)
	require.NoError(t, err)
	return &App{
		Config: &infra.Config{
			SessionSecret:        "test-secret",
			UploadResolveRetries: 3,
			StatusResolveRetries: 10,
			UploadMaxBytes:       1 << 20,
		},
		Logger:   infra.NewLogger("test"),
		Data:     storage.NewBotData(store, nil),
		Resolver: &stubResolver{},
		Now:      func() time.Time { return time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC) },
	}
}

// routes mounts the handlers that read URL params the same way the API router
// does.
func routes(a *App) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/user/{user_id}/points", a.UserPoints)
	r.Get("/api/user/{user_id}/purchases", a.UserPurchases)
	r.Get("/api/quota/moderation/{user_id}", a.ModerationQuota)
	r.Get("/api/quota/evmd/{user_id}", a.EVMDQuota)
	r.Get("/api/tickets", a.Tickets)
	r.Get("/api/tickets/{ticket_id}", a.Ticket)
	r.Get("/api/stats", a.Stats)
	r.Post("/api/upload-cape", a.UploadCape)
	r.Get("/api/cape-status/{asset_id}", a.CapeStatus)
	r.Get("/api/capes/history", a.CapeHistory)
	return r
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: domain.ErrInvalidAssetID, want: http.StatusBadRequest},
		{err: fmt.Errorf("roblox: %w", domain.ErrEmptyFile), want: http.StatusBadRequest},
		{err: domain.ErrUnauthorized, want: http.StatusUnauthorized},
		{err: domain.ErrForbidden, want: http.StatusForbidden},
		{err: domain.ErrNotFound, want: http.StatusNotFound},
		{err: roblox.ErrMissingCredentials, want: http.StatusInternalServerError},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			require.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestNotFound(t *testing.T) {
	app := newTestApp(t, nil)
	rec := serve(http.HandlerFunc(app.NotFound), httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
}
