package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Tickets proxies the bot's ticket list; an unreachable bot yields [].
func (a *App) Tickets(w http.ResponseWriter, r *http.Request) {
	if a.Bot != nil {
		tickets, err := a.Bot.Tickets(r.Context())
		if err == nil && len(tickets) > 0 {
			a.json(w, http.StatusOK, tickets)
			return
		}
		if err != nil {
			a.log(r).Debug().Err(err).Msg("tickets: bot api not available")
		}
	}
	a.json(w, http.StatusOK, []any{})
}

func (a *App) Ticket(w http.ResponseWriter, r *http.Request) {
	a.error(w, http.StatusNotImplemented, "Not implemented yet")
}

func (a *App) UserPoints(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	a.json(w, http.StatusOK, map[string]int{"points": a.Data.Points(r.Context(), userID)})
}

func (a *App) UserPurchases(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	a.json(w, http.StatusOK, map[string]any{"purchases": a.Data.Purchases(r.Context(), userID)})
}

// ModerationQuota returns the whole quota document; the dashboard picks the
// user's entry.
func (a *App) ModerationQuota(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"quota": a.Data.ModerationQuota(r.Context())})
}

func (a *App) EVMDQuota(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"quota": a.Data.EVMDQuota(r.Context())})
}
