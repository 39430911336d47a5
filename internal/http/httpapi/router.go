package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"capedash/internal/http/handlers"
	"capedash/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(app.Logger),
		chimw.Recoverer,
		middleware.CORS(app.Config.CORSAllowedOrigins),
		middleware.Session(app.Config.SessionSecret),
	)

	r.NotFound(app.NotFound)

	// Health
	r.Get("/v1/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", app.AuthLogin)
			r.Get("/callback", app.AuthCallback)
			r.Get("/me", app.AuthMe)
			r.Post("/logout", app.AuthLogout)
		})

		r.Get("/stats", app.Stats)
		r.Get("/tickets", app.Tickets)
		r.Get("/tickets/{ticket_id}", app.Ticket)

		r.Route("/user/{user_id}", func(r chi.Router) {
			r.Get("/points", app.UserPoints)
			r.Get("/purchases", app.UserPurchases)
		})
		r.Route("/quota", func(r chi.Router) {
			r.Get("/moderation/{user_id}", app.ModerationQuota)
			r.Get("/evmd/{user_id}", app.EVMDQuota)
		})

		r.With(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute)).Post("/upload-cape", app.UploadCape)
		r.Get("/cape-status/{asset_id}", app.CapeStatus)
		r.Get("/capes/history", app.CapeHistory)
	})

	return r
}
