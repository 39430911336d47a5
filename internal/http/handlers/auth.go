package handlers

import (
	"context"
	"html"
	"net/http"
	"time"

	"github.com/google/uuid"

	"capedash/internal/domain"
	"capedash/internal/middleware"
)

const (
	oauthStateCookie = "capedash_oauth_state"
	sessionTTL       = 7 * 24 * time.Hour
	loginRedirect    = "/dashboard.html?logged_in=true"
)

func (a *App) secureCookies() bool {
	return a.Config != nil && a.Config.AppEnv == "production"
}

// AuthLogin redirects to Discord's consent screen.
func (a *App) AuthLogin(w http.ResponseWriter, r *http.Request) {
	if a.OAuth == nil || a.OAuth.ClientID == "" {
		a.error(w, http.StatusInternalServerError, "Discord OAuth not configured. Please add DISCORD_CLIENT_ID to .env file")
		return
	}
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   a.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, a.OAuth.AuthCodeURL(state), http.StatusFound)
}

// AuthCallback completes the authorization-code flow and starts a session.
func (a *App) AuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if oauthErr := q.Get("error"); oauthErr != "" {
		a.errorPage(w, http.StatusBadRequest, "OAuth Error: "+oauthErr)
		return
	}
	code := q.Get("code")
	if code == "" {
		a.error(w, http.StatusBadRequest, "No code provided")
		return
	}
	if a.OAuth == nil || a.Identity == nil {
		a.error(w, http.StatusInternalServerError, "Discord OAuth not configured")
		return
	}
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != q.Get("state") {
		a.error(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/api/auth", MaxAge: -1})

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	token, err := a.OAuth.Exchange(ctx, code)
	if err != nil {
		a.log(r).Error().Err(err).Msg("auth: code exchange failed")
		a.errorPage(w, http.StatusInternalServerError, "Failed to get access token. Check your Discord OAuth settings.")
		return
	}
	user, err := a.Identity.Identity(ctx, token)
	if err != nil {
		a.log(r).Error().Err(err).Msg("auth: identity lookup failed")
		a.errorPage(w, http.StatusInternalServerError, "Failed to load Discord profile.")
		return
	}
	if a.Config != nil && a.Config.RequireStaffRole {
		allowed := false
		if a.Guild != nil {
			allowed, err = a.Guild.IsStaff(ctx, user.ID)
			if err != nil {
				a.log(r).Warn().Err(err).Str("user_id", user.ID).Msg("auth: staff check failed")
			}
		}
		if !allowed {
			a.errorPage(w, statusFor(domain.ErrForbidden), "Your Discord account does not have a staff role.")
			return
		}
	}

	sessionToken, err := middleware.SignSession(a.Config.SessionSecret, middleware.SessionClaims{
		User:   user,
		Exp:    a.now().Add(sessionTTL).Unix(),
		Issuer: "capedash",
	})
	if err != nil {
		a.log(r).Error().Err(err).Msg("auth: sign session failed")
		a.error(w, http.StatusInternalServerError, "failed to start session")
		return
	}
	middleware.SetSessionCookie(w, sessionToken, sessionTTL, a.secureCookies())
	a.log(r).Info().Str("user_id", user.ID).Str("username", user.Username).Msg("auth: logged in")
	http.Redirect(w, r, loginRedirect, http.StatusFound)
}

// AuthMe returns the logged in user.
func (a *App) AuthMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.SessionUserFromContext(r.Context())
	if !ok {
		a.error(w, statusFor(domain.ErrUnauthorized), "Not authenticated")
		return
	}
	if user.Roles == nil {
		user.Roles = []string{}
	}
	if user.Discriminator == "" {
		user.Discriminator = "0"
	}
	a.json(w, http.StatusOK, user)
}

// AuthLogout ends the session.
func (a *App) AuthLogout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearSessionCookie(w, a.secureCookies())
	a.json(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *App) errorPage(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte("<html><body><h1>" + html.EscapeString(message) +
		`</h1><p><a href="/dashboard.html">Go back to login</a></p></body></html>`))
}
