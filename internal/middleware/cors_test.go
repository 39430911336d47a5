package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := CORS([]string{"https://dash.example.com/"})(next)

	tests := []struct {
		name        string
		method      string
		origin      string
		preflight   bool
		wantCode    int
		wantAllowed bool
	}{
		{name: "allowed request", method: http.MethodGet, origin: "https://dash.example.com", wantCode: http.StatusTeapot, wantAllowed: true},
		{name: "foreign request", method: http.MethodGet, origin: "https://evil.example.com", wantCode: http.StatusTeapot},
		{name: "no origin", method: http.MethodPost, wantCode: http.StatusTeapot},
		{name: "allowed preflight", method: http.MethodOptions, origin: "https://dash.example.com", preflight: true, wantCode: http.StatusNoContent, wantAllowed: true},
		{name: "foreign preflight", method: http.MethodOptions, origin: "https://evil.example.com", preflight: true, wantCode: http.StatusForbidden},
		{name: "plain options", method: http.MethodOptions, origin: "https://dash.example.com", wantCode: http.StatusTeapot, wantAllowed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/stats", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantAllowed {
				require.Equal(t, tt.origin, rec.Header().Get("Access-Control-Allow-Origin"))
				require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
			} else {
				require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "adopts caller id", incoming: "abc-123", keep: true},
		{name: "missing", incoming: ""},
		{name: "contains space", incoming: "abc 123"},
		{name: "control character", incoming: "abc\x01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header[RequestIDHeader] = []string{tt.incoming}
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.NotEmpty(t, seen)
			require.Equal(t, seen, rec.Header().Get(RequestIDHeader))
			if tt.keep {
				require.Equal(t, tt.incoming, seen)
			} else {
				require.NotEqual(t, tt.incoming, seen)
			}
		})
	}
}
