package botapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatsPassthrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/stats", r.URL.Path)
		_, _ = w.Write([]byte(`{"totalMembers": 120, "onlineUsers": 8}`))
	}))
	defer server.Close()

	stats, ok, err := NewClient(Options{BaseURL: server.URL}).Stats(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, json.Number("120"), stats["totalMembers"])
}

func TestStatsWithoutMembersIsNotUsable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"onlineUsers": 8}`))
	}))
	defer server.Close()

	_, ok, err := NewClient(Options{BaseURL: server.URL}).Stats(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTickets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": "1"}, {"id": "2"}]`))
	}))
	defer server.Close()

	tickets, err := NewClient(Options{BaseURL: server.URL + "/"}).Tickets(context.Background())
	require.NoError(t, err)
	require.Len(t, tickets, 2)
}

func TestTicketsKeepSnowflakes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"channel_id": 1234567890123456789}]`))
	}))
	defer server.Close()

	tickets, err := NewClient(Options{BaseURL: server.URL}).Tickets(context.Background())
	require.NoError(t, err)
	require.Len(t, tickets, 1)

	out, err := json.Marshal(tickets)
	require.NoError(t, err)
	require.JSONEq(t, `[{"channel_id": 1234567890123456789}]`, string(out))
	require.Contains(t, string(out), "1234567890123456789")
}

func TestTimeoutAndStatusErrors(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer slow.Close()
	_, _, err := NewClient(Options{BaseURL: slow.URL, StatsTimeout: 20 * time.Millisecond}).Stats(context.Background())
	require.Error(t, err)

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()
	_, err = NewClient(Options{BaseURL: broken.URL}).Tickets(context.Background())
	require.Error(t, err)
}
