package engine_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/touch/internal/config"
	"github.com/tartampluch/touch/internal/engine"
)

const pendingBody = `{
  "reminders": [
    {"id": "c1", "contact_id": "c1", "contact_name": "Ada Lovelace", "relationship_tag": "Mentor",
     "message": "It's been 20 days since you connected with Ada.", "health": 0, "days_overdue": 6,
     "priority": "warm", "status": "pending", "avatar_color": "#457B9D"},
    {"id": "c2", "contact_id": "c2", "contact_name": "Grace", "relationship_tag": "Friend",
     "message": "", "health": 12.5, "days_overdue": 1, "priority": "gentle", "status": "pending"}
  ],
  "total": 2
}`

// TestHTTPFetcher_PendingReminders_Success verifies headers, route and decoding.
func TestHTTPFetcher_PendingReminders_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, config.RoutePendingReminders, r.URL.Path)
		assert.Equal(t, config.BearerPrefix+"secret", r.Header.Get("Authorization"))
		assert.Equal(t, config.UserAgent, r.Header.Get("User-Agent"), "User-Agent mismatch")

		w.Header().Set("Content-Type", config.MimeJSON)
		_, _ = w.Write([]byte(pendingBody))
	}))
	defer ts.Close()

	fetcher := engine.NewHTTPFetcher()
	entries, err := fetcher.PendingReminders(context.Background(), ts.URL+"/", "secret")

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c1", entries[0].ContactID)
	assert.Equal(t, "Ada Lovelace", entries[0].ContactName)
	assert.Equal(t, engine.TagMentor, entries[0].RelationshipTag)
	assert.Equal(t, 6, entries[0].DaysOverdue)
	assert.InDelta(t, 12.5, entries[1].Health, 0.001)
	assert.Empty(t, entries[1].Message)
}

// TestHTTPFetcher_PendingReminders_NoToken ensures anonymous calls omit the header.
func TestHTTPFetcher_PendingReminders_NoToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"reminders": [], "total": 0}`))
	}))
	defer ts.Close()

	entries, err := engine.NewHTTPFetcher().PendingReminders(context.Background(), ts.URL, "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestHTTPFetcher_PendingReminders_Errors verifies proper error handling for non-200 statuses.
func TestHTTPFetcher_PendingReminders_Errors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    string
	}{
		{"NotFound", http.StatusNotFound, "404"},
		{"ServerError", http.StatusInternalServerError, "500"},
		{"Unauthorized", http.StatusUnauthorized, "401"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer ts.Close()

			entries, err := engine.NewHTTPFetcher().PendingReminders(context.Background(), ts.URL, "")

			assert.Error(t, err)
			assert.Nil(t, entries)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// TestHTTPFetcher_PendingReminders_BadJSON reports decode failures.
func TestHTTPFetcher_PendingReminders_BadJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer ts.Close()

	_, err := engine.NewHTTPFetcher().PendingReminders(context.Background(), ts.URL, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrDecodeReminders)
}

// TestHTTPFetcher_InvalidInput checks URL validation before any network call.
func TestHTTPFetcher_InvalidInput(t *testing.T) {
	fetcher := engine.NewHTTPFetcher()

	t.Run("InvalidProtocol", func(t *testing.T) {
		_, err := fetcher.PendingReminders(context.Background(), "ftp://example.com", "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), config.ErrProtocol)
	})

	t.Run("MalformedURL", func(t *testing.T) {
		_, err := fetcher.PendingReminders(context.Background(), "://bad-url", "")
		assert.Error(t, err)
	})
}

// TestHTTPFetcher_ContextCancel ensures the request respects context cancellation.
func TestHTTPFetcher_ContextCancel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`{"reminders": []}`))
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.NewHTTPFetcher().PendingReminders(ctx, ts.URL, "")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "context canceled"))
}
