package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tartampluch/touch/internal/config"
)

// ReminderFetcher defines the contract for retrieving the backend's ranked
// "needs attention" list. This interface allows for mocking in tests.
type ReminderFetcher interface {
	PendingReminders(ctx context.Context, baseURL, token string) ([]ReminderEntry, error)
}

// HTTPFetcher implements ReminderFetcher against the Touch REST API.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher creates a new instance of HTTPFetcher with configured timeouts.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{
			Timeout: config.HTTPTimeout,
		},
	}
}

// PendingReminders calls GET {baseURL}/api/notifications/pending.
// The URL is sanitized before logging and the response size is capped.
func (f *HTTPFetcher) PendingReminders(ctx context.Context, baseURL, token string) ([]ReminderEntry, error) {
	targetURL := strings.TrimRight(baseURL, "/") + config.RoutePendingReminders

	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}

	// Query parameters may carry tokens; keep them out of logs.
	safeURL := u.Scheme + "://" + u.Host + u.Path
	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompFetcher),
		slog.String(config.LogKeyURL, safeURL),
	)
	log.Debug("Requesting pending reminders")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	req.Header.Set(config.HeaderAccept, config.MimeJSON)
	if token != "" {
		req.Header.Set(config.HeaderAuthorization, config.BearerPrefix+token)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error during fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		log.Warn("Server returned error status",
			slog.Int(config.LogKeyStatus, resp.StatusCode),
		)
		return nil, fmt.Errorf("server returned unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	var payload pendingResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, config.MaxHTTPResponseSize)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrDecodeReminders, err)
	}

	for i := range payload.Reminders {
		payload.Reminders[i].Message = PlainText(payload.Reminders[i].Message)
	}

	log.Info("Pending reminders received",
		slog.Int(config.LogKeyCount, len(payload.Reminders)),
	)
	return payload.Reminders, nil
}
