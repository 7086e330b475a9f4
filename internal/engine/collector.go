package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tartampluch/touch/internal/config"
)

// SourceConfig selects where pending reminders come from.
type SourceConfig struct {
	Mode       string // config.SourceModeWeb or config.SourceModeLocal
	BackendURL string // Base URL of the Touch backend
	Token      string // Bearer token, empty for anonymous
	LocalPath  string // vCard export used in local mode
}

// Collector produces the ranked "needs attention" list the scheduler consumes.
// In web mode it trusts the backend's ranking; in local mode it scores a
// vCard export itself.
type Collector struct {
	Clock   Clock           // Interface for time mocking.
	Fetcher ReminderFetcher // Interface for network abstraction.
}

// Collect returns pending reminders ordered by urgency.
func (c *Collector) Collect(ctx context.Context, cfg SourceConfig) ([]ReminderEntry, error) {
	start := time.Now()
	log := slog.With(
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyMode, cfg.Mode,
	)
	log.InfoContext(ctx, config.MsgCollectStarted)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		entries []ReminderEntry
		err     error
	)
	switch cfg.Mode {
	case config.SourceModeWeb:
		entries, err = c.collectWeb(ctx, cfg)
	case config.SourceModeLocal:
		entries, err = c.collectLocal(ctx, cfg)
	default:
		err = fmt.Errorf("%s: %q", config.ErrModeUnsupport, cfg.Mode)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	log.Info(config.MsgCollectDone,
		config.LogKeyCount, len(entries),
		config.LogKeyDuration, time.Since(start).Milliseconds())
	return entries, nil
}

func (c *Collector) collectWeb(ctx context.Context, cfg SourceConfig) ([]ReminderEntry, error) {
	if cfg.BackendURL == "" {
		return nil, errors.New(config.ErrBackendURLEmpty)
	}
	if c.Fetcher == nil {
		return nil, errors.New(config.ErrFetcherMissing)
	}
	return c.Fetcher.PendingReminders(ctx, cfg.BackendURL, cfg.Token)
}

func (c *Collector) collectLocal(ctx context.Context, cfg SourceConfig) ([]ReminderEntry, error) {
	if cfg.LocalPath == "" {
		return nil, errors.New(config.ErrLocalPathEmpty)
	}

	f, err := os.Open(cfg.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrVCardParse, err)
	}
	// Best effort close on a read-only file.
	defer func() { _ = f.Close() }()

	contacts, err := readContacts(ctx, f)
	if err != nil {
		return nil, err
	}
	return NeedsAttention(contacts, c.now()), nil
}

func (c *Collector) now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock.Now()
}
