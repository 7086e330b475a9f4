// Package device stores scheduled notifications in a local SQLite queue and
// delivers them when they fall due. It stands in for the notification
// scheduler a mobile OS would provide.
package device

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tartampluch/touch/internal/config"
	"github.com/tartampluch/touch/internal/engine"
	"github.com/tartampluch/touch/internal/scheduler"
)

//go:embed schema.sql
var schema string

const grantNotifications = "notifications"

// ErrInvalidTrigger is returned by Schedule for triggers that would never fire.
var ErrInvalidTrigger = errors.New(config.ErrQueueTrigger)

// PermissionPrompt asks the user whether notifications may be shown.
type PermissionPrompt func(ctx context.Context) (bool, error)

// Option configures a Queue.
type Option func(*Queue)

// WithClock overrides the time source used for fire times.
func WithClock(c engine.Clock) Option {
	return func(q *Queue) { q.clock = c }
}

// WithPermissionPrompt sets the prompt used until permission is granted.
// Without one, permission is denied.
func WithPermissionPrompt(p PermissionPrompt) Option {
	return func(q *Queue) { q.prompt = p }
}

// Queue implements scheduler.NotificationService on top of SQLite.
type Queue struct {
	db     *sql.DB
	clock  engine.Clock
	prompt PermissionPrompt

	// deliverMu keeps concurrent DeliverDue calls from handing out the same
	// row twice.
	deliverMu sync.Mutex
}

var _ scheduler.NotificationService = (*Queue)(nil)

// Open opens (or creates) the queue database at path.
func Open(path string, opts ...Option) (*Queue, error) {
	db, err := sql.Open(config.SQLDriver, path+config.SQLDSNOptions)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrQueueOpen, err)
	}
	// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrQueueSchema, err)
	}

	q := &Queue{db: db, clock: engine.RealClock{}}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Close closes the database connection.
func (q *Queue) Close() error {
	return q.db.Close()
}

// Granted reports whether notification permission was granted earlier.
func (q *Queue) Granted(ctx context.Context) (bool, error) {
	var granted bool
	err := q.db.QueryRowContext(ctx,
		"SELECT granted FROM grants WHERE name = ?", grantNotifications,
	).Scan(&granted)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read grant: %w", err)
	}
	return granted, nil
}

// SetGranted records the permission answer.
func (q *Queue) SetGranted(ctx context.Context, granted bool) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO grants (name, granted, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET granted = excluded.granted, updated_at = excluded.updated_at`,
		grantNotifications, granted, q.clock.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("store grant: %w", err)
	}
	return nil
}

// RequestPermission returns a remembered grant, or asks the prompt. Only a
// positive answer is remembered so a refusal can be revisited.
func (q *Queue) RequestPermission(ctx context.Context) (bool, error) {
	granted, err := q.Granted(ctx)
	if err != nil || granted {
		return granted, err
	}
	if q.prompt == nil {
		return false, nil
	}

	granted, err = q.prompt(ctx)
	if err != nil {
		return false, err
	}
	if granted {
		if err := q.SetGranted(ctx, true); err != nil {
			return false, err
		}
	}
	return granted, nil
}

// ConfigureChannel creates or updates a channel.
func (q *Queue) ConfigureChannel(ctx context.Context, id string, ch scheduler.Channel) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO channels (id, name, importance, description) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, importance = excluded.importance, description = excluded.description`,
		id, ch.Name, int(ch.Importance), ch.Description,
	)
	if err != nil {
		return fmt.Errorf("configure channel: %w", err)
	}
	return nil
}

// Channels returns every configured channel keyed by id.
func (q *Queue) Channels(ctx context.Context) (map[string]scheduler.Channel, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT id, name, importance, description FROM channels")
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	channels := make(map[string]scheduler.Channel)
	for rows.Next() {
		var (
			id         string
			ch         scheduler.Channel
			importance int
		)
		if err := rows.Scan(&id, &ch.Name, &importance, &ch.Description); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		ch.Importance = scheduler.Importance(importance)
		channels[id] = ch
	}
	return channels, rows.Err()
}

// Schedule stores n, replacing any notification with the same identifier.
// An empty identifier gets a generated UUID.
func (q *Queue) Schedule(ctx context.Context, n scheduler.Notification) (string, error) {
	if n.Trigger.Seconds <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidTrigger, n.Trigger.Seconds)
	}
	if n.Trigger.Kind == "" {
		n.Trigger.Kind = scheduler.TriggerDelay
	}
	if n.Identifier == "" {
		n.Identifier = uuid.New().String()
	}

	data, err := json.Marshal(n.Data)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	now := q.clock.Now()
	fireAt := now.Add(n.Trigger.Period())

	_, err = q.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO notifications
		 (id, title, body, data, channel_id, trigger_kind, trigger_seconds, repeats, fire_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.Identifier, n.Title, n.Body, string(data), n.ChannelID,
		string(n.Trigger.Kind), n.Trigger.Seconds, n.Trigger.Repeats,
		fireAt.Unix(), now.Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("insert notification: %w", err)
	}

	slog.Debug(config.MsgQueued,
		config.LogKeyComponent, config.CompQueue,
		config.LogKeyID, n.Identifier,
		config.LogKeyType, n.Type(),
		config.LogKeyDelay, n.Trigger.Seconds)
	return n.Identifier, nil
}

// Cancel removes a notification. Unknown identifiers are ignored.
func (q *Queue) Cancel(ctx context.Context, identifier string) error {
	if _, err := q.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = ?", identifier); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

// CancelAll empties the queue.
func (q *Queue) CancelAll(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, "DELETE FROM notifications"); err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}
	return nil
}

// ListScheduled returns pending notifications, soonest first.
func (q *Queue) ListScheduled(ctx context.Context) ([]scheduler.Notification, error) {
	return q.query(ctx, selectNotifications+" ORDER BY fire_at, rowid")
}

const selectNotifications = `SELECT id, title, body, data, channel_id, trigger_kind, trigger_seconds, repeats, fire_at FROM notifications`

func (q *Queue) query(ctx context.Context, stmt string, args ...any) ([]scheduler.Notification, error) {
	rows, err := q.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []scheduler.Notification
	for rows.Next() {
		var (
			n      scheduler.Notification
			data   string
			kind   string
			fireAt int64
		)
		if err := rows.Scan(&n.Identifier, &n.Title, &n.Body, &data, &n.ChannelID,
			&kind, &n.Trigger.Seconds, &n.Trigger.Repeats, &fireAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &n.Data); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		n.Trigger.Kind = scheduler.TriggerKind(kind)
		n.FireAt = time.Unix(fireAt, 0)
		out = append(out, n)
	}
	return out, rows.Err()
}
