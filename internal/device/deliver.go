package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tartampluch/touch/internal/config"
	"github.com/tartampluch/touch/internal/scheduler"
)

// Deliverer shows a due notification to the user.
type Deliverer interface {
	Deliver(ctx context.Context, n scheduler.Notification) error
}

// DeliverFunc adapts a function to Deliverer.
type DeliverFunc func(ctx context.Context, n scheduler.Notification) error

// Deliver calls f.
func (f DeliverFunc) Deliver(ctx context.Context, n scheduler.Notification) error {
	return f(ctx, n)
}

// DeliverDue hands every notification whose fire time has passed to d.
// One-shot notifications are removed afterwards; repeating ones move to their
// next occurrence after now. A failed delivery stays queued for the next pass.
func (q *Queue) DeliverDue(ctx context.Context, d Deliverer) (int, error) {
	q.deliverMu.Lock()
	defer q.deliverMu.Unlock()

	now := q.clock.Now().Unix()
	due, err := q.query(ctx, selectNotifications+" WHERE fire_at <= ? ORDER BY fire_at, rowid", now)
	if err != nil {
		return 0, err
	}

	log := slog.With(config.LogKeyComponent, config.CompQueue)
	var errs []error
	delivered := 0
	for _, n := range due {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		if err := d.Deliver(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %s: %w", config.ErrQueueDeliver, n.Identifier, err))
			continue
		}
		delivered++

		if n.Trigger.Repeats {
			err = q.advance(ctx, n, now)
		} else {
			err = q.Cancel(ctx, n.Identifier)
		}
		if err != nil {
			errs = append(errs, err)
		}

		log.Info(config.MsgDelivered,
			config.LogKeyID, n.Identifier,
			config.LogKeyType, n.Type())
	}
	if len(due) > 0 {
		log.Debug(config.MsgDelivered,
			config.LogKeyDelivered, delivered,
			config.LogKeyCount, len(due))
	}
	return delivered, errors.Join(errs...)
}

// advance moves a repeating notification to its first occurrence after now,
// skipping periods missed while the host was asleep.
func (q *Queue) advance(ctx context.Context, n scheduler.Notification, now int64) error {
	period := n.Trigger.Seconds
	fireAt := n.FireAt.Unix()
	next := fireAt + ((now-fireAt)/period+1)*period

	_, err := q.db.ExecContext(ctx, "UPDATE notifications SET fire_at = ? WHERE id = ?", next, n.Identifier)
	if err != nil {
		return fmt.Errorf("reschedule notification: %w", err)
	}
	return nil
}

// Run delivers due notifications every interval until ctx is cancelled.
func (q *Queue) Run(ctx context.Context, every time.Duration, d Deliverer) error {
	if every <= 0 {
		every = config.DefaultDispatchInterval
	}
	log := slog.With(
		config.LogKeyComponent, config.CompQueue,
		config.LogKeyInterval, every.String(),
	)
	log.Info(config.MsgWorkerStart)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if _, err := q.DeliverDue(ctx, d); err != nil && ctx.Err() == nil {
			log.Warn(config.ErrQueueDeliver, config.LogKeyError, err)
		}

		select {
		case <-ctx.Done():
			log.Info(config.MsgWorkerStop)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
