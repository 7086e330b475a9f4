package device_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/touch/internal/config"
	"github.com/tartampluch/touch/internal/device"
	"github.com/tartampluch/touch/internal/engine"
	"github.com/tartampluch/touch/internal/scheduler"
)

// MockClock is a settable clock shared between the queue and the test.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recorder collects delivered notifications.
type recorder struct {
	mu   sync.Mutex
	got  []scheduler.Notification
	fail error
}

func (r *recorder) Deliver(_ context.Context, n scheduler.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.got = append(r.got, n)
	return nil
}

func (r *recorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, n := range r.got {
		ids = append(ids, n.Identifier)
	}
	return ids
}

func openQueue(t *testing.T, opts ...device.Option) (*device.Queue, *MockClock) {
	t.Helper()
	clock := &MockClock{now: time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)}
	opts = append([]device.Option{device.WithClock(clock)}, opts...)

	q, err := device.Open(filepath.Join(t.TempDir(), config.QueueFileName), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q, clock
}

func reminder(id string, delay int64) scheduler.Notification {
	return scheduler.Notification{
		Identifier: id,
		Title:      "Touch — " + id,
		Body:       "ping",
		Data:       map[string]string{config.DataKeyType: config.TypeReminder, config.DataKeyContactID: id},
		ChannelID:  config.ChannelReminders,
		Trigger:    scheduler.Delay(delay),
	}
}

func TestQueue_ScheduleAndList(t *testing.T) {
	q, clock := openQueue(t)
	ctx := context.Background()

	_, err := q.Schedule(ctx, reminder("b", 7200))
	require.NoError(t, err)
	_, err = q.Schedule(ctx, reminder("a", 3600))
	require.NoError(t, err)

	list, err := q.ListScheduled(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "a", list[0].Identifier, "soonest first")
	assert.Equal(t, clock.Now().Add(time.Hour).Unix(), list[0].FireAt.Unix())
	assert.Equal(t, config.TypeReminder, list[0].Type())
	assert.Equal(t, "a", list[0].Data[config.DataKeyContactID])
	assert.Equal(t, scheduler.Delay(3600), list[0].Trigger)
	assert.Equal(t, config.ChannelReminders, list[0].ChannelID)
}

func TestQueue_ScheduleGeneratesAndReplaces(t *testing.T) {
	q, _ := openQueue(t)
	ctx := context.Background()

	n := reminder("", 60)
	id1, err := q.Schedule(ctx, n)
	require.NoError(t, err)
	id2, err := q.Schedule(ctx, n)
	require.NoError(t, err)
	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2)

	fixed := scheduler.Notification{
		Identifier: config.IDDailyCheck,
		Title:      "old",
		Data:       map[string]string{config.DataKeyType: config.TypeDailyCheck},
		Trigger:    scheduler.Every(config.DailyPeriodSeconds),
	}
	_, err = q.Schedule(ctx, fixed)
	require.NoError(t, err)
	fixed.Title = "new"
	id, err := q.Schedule(ctx, fixed)
	require.NoError(t, err)
	assert.Equal(t, config.IDDailyCheck, id)

	list, err := q.ListScheduled(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
	for _, n := range list {
		if n.Identifier == config.IDDailyCheck {
			assert.Equal(t, "new", n.Title)
			assert.True(t, n.Trigger.Repeats)
		}
	}
}

func TestQueue_ScheduleRejectsBadTrigger(t *testing.T) {
	q, _ := openQueue(t)

	_, err := q.Schedule(context.Background(), reminder("x", 0))
	assert.ErrorIs(t, err, device.ErrInvalidTrigger)
}

func TestQueue_CancelIsTolerant(t *testing.T) {
	q, _ := openQueue(t)
	ctx := context.Background()

	_, err := q.Schedule(ctx, reminder("a", 60))
	require.NoError(t, err)

	require.NoError(t, q.Cancel(ctx, "does-not-exist"))
	require.NoError(t, q.Cancel(ctx, "a"))
	require.NoError(t, q.Cancel(ctx, "a"))

	list, err := q.ListScheduled(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestQueue_CancelAll(t *testing.T) {
	q, _ := openQueue(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := q.Schedule(ctx, reminder(id, 60))
		require.NoError(t, err)
	}
	require.NoError(t, q.CancelAll(ctx))

	list, err := q.ListScheduled(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestQueue_Channels(t *testing.T) {
	q, _ := openQueue(t)
	ctx := context.Background()

	require.NoError(t, q.ConfigureChannel(ctx, config.ChannelWeekly, scheduler.Channel{Name: "v1"}))
	require.NoError(t, q.ConfigureChannel(ctx, config.ChannelWeekly, scheduler.Channels[config.ChannelWeekly]))

	channels, err := q.Channels(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, scheduler.Channels[config.ChannelWeekly], channels[config.ChannelWeekly])
}

func TestQueue_Permission(t *testing.T) {
	t.Run("NoPromptDenies", func(t *testing.T) {
		q, _ := openQueue(t)
		granted, err := q.RequestPermission(context.Background())
		require.NoError(t, err)
		assert.False(t, granted)
	})

	t.Run("GrantIsRemembered", func(t *testing.T) {
		asked := 0
		q, _ := openQueue(t, device.WithPermissionPrompt(func(context.Context) (bool, error) {
			asked++
			return true, nil
		}))
		ctx := context.Background()

		for range 3 {
			granted, err := q.RequestPermission(ctx)
			require.NoError(t, err)
			assert.True(t, granted)
		}
		assert.Equal(t, 1, asked)

		granted, err := q.Granted(ctx)
		require.NoError(t, err)
		assert.True(t, granted)
	})

	t.Run("RefusalIsAskedAgain", func(t *testing.T) {
		asked := 0
		q, _ := openQueue(t, device.WithPermissionPrompt(func(context.Context) (bool, error) {
			asked++
			return false, nil
		}))

		_, _ = q.RequestPermission(context.Background())
		_, _ = q.RequestPermission(context.Background())
		assert.Equal(t, 2, asked)
	})

	t.Run("PromptError", func(t *testing.T) {
		q, _ := openQueue(t, device.WithPermissionPrompt(func(context.Context) (bool, error) {
			return false, errors.New("dialog closed")
		}))
		_, err := q.RequestPermission(context.Background())
		assert.Error(t, err)
	})
}

func TestQueue_DeliverDue(t *testing.T) {
	q, clock := openQueue(t)
	ctx := context.Background()
	rec := &recorder{}

	_, err := q.Schedule(ctx, reminder("soon", 3600))
	require.NoError(t, err)
	_, err = q.Schedule(ctx, reminder("later", 7200))
	require.NoError(t, err)
	_, err = q.Schedule(ctx, scheduler.Notification{
		Identifier: config.IDDailyCheck,
		Data:       map[string]string{config.DataKeyType: config.TypeDailyCheck},
		Trigger:    scheduler.Every(config.DailyPeriodSeconds),
	})
	require.NoError(t, err)

	n, err := q.DeliverDue(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "nothing is due yet")

	clock.Advance(90 * time.Minute)
	n, err = q.DeliverDue(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"soon"}, rec.ids())

	// Three days later the daily check fires once and moves past now.
	clock.Advance(72 * time.Hour)
	n, err = q.DeliverDue(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"soon", "later", config.IDDailyCheck}, rec.ids())

	list, err := q.ListScheduled(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, config.IDDailyCheck, list[0].Identifier)
	assert.True(t, list[0].FireAt.After(clock.Now()))
	assert.LessOrEqual(t, list[0].FireAt.Sub(clock.Now()), 24*time.Hour)
}

func TestQueue_DeliverFailureKeepsNotification(t *testing.T) {
	q, clock := openQueue(t)
	ctx := context.Background()

	_, err := q.Schedule(ctx, reminder("a", 60))
	require.NoError(t, err)
	clock.Advance(time.Hour)

	n, err := q.DeliverDue(ctx, &recorder{fail: errors.New("no display")})
	assert.Equal(t, 0, n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrQueueDeliver)

	list, err := q.ListScheduled(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestQueue_Run(t *testing.T) {
	q, clock := openQueue(t)
	rec := &recorder{}

	_, err := q.Schedule(context.Background(), reminder("a", 60))
	require.NoError(t, err)
	clock.Advance(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx, 10*time.Millisecond, rec) }()

	assert.Eventually(t, func() bool { return len(rec.ids()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestQueue_WithScheduler(t *testing.T) {
	q, _ := openQueue(t, device.WithPermissionPrompt(func(context.Context) (bool, error) { return true, nil }))
	s := scheduler.New(q, nil)
	ctx := context.Background()

	batch := []engine.ReminderEntry{
		{ContactID: "1", ContactName: "Ada"},
		{ContactID: "2", ContactName: "Grace"},
	}
	require.NoError(t, s.Enable(ctx, batch))
	require.NoError(t, s.Enable(ctx, batch))

	count, err := s.ScheduledCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	require.NoError(t, s.Disable(ctx))
	count, err = s.ScheduledCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
