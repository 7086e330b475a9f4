package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/tartampluch/touch/internal/config"
	"github.com/tartampluch/touch/internal/engine"
)

// State is the reminder campaign's lifecycle position.
type State int

const (
	Disabled State = iota
	Enabling
	Enabled
)

func (s State) String() string {
	switch s {
	case Enabling:
		return "enabling"
	case Enabled:
		return "enabled"
	default:
		return "disabled"
	}
}

var (
	// ErrPermissionDenied is returned by Enable when the user refuses
	// notifications. The campaign stays disabled and can be retried.
	ErrPermissionDenied = errors.New(config.ErrPermissionDenied)

	// ErrCollaboratorUnavailable wraps failures reported by the
	// NotificationService.
	ErrCollaboratorUnavailable = errors.New(config.ErrUnavailable)

	// ErrMalformedEntry marks entries skipped by ScheduleReminders.
	ErrMalformedEntry = engine.ErrMalformedEntry
)

// Translator resolves a message key with template data. Implementations
// return the key itself when no translation exists.
type Translator func(key string, data map[string]any) string

// Channels are configured on every Enable.
var Channels = map[string]Channel{
	config.ChannelReminders: {
		Name:        config.ChannelRemindersName,
		Importance:  ImportanceDefault,
		Description: config.ChannelRemindersDesc,
	},
	config.ChannelWeekly: {
		Name:        config.ChannelWeeklyName,
		Importance:  ImportanceLow,
		Description: config.ChannelWeeklyDesc,
	},
}

// Scheduler turns the ranked "needs attention" list into device
// notifications. Campaign operations are serialized; State and LastCount
// are safe to read concurrently.
type Scheduler struct {
	Service   NotificationService
	Translate Translator

	campaign sync.Mutex

	mu    sync.RWMutex
	state State
	count int
}

// New returns a disabled scheduler bound to svc.
func New(svc NotificationService, translate Translator) *Scheduler {
	return &Scheduler{Service: svc, Translate: translate}
}

// State returns the in-memory campaign state.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastCount returns the scheduled total observed by the last campaign
// operation. It is advisory; ScheduledCount asks the device.
func (s *Scheduler) LastCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

func (s *Scheduler) set(state State, count int) {
	s.mu.Lock()
	s.state = state
	if count >= 0 {
		s.count = count
	}
	s.mu.Unlock()
}

// Enable requests permission, configures channels and schedules the daily
// check, the weekly reflection and the contact reminders. The three legs run
// to completion independently; their failures are joined in the returned
// error and the campaign is Enabled regardless.
func (s *Scheduler) Enable(ctx context.Context, entries []engine.ReminderEntry) error {
	s.campaign.Lock()
	defer s.campaign.Unlock()
	return s.enable(ctx, entries, true)
}

// EnableRecurring is Enable without the contact reminder leg: queued
// reminders are left as they are. Callers use it when the ranked list could
// not be fetched.
func (s *Scheduler) EnableRecurring(ctx context.Context) error {
	s.campaign.Lock()
	defer s.campaign.Unlock()
	return s.enable(ctx, nil, false)
}

func (s *Scheduler) enable(ctx context.Context, entries []engine.ReminderEntry, withReminders bool) error {
	log := slog.With(config.LogKeyComponent, config.CompScheduler)
	s.set(Enabling, -1)

	granted, err := s.Service.RequestPermission(ctx)
	if err != nil {
		s.set(Disabled, -1)
		return fmt.Errorf("%w: %w", ErrCollaboratorUnavailable, err)
	}
	if !granted {
		s.set(Disabled, -1)
		log.Info(config.MsgPermissionDenied)
		return ErrPermissionDenied
	}

	if err := s.configureChannels(ctx); err != nil {
		s.set(Disabled, -1)
		return err
	}

	var errs []error
	if err := s.scheduleDailyCheck(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.scheduleWeeklyReflection(ctx); err != nil {
		errs = append(errs, err)
	}
	scheduled := 0
	if withReminders {
		n, err := s.scheduleReminders(ctx, entries)
		if err != nil {
			errs = append(errs, err)
		}
		scheduled = n
	}

	count, listErr := s.scheduledCount(ctx)
	if listErr != nil {
		count = -1
	}
	s.set(Enabled, count)

	joined := errors.Join(errs...)
	if joined != nil {
		log.Warn(config.MsgCampaignEnabled,
			config.LogKeyScheduled, scheduled,
			config.LogKeyError, joined)
		return joined
	}
	log.Info(config.MsgCampaignEnabled,
		config.LogKeyScheduled, scheduled,
		config.LogKeyCount, count)
	return nil
}

// Disable cancels every scheduled notification. If the device refuses, the
// state is left unchanged.
func (s *Scheduler) Disable(ctx context.Context) error {
	s.campaign.Lock()
	defer s.campaign.Unlock()

	if err := s.Service.CancelAll(ctx); err != nil {
		return fmt.Errorf("%s: %w: %w", config.ErrDisable, ErrCollaboratorUnavailable, err)
	}
	s.set(Disabled, 0)
	slog.Info(config.MsgCampaignDisabled, config.LogKeyComponent, config.CompScheduler)
	return nil
}

// ScheduleDailyCheck replaces the repeating daily check notification.
func (s *Scheduler) ScheduleDailyCheck(ctx context.Context) error {
	s.campaign.Lock()
	defer s.campaign.Unlock()
	return s.scheduleDailyCheck(ctx)
}

// ScheduleWeeklyReflection replaces the repeating weekly reflection.
func (s *Scheduler) ScheduleWeeklyReflection(ctx context.Context) error {
	s.campaign.Lock()
	defer s.campaign.Unlock()
	return s.scheduleWeeklyReflection(ctx)
}

// ScheduleReminders replaces every contact reminder with one per entry, for
// the first MaxContactReminders entries, staggered an hour apart. It returns
// how many were scheduled.
func (s *Scheduler) ScheduleReminders(ctx context.Context, entries []engine.ReminderEntry) (int, error) {
	s.campaign.Lock()
	defer s.campaign.Unlock()

	n, err := s.scheduleReminders(ctx, entries)
	if count, listErr := s.scheduledCount(ctx); listErr == nil {
		s.mu.Lock()
		s.count = count
		s.mu.Unlock()
	}
	return n, err
}

// RefreshReminders replaces the contact reminders only when the ranked batch
// differs from what is still queued. Reminders fire in batch order, so a
// queue holding a tail of the batch is current. changed reports whether the
// batch was rescheduled.
func (s *Scheduler) RefreshReminders(ctx context.Context, entries []engine.ReminderEntry) (scheduled int, changed bool, err error) {
	s.campaign.Lock()
	defer s.campaign.Unlock()

	list, err := s.Service.ListScheduled(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w: %w", config.ErrContactReminders, ErrCollaboratorUnavailable, err)
	}
	queued := queuedBatch(list)
	want := batch(entries)
	if len(queued) <= len(want) && slices.Equal(queued, want[len(want)-len(queued):]) {
		slog.Debug(config.MsgRemindersCurrent,
			config.LogKeyComponent, config.CompScheduler,
			config.LogKeyCount, len(queued))
		return 0, false, nil
	}

	n, err := s.scheduleReminders(ctx, entries)
	if count, listErr := s.scheduledCount(ctx); listErr == nil {
		s.mu.Lock()
		s.count = count
		s.mu.Unlock()
	}
	return n, true, err
}

// batch lists the contact IDs scheduleReminders would queue, in firing order.
func batch(entries []engine.ReminderEntry) []string {
	if len(entries) > config.MaxContactReminders {
		entries = entries[:config.MaxContactReminders]
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Validate() == nil {
			ids = append(ids, e.ContactID)
		}
	}
	return ids
}

// queuedBatch lists the contact IDs of queued reminders by fire time.
func queuedBatch(list []Notification) []string {
	var reminders []Notification
	for _, n := range list {
		if n.Type() == config.TypeReminder {
			reminders = append(reminders, n)
		}
	}
	slices.SortStableFunc(reminders, func(a, b Notification) int {
		return a.FireAt.Compare(b.FireAt)
	})
	ids := make([]string, len(reminders))
	for i, n := range reminders {
		ids[i] = n.Data[config.DataKeyContactID]
	}
	return ids
}

// ScheduledCount asks the device how many notifications are pending.
func (s *Scheduler) ScheduledCount(ctx context.Context) (int, error) {
	return s.scheduledCount(ctx)
}

// Refresh rebuilds State and LastCount from the device. The campaign counts
// as enabled while either recurring notification is scheduled.
func (s *Scheduler) Refresh(ctx context.Context) (State, error) {
	s.campaign.Lock()
	defer s.campaign.Unlock()

	list, err := s.Service.ListScheduled(ctx)
	if err != nil {
		return s.State(), fmt.Errorf("%w: %w", ErrCollaboratorUnavailable, err)
	}

	state := Disabled
	for _, n := range list {
		if n.Identifier == config.IDDailyCheck || n.Identifier == config.IDWeeklyReflection {
			state = Enabled
			break
		}
	}
	s.set(state, len(list))
	return state, nil
}

func (s *Scheduler) configureChannels(ctx context.Context) error {
	for _, id := range []string{config.ChannelReminders, config.ChannelWeekly} {
		if err := s.Service.ConfigureChannel(ctx, id, Channels[id]); err != nil {
			return fmt.Errorf("%s: %w: %w", config.ErrChannelSetup, ErrCollaboratorUnavailable, err)
		}
	}
	return nil
}

func (s *Scheduler) scheduleDailyCheck(ctx context.Context) error {
	s.cancelQuietly(ctx, config.IDDailyCheck)

	_, err := s.Service.Schedule(ctx, Notification{
		Identifier: config.IDDailyCheck,
		Title:      s.text(config.TKeyDailyTitle, config.FallbackDailyTitle, nil),
		Body:       s.text(config.TKeyDailyBody, config.FallbackDailyBody, nil),
		Data:       map[string]string{config.DataKeyType: config.TypeDailyCheck},
		ChannelID:  config.ChannelReminders,
		Trigger:    Every(config.DailyPeriodSeconds),
	})
	if err != nil {
		return fmt.Errorf("%s: %w: %w", config.ErrDailyCheck, ErrCollaboratorUnavailable, err)
	}
	return nil
}

func (s *Scheduler) scheduleWeeklyReflection(ctx context.Context) error {
	s.cancelQuietly(ctx, config.IDWeeklyReflection)

	_, err := s.Service.Schedule(ctx, Notification{
		Identifier: config.IDWeeklyReflection,
		Title:      s.text(config.TKeyWeeklyTitle, config.FallbackWeeklyTitle, nil),
		Body:       s.text(config.TKeyWeeklyBody, config.FallbackWeeklyBody, nil),
		Data:       map[string]string{config.DataKeyType: config.TypeWeeklyReflection},
		ChannelID:  config.ChannelWeekly,
		Trigger:    Every(config.WeeklyPeriodSeconds),
	})
	if err != nil {
		return fmt.Errorf("%s: %w: %w", config.ErrWeeklyReflection, ErrCollaboratorUnavailable, err)
	}
	return nil
}

func (s *Scheduler) scheduleReminders(ctx context.Context, entries []engine.ReminderEntry) (int, error) {
	log := slog.With(config.LogKeyComponent, config.CompScheduler)

	// Listing must succeed, otherwise old reminders would survive next to
	// the new batch.
	existing, err := s.Service.ListScheduled(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %w", config.ErrContactReminders, ErrCollaboratorUnavailable, err)
	}
	cancelled := 0
	for _, n := range existing {
		if n.Type() == config.TypeReminder {
			s.cancelQuietly(ctx, n.Identifier)
			cancelled++
		}
	}

	if len(entries) > config.MaxContactReminders {
		entries = entries[:config.MaxContactReminders]
	}

	var errs []error
	scheduled, skipped := 0, 0
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			skipped++
			log.Warn(config.MsgSkippedEntry,
				config.LogKeyIndex, i,
				config.LogKeyError, err)
			continue
		}

		body := e.Message
		if body == "" {
			body = s.text(config.TKeyReminderBody, fmt.Sprintf(config.FallbackReminderBody, e.ContactName),
				map[string]any{"Name": e.ContactName})
		}
		delay := int64(i+1) * config.ReminderStaggerSeconds

		_, err := s.Service.Schedule(ctx, Notification{
			Title: s.text(config.TKeyReminderTitle, fmt.Sprintf(config.FallbackReminderTitle, e.ContactName),
				map[string]any{"Name": e.ContactName}),
			Body: body,
			Data: map[string]string{
				config.DataKeyType:      config.TypeReminder,
				config.DataKeyContactID: e.ContactID,
				config.DataKeyCategory:  config.CategoryReminder,
			},
			ChannelID: config.ChannelReminders,
			Trigger:   Delay(delay),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w: %w", config.ErrContactReminders, ErrCollaboratorUnavailable, err))
			continue
		}
		scheduled++
		log.Debug(config.MsgRemindersScheduled,
			config.LogKeyContactID, e.ContactID,
			config.LogKeyDelay, delay)
	}

	log.Info(config.MsgRemindersScheduled,
		config.LogKeyCancelled, cancelled,
		config.LogKeySkipped, skipped,
		config.LogKeyScheduled, scheduled)
	return scheduled, errors.Join(errs...)
}

func (s *Scheduler) scheduledCount(ctx context.Context) (int, error) {
	list, err := s.Service.ListScheduled(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCollaboratorUnavailable, err)
	}
	return len(list), nil
}

// cancelQuietly treats cancel failures as success: the identifier is either
// already gone or will be replaced by the next Schedule call.
func (s *Scheduler) cancelQuietly(ctx context.Context, identifier string) {
	if err := s.Service.Cancel(ctx, identifier); err != nil {
		slog.Debug(config.MsgCancelIgnored,
			config.LogKeyComponent, config.CompScheduler,
			config.LogKeyID, identifier,
			config.LogKeyError, err)
	}
}

func (s *Scheduler) text(key, fallback string, data map[string]any) string {
	if s.Translate == nil {
		return fallback
	}
	if msg := s.Translate(key, data); msg != "" && msg != key {
		return msg
	}
	return fallback
}
