package scheduler

import (
	"context"
	"time"

	"github.com/tartampluch/touch/internal/config"
)

// Importance ranks how intrusive a channel's notifications are.
type Importance int

const (
	ImportanceLow Importance = iota
	ImportanceDefault
	ImportanceHigh
)

func (i Importance) String() string {
	switch i {
	case ImportanceLow:
		return "low"
	case ImportanceHigh:
		return "high"
	default:
		return "default"
	}
}

// Channel groups notifications that share presentation settings.
type Channel struct {
	Name        string
	Importance  Importance
	Description string
}

// TriggerKind selects between one-shot and repeating delivery.
type TriggerKind string

const (
	TriggerDelay    TriggerKind = "delay"
	TriggerInterval TriggerKind = "interval"
)

// Trigger describes when a notification fires relative to scheduling time.
type Trigger struct {
	Kind    TriggerKind
	Seconds int64
	Repeats bool
}

// Delay fires once after the given number of seconds.
func Delay(seconds int64) Trigger {
	return Trigger{Kind: TriggerDelay, Seconds: seconds}
}

// Every fires repeatedly with the given period.
func Every(seconds int64) Trigger {
	return Trigger{Kind: TriggerInterval, Seconds: seconds, Repeats: true}
}

// Period returns the trigger interval as a duration.
func (t Trigger) Period() time.Duration {
	return time.Duration(t.Seconds) * time.Second
}

// Notification is a locally scheduled notification.
// Identifier is empty when asking the service to generate one. FireAt is
// filled by services that know the next delivery time and is ignored on
// Schedule.
type Notification struct {
	Identifier string
	Title      string
	Body       string
	Data       map[string]string
	ChannelID  string
	Trigger    Trigger
	FireAt     time.Time
}

// Type returns the payload type tag (reminder, daily-check, weekly-reflection).
func (n Notification) Type() string {
	return n.Data[config.DataKeyType]
}

// NotificationService is the device-side scheduler the campaign drives.
// The device owns the timers; this package only issues commands.
type NotificationService interface {
	// RequestPermission returns true once the user has granted delivery.
	RequestPermission(ctx context.Context) (bool, error)
	// ConfigureChannel creates or updates a channel. Idempotent.
	ConfigureChannel(ctx context.Context, id string, ch Channel) error
	// Schedule stores n and returns its identifier. An existing identifier
	// is replaced.
	Schedule(ctx context.Context, n Notification) (string, error)
	// Cancel removes a notification. Unknown identifiers are not an error.
	Cancel(ctx context.Context, identifier string) error
	// ListScheduled returns every pending notification.
	ListScheduled(ctx context.Context) ([]Notification, error)
	// CancelAll removes every pending notification.
	CancelAll(ctx context.Context) error
}
