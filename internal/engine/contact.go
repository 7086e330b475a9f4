package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tartampluch/touch/internal/config"
)

// ErrMalformedEntry marks a reminder entry that cannot be scheduled.
// Callers skip such entries individually.
var ErrMalformedEntry = errors.New(config.ErrMalformedEntry)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RelationshipTag is the fixed set of categories a contact can belong to.
type RelationshipTag string

const (
	TagFamily    RelationshipTag = "Family"
	TagFriend    RelationshipTag = "Friend"
	TagMentor    RelationshipTag = "Mentor"
	TagPartner   RelationshipTag = "Partner"
	TagColleague RelationshipTag = "Colleague"
	TagOther     RelationshipTag = "Other"
)

// RelationshipTags lists every tag in display order.
var RelationshipTags = []RelationshipTag{TagFamily, TagFriend, TagMentor, TagPartner, TagColleague, TagOther}

var tagColors = map[RelationshipTag]string{
	TagFamily:    "#E76F51",
	TagFriend:    "#40916C",
	TagMentor:    "#457B9D",
	TagPartner:   "#E9C46A",
	TagColleague: "#A8DADC",
	TagOther:     "#B2BEC3",
}

// ParseRelationshipTag maps free text onto a known tag, falling back to Other.
func ParseRelationshipTag(s string) RelationshipTag {
	for _, t := range RelationshipTags {
		if string(t) == s {
			return t
		}
	}
	return TagOther
}

// Color returns the accent color used for the tag.
func (t RelationshipTag) Color() string {
	if c, ok := tagColors[t]; ok {
		return c
	}
	return tagColors[TagOther]
}

// FrequencyPreset is a named touch interval offered when editing a contact.
type FrequencyPreset struct {
	Label string
	Days  int
}

// FrequencyPresets are the intervals offered by the app.
var FrequencyPresets = []FrequencyPreset{
	{Label: "Daily", Days: 1},
	{Label: "Every 3 days", Days: 3},
	{Label: "Weekly", Days: 7},
	{Label: "Bi-weekly", Days: 14},
	{Label: "Monthly", Days: 30},
	{Label: "Quarterly", Days: 90},
}

// Contact is the client-side replica of a backend contact record.
type Contact struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	RelationshipTag   RelationshipTag `json:"relationship_tag"`
	FrequencyDays     int             `json:"frequency_days"`
	LastInteractionAt *time.Time      `json:"last_interaction_at,omitempty"`
	ConnectionHealth  float64         `json:"connection_health"`
	IsPinned          bool            `json:"is_pinned"`
	AvatarColor       string          `json:"avatar_color,omitempty"`
}

// ReminderEntry is one row of the ranked "needs attention" list.
// It is recomputed on every fetch and never persisted.
type ReminderEntry struct {
	ID              string          `json:"id,omitempty"`
	ContactID       string          `json:"contact_id" validate:"required"`
	ContactName     string          `json:"contact_name" validate:"required"`
	AvatarColor     string          `json:"avatar_color,omitempty"`
	RelationshipTag RelationshipTag `json:"relationship_tag,omitempty"`
	Health          float64         `json:"health"`
	DaysOverdue     int             `json:"days_overdue"`
	Message         string          `json:"message,omitempty"`
	Priority        string          `json:"priority,omitempty"`
}

// Validate reports ErrMalformedEntry when the entry lacks the fields a
// notification needs.
func (e ReminderEntry) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEntry, err)
	}
	return nil
}

// pendingResponse mirrors GET /api/notifications/pending.
type pendingResponse struct {
	Reminders []ReminderEntry `json:"reminders"`
	Total     int             `json:"total"`
}
