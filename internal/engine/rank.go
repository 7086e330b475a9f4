package engine

import (
	"cmp"
	"slices"
	"time"

	"github.com/tartampluch/touch/internal/config"
)

// NeedsAttention scores contacts at now and returns those below the
// attention threshold as reminder entries, most urgent first. Pinned
// contacts win ties, then names sort alphabetically.
func NeedsAttention(contacts []Contact, now time.Time) []ReminderEntry {
	type scored struct {
		contact Contact
		health  float64
	}

	var pending []scored
	for _, c := range contacts {
		h := ConnectionHealth(c.LastInteractionAt, c.FrequencyDays, now)
		if h < config.AttentionThreshold {
			pending = append(pending, scored{contact: c, health: h})
		}
	}

	slices.SortStableFunc(pending, func(a, b scored) int {
		if c := cmp.Compare(a.health, b.health); c != 0 {
			return c
		}
		if a.contact.IsPinned != b.contact.IsPinned {
			if a.contact.IsPinned {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.contact.Name, b.contact.Name)
	})

	entries := make([]ReminderEntry, 0, len(pending))
	for _, p := range pending {
		c := p.contact
		color := c.AvatarColor
		if color == "" {
			color = c.RelationshipTag.Color()
		}
		priority := config.PriorityGentle
		if c.IsPinned {
			priority = config.PriorityWarm
		}

		entries = append(entries, ReminderEntry{
			ID:              c.ID,
			ContactID:       c.ID,
			ContactName:     c.Name,
			AvatarColor:     color,
			RelationshipTag: c.RelationshipTag,
			Health:          p.health,
			DaysOverdue:     DaysOverdue(c.LastInteractionAt, c.FrequencyDays, now),
			Priority:        priority,
		})
	}
	return entries
}
