package engine

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/touch/internal/config"
)

// readContacts decodes a vCard stream into contacts. Cards without a usable
// name are skipped; unparsable Touch extensions fall back to defaults.
func readContacts(ctx context.Context, r io.Reader) ([]Contact, error) {
	decoder := vcard.NewDecoder(r)
	var contacts []Contact
	processed := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Log error but continue to next card to maximize data recovery
			slog.Warn(config.MsgSkippedCard,
				config.LogKeyComponent, config.CompEngine,
				config.LogKeyError, err)
			continue
		}
		processed++

		name := strings.TrimSpace(card.PreferredValue(vcard.FieldFormattedName))
		if name == "" {
			if n := card.Name(); n != nil {
				name = strings.TrimSpace(n.GivenName + " " + n.FamilyName)
			}
		}
		if name == "" {
			continue
		}

		c := Contact{
			ID:              card.Value(vcard.FieldUID),
			Name:            name,
			RelationshipTag: TagOther,
			FrequencyDays:   config.DefaultFrequencyDays,
			AvatarColor:     card.Value(config.VCardAvatarColor),
		}
		if c.ID == "" {
			hash := sha256.Sum256([]byte(name))
			c.ID = fmt.Sprintf("%x", hash[:8])
		}
		if cats := card.Categories(); len(cats) > 0 {
			c.RelationshipTag = ParseRelationshipTag(strings.TrimSpace(cats[0]))
		}
		if v := card.Value(config.VCardFrequency); v != "" {
			if days, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && days > 0 {
				c.FrequencyDays = days
			} else {
				logSkippedValue(config.VCardFrequency, v)
			}
		}
		if v := card.Value(config.VCardLastContact); v != "" {
			if ts, err := ParseTimestamp(v); err == nil {
				c.LastInteractionAt = &ts
			} else {
				logSkippedValue(config.VCardLastContact, v)
			}
		}
		if v := card.Value(config.VCardPinned); v != "" {
			c.IsPinned, _ = strconv.ParseBool(strings.TrimSpace(v))
		}

		contacts = append(contacts, c)
	}

	slog.Debug(config.MsgCollectDone,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyTotal, processed,
		config.LogKeyCount, len(contacts))
	return contacts, nil
}

// ParseTimestamp accepts RFC 3339 timestamps and plain dates.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{config.DateFormatRFC3339, time.RFC3339Nano, config.DateFormatFullDash} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New(config.ErrDateParse)
}

func logSkippedValue(field, value string) {
	slog.Debug(config.MsgSkippedValue,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyKey, field,
		config.LogKeyValue, value)
}
