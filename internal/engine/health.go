package engine

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/tartampluch/touch/internal/config"
)

// Level is the coarse band a health score falls into.
type Level int

const (
	LevelCritical Level = iota
	LevelWarning
	LevelGood
)

func (l Level) String() string {
	switch l {
	case LevelGood:
		return "good"
	case LevelWarning:
		return "warning"
	default:
		return "critical"
	}
}

// Color is a hex color string as rendered by the app theme.
type Color string

const (
	ColorGoodLight    Color = "#95D5B2"
	ColorGoodDark     Color = "#52B788"
	ColorWarningLight Color = "#F4A261"
	ColorWarningDark  Color = "#E9C46A"
	ColorCritical     Color = "#E76F51"
)

// HealthLevel classifies a 0-100 score. Values outside the range follow the
// same comparisons, and NaN lands in LevelCritical.
func HealthLevel(health float64) Level {
	switch {
	case health >= config.HealthGoodThreshold:
		return LevelGood
	case health >= config.HealthWarnThreshold:
		return LevelWarning
	default:
		return LevelCritical
	}
}

// HealthColor returns the light-theme color for a score.
func HealthColor(health float64) Color {
	return HealthColorFor(health, false)
}

// HealthColorFor returns the color for a score in the requested theme.
func HealthColorFor(health float64, dark bool) Color {
	switch HealthLevel(health) {
	case LevelGood:
		if dark {
			return ColorGoodDark
		}
		return ColorGoodLight
	case LevelWarning:
		if dark {
			return ColorWarningDark
		}
		return ColorWarningLight
	default:
		return ColorCritical
	}
}

// TimeSince renders the distance between ts and now as a coarse label.
// A nil timestamp means the contact was never touched. Timestamps in the
// future count as today.
func TimeSince(ts *time.Time, now time.Time) string {
	if ts == nil {
		return config.LabelNever
	}

	days := elapsedDays(*ts, now)
	switch {
	case days <= 0:
		return config.LabelToday
	case days == 1:
		return config.LabelYesterday
	case days < config.DaysPerWeek:
		return fmt.Sprintf(config.FormatDaysAgo, days)
	case days < config.DaysPerMonth:
		return fmt.Sprintf(config.FormatWeeksAgo, days/config.DaysPerWeek)
	case days < config.DaysPerYear:
		return fmt.Sprintf(config.FormatMonthsAgo, days/config.DaysPerMonth)
	default:
		return fmt.Sprintf(config.FormatYearsAgo, days/config.DaysPerYear)
	}
}

// Initials takes the first letter of each whitespace-separated word,
// upper-cased, keeping at most two.
func Initials(name string) string {
	var b strings.Builder
	n := 0
	for _, word := range strings.Fields(name) {
		if n == config.MaxInitials {
			break
		}
		for _, r := range word {
			b.WriteRune(unicode.ToUpper(r))
			break
		}
		n++
	}
	return b.String()
}

// ConnectionHealth scores a contact from 100 (just touched) down to 0 (one
// full interval or more overdue), rounded to one decimal. Contacts never
// touched score 0. A non-positive frequency uses the default interval.
func ConnectionHealth(last *time.Time, frequencyDays int, now time.Time) float64 {
	if last == nil {
		return config.HealthMin
	}
	if frequencyDays <= 0 {
		frequencyDays = config.DefaultFrequencyDays
	}

	elapsed := now.Sub(*last).Hours() / config.HoursPerDay
	health := (1 - elapsed/float64(frequencyDays)) * config.HealthMax
	health = math.Max(config.HealthMin, math.Min(config.HealthMax, health))
	return math.Round(health*10) / 10
}

// DaysOverdue counts whole days past the target interval. It is zero for
// contacts within their interval and for contacts never touched.
func DaysOverdue(last *time.Time, frequencyDays int, now time.Time) int {
	if last == nil {
		return 0
	}
	if frequencyDays <= 0 {
		frequencyDays = config.DefaultFrequencyDays
	}
	return max(0, elapsedDays(*last, now)-frequencyDays)
}

// elapsedDays floors the distance between ts and now to whole days.
func elapsedDays(ts, now time.Time) int {
	return int(math.Floor(now.Sub(ts).Hours() / config.HoursPerDay))
}
