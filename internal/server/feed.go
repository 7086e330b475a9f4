package server

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/touch/internal/config"
	"github.com/tartampluch/touch/internal/scheduler"
)

// RenderCalendar exports scheduled notifications as an iCalendar feed so
// any calendar client can mirror the reminder queue. Each notification
// becomes an event at its next fire time carrying a display alarm; repeating
// ones get an RRULE.
func RenderCalendar(notifs []scheduler.Notification, now time.Time) ([]byte, error) {
	cal := ical.NewCalendar()

	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	// RFC 7986 refresh hint.
	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	for _, n := range notifs {
		cal.Children = append(cal.Children, newEvent(n, now).Component)
	}

	// The encoder rejects calendars without components.
	if len(cal.Children) == 0 {
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}
	return buf.Bytes(), nil
}

func newEvent(n scheduler.Notification, now time.Time) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, n.Identifier, config.ICalDomain))
	event.Props.SetDateTime(config.PropDTStamp, now.UTC())

	summary := n.Title
	if summary == "" {
		summary = config.AppName
	}
	event.Props.SetText(config.PropSummary, summary)
	if n.Body != "" {
		event.Props.SetText(config.PropDescription, n.Body)
	}
	if kind := n.Type(); kind != "" {
		event.Props.SetText(config.PropCategories, kind)
	}

	start := n.FireAt
	if start.IsZero() {
		start = now.Add(n.Trigger.Period())
	}
	event.Props.SetDateTime(config.PropDTStart, start.UTC())

	if n.Trigger.Repeats && n.Trigger.Seconds > 0 {
		freq, interval := recurrence(n.Trigger.Seconds)
		// Raw value; SetText would escape the semicolons.
		rrule := ical.NewProp(config.PropRRule)
		rrule.Value = fmt.Sprintf(config.FormatRRule, freq, interval)
		event.Props.Set(rrule)
	}

	addAlarm(event, summary)
	return event
}

// recurrence picks the coarsest RRULE frequency that divides the period.
func recurrence(seconds int64) (string, int64) {
	switch {
	case seconds%config.SecondsPerWeek == 0:
		return config.FreqWeekly, seconds / config.SecondsPerWeek
	case seconds%config.SecondsPerDay == 0:
		return config.FreqDaily, seconds / config.SecondsPerDay
	case seconds%config.SecondsPerHour == 0:
		return config.FreqHourly, seconds / config.SecondsPerHour
	case seconds%config.SecondsPerMin == 0:
		return config.FreqMinutely, seconds / config.SecondsPerMin
	default:
		return config.FreqSecondly, seconds
	}
}

// addAlarm appends a DISPLAY alarm firing at the event start.
func addAlarm(event *ical.Event, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	// Set trigger manually to avoid "VALUE=TEXT" param
	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = config.ICalAtStart
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}
