package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/dukerupert/hostcal/internal/apperr"
)

// DateValue is a DTSTART/DTEND value as written in the feed.
//
// DateOnly values carry only a calendar date (all-day style). Floating
// values have a wall-clock time but no zone and are placed in whatever zone
// the consumer localizes to. All other values are absolute instants.
type DateValue struct {
	Time     time.Time
	DateOnly bool
	Floating bool
}

// In places v in loc. Date-only values become local midnight; floating
// values keep their wall clock.
func (v DateValue) In(loc *time.Location) time.Time {
	t := v.Time
	switch {
	case v.DateOnly:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	case v.Floating:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
	default:
		return t.In(loc)
	}
}

// AddDays shifts the calendar date of v, keeping its kind.
func (v DateValue) AddDays(n int) DateValue {
	v.Time = v.Time.AddDate(0, 0, n)
	return v
}

// Event is one VEVENT. Absent text properties are empty strings; absent
// start or end values are nil.
type Event struct {
	UID         string
	Summary     string
	Description string
	Start       *DateValue
	End         *DateValue
	Attachments []string
}

// Parse decodes a calendar-interchange payload. Malformed input as a whole
// is a parse error; a single unreadable date leaves that field absent.
func Parse(body []byte) ([]Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, apperr.Parse("empty calendar payload", nil)
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Parse("malformed calendar payload", err)
	}

	vevents := cal.Events()
	events := make([]Event, 0, len(vevents))
	for _, ve := range vevents {
		events = append(events, parseVEvent(ve))
	}
	return events, nil
}

func parseVEvent(ve *ical.VEvent) Event {
	ev := Event{
		UID:         textProp(ve, ical.ComponentPropertyUniqueId),
		Summary:     textProp(ve, ical.ComponentPropertySummary),
		Description: textProp(ve, ical.ComponentPropertyDescription),
	}

	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		if v, err := parseDateValue(p.Value, p.ICalParameters); err == nil {
			ev.Start = &v
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
		if v, err := parseDateValue(p.Value, p.ICalParameters); err == nil {
			ev.End = &v
		}
	}

	for _, p := range ve.GetProperties("ATTACH") {
		// Inline binary attachments are content, not references.
		if strings.EqualFold(param(p.ICalParameters, "ENCODING"), "BASE64") {
			continue
		}
		if v := strings.TrimSpace(p.Value); v != "" {
			ev.Attachments = append(ev.Attachments, v)
		}
	}

	return ev
}

func textProp(ve *ical.VEvent, name ical.ComponentProperty) string {
	p := ve.GetProperty(name)
	if p == nil {
		return ""
	}
	return unescapeText(p.Value)
}

var textUnescaper = strings.NewReplacer(
	`\\`, `\`,
	`\n`, "\n",
	`\N`, "\n",
	`\,`, ",",
	`\;`, ";",
)

func unescapeText(s string) string {
	return textUnescaper.Replace(s)
}

func param(params map[string][]string, key string) string {
	for k, vs := range params {
		if strings.EqualFold(k, key) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}

const (
	layoutDate     = "20060102"
	layoutDateTime = "20060102T150405"
)

var errEmptyValue = errors.New("empty date value")

func parseDateValue(raw string, params map[string][]string) (DateValue, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DateValue{}, errEmptyValue
	}

	if strings.EqualFold(param(params, "VALUE"), "DATE") || !strings.Contains(raw, "T") {
		t, err := time.Parse(layoutDate, raw)
		if err != nil {
			return DateValue{}, fmt.Errorf("parse date %q: %w", raw, err)
		}
		return DateValue{Time: t, DateOnly: true}, nil
	}

	if strings.HasSuffix(raw, "Z") {
		t, err := time.Parse(layoutDateTime, strings.TrimSuffix(raw, "Z"))
		if err != nil {
			return DateValue{}, fmt.Errorf("parse utc date-time %q: %w", raw, err)
		}
		return DateValue{Time: t.UTC()}, nil
	}

	if tzid := param(params, "TZID"); tzid != "" {
		if loc, err := time.LoadLocation(strings.Trim(tzid, `"`)); err == nil {
			t, err := time.ParseInLocation(layoutDateTime, raw, loc)
			if err != nil {
				return DateValue{}, fmt.Errorf("parse date-time %q: %w", raw, err)
			}
			return DateValue{Time: t}, nil
		}
		// Unknown zone names fall through to floating time.
	}

	t, err := time.Parse(layoutDateTime, raw)
	if err != nil {
		return DateValue{}, fmt.Errorf("parse floating date-time %q: %w", raw, err)
	}
	return DateValue{Time: t, Floating: true}, nil
}
