// Package reservation turns parsed calendar events into reservation rows:
// reservation filtering, timezone normalization, all-day checkout
// correction, image resolution and ordering. Nothing here does I/O.
package reservation

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dukerupert/hostcal/internal/ics"
)

// TimestampLayout is ISO-8601 with a numeric UTC offset (never "Z").
const TimestampLayout = "2006-01-02T15:04:05-07:00"

// DateLayout is the calendar date stored on bookings.
const DateLayout = "2006-01-02"

// Row is one reservation as seen in a single feed snapshot.
type Row struct {
	EventID        string
	Title          string
	Checkin        time.Time
	Checkout       time.Time
	ReservationURL *string
	ImageURL       *string
	PhoneLast4     *string
}

type rowJSON struct {
	Event          string  `json:"event"`
	Title          string  `json:"title"`
	Checkin        string  `json:"checkin"`
	Checkout       string  `json:"checkout"`
	ReservationURL *string `json:"reservation_url"`
	Image          *string `json:"image"`
}

func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(rowJSON{
		Event:          r.EventID,
		Title:          r.Title,
		Checkin:        r.Checkin.Format(TimestampLayout),
		Checkout:       r.Checkout.Format(TimestampLayout),
		ReservationURL: r.ReservationURL,
		Image:          r.ImageURL,
	})
}

// CheckinDate is the local calendar date of check-in.
func (r Row) CheckinDate() string {
	return r.Checkin.Format(DateLayout)
}

// CheckoutDate is the local calendar date of the displayed check-out.
func (r Row) CheckoutDate() string {
	return r.Checkout.Format(DateLayout)
}

var phoneLast4Pattern = regexp.MustCompile(`(?i)last\s*4\s*digits\)?\s*:\s*(\d{4})`)

func phoneLast4(description string) *string {
	m := phoneLast4Pattern.FindStringSubmatch(description)
	if m == nil {
		return nil
	}
	return &m[1]
}

// BuildRow assembles the row for one event, or reports false when the event
// is not a usable reservation.
func BuildRow(ev ics.Event, loc *time.Location) (Row, bool) {
	if !IsReservation(ev) {
		return Row{}, false
	}
	stay, ok := Normalize(ev, loc)
	if !ok {
		return Row{}, false
	}

	row := Row{
		EventID:    strings.TrimSpace(ev.UID),
		Title:      strings.TrimSpace(ev.Summary),
		Checkin:    stay.Checkin,
		Checkout:   stay.Checkout,
		ImageURL:   ResolveImage(ev),
		PhoneLast4: phoneLast4(ev.Description),
	}
	if u, ok := FirstURL(ev.Description); ok {
		row.ReservationURL = &u
	}
	return row, true
}

// BuildRows returns the rows of every usable reservation event, ordered by
// the ISO-8601 text of their check-in.
func BuildRows(events []ics.Event, loc *time.Location) []Row {
	rows := make([]Row, 0, len(events))
	for _, ev := range events {
		if row, ok := BuildRow(ev, loc); ok {
			rows = append(rows, row)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Checkin.Format(TimestampLayout) < rows[j].Checkin.Format(TimestampLayout)
	})
	return rows
}
