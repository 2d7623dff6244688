package reservation

import (
	"strings"
	"time"

	"github.com/dukerupert/hostcal/internal/ics"
)

const reservedMarker = "reserved"

// IsReservation reports whether the event summary marks a guest stay.
func IsReservation(ev ics.Event) bool {
	return strings.Contains(strings.ToLower(ev.Summary), reservedMarker)
}

// Stay is an event's check-in and displayed check-out in the target zone.
type Stay struct {
	Checkin  time.Time
	Checkout time.Time
}

// Normalize resolves the event's dates into loc. It reports false for
// events that cannot become a row: no UID, no start or end, or a checkout
// that would precede checkin.
//
// All-day feeds give an exclusive end (the morning after the last night),
// so when both ends are dates the checkout shown is one day earlier. If
// either end carries a time the end is used as written.
func Normalize(ev ics.Event, loc *time.Location) (Stay, bool) {
	if strings.TrimSpace(ev.UID) == "" || ev.Start == nil || ev.End == nil {
		return Stay{}, false
	}

	checkin := ev.Start.In(loc)
	checkout := ev.End.In(loc)
	if ev.Start.DateOnly && ev.End.DateOnly {
		checkout = ev.End.AddDays(-1).In(loc)
	}

	if checkout.Before(checkin) {
		return Stay{}, false
	}
	return Stay{Checkin: checkin, Checkout: checkout}, true
}
