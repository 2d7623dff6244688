package reservation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dukerupert/hostcal/internal/ics"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func date(y int, m time.Month, d int) *ics.DateValue {
	return &ics.DateValue{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), DateOnly: true}
}

func instant(t time.Time) *ics.DateValue {
	return &ics.DateValue{Time: t}
}

func TestBuildRowAllDayScenario(t *testing.T) {
	loc := newYork(t)
	ev := ics.Event{
		UID:         "evt-1",
		Summary:     "Reserved - J. Doe",
		Start:       date(2024, 3, 1),
		End:         date(2024, 3, 4),
		Description: "Guest https://example.com/guest.jpg",
	}

	row, ok := BuildRow(ev, loc)
	if !ok {
		t.Fatal("expected row")
	}
	if got := row.Checkin.Format(TimestampLayout); got != "2024-03-01T00:00:00-05:00" {
		t.Errorf("checkin = %s", got)
	}
	if got := row.Checkout.Format(TimestampLayout); got != "2024-03-03T00:00:00-05:00" {
		t.Errorf("checkout = %s", got)
	}
	if row.ReservationURL == nil || *row.ReservationURL != "https://example.com/guest.jpg" {
		t.Errorf("reservation_url = %v", row.ReservationURL)
	}
	if row.ImageURL == nil || *row.ImageURL != "https://example.com/guest.jpg" {
		t.Errorf("image = %v", row.ImageURL)
	}
	if row.CheckinDate() != "2024-03-01" || row.CheckoutDate() != "2024-03-03" {
		t.Errorf("dates = %s..%s", row.CheckinDate(), row.CheckoutDate())
	}
}

func TestAllDayCheckoutIsOneDayBeforeEnd(t *testing.T) {
	loc := newYork(t)
	starts := []*ics.DateValue{date(2024, 1, 30), date(2024, 2, 28), date(2024, 3, 9), date(2024, 12, 31)}
	for _, start := range starts {
		for nights := 1; nights <= 5; nights++ {
			end := start.AddDays(nights)
			ev := ics.Event{UID: "u", Summary: "Reserved", Start: start, End: &end}

			stay, ok := Normalize(ev, loc)
			if !ok {
				t.Fatalf("start %v nights %d: expected stay", start.Time, nights)
			}
			want := end.AddDays(-1).Time
			wantLocal := time.Date(want.Year(), want.Month(), want.Day(), 0, 0, 0, 0, loc)
			if !stay.Checkout.Equal(wantLocal) {
				t.Errorf("start %v nights %d: checkout = %v, want %v", start.Time, nights, stay.Checkout, wantLocal)
			}
			if stay.Checkout.Hour() != 0 || stay.Checkout.Minute() != 0 {
				t.Errorf("checkout %v is not local midnight", stay.Checkout)
			}
		}
	}
}

func TestTimedEndIsUnmodified(t *testing.T) {
	loc := newYork(t)
	end := time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start *ics.DateValue
		end   *ics.DateValue
		want  time.Time
	}{
		{"both timed", instant(time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)), instant(end), end.In(loc)},
		{"date start timed end", date(2024, 3, 1), instant(end), end.In(loc)},
		{"timed start date end", instant(time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)), date(2024, 3, 4), time.Date(2024, 3, 4, 0, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		stay, ok := Normalize(ics.Event{UID: "u", Start: tt.start, End: tt.end}, loc)
		if !ok {
			t.Fatalf("%s: expected stay", tt.name)
		}
		if !stay.Checkout.Equal(tt.want) {
			t.Errorf("%s: checkout = %v, want %v", tt.name, stay.Checkout, tt.want)
		}
	}
}

func TestNormalizeDropsIncompleteEvents(t *testing.T) {
	loc := newYork(t)
	tests := []struct {
		name string
		ev   ics.Event
	}{
		{"no uid", ics.Event{Summary: "Reserved", Start: date(2024, 3, 1), End: date(2024, 3, 2)}},
		{"blank uid", ics.Event{UID: "  ", Summary: "Reserved", Start: date(2024, 3, 1), End: date(2024, 3, 2)}},
		{"no start", ics.Event{UID: "u", Summary: "Reserved", End: date(2024, 3, 2)}},
		{"no end", ics.Event{UID: "u", Summary: "Reserved", Start: date(2024, 3, 1)}},
		{"zero-length all-day", ics.Event{UID: "u", Summary: "Reserved", Start: date(2024, 3, 1), End: date(2024, 3, 1)}},
	}
	for _, tt := range tests {
		if _, ok := BuildRow(tt.ev, loc); ok {
			t.Errorf("%s: expected event to be dropped", tt.name)
		}
	}
}

func TestNonReservationSummariesAreFiltered(t *testing.T) {
	loc := newYork(t)
	events := []ics.Event{
		{UID: "a", Summary: "Airbnb (Not available)", Start: date(2024, 3, 1), End: date(2024, 3, 2)},
		{UID: "b", Summary: "Blocked", Start: date(2024, 3, 1), End: date(2024, 3, 2)},
		{UID: "c", Summary: "RESERVED", Start: date(2024, 3, 1), End: date(2024, 3, 2)},
		{UID: "d", Summary: "  Unreserved-ish  ", Start: date(2024, 3, 1), End: date(2024, 3, 2)},
	}
	rows := BuildRows(events, loc)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	for _, r := range rows {
		if r.EventID == "a" || r.EventID == "b" {
			t.Errorf("event %q should have been filtered", r.EventID)
		}
	}
	if rows[1].Title != "Unreserved-ish" {
		t.Errorf("title = %q, want trimmed summary", rows[1].Title)
	}
}

func TestBuildRowsSortedByCheckin(t *testing.T) {
	loc := newYork(t)
	events := []ics.Event{
		{UID: "late", Summary: "Reserved", Start: date(2024, 5, 1), End: date(2024, 5, 3)},
		{UID: "early", Summary: "Reserved", Start: date(2024, 1, 10), End: date(2024, 1, 12)},
		{UID: "mid", Summary: "Reserved", Start: date(2024, 3, 1), End: date(2024, 3, 2)},
	}
	rows := BuildRows(events, loc)
	want := []string{"early", "mid", "late"}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(rows), len(want))
	}
	for i, id := range want {
		if rows[i].EventID != id {
			t.Errorf("rows[%d] = %q, want %q", i, rows[i].EventID, id)
		}
	}
}

func TestRowPhoneLast4(t *testing.T) {
	loc := newYork(t)
	ev := ics.Event{
		UID:         "u",
		Summary:     "Reserved",
		Start:       date(2024, 3, 1),
		End:         date(2024, 3, 2),
		Description: "Reservation URL: https://www.airbnb.com/hosting/reservations/details/HM1\nPhone Number (Last 4 Digits): 4242",
	}
	row, ok := BuildRow(ev, loc)
	if !ok {
		t.Fatal("expected row")
	}
	if row.PhoneLast4 == nil || *row.PhoneLast4 != "4242" {
		t.Errorf("phone_last4 = %v, want 4242", row.PhoneLast4)
	}
	if row.ReservationURL == nil || *row.ReservationURL != "https://www.airbnb.com/hosting/reservations/details/HM1" {
		t.Errorf("reservation_url = %v", row.ReservationURL)
	}
}

func TestRowJSON(t *testing.T) {
	loc := newYork(t)
	row, _ := BuildRow(ics.Event{UID: "evt-1", Summary: "Reserved", Start: date(2024, 3, 1), End: date(2024, 3, 4)}, loc)

	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 6 {
		t.Errorf("keys = %v, want exactly 6", got)
	}
	if got["event"] != "evt-1" || got["checkin"] != "2024-03-01T00:00:00-05:00" || got["checkout"] != "2024-03-03T00:00:00-05:00" {
		t.Errorf("row json = %s", data)
	}
	if v, ok := got["image"]; !ok || v != nil {
		t.Errorf("image = %v, want explicit null", v)
	}
	if v, ok := got["reservation_url"]; !ok || v != nil {
		t.Errorf("reservation_url = %v, want explicit null", v)
	}
}

func TestUTCOffsetFormat(t *testing.T) {
	row, _ := BuildRow(ics.Event{UID: "u", Summary: "Reserved", Start: date(2024, 3, 1), End: date(2024, 3, 2)}, time.UTC)
	if got := row.Checkin.Format(TimestampLayout); got != "2024-03-01T00:00:00+00:00" {
		t.Errorf("checkin = %s, want +00:00 offset", got)
	}
}
