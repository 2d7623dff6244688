package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Booking is a guest stay on a listing. Feed-owned fields (dates, URLs,
// phone digits) are rewritten by every sync; guest names are only ever set
// through the manual update path.
type Booking struct {
	ID                 int64     `json:"id"`
	ListingID          *int64    `json:"listing_id"`
	GoogleCalendarID   *string   `json:"google_calendar_id"`
	GuestFirstName     *string   `json:"airbnb_guest_first_name"`
	GuestLastName      *string   `json:"airbnb_guest_last_name"`
	Checkin            *string   `json:"airbnb_checkin"`
	Checkout           *string   `json:"airbnb_checkout"`
	ReservationURL     *string   `json:"reservation_url"`
	GuestPicURL        *string   `json:"airbnb_guestpic_url"`
	PhoneLast4         *string   `json:"phone_last4"`
	NeedsManualDetails bool      `json:"needs_manual_details"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// BookingFeedFields are the columns a calendar sync owns.
type BookingFeedFields struct {
	Checkin        string
	Checkout       string
	ReservationURL *string
	GuestPicURL    *string
	PhoneLast4     *string
}

// PatchString is a JSON field whose presence matters: Set is true when
// the key was sent, and a nil Value clears the column.
type PatchString struct {
	Set   bool
	Value *string
}

func (p *PatchString) UnmarshalJSON(data []byte) error {
	p.Set = true
	if string(data) == "null" {
		p.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		p.Value = nil
		return nil
	}
	p.Value = &s
	return nil
}

// BookingPatch is the manual edit path. Absent fields are left unchanged.
type BookingPatch struct {
	FirstName   PatchString `json:"first_name"`
	LastName    PatchString `json:"last_name"`
	GuestPicURL PatchString `json:"guestpic_url"`
	ListingID   *int64      `json:"listing_id"`
}
