package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/hostcal/internal/apperr"
	"github.com/dukerupert/hostcal/internal/model"
)

type BookingStore struct {
	db *sql.DB
}

func NewBookingStore(db *sql.DB) *BookingStore {
	return &BookingStore{db: db}
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func scanBooking(scanner interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	var listingID sql.NullInt64
	var googleID, first, last, checkin, checkout, resURL, picURL, phone sql.NullString

	err := scanner.Scan(
		&b.ID, &listingID, &googleID, &first, &last, &checkin, &checkout,
		&resURL, &picURL, &phone, &b.NeedsManualDetails, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if listingID.Valid {
		b.ListingID = &listingID.Int64
	}
	b.GoogleCalendarID = nullableString(googleID)
	b.GuestFirstName = nullableString(first)
	b.GuestLastName = nullableString(last)
	b.Checkin = nullableString(checkin)
	b.Checkout = nullableString(checkout)
	b.ReservationURL = nullableString(resURL)
	b.GuestPicURL = nullableString(picURL)
	b.PhoneLast4 = nullableString(phone)
	return &b, nil
}

const bookingCols = `id, listing_id, google_calendar_id, airbnb_guest_first_name, airbnb_guest_last_name,
	airbnb_checkin, airbnb_checkout, reservation_url, airbnb_guestpic_url, phone_last4,
	needs_manual_details, created_at, updated_at`

func (s *BookingStore) GetByID(id int64) (*model.Booking, error) {
	row := s.db.QueryRow(`SELECT `+bookingCols+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// BookingFilter narrows List. Start keeps bookings checking out on or after
// it, End keeps bookings checking in on or before it. Dates are YYYY-MM-DD.
type BookingFilter struct {
	ListingID *int64
	Start     string
	End       string
}

func (s *BookingStore) List(f BookingFilter) ([]model.Booking, error) {
	var where []string
	var args []any
	if f.ListingID != nil {
		where = append(where, "listing_id = ?")
		args = append(args, *f.ListingID)
	}
	if f.Start != "" {
		where = append(where, "airbnb_checkout >= ?")
		args = append(args, f.Start)
	}
	if f.End != "" {
		where = append(where, "airbnb_checkin <= ?")
		args = append(args, f.End)
	}

	query := `SELECT ` + bookingCols + ` FROM bookings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY airbnb_checkin, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// ManualUpdate applies an operator edit to guest details. A listing_id that
// names no listing is ignored. Once both guest names are present the
// booking no longer needs manual details. Returns nil when id is unknown.
func (s *BookingStore) ManualUpdate(id int64, p model.BookingPatch) (*model.Booking, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	b, err := scanBooking(tx.QueryRow(`SELECT `+bookingCols+` FROM bookings WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}

	if p.FirstName.Set {
		b.GuestFirstName = p.FirstName.Value
	}
	if p.LastName.Set {
		b.GuestLastName = p.LastName.Value
	}
	if p.GuestPicURL.Set {
		b.GuestPicURL = p.GuestPicURL.Value
	}
	if p.ListingID != nil {
		var n int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM listings WHERE id = ?`, *p.ListingID).Scan(&n); err != nil {
			return nil, fmt.Errorf("check listing: %w", err)
		}
		if n > 0 {
			b.ListingID = p.ListingID
		}
	}
	if b.GuestFirstName != nil && b.GuestLastName != nil {
		b.NeedsManualDetails = false
	}

	_, err = tx.Exec(
		`UPDATE bookings SET airbnb_guest_first_name = ?, airbnb_guest_last_name = ?, airbnb_guestpic_url = ?,
		 listing_id = ?, needs_manual_details = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		b.GuestFirstName, b.GuestLastName, b.GuestPicURL, b.ListingID, b.NeedsManualDetails, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("listing already has a booking for this calendar event", err)
		}
		return nil, fmt.Errorf("update booking: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

// InTx runs fn inside one transaction and commits only if fn succeeds.
func (s *BookingStore) InTx(ctx context.Context, fn func(*BookingTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&BookingTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// BookingTx holds the primitives reconciliation needs, all bound to one
// open transaction.
type BookingTx struct {
	tx *sql.Tx
}

func (t *BookingTx) ListingExists(ctx context.Context, listingID int64) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings WHERE id = ?`, listingID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check listing: %w", err)
	}
	return n > 0, nil
}

// FindByEvent looks a booking up by its natural key, returning nil when absent.
func (t *BookingTx) FindByEvent(ctx context.Context, listingID int64, eventID string) (*model.Booking, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+bookingCols+` FROM bookings WHERE listing_id = ? AND google_calendar_id = ?`,
		listingID, eventID,
	)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find booking by event: %w", err)
	}
	return b, nil
}

// CreateFromFeed inserts a booking first seen in the feed. A concurrent
// insert of the same key surfaces as a CONFLICT error.
func (t *BookingTx) CreateFromFeed(ctx context.Context, listingID int64, eventID string, f model.BookingFeedFields) (int64, error) {
	result, err := t.tx.ExecContext(ctx,
		`INSERT INTO bookings (listing_id, google_calendar_id, airbnb_checkin, airbnb_checkout,
		 reservation_url, airbnb_guestpic_url, phone_last4, needs_manual_details)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
		listingID, eventID, f.Checkin, f.Checkout, f.ReservationURL, f.GuestPicURL, f.PhoneLast4,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apperr.Conflict("booking already exists for this calendar event", err).
				WithDetails(map[string]any{"listing_id": listingID, "event_id": eventID})
		}
		return 0, fmt.Errorf("insert booking: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// UpdateFromFeed rewrites only the feed-owned columns.
func (t *BookingTx) UpdateFromFeed(ctx context.Context, id int64, f model.BookingFeedFields) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE bookings SET airbnb_checkin = ?, airbnb_checkout = ?, reservation_url = ?,
		 airbnb_guestpic_url = ?, phone_last4 = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		f.Checkin, f.Checkout, f.ReservationURL, f.GuestPicURL, f.PhoneLast4, id,
	)
	if err != nil {
		return fmt.Errorf("update booking from feed: %w", err)
	}
	return nil
}
