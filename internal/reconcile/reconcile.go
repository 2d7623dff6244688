// Package reconcile makes the booking store match one feed snapshot for a
// listing. Bookings are keyed by (listing, calendar event id); feed-owned
// columns are rewritten, guest details are never touched.
package reconcile

import (
	"context"
	"fmt"

	"github.com/dukerupert/hostcal/internal/apperr"
	"github.com/dukerupert/hostcal/internal/model"
	"github.com/dukerupert/hostcal/internal/reservation"
	"github.com/dukerupert/hostcal/internal/store"
)

// Result counts the rows that created or updated a booking.
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Change is one booking touched by a reconcile, for event fan-out.
type Change struct {
	BookingID int64
	EventID   string
	Created   bool
}

type Reconciler struct {
	bookings *store.BookingStore
}

func New(bookings *store.BookingStore) *Reconciler {
	return &Reconciler{bookings: bookings}
}

// Reconcile upserts rows into listingID's bookings in a single transaction.
// It fails with NOT_FOUND when the listing does not exist and with CONFLICT
// when a concurrent writer created one of the keys first; in both cases
// nothing is written.
func (r *Reconciler) Reconcile(ctx context.Context, listingID int64, rows []reservation.Row) (Result, []Change, error) {
	var res Result
	var changes []Change

	err := r.bookings.InTx(ctx, func(tx *store.BookingTx) error {
		ok, err := tx.ListingExists(ctx, listingID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound(fmt.Sprintf("listing_id %d not found", listingID)).
				WithDetails(map[string]any{"listing_id": listingID})
		}

		for _, row := range rows {
			fields := feedFields(row)

			existing, err := tx.FindByEvent(ctx, listingID, row.EventID)
			if err != nil {
				return err
			}

			if existing == nil {
				id, err := tx.CreateFromFeed(ctx, listingID, row.EventID, fields)
				if err != nil {
					return err
				}
				res.Created++
				changes = append(changes, Change{BookingID: id, EventID: row.EventID, Created: true})
				continue
			}

			res.Updated++
			changes = append(changes, Change{BookingID: existing.ID, EventID: row.EventID})
			if sameFeedFields(existing, fields) {
				continue
			}
			if err := tx.UpdateFromFeed(ctx, existing.ID, fields); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, nil, err
	}
	return res, changes, nil
}

func feedFields(row reservation.Row) model.BookingFeedFields {
	return model.BookingFeedFields{
		Checkin:        row.CheckinDate(),
		Checkout:       row.CheckoutDate(),
		ReservationURL: row.ReservationURL,
		GuestPicURL:    row.ImageURL,
		PhoneLast4:     row.PhoneLast4,
	}
}

// sameFeedFields reports whether writing f would leave b unchanged, so an
// unchanged feed does not even bump updated_at.
func sameFeedFields(b *model.Booking, f model.BookingFeedFields) bool {
	return equalPtr(b.Checkin, &f.Checkin) &&
		equalPtr(b.Checkout, &f.Checkout) &&
		equalPtr(b.ReservationURL, f.ReservationURL) &&
		equalPtr(b.GuestPicURL, f.GuestPicURL) &&
		equalPtr(b.PhoneLast4, f.PhoneLast4)
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
