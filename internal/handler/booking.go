package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/hostcal/internal/apperr"
	"github.com/dukerupert/hostcal/internal/model"
	"github.com/dukerupert/hostcal/internal/notify"
	"github.com/dukerupert/hostcal/internal/store"
)

type BookingHandler struct {
	store     *store.BookingStore
	publisher notify.Publisher
	logger    *slog.Logger
}

func NewBookingHandler(s *store.BookingStore, publisher notify.Publisher, logger *slog.Logger) *BookingHandler {
	if publisher == nil {
		publisher = notify.Discard{}
	}
	return &BookingHandler{store: s, publisher: publisher, logger: logger}
}

func parseDateParam(r *http.Request, name string) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return "", nil
	}
	if _, err := time.Parse(time.DateOnly, raw); err != nil {
		return "", apperr.Validation(name+" must be YYYY-MM-DD").WithDetails(map[string]any{name: raw})
	}
	return raw, nil
}

func parseBookingFilter(r *http.Request) (store.BookingFilter, error) {
	var f store.BookingFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("listing_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return f, apperr.Validation("listing_id must be an integer").WithDetails(map[string]any{"listing_id": raw})
		}
		f.ListingID = &id
	}
	var err error
	if f.Start, err = parseDateParam(r, "start"); err != nil {
		return f, err
	}
	if f.End, err = parseDateParam(r, "end"); err != nil {
		return f, err
	}
	return f, nil
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseBookingFilter(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	bookings, err := h.store.List(f)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

// Update is the manual edit path for guest details.
func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var p model.BookingPatch
	if err := readJSON(w, r, &p); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	b, err := h.store.ManualUpdate(id, p)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if b == nil {
		writeError(w, r, h.logger, apperr.NotFound("booking not found").WithDetails(map[string]any{"booking_id": id}))
		return
	}
	h.logger.Info("booking updated manually", "booking_id", id, "needs_manual_details", b.NeedsManualDetails)

	var listingID int64
	if b.ListingID != nil {
		listingID = *b.ListingID
	}
	ev := notify.NewEvent(notify.EntityBooking, notify.ActionUpdated, listingID, b.ID, map[string]any{"source": "manual"})
	if err := h.publisher.Publish(r.Context(), ev); err != nil {
		h.logger.Warn("publish booking update", "booking_id", id, "error", err)
	}
	writeJSON(w, http.StatusOK, b)
}
