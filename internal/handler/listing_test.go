package handler

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/hostcal/internal/model"
	"github.com/dukerupert/hostcal/internal/store"
)

func seedUser(t *testing.T, db *sql.DB, email string) int64 {
	t.Helper()
	u, err := store.NewUserStore(db).Create(email, "pw-hash", "answer-hash")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u.ID
}

func seedListing(t *testing.T, db *sql.DB, userID int64) int64 {
	t.Helper()
	l, err := store.NewListingStore(db).Create(userID, model.ListingFields{
		Name:          "Lake House",
		AirbnbAddress: "12 Shore Rd",
	})
	if err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return l.ID
}

func withID(req *http.Request, id int64) *http.Request {
	req.SetPathValue("id", itoa(id))
	return req
}

func itoa(n int64) string {
	return fmt.Sprint(n)
}

func TestListingCreateAndList(t *testing.T) {
	db := openTestDB(t)
	h := NewListingHandler(store.NewListingStore(db), discardLogger())
	owner := seedUser(t, db, "owner@example.com")
	other := seedUser(t, db, "other@example.com")
	seedListing(t, db, other)

	rec := httptest.NewRecorder()
	h.Create(rec, asUser(jsonRequest(t, "POST", "/api/listings", map[string]any{
		"name":           "  Cabin ",
		"airbnb_address": "1 Pine Way",
		"airbnb_zipcode": "04101",
	}), owner))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[model.Listing](t, rec)
	if created.Name != "Cabin" || created.UserID != owner {
		t.Errorf("created = %+v", created)
	}

	rec = httptest.NewRecorder()
	h.List(rec, asUser(httptest.NewRequest("GET", "/api/listings", nil), owner))
	listings := decodeBody[[]model.Listing](t, rec)
	if len(listings) != 1 || listings[0].ID != created.ID {
		t.Errorf("owner sees %+v, want only own listing", listings)
	}
}

func TestListingListEmptyIsArray(t *testing.T) {
	db := openTestDB(t)
	h := NewListingHandler(store.NewListingStore(db), discardLogger())
	owner := seedUser(t, db, "owner@example.com")

	rec := httptest.NewRecorder()
	h.List(rec, asUser(httptest.NewRequest("GET", "/api/listings", nil), owner))
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestListingCreateRequiresAddress(t *testing.T) {
	db := openTestDB(t)
	h := NewListingHandler(store.NewListingStore(db), discardLogger())
	owner := seedUser(t, db, "owner@example.com")

	rec := httptest.NewRecorder()
	h.Create(rec, asUser(jsonRequest(t, "POST", "/api/listings", map[string]any{
		"name": "No Address", "airbnb_address": "   ",
	}), owner))
	body := expectError(t, rec, http.StatusBadRequest, "VALIDATION_ERROR")
	if _, ok := body.Details["airbnb_address"]; !ok {
		t.Errorf("details = %v, want airbnb_address", body.Details)
	}
}

func TestListingOtherUsersAreHidden(t *testing.T) {
	db := openTestDB(t)
	h := NewListingHandler(store.NewListingStore(db), discardLogger())
	owner := seedUser(t, db, "owner@example.com")
	other := seedUser(t, db, "other@example.com")
	id := seedListing(t, db, owner)

	rec := httptest.NewRecorder()
	h.Get(rec, asUser(withID(httptest.NewRequest("GET", "/", nil), id), other))
	expectError(t, rec, http.StatusNotFound, "NOT_FOUND")

	rec = httptest.NewRecorder()
	h.Delete(rec, asUser(withID(httptest.NewRequest("DELETE", "/", nil), id), other))
	expectError(t, rec, http.StatusNotFound, "NOT_FOUND")

	rec = httptest.NewRecorder()
	h.Get(rec, asUser(withID(httptest.NewRequest("GET", "/", nil), id), owner))
	if rec.Code != http.StatusOK {
		t.Errorf("owner get status = %d", rec.Code)
	}
}

func TestListingUpdate(t *testing.T) {
	db := openTestDB(t)
	h := NewListingHandler(store.NewListingStore(db), discardLogger())
	owner := seedUser(t, db, "owner@example.com")
	id := seedListing(t, db, owner)

	rec := httptest.NewRecorder()
	h.Update(rec, asUser(withID(jsonRequest(t, "PUT", "/", map[string]any{
		"name":               "Lake House (renovated)",
		"airbnb_address":     "12 Shore Rd",
		"city":               "Portland",
		"current_booking_id": 7,
	}), id), owner))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	l := decodeBody[model.Listing](t, rec)
	if l.Name != "Lake House (renovated)" || l.City != "Portland" {
		t.Errorf("updated = %+v", l)
	}
	if l.CurrentBookingID == nil || *l.CurrentBookingID != 7 {
		t.Errorf("current_booking_id = %v, want 7", l.CurrentBookingID)
	}
}

func TestListingDeleteCascadesBookings(t *testing.T) {
	db := openTestDB(t)
	listings := store.NewListingStore(db)
	h := NewListingHandler(listings, discardLogger())
	owner := seedUser(t, db, "owner@example.com")
	id := seedListing(t, db, owner)
	bookingID := seedFeedBooking(t, db, id, "evt-1", "2024-03-01", "2024-03-03")

	rec := httptest.NewRecorder()
	h.Delete(rec, asUser(withID(httptest.NewRequest("DELETE", "/", nil), id), owner))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}

	b, err := store.NewBookingStore(db).GetByID(bookingID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if b != nil {
		t.Error("booking survived listing delete")
	}
}
