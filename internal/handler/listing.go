package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/hostcal/internal/apperr"
	"github.com/dukerupert/hostcal/internal/auth"
	"github.com/dukerupert/hostcal/internal/model"
	"github.com/dukerupert/hostcal/internal/store"
)

type ListingHandler struct {
	store  *store.ListingStore
	logger *slog.Logger
}

func NewListingHandler(s *store.ListingStore, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{store: s, logger: logger}
}

func trimListingFields(f *model.ListingFields) {
	f.Name = strings.TrimSpace(f.Name)
	f.Street = strings.TrimSpace(f.Street)
	f.City = strings.TrimSpace(f.City)
	f.State = strings.TrimSpace(f.State)
	f.ImageURL = strings.TrimSpace(f.ImageURL)
	f.AirbnbAddress = strings.TrimSpace(f.AirbnbAddress)
	f.AirbnbZipcode = strings.TrimSpace(f.AirbnbZipcode)
}

func (h *ListingHandler) readFields(w http.ResponseWriter, r *http.Request) (model.ListingFields, error) {
	var f model.ListingFields
	if err := readJSON(w, r, &f); err != nil {
		return f, err
	}
	trimListingFields(&f)
	return f, validateStruct(&f)
}

// owned loads the listing named by the path and hides listings of other
// users behind a 404.
func (h *ListingHandler) owned(r *http.Request) (*model.Listing, error) {
	id, err := parseIDParam(r)
	if err != nil {
		return nil, err
	}
	l, err := h.store.GetByID(id)
	if err != nil {
		return nil, err
	}
	if l == nil || l.UserID != auth.UserID(r.Context()) {
		return nil, apperr.NotFound("listing not found").WithDetails(map[string]any{"listing_id": id})
	}
	return l, nil
}

func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	f, err := h.readFields(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	l, err := h.store.Create(auth.UserID(r.Context()), f)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("listing created", "listing_id", l.ID, "user_id", l.UserID)
	writeJSON(w, http.StatusCreated, l)
}

func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	listings, err := h.store.ListByUser(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if listings == nil {
		listings = []model.Listing{}
	}
	writeJSON(w, http.StatusOK, listings)
}

func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	l, err := h.owned(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *ListingHandler) Update(w http.ResponseWriter, r *http.Request) {
	l, err := h.owned(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	f, err := h.readFields(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	updated, err := h.store.Update(l.ID, f)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	l, err := h.owned(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.store.Delete(l.ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("listing deleted", "listing_id", l.ID)
	w.WriteHeader(http.StatusNoContent)
}
