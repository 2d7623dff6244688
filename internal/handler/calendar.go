package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/hostcal/internal/apperr"
	"github.com/dukerupert/hostcal/internal/model"
	"github.com/dukerupert/hostcal/internal/reconcile"
	"github.com/dukerupert/hostcal/internal/reservation"
	"github.com/dukerupert/hostcal/internal/store"
)

// Pipeline is the part of the syncer the calendar endpoints drive.
type Pipeline interface {
	Rows(ctx context.Context, tz string) ([]reservation.Row, error)
	ResolveListingID(raw string) (int64, error)
	Sync(ctx context.Context, listingID int64) (reconcile.Result, error)
}

type CalendarHandler struct {
	pipeline Pipeline
	runs     *store.SyncRunStore
	logger   *slog.Logger
}

func NewCalendarHandler(p Pipeline, runs *store.SyncRunStore, logger *slog.Logger) *CalendarHandler {
	return &CalendarHandler{pipeline: p, runs: runs, logger: logger}
}

// Reserved returns the feed's reservation rows without touching the store.
func (h *CalendarHandler) Reserved(w http.ResponseWriter, r *http.Request) {
	rows, err := h.pipeline.Rows(r.Context(), r.URL.Query().Get("tz"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if rows == nil {
		rows = []reservation.Row{}
	}
	writeJSON(w, http.StatusOK, rows)
}

type syncResponse struct {
	OK bool `json:"ok"`
	reconcile.Result
}

// Sync reconciles the feed into a listing. The listing id comes from the
// JSON body, then the query string, then the configured default.
func (h *CalendarHandler) Sync(w http.ResponseWriter, r *http.Request) {
	raw, err := syncListingParam(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	listingID, err := h.pipeline.ResolveListingID(raw)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.pipeline.Sync(r.Context(), listingID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{OK: true, Result: res})
}

// syncListingParam accepts listing_id as a JSON number or string. An empty
// body is not an error.
func syncListingParam(w http.ResponseWriter, r *http.Request) (string, error) {
	var body struct {
		ListingID any `json:"listing_id"`
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return "", apperr.Validation("invalid JSON")
	}

	switch v := body.ListingID.(type) {
	case nil:
	case json.Number:
		return v.String(), nil
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s, nil
		}
	default:
		return "", apperr.Validation("listing_id must be an integer").
			WithDetails(map[string]any{"listing_id": fmt.Sprint(v)})
	}
	return r.URL.Query().Get("listing_id"), nil
}

func (h *CalendarHandler) SyncRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var listingID *int64
	if raw := strings.TrimSpace(q.Get("listing_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, r, h.logger, apperr.Validation("listing_id must be an integer").
				WithDetails(map[string]any{"listing_id": raw}))
			return
		}
		listingID = &id
	}

	limit := store.DefaultSyncRunLimit
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, h.logger, apperr.Validation("limit must be a positive integer").
				WithDetails(map[string]any{"limit": raw}))
			return
		}
		limit = n
	}

	runs, err := h.runs.List(listingID, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if runs == nil {
		runs = []model.SyncRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}
