// Package syncer runs the calendar pipeline end to end: fetch the feed,
// parse it, build reservation rows and reconcile them into a listing's
// bookings. Every sync is recorded and announced to the configured
// publishers.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/hostcal/internal/apperr"
	"github.com/dukerupert/hostcal/internal/archive"
	"github.com/dukerupert/hostcal/internal/ics"
	"github.com/dukerupert/hostcal/internal/model"
	"github.com/dukerupert/hostcal/internal/notify"
	"github.com/dukerupert/hostcal/internal/reconcile"
	"github.com/dukerupert/hostcal/internal/reservation"
)

// Config is everything the pipeline needs from the environment, resolved
// once at startup.
type Config struct {
	FeedURL          string
	Timezone         string
	FetchTimeout     time.Duration
	DefaultListingID *int64
}

type ListingChecker interface {
	Exists(id int64) (bool, error)
}

type RunRecorder interface {
	Create(r model.SyncRun) (*model.SyncRun, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, listingID int64, rows []reservation.Row) (reconcile.Result, []reconcile.Change, error)
}

type Archiver interface {
	Store(ctx context.Context, scope string, body []byte) (string, error)
}

type Syncer struct {
	cfg        Config
	fetcher    *ics.Fetcher
	listings   ListingChecker
	reconciler Reconciler
	runs       RunRecorder
	publisher  notify.Publisher
	archive    Archiver
	logger     *slog.Logger
	now        func() time.Time
}

// New wires a Syncer. publisher and arch may be nil.
func New(cfg Config, listings ListingChecker, rec Reconciler, runs RunRecorder,
	publisher notify.Publisher, arch Archiver, logger *slog.Logger) *Syncer {
	if publisher == nil {
		publisher = notify.Discard{}
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = ics.DefaultTimeout
	}
	return &Syncer{
		cfg:        cfg,
		fetcher:    ics.NewFetcher(cfg.FetchTimeout),
		listings:   listings,
		reconciler: rec,
		runs:       runs,
		publisher:  publisher,
		archive:    arch,
		logger:     logger,
		now:        time.Now,
	}
}

// Location resolves a timezone name, falling back to the configured default.
func (s *Syncer) Location(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		tz = s.cfg.Timezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, apperr.Validation(fmt.Sprintf("unknown timezone %q", tz)).
			WithDetails(map[string]any{"tz": tz})
	}
	return loc, nil
}

// ResolveListingID parses a caller-supplied listing id, falling back to the
// configured default when raw is empty.
func (s *Syncer) ResolveListingID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if s.cfg.DefaultListingID == nil {
			return 0, apperr.Validation("listing_id required")
		}
		return *s.cfg.DefaultListingID, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("listing_id must be an integer").
			WithDetails(map[string]any{"listing_id": raw})
	}
	return id, nil
}

// DefaultListingID is the listing scheduled syncs target, if any.
func (s *Syncer) DefaultListingID() (int64, bool) {
	if s.cfg.DefaultListingID == nil {
		return 0, false
	}
	return *s.cfg.DefaultListingID, true
}

// Rows fetches the feed and returns its reservation rows in tz (or the
// default timezone). Nothing is written.
func (s *Syncer) Rows(ctx context.Context, tz string) ([]reservation.Row, error) {
	loc, err := s.Location(tz)
	if err != nil {
		return nil, err
	}
	events, err := s.load(ctx, archive.ScopePreview)
	if err != nil {
		return nil, err
	}
	return reservation.BuildRows(events, loc), nil
}

// Sync reconciles the current feed into listingID's bookings.
func (s *Syncer) Sync(ctx context.Context, listingID int64) (reconcile.Result, error) {
	started := s.now()
	logger := s.logger.With("listing_id", listingID)

	res, changes, err := s.sync(ctx, listingID, logger)

	run := model.SyncRun{
		ListingID:  listingID,
		Status:     model.SyncStatusSuccess,
		Created:    res.Created,
		Updated:    res.Updated,
		StartedAt:  started,
		FinishedAt: s.now(),
	}
	if err != nil {
		run.Status = model.SyncStatusError
		run.ErrorCode = apperr.CodeOf(err)
		run.Error = apperr.As(err).Message
	}
	if _, rerr := s.runs.Create(run); rerr != nil {
		logger.Error("record sync run", "error", rerr)
	}

	if err != nil {
		logger.Warn("sync failed", "code", run.ErrorCode, "error", err)
		s.publish(ctx, logger, notify.NewEvent(notify.EntitySync, notify.ActionFailed, listingID, 0,
			map[string]any{"code": run.ErrorCode, "error": run.Error}))
		return reconcile.Result{}, err
	}

	logger.Info("sync completed",
		"created", res.Created,
		"updated", res.Updated,
		"duration", run.FinishedAt.Sub(started),
	)
	events := make([]notify.Event, 0, len(changes)+1)
	for _, c := range changes {
		action := notify.ActionUpdated
		if c.Created {
			action = notify.ActionCreated
		}
		events = append(events, notify.NewEvent(notify.EntityBooking, action, listingID, c.BookingID,
			map[string]any{"event_id": c.EventID}))
	}
	events = append(events, notify.NewEvent(notify.EntitySync, notify.ActionCompleted, listingID, 0,
		map[string]any{"created": res.Created, "updated": res.Updated}))
	s.publish(ctx, logger, events...)

	return res, nil
}

func (s *Syncer) sync(ctx context.Context, listingID int64, logger *slog.Logger) (reconcile.Result, []reconcile.Change, error) {
	ok, err := s.listings.Exists(listingID)
	if err != nil {
		return reconcile.Result{}, nil, apperr.Internal("check listing", err)
	}
	if !ok {
		return reconcile.Result{}, nil, apperr.NotFound(fmt.Sprintf("listing_id %d not found", listingID)).
			WithDetails(map[string]any{"listing_id": listingID})
	}

	loc, err := s.Location("")
	if err != nil {
		return reconcile.Result{}, nil, err
	}
	events, err := s.load(ctx, archive.ListingScope(listingID))
	if err != nil {
		return reconcile.Result{}, nil, err
	}
	rows := reservation.BuildRows(events, loc)
	logger.Debug("feed parsed", "events", len(events), "rows", len(rows))

	res, changes, err := s.reconciler.Reconcile(ctx, listingID, rows)
	if errors.Is(err, apperr.ErrConflict) {
		// Another sync created one of our keys first; a second pass sees
		// its row and updates it instead.
		logger.Warn("reconcile conflict, retrying", "error", err)
		res, changes, err = s.reconciler.Reconcile(ctx, listingID, rows)
	}
	return res, changes, err
}

// load fetches, archives and parses the feed.
func (s *Syncer) load(ctx context.Context, scope string) ([]ics.Event, error) {
	start := s.now()
	body, err := s.fetcher.Fetch(ctx, s.cfg.FeedURL)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("feed fetched",
		"url", ics.RedactURL(s.cfg.FeedURL),
		"bytes", len(body),
		"duration", s.now().Sub(start),
	)

	if s.archive != nil {
		if key, err := s.archive.Store(ctx, scope, body); err != nil {
			s.logger.Warn("archive feed", "scope", scope, "error", err)
		} else if key != "" {
			s.logger.Debug("feed archived", "key", key)
		}
	}

	return ics.Parse(body)
}

func (s *Syncer) publish(ctx context.Context, logger *slog.Logger, events ...notify.Event) {
	if err := s.publisher.Publish(ctx, events...); err != nil {
		logger.Warn("publish sync events", "error", err)
	}
}
