package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/hostcal/internal/model"
)

type SyncRunStore struct {
	db *sql.DB
}

func NewSyncRunStore(db *sql.DB) *SyncRunStore {
	return &SyncRunStore{db: db}
}

func scanSyncRun(scanner interface{ Scan(...any) error }) (*model.SyncRun, error) {
	var r model.SyncRun
	err := scanner.Scan(
		&r.ID, &r.ListingID, &r.Status, &r.Created, &r.Updated,
		&r.ErrorCode, &r.Error, &r.StartedAt, &r.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const syncRunCols = `id, listing_id, status, created, updated, error_code, error, started_at, finished_at`

// DefaultSyncRunLimit caps List when the caller asks for nothing specific.
const DefaultSyncRunLimit = 50

func (s *SyncRunStore) Create(r model.SyncRun) (*model.SyncRun, error) {
	result, err := s.db.Exec(
		`INSERT INTO sync_runs (listing_id, status, created, updated, error_code, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ListingID, r.Status, r.Created, r.Updated, r.ErrorCode, r.Error,
		r.StartedAt.UTC(), r.FinishedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert sync run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+syncRunCols+` FROM sync_runs WHERE id = ?`, id)
	return scanSyncRun(row)
}

// List returns runs newest first, optionally for one listing.
func (s *SyncRunStore) List(listingID *int64, limit int) ([]model.SyncRun, error) {
	if limit <= 0 {
		limit = DefaultSyncRunLimit
	}

	var rows *sql.Rows
	var err error
	if listingID != nil {
		rows, err = s.db.Query(
			`SELECT `+syncRunCols+` FROM sync_runs WHERE listing_id = ? ORDER BY id DESC LIMIT ?`,
			*listingID, limit,
		)
	} else {
		rows, err = s.db.Query(`SELECT `+syncRunCols+` FROM sync_runs ORDER BY id DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []model.SyncRun
	for rows.Next() {
		r, err := scanSyncRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}
