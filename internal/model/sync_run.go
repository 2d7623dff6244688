package model

import "time"

const (
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// SyncRun records the outcome of one feed-to-store reconciliation.
type SyncRun struct {
	ID         int64     `json:"id"`
	ListingID  int64     `json:"listing_id"`
	Status     string    `json:"status"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	ErrorCode  string    `json:"error_code,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
