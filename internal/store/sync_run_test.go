package store

import (
	"testing"
	"time"

	"github.com/dukerupert/hostcal/internal/model"
)

func TestSyncRunCreateAndList(t *testing.T) {
	rs := NewSyncRunStore(openTestDB(t))
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, status := range []string{model.SyncStatusSuccess, model.SyncStatusError, model.SyncStatusSuccess} {
		listingID := int64(7)
		if i == 2 {
			listingID = 8
		}
		r := model.SyncRun{ListingID: listingID, Status: status, Created: i, StartedAt: start, FinishedAt: start.Add(time.Second)}
		if status == model.SyncStatusError {
			r.ErrorCode = "TRANSPORT_ERROR"
			r.Error = "feed unreachable"
		}
		if _, err := rs.Create(r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, err := rs.List(nil, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].ListingID != 8 {
		t.Errorf("first run listing = %d, want newest (8)", all[0].ListingID)
	}

	listingID := int64(7)
	runs, err := rs.List(&listingID, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len = %d, want 1", len(runs))
	}
	if runs[0].Status != model.SyncStatusError || runs[0].ErrorCode != "TRANSPORT_ERROR" {
		t.Errorf("got %+v", runs[0])
	}
	if !runs[0].StartedAt.Equal(start) {
		t.Errorf("started_at = %v, want %v", runs[0].StartedAt, start)
	}
}
