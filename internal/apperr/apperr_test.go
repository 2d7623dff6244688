package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("sync: %w", Conflict("booking exists", io.EOF))

	if !errors.Is(err, ErrConflict) {
		t.Error("expected wrapped conflict to match ErrConflict")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("conflict should not match ErrNotFound")
	}
	if !errors.Is(err, io.EOF) {
		t.Error("expected cause to stay reachable through Unwrap")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{Transport("feed unreachable", nil), CodeTransport},
		{Parse("bad feed", nil), CodeParse},
		{NotFound("listing 7 not found"), CodeNotFound},
		{Validation("listing_id required"), CodeValidation},
		{errors.New("boom"), CodeInternal},
	}
	for _, tt := range tests {
		if got := CodeOf(tt.err); got != tt.want {
			t.Errorf("CodeOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, NotFound("listing_id 7 not found").WithDetails(map[string]any{"listing_id": 7}))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q, want application/json", ct)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "listing_id 7 not found" {
		t.Errorf("error = %q", resp.Error)
	}
	if resp.Code != CodeNotFound {
		t.Errorf("code = %q, want %q", resp.Code, CodeNotFound)
	}
	if resp.Details["listing_id"] != float64(7) {
		t.Errorf("details = %v", resp.Details)
	}
}

func TestWriteUnknownErrorIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, errors.New("disk on fire"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	var resp Response
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Error != "internal error" {
		t.Errorf("internal details leaked: %q", resp.Error)
	}
}
