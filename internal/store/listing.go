package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/hostcal/internal/model"
)

type ListingStore struct {
	db *sql.DB
}

func NewListingStore(db *sql.DB) *ListingStore {
	return &ListingStore{db: db}
}

func scanListing(scanner interface{ Scan(...any) error }) (*model.Listing, error) {
	var l model.Listing
	var currentBookingID sql.NullInt64

	err := scanner.Scan(
		&l.ID, &l.UserID, &l.Name, &l.Street, &l.City, &l.State,
		&l.ImageURL, &l.AirbnbAddress, &l.AirbnbZipcode, &currentBookingID,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if currentBookingID.Valid {
		l.CurrentBookingID = &currentBookingID.Int64
	}
	return &l, nil
}

const listingCols = `id, user_id, name, street, city, state, image_url, airbnb_address, airbnb_zipcode, current_booking_id, created_at, updated_at`

func (s *ListingStore) Create(userID int64, f model.ListingFields) (*model.Listing, error) {
	result, err := s.db.Exec(
		`INSERT INTO listings (user_id, name, street, city, state, image_url, airbnb_address, airbnb_zipcode, current_booking_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, f.Name, f.Street, f.City, f.State, f.ImageURL, f.AirbnbAddress, f.AirbnbZipcode, f.CurrentBookingID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert listing: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ListingStore) GetByID(id int64) (*model.Listing, error) {
	row := s.db.QueryRow(`SELECT `+listingCols+` FROM listings WHERE id = ?`, id)
	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}

func (s *ListingStore) Exists(id int64) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM listings WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check listing: %w", err)
	}
	return n > 0, nil
}

func (s *ListingStore) ListByUser(userID int64) ([]model.Listing, error) {
	rows, err := s.db.Query(`SELECT `+listingCols+` FROM listings WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

func (s *ListingStore) Update(id int64, f model.ListingFields) (*model.Listing, error) {
	_, err := s.db.Exec(
		`UPDATE listings SET name = ?, street = ?, city = ?, state = ?, image_url = ?,
		 airbnb_address = ?, airbnb_zipcode = ?, current_booking_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		f.Name, f.Street, f.City, f.State, f.ImageURL, f.AirbnbAddress, f.AirbnbZipcode, f.CurrentBookingID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update listing: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes the listing; its bookings go with it through the foreign key.
func (s *ListingStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM listings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	return nil
}
