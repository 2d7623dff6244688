package model

import "time"

type Listing struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	Name             string    `json:"name"`
	Street           string    `json:"street"`
	City             string    `json:"city"`
	State            string    `json:"state"`
	ImageURL         string    `json:"image_url"`
	AirbnbAddress    string    `json:"airbnb_address"`
	AirbnbZipcode    string    `json:"airbnb_zipcode"`
	CurrentBookingID *int64    `json:"current_booking_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ListingFields are the caller-editable columns of a listing.
type ListingFields struct {
	Name             string `json:"name"`
	Street           string `json:"street"`
	City             string `json:"city"`
	State            string `json:"state"`
	ImageURL         string `json:"image_url"`
	AirbnbAddress    string `json:"airbnb_address" validate:"required"`
	AirbnbZipcode    string `json:"airbnb_zipcode"`
	CurrentBookingID *int64 `json:"current_booking_id"`
}
