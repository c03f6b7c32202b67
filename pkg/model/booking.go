package model

import (
	"time"
)

type Booking struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	CarID      string    `json:"car_id" bson:"car_id" validate:"required,mongodb"`
	UserID     string    `json:"user_id" bson:"user_id" validate:"required,mongodb"`
	StartDate  time.Time `json:"start_date" bson:"start_date" validate:"required"`
	EndDate    time.Time `json:"end_date" bson:"end_date" validate:"required,gtfield=StartDate"`
	TotalPrice float64   `json:"total_price" bson:"total_price" validate:"gte=0"`
	Status     string    `json:"status" bson:"status" validate:"required,booking_status"`
	Notes      string    `json:"notes,omitempty" bson:"notes,omitempty" validate:"omitempty,max=500"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// BookingRequest is the client payload for a new booking. Dates are strings
// so that both "2006-01-02" and RFC 3339 are accepted.
type BookingRequest struct {
	CarID     string `json:"car_id" validate:"required,mongodb"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
	Notes     string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type BookingUpdate struct {
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
	Status    string  `json:"status,omitempty" validate:"omitempty,booking_status"`
	Notes     *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

func (u *BookingUpdate) ChangesDates() bool {
	return u.StartDate != nil || u.EndDate != nil
}

type BookingDetails struct {
	*Booking
	Car      *CarSummary  `json:"car,omitempty"`
	User     *UserSummary `json:"user,omitempty"`
	Payments []*Payment   `json:"payments"`
}

type BookingFilter struct {
	UserID string
	CarID  string
	Status string
	From   *time.Time
	To     *time.Time
}

type CancellationResult struct {
	Booking          *Booking `json:"booking"`
	RefundsProcessed int64    `json:"refunds_processed"`
}

type Availability struct {
	CarID          string      `json:"car_id"`
	StartDate      time.Time   `json:"start_date"`
	EndDate        time.Time   `json:"end_date"`
	Available      bool        `json:"available"`
	Days           int         `json:"days"`
	EstimatedPrice float64     `json:"estimated_price"`
	Car            *CarSummary `json:"car"`
}
