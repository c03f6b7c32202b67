package model

import "time"

type Payment struct {
	ID            string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	BookingID     string     `json:"booking_id" bson:"booking_id" validate:"required,mongodb"`
	UserID        string     `json:"user_id" bson:"user_id" validate:"required,mongodb"`
	Amount        float64    `json:"amount" bson:"amount" validate:"gt=0"`
	Method        string     `json:"payment_method" bson:"method" validate:"required,payment_method"`
	Status        string     `json:"status" bson:"status" validate:"required,payment_status"`
	TransactionID string     `json:"transaction_id,omitempty" bson:"transaction_id,omitempty" validate:"omitempty,max=100"`
	PaidAt        *time.Time `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
	RefundedAt    *time.Time `json:"refunded_at,omitempty" bson:"refunded_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
}

type PaymentRequest struct {
	BookingID     string `json:"booking_id" validate:"required,mongodb"`
	PaymentMethod string `json:"payment_method" validate:"required,payment_method"`
	TransactionID string `json:"transaction_id,omitempty" validate:"omitempty,max=100"`
}

type PaymentStatusUpdate struct {
	Status        string `json:"status" validate:"required,payment_status"`
	TransactionID string `json:"transaction_id,omitempty" validate:"omitempty,max=100"`
}

type PaymentFilter struct {
	BookingID string
	UserID    string
	Status    string
}
