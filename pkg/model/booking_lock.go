package model

import "time"

// BookingLock is an advisory lock on a car's calendar. Its _id is derived from
// the car id, so a second writer gets a duplicate key error.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
