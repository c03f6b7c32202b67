package model

import "time"

type Car struct {
	ID              string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Make            string    `json:"make" bson:"make" validate:"required,min=2,max=50"`
	Model           string    `json:"model" bson:"model" validate:"required,min=2,max=50"`
	ManufactureYear int       `json:"manufacture_year" bson:"manufacture_year" validate:"required,min=1900"`
	LicensePlate    string    `json:"license_plate" bson:"license_plate" validate:"required,license_plate"`
	PricePerDay     float64   `json:"price_per_day" bson:"price_per_day" validate:"required,gte=0.01"`
	Status          string    `json:"status" bson:"status" validate:"required,car_status"`
	Images          []string  `json:"images" bson:"images" validate:"omitempty,dive,url"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

type CarUpdate struct {
	Make            *string   `json:"make,omitempty" validate:"omitempty,min=2,max=50"`
	Model           *string   `json:"model,omitempty" validate:"omitempty,min=2,max=50"`
	ManufactureYear *int      `json:"manufacture_year,omitempty" validate:"omitempty,min=1900"`
	LicensePlate    *string   `json:"license_plate,omitempty"`
	PricePerDay     *float64  `json:"price_per_day,omitempty" validate:"omitempty,gte=0.01"`
	Status          *string   `json:"status,omitempty" validate:"omitempty,car_status"`
	Images          *[]string `json:"images,omitempty" validate:"omitempty,dive,url"`
}

type CarSummary struct {
	ID           string  `json:"id"`
	Make         string  `json:"make"`
	Model        string  `json:"model"`
	LicensePlate string  `json:"license_plate"`
	PricePerDay  float64 `json:"price_per_day"`
	Status       string  `json:"status"`
}

func (c *Car) Summary() *CarSummary {
	if c == nil {
		return nil
	}
	return &CarSummary{
		ID:           c.ID,
		Make:         c.Make,
		Model:        c.Model,
		LicensePlate: c.LicensePlate,
		PricePerDay:  c.PricePerDay,
		Status:       c.Status,
	}
}

type CarFilter struct {
	Status   string
	Make     string
	Model    string
	MinPrice *float64
	MaxPrice *float64
}
