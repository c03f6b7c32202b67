package validator

import (
	"carrental/pkg/model"
	"carrental/pkg/validation"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCar() *model.Car {
	return &model.Car{
		Make:            "Toyota",
		Model:           "Axio",
		ManufactureYear: 2018,
		LicensePlate:    "KDA 123A",
		PricePerDay:     3000,
		Status:          "available",
		Images:          []string{"https://cdn.example.com/cars/axio.jpg"},
	}
}

func newValidator(t *testing.T) *CarValidator {
	t.Helper()
	v, err := validation.New()
	require.NoError(t, err)
	cv := NewCarValidator(v, 2)
	cv.now = func() time.Time { return time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC) }
	return cv
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *model.Car)
		wantField string
	}{
		{name: "valid", mutate: func(c *model.Car) {}},
		{name: "next model year allowed", mutate: func(c *model.Car) { c.ManufactureYear = 2026 }},
		{name: "year too far ahead", mutate: func(c *model.Car) { c.ManufactureYear = 2027 }, wantField: "manufacture_year"},
		{name: "year too old", mutate: func(c *model.Car) { c.ManufactureYear = 1899 }, wantField: "manufacture_year"},
		{name: "lowercase plate", mutate: func(c *model.Car) { c.LicensePlate = "kda 123a" }, wantField: "license_plate"},
		{name: "free car", mutate: func(c *model.Car) { c.PricePerDay = 0 }, wantField: "price_per_day"},
		{name: "unknown status", mutate: func(c *model.Car) { c.Status = "stolen" }, wantField: "status"},
		{name: "short make", mutate: func(c *model.Car) { c.Make = "T" }, wantField: "make"},
		{name: "long model", mutate: func(c *model.Car) { c.Model = strings.Repeat("m", 51) }, wantField: "model"},
		{name: "too many images", mutate: func(c *model.Car) {
			c.Images = []string{"https://a.example.com/1.jpg", "https://a.example.com/2.jpg", "https://a.example.com/3.jpg"}
		}, wantField: "images"},
		{name: "bad image url", mutate: func(c *model.Car) { c.Images = []string{"not a url"} }, wantField: "images[0]"},
	}

	v := newValidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			car := validCar()
			tt.mutate(car)
			err := v.Validate(car)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			errs, ok := err.(validation.ValidationErrors)
			require.True(t, ok)
			var fields []string
			for _, e := range errs {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}
