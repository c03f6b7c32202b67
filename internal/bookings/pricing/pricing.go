// Package pricing turns a rental period and a daily rate into a total.
package pricing

import (
	"carrental/pkg/validation"
	"math"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"

	day = 24 * time.Hour
)

// ParseDate accepts a calendar date or an RFC 3339 timestamp. Calendar dates
// are midnight UTC.
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, validation.Field(field, field+" must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
}

// Days counts rental days: every started 24h period is a full day, with a
// minimum of one.
func Days(start, end time.Time) (int, error) {
	if !end.After(start) {
		return 0, validation.Field("end_date", "end_date must be after start_date")
	}
	days := int(math.Ceil(float64(end.Sub(start)) / float64(day)))
	return max(days, 1), nil
}

// Calculate returns days × dailyRate rounded to cents.
func Calculate(start, end time.Time, dailyRate float64) (float64, error) {
	days, err := Days(start, end)
	if err != nil {
		return 0, err
	}
	if dailyRate <= 0 {
		return 0, validation.Field("price_per_day", "price_per_day must be positive")
	}
	return Round(float64(days) * dailyRate), nil
}

func CalculateFromStrings(start, end string, dailyRate float64) (float64, error) {
	s, err := ParseDate("start_date", start)
	if err != nil {
		return 0, err
	}
	e, err := ParseDate("end_date", end)
	if err != nil {
		return 0, err
	}
	return Calculate(s, e, dailyRate)
}

func Round(amount float64) float64 {
	return math.Round(amount*100) / 100
}
