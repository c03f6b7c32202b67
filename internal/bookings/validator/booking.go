package validator

import (
	"carrental/pkg/model"
	"carrental/pkg/validation"
	"fmt"
	"time"
)

type BookingValidator struct {
	validate    *validation.Validator
	maxSpanDays int
}

func NewBookingValidator(v *validation.Validator, maxSpanDays int) *BookingValidator {
	return &BookingValidator{
		validate:    v,
		maxSpanDays: maxSpanDays,
	}
}

func (v *BookingValidator) Validate(booking *model.Booking) error {
	return v.validate.Struct(booking)
}

func (v *BookingValidator) ValidateRequest(req *model.BookingRequest) error {
	return v.validate.Struct(req)
}

func (v *BookingValidator) ValidateUpdate(update *model.BookingUpdate) error {
	return v.validate.Struct(update)
}

// ValidateDates enforces end after start and the maximum span. When
// requireFuture is set the start may not lie before today (UTC).
func (v *BookingValidator) ValidateDates(start, end, now time.Time, requireFuture bool) error {
	var errs validation.ValidationErrors

	today := now.UTC().Truncate(24 * time.Hour)
	if requireFuture && start.Before(today) {
		errs = append(errs, validation.ValidationError{
			Field:   "start_date",
			Message: "start_date cannot be in the past",
		})
	}
	if !end.After(start) {
		errs = append(errs, validation.ValidationError{
			Field:   "end_date",
			Message: "end_date must be after start_date",
		})
	} else if end.Sub(start) > time.Duration(v.maxSpanDays)*24*time.Hour {
		errs = append(errs, validation.ValidationError{
			Field:   "end_date",
			Message: fmt.Sprintf("a booking cannot span more than %d days", v.maxSpanDays),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
