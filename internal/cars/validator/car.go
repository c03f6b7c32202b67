package validator

import (
	"carrental/pkg/model"
	"carrental/pkg/validation"
	"fmt"
	"time"
)

type CarValidator struct {
	validate  *validation.Validator
	maxImages int
	now       func() time.Time
}

func NewCarValidator(v *validation.Validator, maxImages int) *CarValidator {
	return &CarValidator{
		validate:  v,
		maxImages: maxImages,
		now:       time.Now,
	}
}

// Validate checks struct tags and the rules that depend on runtime values:
// the manufacture year ceiling and the image count.
func (v *CarValidator) Validate(car *model.Car) error {
	var errs validation.ValidationErrors

	if err := v.validate.Struct(car); err != nil {
		if fieldErrs, ok := err.(validation.ValidationErrors); ok {
			errs = append(errs, fieldErrs...)
		} else {
			return err
		}
	}

	if maxYear := v.now().Year() + 1; car.ManufactureYear > maxYear {
		errs = append(errs, validation.ValidationError{
			Field:   "manufacture_year",
			Message: fmt.Sprintf("manufacture_year must be at most %d", maxYear),
		})
	}
	if len(car.Images) > v.maxImages {
		errs = append(errs, validation.ValidationError{
			Field:   "images",
			Message: fmt.Sprintf("a car can have at most %d images", v.maxImages),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *CarValidator) ValidateUpdate(update *model.CarUpdate) error {
	return v.validate.Struct(update)
}

func (v *CarValidator) MaxImages() int {
	return v.maxImages
}
