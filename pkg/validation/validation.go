// Package validation wraps go-playground/validator with the domain tags used
// by the car rental models and turns its errors into field level messages.
package validation

import (
	"carrental/pkg/config"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

var licensePlateRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9 -]{1,13}[A-Z0-9]$`)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Field builds a single-error ValidationErrors.
func Field(field, message string) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message}}
}

type Validator struct {
	validate *validator.Validate
}

func New() (*Validator, error) {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	rules := map[string]validator.Func{
		"role":           oneOf(config.Roles),
		"car_status":     oneOf(config.CarStatuses),
		"booking_status": oneOf(config.BookingStatuses),
		"payment_status": oneOf(config.PaymentStatuses),
		"payment_method": oneOf(config.PaymentMethods),
		"license_plate":  validateLicensePlate,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return nil, fmt.Errorf("failed to register %q validator: %w", tag, err)
		}
	}

	return &Validator{validate: v}, nil
}

func oneOf(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return slices.Contains(allowed, fl.Field().String())
	}
}

func validateLicensePlate(fl validator.FieldLevel) bool {
	return licensePlateRegex.MatchString(fl.Field().String())
}

// Struct validates s and returns ValidationErrors for rule failures.
func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return Translate(validationErrs)
		}
		return err
	}
	return nil
}

// Var validates a single value against tag, reporting it under field.
func (v *Validator) Var(field string, value any, tag string) error {
	if err := v.validate.Var(value, tag); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			out := Translate(validationErrs)
			for i := range out {
				out[i].Field = field
				out[i].Message = strings.Replace(out[i].Message, "value", field, 1)
			}
			return out
		}
		return err
	}
	return nil
}

func Translate(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		field := err.Field()
		if field == "" {
			field = "value"
		}
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "min":
			message = fmt.Sprintf("%s must be at least %s", field, err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", field, err.Param())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", field, err.Param())
		case "gte":
			message = fmt.Sprintf("%s must be at least %s", field, err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", field, snakeCase(err.Param()))
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid ID", field)
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", field)
		case "e164":
			message = fmt.Sprintf("%s must be in E.164 format (e.g., +254712345678)", field)
		case "url":
			message = fmt.Sprintf("%s must be a valid URL", field)
		case "alphanum":
			message = fmt.Sprintf("%s must contain only letters and digits", field)
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", field, err.Param())
		case "role":
			message = fmt.Sprintf("%s must be one of: %s", field, strings.Join(config.Roles, ", "))
		case "car_status":
			message = fmt.Sprintf("%s must be one of: %s", field, strings.Join(config.CarStatuses, ", "))
		case "booking_status":
			message = fmt.Sprintf("%s must be one of: %s", field, strings.Join(config.BookingStatuses, ", "))
		case "payment_status":
			message = fmt.Sprintf("%s must be one of: %s", field, strings.Join(config.PaymentStatuses, ", "))
		case "payment_method":
			message = fmt.Sprintf("%s must be one of: %s", field, strings.Join(config.PaymentMethods, ", "))
		case "license_plate":
			message = fmt.Sprintf("%s must be 3-15 uppercase letters, digits, spaces or dashes", field)
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   field,
			Message: message,
		})
	}

	return validationErrors
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
