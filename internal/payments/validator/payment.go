package validator

import (
	"carrental/pkg/config"
	"carrental/pkg/model"
	"carrental/pkg/validation"
	"slices"
)

// Refunds only happen through booking cancellation, so refunded is not a
// target here.
var transitions = map[string][]string{
	config.PaymentPending: {config.PaymentCompleted, config.PaymentFailed},
}

type PaymentValidator struct {
	validate *validation.Validator
}

func NewPaymentValidator(v *validation.Validator) *PaymentValidator {
	return &PaymentValidator{validate: v}
}

func (v *PaymentValidator) Validate(payment *model.Payment) error {
	return v.validate.Struct(payment)
}

func (v *PaymentValidator) ValidateRequest(req *model.PaymentRequest) error {
	return v.validate.Struct(req)
}

func (v *PaymentValidator) ValidateStatusUpdate(update *model.PaymentStatusUpdate) error {
	return v.validate.Struct(update)
}

func CanTransition(from, to string) bool {
	return slices.Contains(transitions[from], to)
}
