package validator

import (
	"carrental/pkg/model"
	"carrental/pkg/validation"
)

type UserValidator struct {
	validate *validation.Validator
}

func NewUserValidator(v *validation.Validator) *UserValidator {
	return &UserValidator{validate: v}
}

func (v *UserValidator) Validate(user *model.User) error {
	return v.validate.Struct(user)
}

func (v *UserValidator) ValidateRegistration(req *model.RegisterRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return err
	}
	return v.validatePhone(req.PhoneNumber)
}

func (v *UserValidator) ValidateUpdate(update *model.UserUpdate) error {
	if err := v.validate.Struct(update); err != nil {
		return err
	}
	if update.PhoneNumber != nil {
		return v.validatePhone(*update.PhoneNumber)
	}
	return nil
}

func (v *UserValidator) ValidateLogin(req *model.LoginRequest) error {
	return v.validate.Struct(req)
}

func (v *UserValidator) validatePhone(phone string) error {
	if phone == "" {
		return nil
	}
	return v.validate.Var("phone_number", phone, "e164")
}

func (v *UserValidator) ValidateRole(role string) error {
	return v.validate.Var("role", role, "role")
}
