package model

import "time"

type User struct {
	ID           string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name         string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Email        string    `json:"email" bson:"email" validate:"required,email,max=254"`
	PasswordHash string    `json:"-" bson:"password_hash" validate:"required"`
	PhoneNumber  string    `json:"phone_number,omitempty" bson:"phone_number,omitempty" validate:"omitempty,e164"`
	IDNumber     string    `json:"id_number,omitempty" bson:"id_number,omitempty" validate:"omitempty,min=4,max=20,alphanum"`
	Role         string    `json:"role" bson:"role" validate:"required,role"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

type UserUpdate struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	IDNumber    *string `json:"id_number,omitempty" validate:"omitempty,min=4,max=20,alphanum"`
	Password    *string `json:"password,omitempty" validate:"omitempty,min=6,max=72"`
	Role        *string `json:"role,omitempty" validate:"omitempty,role"`
}

type UserSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
	}
}

type UserFilter struct {
	Role string
}

type RegisterRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	PhoneNumber string `json:"phone_number,omitempty"`
	IDNumber    string `json:"id_number,omitempty" validate:"omitempty,min=4,max=20,alphanum"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}
