package types

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// User is a registered principal.
type User struct {
	// ID is the prefixed identifier, e.g. USR0A1B2C3D4E5F6A7B.
	ID string `json:"userId" db:"id"`

	// Email is unique across all users and compared as stored.
	Email string `json:"email" db:"email"`

	// PasswordHash is the bcrypt digest. It is never serialized.
	PasswordHash string `json:"-" db:"password_hash"`

	Name  string  `json:"name" db:"name"`
	Role  string  `json:"role" db:"role"`
	Phone *string `json:"phone,omitempty" db:"phone"`
	Age   *int    `json:"age,omitempty" db:"age"`

	// Avatar is the locator of the stored avatar blob, if any.
	Avatar *string `json:"avatar,omitempty" db:"avatar"`

	// RefreshToken is the single currently valid refresh token. Nil means no
	// active session. It is never serialized.
	RefreshToken *string `json:"-" db:"refresh_token"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// RegisterRequest is the payload of a public sign-up.
type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Phone    *string `json:"phone"`
	Age      *int    `json:"age"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 128)),
		validation.Field(&r.Name, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Phone, validation.NilOrNotEmpty, validation.Length(10, 15)),
		validation.Field(&r.Age, validation.Min(0)),
	)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(6, 128)),
	)
}

// RefreshRequest carries the refresh token when it is not sent as a cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// UpdateUserRequest is an admin patch of a user profile. Nil fields are left
// untouched.
type UpdateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
	Age   *int    `json:"age"`
}

func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(2, 100)),
		validation.Field(&r.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&r.Phone, validation.NilOrNotEmpty, validation.Length(10, 15)),
		validation.Field(&r.Age, validation.Min(0)),
	)
}
