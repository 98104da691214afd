package types

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Service is an offering listed in the public catalog. Titles are unique.
type Service struct {
	ID          string    `json:"serviceId" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Features    []string  `json:"features" db:"features"`
	IsActive    bool      `json:"isActive" db:"is_active"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type CreateServiceRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	IsActive    *bool    `json:"isActive"`
}

func (r CreateServiceRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Description, validation.Required, validation.Length(10, 1000)),
		validation.Field(&r.Features, eachLength(2, 200)),
	)
}

func (r CreateServiceRequest) Service() Service {
	s := Service{
		Title:       r.Title,
		Description: r.Description,
		Features:    r.Features,
		IsActive:    true,
	}
	if s.Features == nil {
		s.Features = []string{}
	}
	if r.IsActive != nil {
		s.IsActive = *r.IsActive
	}
	return s
}

type UpdateServiceRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Features    *[]string `json:"features"`
	IsActive    *bool     `json:"isActive"`
}

func (r UpdateServiceRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.Length(2, 100)),
		validation.Field(&r.Description, validation.NilOrNotEmpty, validation.Length(10, 1000)),
		validation.Field(&r.Features, eachLength(2, 200)),
	)
}
