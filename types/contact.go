package types

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Contact is an inbound enquiry left through the public contact form.
type Contact struct {
	ID                string    `json:"contactId" db:"id"`
	Name              string    `json:"name" db:"name"`
	Email             string    `json:"email" db:"email"`
	Phone             *string   `json:"phone,omitempty" db:"phone"`
	CompanyName       *string   `json:"companyName,omitempty" db:"company_name"`
	ServiceInterested *string   `json:"serviceInterested,omitempty" db:"service_interested"`
	Message           string    `json:"message" db:"message"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" db:"updated_at"`
}

type CreateContactRequest struct {
	Name              string  `json:"name"`
	Email             string  `json:"email"`
	Phone             *string `json:"phone"`
	CompanyName       *string `json:"companyName"`
	ServiceInterested *string `json:"serviceInterested"`
	Message           string  `json:"message"`
}

func (r CreateContactRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Phone, validation.Length(7, 15)),
		validation.Field(&r.CompanyName, validation.Length(2, 100)),
		validation.Field(&r.ServiceInterested, validation.Length(2, 100)),
		validation.Field(&r.Message, validation.Required, validation.Length(10, 1000)),
	)
}

func (r CreateContactRequest) Contact() Contact {
	return Contact{
		Name:              r.Name,
		Email:             r.Email,
		Phone:             r.Phone,
		CompanyName:       r.CompanyName,
		ServiceInterested: r.ServiceInterested,
		Message:           r.Message,
	}
}

type UpdateContactRequest struct {
	Name              *string `json:"name"`
	Email             *string `json:"email"`
	Phone             *string `json:"phone"`
	CompanyName       *string `json:"companyName"`
	ServiceInterested *string `json:"serviceInterested"`
	Message           *string `json:"message"`
}

func (r UpdateContactRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(2, 100)),
		validation.Field(&r.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&r.Phone, validation.Length(7, 15)),
		validation.Field(&r.CompanyName, validation.Length(2, 100)),
		validation.Field(&r.ServiceInterested, validation.Length(2, 100)),
		validation.Field(&r.Message, validation.NilOrNotEmpty, validation.Length(10, 1000)),
	)
}
