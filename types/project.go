package types

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Project is a portfolio entry, optionally illustrated by an image blob.
type Project struct {
	ID     string `json:"projectId" db:"id"`
	Name   string `json:"name" db:"name"`
	Client string `json:"client" db:"client"`
	Scope  string `json:"scope" db:"scope"`

	// Image is the locator of the stored image blob, if any.
	Image *string `json:"image,omitempty" db:"image"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type CreateProjectRequest struct {
	Name   string `json:"name"`
	Client string `json:"client"`
	Scope  string `json:"scope"`
}

func (r CreateProjectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Client, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Scope, validation.Required, validation.Length(10, 2000)),
	)
}

type UpdateProjectRequest struct {
	Name   *string `json:"name"`
	Client *string `json:"client"`
	Scope  *string `json:"scope"`
}

func (r UpdateProjectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(2, 100)),
		validation.Field(&r.Client, validation.NilOrNotEmpty, validation.Length(2, 100)),
		validation.Field(&r.Scope, validation.NilOrNotEmpty, validation.Length(10, 2000)),
	)
}
