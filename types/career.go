package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Job types accepted for a posting.
var JobTypes = []any{"Full-time", "Part-time", "Contract", "Internship"}

// Experience levels accepted for a posting.
var ExperienceLevels = []any{"Entry Level", "Mid Level", "Senior Level", "Lead"}

// DefaultCurrency applies when a salary omits its currency.
const DefaultCurrency = "USD"

// Career is a job posting.
type Career struct {
	ID                  string     `json:"careerId" db:"id"`
	JobTitle            string     `json:"jobTitle" db:"job_title"`
	Department          string     `json:"department" db:"department"`
	Location            string     `json:"location" db:"location"`
	JobType             string     `json:"jobType" db:"job_type"`
	ExperienceLevel     string     `json:"experienceLevel" db:"experience_level"`
	Description         string     `json:"description" db:"description"`
	Responsibilities    []string   `json:"responsibilities" db:"responsibilities"`
	Requirements        []string   `json:"requirements" db:"requirements"`
	Qualifications      []string   `json:"qualifications,omitempty" db:"qualifications"`
	Salary              *Salary    `json:"salary,omitempty" db:"salary"`
	IsActive            bool       `json:"isActive" db:"is_active"`
	NumberOfPositions   int        `json:"numberOfPositions" db:"number_of_positions"`
	ApplicationDeadline *time.Time `json:"applicationDeadline,omitempty" db:"application_deadline"`
	CreatedAt           time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time  `json:"updatedAt" db:"updated_at"`
}

// AcceptsApplications reports whether the posting is active and its deadline,
// if any, has not passed at now.
func (c Career) AcceptsApplications(now time.Time) error {
	if !c.IsActive {
		return errors.New("this job posting is no longer accepting applications")
	}
	if c.ApplicationDeadline != nil && c.ApplicationDeadline.Before(now) {
		return errors.New("application deadline has passed")
	}
	return nil
}

// Salary is stored as a JSONB document.
type Salary struct {
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Currency string   `json:"currency"`
}

func (s Salary) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Min, validation.Min(0.0)),
		validation.Field(&s.Max, validation.Min(0.0)),
		validation.Field(&s.Currency, validation.Length(3, 3)),
	)
}

func (s Salary) Value() (driver.Value, error) {
	if s.Currency == "" {
		s.Currency = DefaultCurrency
	}
	return json.Marshal(s)
}

func (s *Salary) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = Salary{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("salary: unsupported source type")
	}
}

// NullSalary scans a nullable salary column.
type NullSalary struct {
	Salary *Salary
}

func (n *NullSalary) Scan(src any) error {
	if src == nil {
		n.Salary = nil
		return nil
	}
	var s Salary
	if err := s.Scan(src); err != nil {
		return err
	}
	n.Salary = &s
	return nil
}

// CreateCareerRequest is the payload for a new posting.
type CreateCareerRequest struct {
	JobTitle            string     `json:"jobTitle"`
	Department          string     `json:"department"`
	Location            string     `json:"location"`
	JobType             string     `json:"jobType"`
	ExperienceLevel     string     `json:"experienceLevel"`
	Description         string     `json:"description"`
	Responsibilities    []string   `json:"responsibilities"`
	Requirements        []string   `json:"requirements"`
	Qualifications      []string   `json:"qualifications"`
	Salary              *Salary    `json:"salary"`
	IsActive            *bool      `json:"isActive"`
	NumberOfPositions   *int       `json:"numberOfPositions"`
	ApplicationDeadline *time.Time `json:"applicationDeadline"`
}

func (r CreateCareerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.JobTitle, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Department, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Location, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.JobType, validation.Required, validation.In(JobTypes...)),
		validation.Field(&r.ExperienceLevel, validation.Required, validation.In(ExperienceLevels...)),
		validation.Field(&r.Description, validation.Required, validation.Length(10, 5000)),
		validation.Field(&r.Responsibilities, validation.Required, eachLength(2, 500)),
		validation.Field(&r.Requirements, validation.Required, eachLength(2, 500)),
		validation.Field(&r.Qualifications, eachLength(2, 500)),
		validation.Field(&r.Salary),
		validation.Field(&r.NumberOfPositions, validation.NilOrNotEmpty, validation.Min(1)),
	)
}

// Career builds the posting from a validated request.
func (r CreateCareerRequest) Career() Career {
	c := Career{
		JobTitle:            r.JobTitle,
		Department:          r.Department,
		Location:            r.Location,
		JobType:             r.JobType,
		ExperienceLevel:     r.ExperienceLevel,
		Description:         r.Description,
		Responsibilities:    r.Responsibilities,
		Requirements:        r.Requirements,
		Qualifications:      r.Qualifications,
		Salary:              r.Salary,
		IsActive:            true,
		NumberOfPositions:   1,
		ApplicationDeadline: r.ApplicationDeadline,
	}
	if r.IsActive != nil {
		c.IsActive = *r.IsActive
	}
	if r.NumberOfPositions != nil {
		c.NumberOfPositions = *r.NumberOfPositions
	}
	if c.Salary != nil && c.Salary.Currency == "" {
		c.Salary.Currency = DefaultCurrency
	}
	return c
}

// UpdateCareerRequest is a sparse patch of a posting.
type UpdateCareerRequest struct {
	JobTitle            *string    `json:"jobTitle"`
	Department          *string    `json:"department"`
	Location            *string    `json:"location"`
	JobType             *string    `json:"jobType"`
	ExperienceLevel     *string    `json:"experienceLevel"`
	Description         *string    `json:"description"`
	Responsibilities    *[]string  `json:"responsibilities"`
	Requirements        *[]string  `json:"requirements"`
	Qualifications      *[]string  `json:"qualifications"`
	Salary              *Salary    `json:"salary"`
	IsActive            *bool      `json:"isActive"`
	NumberOfPositions   *int       `json:"numberOfPositions"`
	ApplicationDeadline *time.Time `json:"applicationDeadline"`
}

func (r UpdateCareerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.JobTitle, validation.NilOrNotEmpty, validation.Length(2, 100)),
		validation.Field(&r.Department, validation.NilOrNotEmpty, validation.Length(2, 100)),
		validation.Field(&r.Location, validation.NilOrNotEmpty, validation.Length(2, 100)),
		validation.Field(&r.JobType, validation.NilOrNotEmpty, validation.In(JobTypes...)),
		validation.Field(&r.ExperienceLevel, validation.NilOrNotEmpty, validation.In(ExperienceLevels...)),
		validation.Field(&r.Description, validation.NilOrNotEmpty, validation.Length(10, 5000)),
		validation.Field(&r.Responsibilities, eachLength(2, 500)),
		validation.Field(&r.Requirements, eachLength(2, 500)),
		validation.Field(&r.Qualifications, eachLength(2, 500)),
		validation.Field(&r.Salary),
		validation.Field(&r.NumberOfPositions, validation.NilOrNotEmpty, validation.Min(1)),
	)
}

// CareerFilter narrows a posting listing. Nil fields do not filter.
type CareerFilter struct {
	IsActive        *bool
	Department      *string
	JobType         *string
	ExperienceLevel *string
}
