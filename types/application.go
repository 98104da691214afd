package types

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Application is a candidate's submission against a job posting.
type Application struct {
	ID             string  `json:"applicationId" db:"id"`
	CareerID       string  `json:"careerId" db:"career_id"`
	ApplicantName  string  `json:"applicantName" db:"applicant_name"`
	ApplicantEmail string  `json:"applicantEmail" db:"applicant_email"`
	ApplicantPhone *string `json:"applicantPhone,omitempty" db:"applicant_phone"`

	// ResumeLink is the locator of the uploaded resume blob.
	ResumeLink  string    `json:"resumeLink" db:"resume_link"`
	CoverLetter *string   `json:"coverLetter,omitempty" db:"cover_letter"`
	AppliedAt   time.Time `json:"appliedAt" db:"applied_at"`
}

type SubmitApplicationRequest struct {
	CareerID       string  `json:"careerId"`
	ApplicantName  string  `json:"applicantName"`
	ApplicantEmail string  `json:"applicantEmail"`
	ApplicantPhone *string `json:"applicantPhone"`
	CoverLetter    *string `json:"coverLetter"`
}

func (r SubmitApplicationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CareerID, validation.Required),
		validation.Field(&r.ApplicantName, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.ApplicantEmail, validation.Required, is.Email),
		validation.Field(&r.ApplicantPhone, validation.Length(7, 15)),
		validation.Field(&r.CoverLetter, validation.Length(10, 5000)),
	)
}

// CareerApplications groups the applications received for one posting.
type CareerApplications struct {
	Job               Career        `json:"job"`
	Applications      []Application `json:"applications"`
	TotalApplications int           `json:"totalApplications"`
}
