package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pipecraft/apiserver/internal/apperr"
	"github.com/pipecraft/apiserver/internal/logging"
	"github.com/pipecraft/apiserver/internal/services"
	"github.com/pipecraft/apiserver/types"
)

const formFieldResume = "resume"

// ApplicationHandler provides HTTP handlers for job applications.
type ApplicationHandler struct {
	applications *services.ApplicationService
	logger       logging.Logger
}

func NewApplicationHandler(applications *services.ApplicationService, logger logging.Logger) *ApplicationHandler {
	return &ApplicationHandler{applications: applications, logger: logger}
}

func ApplicationRouter(r chi.Router, h *ApplicationHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Post("/", h.Submit)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware, RequireAdmin(h.logger))
		r.Get("/", h.List)
		r.Get("/career/{careerID}", h.ListByCareer)
		r.Get("/{applicationID}", h.Get)
		r.Delete("/{applicationID}", h.Delete)
	})
}

// Submit accepts a multipart application with a required resume file.
func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		writeError(w, r, h.logger, apperr.Validation("resume file is required"))
		return
	}
	if err := parseMultipart(w, r); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	req := types.SubmitApplicationRequest{
		CareerID:       formValue(r, "careerId"),
		ApplicantName:  formValue(r, "applicantName"),
		ApplicantEmail: formValue(r, "applicantEmail"),
		ApplicantPhone: formString(r, "applicantPhone"),
		CoverLetter:    formString(r, "coverLetter"),
	}
	resume, closeFile, err := formFile(r, formFieldResume)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer closeFile()

	application, err := h.applications.Submit(r.Context(), req, resume)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Application submitted successfully", application)
}

func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	applications, err := h.applications.List(r.Context(), actor(r), queryString(r, "careerId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Applications retrieved successfully", applications)
}

func (h *ApplicationHandler) ListByCareer(w http.ResponseWriter, r *http.Request) {
	grouped, err := h.applications.ListByCareer(r.Context(), actor(r), urlParam(r, "careerID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Applications retrieved successfully", grouped)
}

func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	application, err := h.applications.Get(r.Context(), actor(r), urlParam(r, "applicationID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Application retrieved successfully", application)
}

func (h *ApplicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.applications.Delete(r.Context(), actor(r), urlParam(r, "applicationID")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Application deleted successfully", struct{}{})
}
