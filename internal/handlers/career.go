package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pipecraft/apiserver/internal/logging"
	"github.com/pipecraft/apiserver/internal/services"
	"github.com/pipecraft/apiserver/types"
)

// CareerHandler provides HTTP handlers for job postings.
type CareerHandler struct {
	careers *services.CareerService
	logger  logging.Logger
}

func NewCareerHandler(careers *services.CareerService, logger logging.Logger) *CareerHandler {
	return &CareerHandler{careers: careers, logger: logger}
}

// CareerRouter registers job posting routes on the given router.
func CareerRouter(r chi.Router, h *CareerHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/", h.List)
	r.Get("/{careerID}", h.Get)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware, RequireAdmin(h.logger))
		r.Post("/", h.Create)
		r.Put("/{careerID}", h.Update)
		r.Delete("/{careerID}", h.Delete)
	})
}

func (h *CareerHandler) List(w http.ResponseWriter, r *http.Request) {
	isActive, err := queryBool(r, "isActive")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	filter := types.CareerFilter{
		IsActive:        isActive,
		Department:      queryString(r, "department"),
		JobType:         queryString(r, "jobType"),
		ExperienceLevel: queryString(r, "experienceLevel"),
	}
	careers, err := h.careers.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Job postings retrieved successfully", careers)
}

func (h *CareerHandler) Get(w http.ResponseWriter, r *http.Request) {
	career, err := h.careers.Get(r.Context(), urlParam(r, "careerID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Job posting retrieved successfully", career)
}

func (h *CareerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.CreateCareerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	career, err := h.careers.Create(r.Context(), actor(r), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Job posting created successfully", career)
}

func (h *CareerHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateCareerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	career, err := h.careers.Update(r.Context(), actor(r), urlParam(r, "careerID"), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Job posting updated successfully", career)
}

func (h *CareerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.careers.Delete(r.Context(), actor(r), urlParam(r, "careerID")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Job posting deleted successfully", struct{}{})
}
