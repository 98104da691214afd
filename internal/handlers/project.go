package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pipecraft/apiserver/internal/logging"
	"github.com/pipecraft/apiserver/internal/services"
	"github.com/pipecraft/apiserver/types"
)

const formFieldImage = "image"

// ProjectHandler provides HTTP handlers for portfolio projects.
type ProjectHandler struct {
	projects *services.ProjectService
	logger   logging.Logger
}

func NewProjectHandler(projects *services.ProjectService, logger logging.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, logger: logger}
}

func ProjectRouter(r chi.Router, h *ProjectHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/", h.List)
	r.Get("/{projectID}", h.Get)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware, RequireAdmin(h.logger))
		r.Post("/", h.Create)
		r.Put("/{projectID}", h.Update)
		r.Delete("/{projectID}", h.Delete)
	})
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Projects retrieved successfully", projects)
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, err := h.projects.Get(r.Context(), urlParam(r, "projectID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Project retrieved successfully", project)
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.CreateProjectRequest
	var image *services.File
	if isMultipart(r) {
		if err := parseMultipart(w, r); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		req = types.CreateProjectRequest{
			Name:   formValue(r, "name"),
			Client: formValue(r, "client"),
			Scope:  formValue(r, "scope"),
		}
		file, closeFile, err := formFile(r, formFieldImage)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		defer closeFile()
		image = file
	} else if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	project, err := h.projects.Create(r.Context(), actor(r), req, image)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Project created successfully", project)
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateProjectRequest
	var image *services.File
	if isMultipart(r) {
		if err := parseMultipart(w, r); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		req = types.UpdateProjectRequest{
			Name:   formString(r, "name"),
			Client: formString(r, "client"),
			Scope:  formString(r, "scope"),
		}
		file, closeFile, err := formFile(r, formFieldImage)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		defer closeFile()
		image = file
	} else if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	project, err := h.projects.Update(r.Context(), actor(r), urlParam(r, "projectID"), req, image)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Project updated successfully", project)
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.projects.Delete(r.Context(), actor(r), urlParam(r, "projectID")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Project deleted successfully", struct{}{})
}
