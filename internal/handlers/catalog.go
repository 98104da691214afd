package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pipecraft/apiserver/internal/logging"
	"github.com/pipecraft/apiserver/internal/services"
	"github.com/pipecraft/apiserver/types"
)

// CatalogHandler provides HTTP handlers for the service catalog.
type CatalogHandler struct {
	catalog *services.CatalogService
	logger  logging.Logger
}

func NewCatalogHandler(catalog *services.CatalogService, logger logging.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

func CatalogRouter(r chi.Router, h *CatalogHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/", h.List)
	r.Get("/{serviceID}", h.Get)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware, RequireAdmin(h.logger))
		r.Post("/", h.Create)
		r.Put("/{serviceID}", h.Update)
		r.Delete("/{serviceID}", h.Delete)
	})
}

func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	isActive, err := queryBool(r, "isActive")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	items, err := h.catalog.List(r.Context(), isActive)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Services retrieved successfully", items)
}

func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.Get(r.Context(), urlParam(r, "serviceID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Service retrieved successfully", item)
}

func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.CreateServiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	item, err := h.catalog.Create(r.Context(), actor(r), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Service created successfully", item)
}

func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateServiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	item, err := h.catalog.Update(r.Context(), actor(r), urlParam(r, "serviceID"), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Service updated successfully", item)
}

func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), actor(r), urlParam(r, "serviceID")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Service deleted successfully", struct{}{})
}
