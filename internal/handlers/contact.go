package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pipecraft/apiserver/internal/logging"
	"github.com/pipecraft/apiserver/internal/services"
	"github.com/pipecraft/apiserver/types"
)

type ContactHandler struct {
	contacts *services.ContactService
	logger   logging.Logger
}

func NewContactHandler(contacts *services.ContactService, logger logging.Logger) *ContactHandler {
	return &ContactHandler{contacts: contacts, logger: logger}
}

// ContactRouter registers the public contact form and its admin views.
func ContactRouter(r chi.Router, h *ContactHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Post("/", h.Create)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware, RequireAdmin(h.logger))
		r.Get("/all", h.List)
		r.Get("/{contactID}", h.Get)
		r.Put("/{contactID}", h.Update)
		r.Delete("/{contactID}", h.Delete)
	})
}

func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.CreateContactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	contact, err := h.contacts.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Contact form submitted successfully", contact)
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.contacts.List(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Contacts retrieved successfully", contacts)
}

func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	contact, err := h.contacts.Get(r.Context(), actor(r), urlParam(r, "contactID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Contact retrieved successfully", contact)
}

func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateContactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	contact, err := h.contacts.Update(r.Context(), actor(r), urlParam(r, "contactID"), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Contact updated successfully", contact)
}

func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.contacts.Delete(r.Context(), actor(r), urlParam(r, "contactID")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Contact deleted successfully", struct{}{})
}
