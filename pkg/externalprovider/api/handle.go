// Package api exposes external provider management over HTTP.
package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tendant/idm-admin/pkg/externalprovider"
)

// Handle wires the provider service to HTTP routes.
type Handle struct {
	providerService *externalprovider.Service
}

// NewHandle creates a new handler for external provider routes.
func NewHandle(providerService *externalprovider.Service) *Handle {
	return &Handle{
		providerService: providerService,
	}
}

// Routes returns the router for /external-providers.
func (h *Handle) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/enabled", h.GetEnabled)
	r.Post("/", h.Create)
	r.Get("/name/{name}", h.GetByName)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Put("/{id}/enabled", h.ToggleEnabled)
	r.Delete("/{id}", h.Delete)
	return r
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, externalprovider.ErrProviderNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, externalprovider.ErrDuplicateName):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, externalprovider.ErrUnknownProviderType):
		status = http.StatusBadRequest
		message = err.Error()
	}

	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": message})
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid provider id"})
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /external-providers.
func (h *Handle) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.providerService.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, summaries)
}

// GetEnabled handles GET /external-providers/enabled.
func (h *Handle) GetEnabled(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.providerService.GetEnabled(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, summaries)
}

// GetByName handles GET /external-providers/name/{name}.
func (h *Handle) GetByName(w http.ResponseWriter, r *http.Request) {
	summary, err := h.providerService.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// GetByID handles GET /external-providers/{id}. The enabled_only query
// parameter filters out disabled providers.
func (h *Handle) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	onlyEnabled := r.URL.Query().Get("enabled_only") == "true"
	summary, err := h.providerService.GetByID(r.Context(), id, onlyEnabled)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// Create handles POST /external-providers.
func (h *Handle) Create(w http.ResponseWriter, r *http.Request) {
	var req externalprovider.CreateProviderRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid request body"})
		return
	}

	summary, err := h.providerService.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, summary)
}

// Update handles PUT /external-providers/{id}. Absent fields are left
// unchanged.
func (h *Handle) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req externalprovider.UpdateProviderRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid request body"})
		return
	}

	summary, err := h.providerService.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// ToggleEnabled handles PUT /external-providers/{id}/enabled.
func (h *Handle) ToggleEnabled(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid request body"})
		return
	}

	summary, err := h.providerService.ToggleEnabled(r.Context(), id, req.Enabled)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// Delete handles DELETE /external-providers/{id}.
func (h *Handle) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.providerService.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	render.NoContent(w, r)
}
