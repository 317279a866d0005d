// Package api exposes OAuth2 client registration management over HTTP.
package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/idm-admin/pkg/oauth2client"
)

// Handle wires the client service to HTTP routes.
type Handle struct {
	clientService *oauth2client.ClientService
}

// NewHandle creates a new handler for client registration routes.
func NewHandle(clientService *oauth2client.ClientService) *Handle {
	return &Handle{
		clientService: clientService,
	}
}

// Routes returns the router for /clients.
func (h *Handle) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{clientID}", h.Get)
	r.Put("/{clientID}", h.Update)
	r.Put("/{clientID}/scopes", h.UpdateScopes)
	r.Delete("/{clientID}", h.Delete)
	return r
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, oauth2client.ErrClientNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, oauth2client.ErrDuplicateClientID):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, oauth2client.ErrInvalidRedirectURI),
		errors.Is(err, oauth2client.ErrMissingSecret),
		errors.Is(err, oauth2client.ErrEmptyScopes),
		errors.Is(err, oauth2client.ErrInvalidClientType):
		status = http.StatusBadRequest
		message = err.Error()
	}

	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": message})
}

// List handles GET /clients.
func (h *Handle) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.clientService.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, summaries)
}

// Get handles GET /clients/{clientID}.
func (h *Handle) Get(w http.ResponseWriter, r *http.Request) {
	summary, err := h.clientService.Get(r.Context(), chi.URLParam(r, "clientID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// Create handles POST /clients.
func (h *Handle) Create(w http.ResponseWriter, r *http.Request) {
	var req oauth2client.CreateClientRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid request body"})
		return
	}

	summary, err := h.clientService.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, summary)
}

// Update handles PUT /clients/{clientID}.
func (h *Handle) Update(w http.ResponseWriter, r *http.Request) {
	var req oauth2client.UpdateClientRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid request body"})
		return
	}

	summary, err := h.clientService.Update(r.Context(), chi.URLParam(r, "clientID"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// UpdateScopes handles PUT /clients/{clientID}/scopes.
func (h *Handle) UpdateScopes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Scopes []string `json:"scopes"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid request body"})
		return
	}

	summary, err := h.clientService.UpdateScopes(r.Context(), chi.URLParam(r, "clientID"), req.Scopes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// Delete handles DELETE /clients/{clientID}.
func (h *Handle) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.clientService.Delete(r.Context(), chi.URLParam(r, "clientID")); err != nil {
		writeError(w, r, err)
		return
	}
	render.NoContent(w, r)
}
