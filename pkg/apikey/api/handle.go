// Package api exposes API key management over HTTP.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tendant/idm-admin/pkg/apikey"
)

// Handle wires the API key service to HTTP routes.
type Handle struct {
	keyService *apikey.Service
}

// NewHandle creates a new handler for API key routes.
func NewHandle(keyService *apikey.Service) *Handle {
	return &Handle{
		keyService: keyService,
	}
}

// Routes returns the router for /api-keys.
func (h *Handle) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Issue)
	r.Post("/{id}/revoke", h.Revoke)
	return r
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, apikey.ErrKeyNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, apikey.ErrAlreadyRevoked):
		status = http.StatusConflict
		message = err.Error()
	}

	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": message})
}

// List handles GET /api-keys. Responses never include the secret hash or
// the raw secret.
func (h *Handle) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.keyService.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, summaries)
}

// Issue handles POST /api-keys. The full secret appears in this response
// and nowhere else, ever.
func (h *Handle) Issue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string     `json:"name"`
		ExpiresAt *time.Time `json:"expires_at,omitempty"`
		Scopes    []string   `json:"scopes,omitempty"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.keyService.Issue(r.Context(), req.Name, req.ExpiresAt, req.Scopes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// Revoke handles POST /api-keys/{id}/revoke.
func (h *Handle) Revoke(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid key id"})
		return
	}

	var req struct {
		Reason string `json:"reason,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "invalid request body"})
			return
		}
	}

	if err := h.keyService.Revoke(r.Context(), id, req.Reason); err != nil {
		writeError(w, r, err)
		return
	}
	render.NoContent(w, r)
}
