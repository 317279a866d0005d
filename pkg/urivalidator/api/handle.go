// Package api exposes the URI validation policy settings over HTTP.
// Settings updates are hot: they take effect without restart and are
// audited like any other mutation.
package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/idm-admin/pkg/apikey"
	"github.com/tendant/idm-admin/pkg/urivalidator"
)

// Handle wires the settings store to HTTP routes.
type Handle struct {
	store *urivalidator.Store
}

// NewHandle creates a new handler for policy settings routes.
func NewHandle(store *urivalidator.Store) *Handle {
	return &Handle{
		store: store,
	}
}

// Routes returns the router for /policy.
func (h *Handle) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	r.Put("/", h.Update)
	return r
}

type settingsPayload struct {
	AllowedSchemes      []string `json:"allowed_schemes"`
	AllowHTTPOnLoopback bool     `json:"allow_http_on_loopback"`
	AllowedHosts        []string `json:"allowed_hosts,omitempty"`
}

// Get handles GET /policy.
func (h *Handle) Get(w http.ResponseWriter, r *http.Request) {
	settings := h.store.Current()
	render.JSON(w, r, settingsPayload{
		AllowedSchemes:      settings.AllowedSchemes,
		AllowHTTPOnLoopback: settings.AllowHTTPOnLoopback,
		AllowedHosts:        settings.AllowedHosts,
	})
}

// Update handles PUT /policy.
func (h *Handle) Update(w http.ResponseWriter, r *http.Request) {
	var req settingsPayload
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid request body"})
		return
	}

	var actorID, actorName string
	if identity := apikey.IdentityFromContext(r.Context()); identity != nil {
		actorID = identity.SubjectID
		actorName = identity.Username
	}

	settings := urivalidator.Settings{
		AllowedSchemes:      req.AllowedSchemes,
		AllowHTTPOnLoopback: req.AllowHTTPOnLoopback,
		AllowedHosts:        req.AllowedHosts,
	}
	if err := h.store.Update(r.Context(), settings, actorID, actorName); err != nil {
		if errors.Is(err, urivalidator.ErrInvalidSettings) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "internal error"})
		return
	}
	render.NoContent(w, r)
}
