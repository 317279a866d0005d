// Package api exposes audit trail queries over HTTP. The trail is
// read-only through this surface; entries are written internally by the
// mutating services.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/idm-admin/pkg/audit"
)

// Handle wires the audit service to HTTP routes.
type Handle struct {
	auditService *audit.Service
}

// NewHandle creates a new handler for audit routes.
func NewHandle(auditService *audit.Service) *Handle {
	return &Handle{
		auditService: auditService,
	}
}

// Routes returns the router for /audit.
func (h *Handle) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Query)
	r.Get("/categories", h.ListCategories)
	r.Get("/export", h.Export)
	return r
}

func parseFilter(r *http.Request) audit.Filter {
	q := r.URL.Query()
	filter := audit.Filter{
		Category: q.Get("category"),
		UserID:   q.Get("user_id"),
		Keyword:  q.Get("keyword"),
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.From = &t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.To = &t
		}
	}
	if v := q.Get("success"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			filter.Success = &b
		}
	}
	if v := q.Get("skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Skip = n
		}
	}
	if v := q.Get("take"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Take = n
		}
	}
	return filter
}

// Query handles GET /audit with pagination.
func (h *Handle) Query(w http.ResponseWriter, r *http.Request) {
	entries, total, err := h.auditService.Query(r.Context(), parseFilter(r))
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "internal error"})
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"entries": entries,
		"total":   total,
	})
}

// ListCategories handles GET /audit/categories.
func (h *Handle) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.auditService.ListCategories(r.Context())
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "internal error"})
		return
	}
	render.JSON(w, r, categories)
}

// Export handles GET /audit/export: same filter semantics as Query,
// unpaginated but bounded.
func (h *Handle) Export(w http.ResponseWriter, r *http.Request) {
	rows, err := h.auditService.Export(r.Context(), parseFilter(r))
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "internal error"})
		return
	}
	render.JSON(w, r, rows)
}
