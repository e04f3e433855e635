// Package http provides http transport for dashboard materialized views (4.H)
package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	"sahay/internal/modkit/httpkit"
	"sahay/internal/services/api/dashboard/domain"
)

// RegisterQuery mounts the read surface, gated to district_officer or
// higher by the caller
func RegisterQuery(r httpkit.Router, ports domain.Ports) {
	h := &handlers{ports: ports}
	httpkit.Get(r, "/mv/{name}", h.get)
}

// RegisterAdmin mounts the explicit refresh endpoint
func RegisterAdmin(r httpkit.Router, ports domain.Ports) {
	h := &handlers{ports: ports}
	httpkit.Post(r, "/materialized-views/refresh", h.refresh)
}

type handlers struct{ ports domain.Ports }

// swagger:route GET /dashboard/mv/{name} Dashboard view
// @Summary Fetch a materialized view (k-anonymous)
// @Tags dashboard
// @Produce json
// @Param name path string true "View name"
// @Success 200 {object} domain.View "ok"
// @Router /dashboard/mv/{name} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	name := domain.ViewName(chi.URLParam(r, "name"))
	return h.ports.Get(r.Context(), name)
}

// swagger:route POST /dashboard/materialized-views/refresh Dashboard refresh
// @Summary Force a refresh of every stale materialized view
// @Tags dashboard
// @Produce json
// @Success 200 {object} map[string]int "ok"
// @Router /dashboard/materialized-views/refresh [post]
func (h *handlers) refresh(r *stdhttp.Request) (any, error) {
	n, err := h.ports.RefreshDue(r.Context())
	return map[string]int{"refreshed": n}, err
}
