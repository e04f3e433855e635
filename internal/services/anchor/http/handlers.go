// Package http provides http transport for anchor status (4.F)
package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	"sahay/internal/modkit/httpkit"
	"sahay/internal/services/anchor/domain"
)

// Register mounts the anchor status route
func Register(r httpkit.Router, ports domain.Ports) {
	h := &handlers{ports: ports}
	httpkit.Get(r, "/{complaintId}", h.status)
}

type handlers struct{ ports domain.Ports }

// swagger:route GET /anchors/{complaintId} Anchor status
// @Summary Report a complaint's chain-anchoring state
// @Tags anchor
// @Produce json
// @Param complaintId path string true "Complaint id"
// @Success 200 {object} domain.Status "ok"
// @Router /anchors/{complaintId} [get]
func (h *handlers) status(r *stdhttp.Request) (any, error) {
	id := chi.URLParam(r, "complaintId")
	return h.ports.Status(r.Context(), id)
}
