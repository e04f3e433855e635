// Package http provides http transport for the right-to-erasure cascade
package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	"sahay/internal/modkit/httpkit"
	"sahay/internal/services/erasure/domain"
)

// Register mounts the erasure route. The caller is responsible for gating
// this to an admin role before reaching the handler
func Register(r httpkit.Router, ports domain.Ports) {
	h := &handlers{ports: ports}
	httpkit.Delete(r, "/{id}", h.erase)
}

type handlers struct{ ports domain.Ports }

// swagger:route DELETE /users/{id} Erasure erase
// @Summary Destroy a user and cascade-delete their owned rows
// @Tags erasure
// @Produce json
// @Param id path string true "User id"
// @Success 204 "erased"
// @Router /users/{id} [delete]
func (h *handlers) erase(r *stdhttp.Request) (any, error) {
	actorID := httpkit.MustUser(r)
	id := chi.URLParam(r, "id")
	if err := h.ports.Erase(r.Context(), actorID, id); err != nil {
		return nil, err
	}
	return nil, nil
}
