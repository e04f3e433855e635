// Package http provides http transport for triage sessions
package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	"sahay/internal/modkit/httpkit"
	"sahay/internal/services/triage/domain"
)

// Register mounts the triage routes; both require auth and the GET
// enforces owner-only reads in the service layer
func Register(r httpkit.Router, ports domain.Ports) {
	h := &handlers{ports: ports}
	httpkit.PostJSON[domain.CreateInput](r, "/sessions", h.create)
	httpkit.Get(r, "/sessions/{id}", h.get)
}

type handlers struct{ ports domain.Ports }

// swagger:route POST /triage/sessions Triage create
// @Summary Evaluate symptoms and create a triage session
// @Tags triage
// @Accept json
// @Produce json
// @Param payload body domain.CreateInput true "Symptoms"
// @Success 200 {object} domain.Session "ok"
// @Router /triage/sessions [post]
func (h *handlers) create(r *stdhttp.Request, in domain.CreateInput) (any, error) {
	ownerID := httpkit.MustUser(r)
	return h.ports.Create(r.Context(), ownerID, domain.Input{
		SymptomsText: in.SymptomsText,
		Age:          in.Age,
		Sex:          in.Sex,
		Pregnancy:    in.Pregnancy,
		Language:     in.Language,
	})
}

// swagger:route GET /triage/sessions/{id} Triage get
// @Summary Fetch a triage session; owner-only
// @Tags triage
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} domain.Session "ok"
// @Router /triage/sessions/{id} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	callerID := httpkit.MustUser(r)
	id := chi.URLParam(r, "id")
	return h.ports.Get(r.Context(), callerID, id)
}
