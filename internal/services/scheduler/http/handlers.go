// Package http provides an admin trigger surface for the scheduler (§5, §9)
package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	"sahay/internal/modkit/httpkit"
	"sahay/internal/services/scheduler/domain"
)

// Register mounts the scheduler's on-demand run endpoints
func Register(r httpkit.Router, ports domain.Ports) {
	h := &handlers{ports: ports}
	httpkit.Post(r, "/run", h.runAll)
	httpkit.Post(r, "/run/{job}", h.runOne)
}

type handlers struct{ ports domain.Ports }

// swagger:route POST /scheduler/run Scheduler runAll
// @Summary Run every scheduled job once, out of band
// @Tags scheduler
// @Produce json
// @Success 200 {object} map[string]domain.Result "ok"
// @Router /scheduler/run [post]
func (h *handlers) runAll(r *stdhttp.Request) (any, error) {
	return h.ports.RunAll(r.Context())
}

// swagger:route POST /scheduler/run/{job} Scheduler runOne
// @Summary Run a single named job once, out of band
// @Tags scheduler
// @Produce json
// @Param job path string true "Job name"
// @Success 200 {object} domain.Result "ok"
// @Router /scheduler/run/{job} [post]
func (h *handlers) runOne(r *stdhttp.Request) (any, error) {
	job := domain.JobName(chi.URLParam(r, "job"))
	return h.ports.Run(r.Context(), job)
}
