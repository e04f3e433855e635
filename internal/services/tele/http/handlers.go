// Package http provides http transport for teleconsultation requests and
// prescriptions
package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	"sahay/internal/modkit/httpkit"
	idomain "sahay/internal/services/ident/domain"
	"sahay/internal/services/tele/domain"
)

// Register mounts the routes any authenticated caller may use: opening and
// reading a teleconsultation request
func Register(r httpkit.Router, ports domain.Ports) {
	h := &handlers{ports: ports}
	httpkit.Post(r, "/requests", h.create)
	httpkit.Get(r, "/requests/{id}", h.get)
}

// RegisterClinician mounts the routes gated to the clinician role: driving
// a request's status and issuing prescriptions against it. Paths are
// semantic, not syntactic (§6), so both live under the tele module's
// /tele prefix rather than a separate top-level /prescriptions route
func RegisterClinician(r httpkit.Router, ports domain.Ports) {
	h := &handlers{ports: ports}
	httpkit.PatchJSON[domain.TransitionDTO](r, "/requests/{id}", h.transition)
	httpkit.PostJSON[domain.PrescribeDTO](r, "/prescriptions", h.prescribe)
}

type handlers struct{ ports domain.Ports }

// swagger:route POST /tele/requests Teleconsult create
// @Summary Open a teleconsultation request
// @Tags tele
// @Produce json
// @Success 200 {object} domain.TeleRequest "ok"
// @Router /tele/requests [post]
func (h *handlers) create(r *stdhttp.Request) (any, error) {
	citizenID := httpkit.MustUser(r)
	return h.ports.Create(r.Context(), citizenID)
}

// swagger:route GET /tele/requests/{id} Teleconsult get
// @Summary Fetch a teleconsultation request; owner, assigned clinician, or
// a privileged caller only
// @Tags tele
// @Produce json
// @Param id path string true "Request id"
// @Success 200 {object} domain.TeleRequest "ok"
// @Router /tele/requests/{id} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	callerID := httpkit.MustUser(r)
	privileged := hasBroadTeleView(r)
	id := chi.URLParam(r, "id")
	return h.ports.Get(r.Context(), callerID, privileged, id)
}

// swagger:route PATCH /tele/requests/{id} Teleconsult transition
// @Summary Move a teleconsultation request through its state machine
// @Tags tele
// @Accept json
// @Produce json
// @Param id path string true "Request id"
// @Param payload body domain.TransitionDTO true "Target status"
// @Success 200 {object} domain.TeleRequest "ok"
// @Router /tele/requests/{id} [patch]
func (h *handlers) transition(r *stdhttp.Request, in domain.TransitionDTO) (any, error) {
	id := chi.URLParam(r, "id")
	clinicianID := in.ClinicianID
	if clinicianID == "" {
		clinicianID = httpkit.MustUser(r)
	}
	return h.ports.Transition(r.Context(), id, domain.TransitionInput{ClinicianID: clinicianID, To: in.To})
}

// swagger:route POST /tele/prescriptions Teleconsult prescribe
// @Summary Issue a prescription against an in-progress or completed
// teleconsultation
// @Tags tele
// @Accept json
// @Produce json
// @Param payload body domain.PrescribeDTO true "Prescription"
// @Success 200 {object} domain.Prescription "ok"
// @Router /tele/prescriptions [post]
func (h *handlers) prescribe(r *stdhttp.Request, in domain.PrescribeDTO) (any, error) {
	clinicianID := httpkit.MustUser(r)
	return h.ports.Prescribe(r.Context(), domain.PrescribeInput{
		TeleRequestID: in.TeleRequestID,
		ClinicianID:   clinicianID,
		Items:         in.Items,
		SummaryText:   in.SummaryText,
	})
}

// hasBroadTeleView reports whether the caller's role grants a view broader
// than their own requests (district_officer or higher)
func hasBroadTeleView(r *stdhttp.Request) bool {
	for _, role := range httpkit.RolesOf(r) {
		if idomain.Role(role).AtLeast(idomain.RoleDistrictOfficer) {
			return true
		}
	}
	return false
}
