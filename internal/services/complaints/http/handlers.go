// Package http provides http transport for complaints
package http

import (
	"encoding/base64"
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	"sahay/internal/modkit/httpkit"
	"sahay/internal/services/complaints/domain"
	idomain "sahay/internal/services/ident/domain"
)

// RegisterSubmit mounts the routes that admit an anonymous caller
func RegisterSubmit(r httpkit.Router, ports domain.Ports) {
	h := &handlers{ports: ports}
	httpkit.PostJSON[domain.SubmitDTO](r, "/", h.submit)
}

// RegisterAuthed mounts the routes that require a resolved caller
func RegisterAuthed(r httpkit.Router, ports domain.Ports) {
	h := &handlers{ports: ports}
	httpkit.Get(r, "/{id}", h.get)
	httpkit.PatchJSON[domain.TransitionDTO](r, "/{id}/transition", h.transition)
	httpkit.PostJSON[domain.CloseDTO](r, "/{id}/close", h.close)
}

type handlers struct{ ports domain.Ports }

// swagger:route POST /complaints Complaints submit
// @Summary File a complaint, optionally anonymous
// @Tags complaints
// @Accept json
// @Produce json
// @Param payload body domain.SubmitDTO true "Complaint"
// @Success 200 {object} domain.Complaint "ok"
// @Router /complaints [post]
func (h *handlers) submit(r *stdhttp.Request, in domain.SubmitDTO) (any, error) {
	raw, err := base64.StdEncoding.DecodeString(in.PayloadEncrypted)
	if err != nil {
		return nil, err
	}

	submitterID := ""
	anon := in.Anonymous
	if uid, ok := httpkit.UserIfAny(r); ok && !anon {
		submitterID = uid
	} else {
		anon = true
	}

	return h.ports.Submit(r.Context(), domain.SubmitInput{
		SubmitterID:      submitterID,
		Anonymous:        anon,
		Category:         in.Category,
		PayloadEncrypted: raw,
	})
}

// swagger:route GET /complaints/{id} Complaints get
// @Summary Fetch a complaint; owner-only unless the caller's role grants a
// broader view
// @Tags complaints
// @Produce json
// @Param id path string true "Complaint id"
// @Success 200 {object} domain.Complaint "ok"
// @Router /complaints/{id} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	callerID := httpkit.MustUser(r)
	privileged := hasBroadComplaintView(r)
	id := chi.URLParam(r, "id")
	return h.ports.Get(r.Context(), callerID, privileged, id)
}

// swagger:route PATCH /complaints/{id}/transition Complaints transition
// @Summary Move a complaint through its state machine
// @Tags complaints
// @Accept json
// @Produce json
// @Param id path string true "Complaint id"
// @Param payload body domain.TransitionDTO true "Target status"
// @Success 200 {object} domain.Complaint "ok"
// @Router /complaints/{id}/transition [patch]
func (h *handlers) transition(r *stdhttp.Request, in domain.TransitionDTO) (any, error) {
	id := chi.URLParam(r, "id")
	return h.ports.Transition(r.Context(), id, in.To)
}

// swagger:route POST /complaints/{id}/close Complaints close
// @Summary Close a resolved complaint
// @Tags complaints
// @Accept json
// @Produce json
// @Param id path string true "Complaint id"
// @Param payload body domain.CloseDTO true "Closure"
// @Success 200 {object} domain.Complaint "ok"
// @Router /complaints/{id}/close [post]
func (h *handlers) close(r *stdhttp.Request, in domain.CloseDTO) (any, error) {
	id := chi.URLParam(r, "id")
	return h.ports.Close(r.Context(), id, domain.CloseInput{
		ResolutionNote: in.ResolutionNote,
		Feedback:       in.Feedback,
	})
}

// hasBroadComplaintView reports whether the caller's role grants a view
// broader than their own submissions (district_officer or higher)
func hasBroadComplaintView(r *stdhttp.Request) bool {
	for _, role := range httpkit.RolesOf(r) {
		if idomain.Role(role).AtLeast(idomain.RoleDistrictOfficer) {
			return true
		}
	}
	return false
}
