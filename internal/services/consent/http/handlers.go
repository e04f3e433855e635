// Package http provides http transport for the consent registry
package http

import (
	stdhttp "net/http"

	"sahay/internal/modkit/httpkit"
	"sahay/internal/services/consent/domain"
)

// Register mounts the consent routes. Both require auth; ownership is
// implicit since grants always apply to the calling user
func Register(r httpkit.Router, ports domain.Ports) {
	h := &handlers{ports: ports}
	httpkit.PostJSON[domain.GrantInput](r, "/", h.grant)
	httpkit.Get(r, "/", h.list)
}

type handlers struct{ ports domain.Ports }

// swagger:route POST /consents Consent grant
// @Summary Grant or revoke a consent category/scope
// @Tags consent
// @Accept json
// @Produce json
// @Param payload body domain.GrantInput true "Grant"
// @Success 200 {object} domain.Receipt "ok"
// @Router /consents [post]
func (h *handlers) grant(r *stdhttp.Request, in domain.GrantInput) (any, error) {
	userID := httpkit.MustUser(r)
	return h.ports.Grant(r.Context(), domain.Grant{
		UserID:   userID,
		Category: in.Category,
		Scope:    in.Scope,
		Version:  in.Version,
		Granted:  in.Granted,
	})
}

// swagger:route GET /consents Consent list
// @Summary List the caller's current consent state
// @Tags consent
// @Produce json
// @Success 200 {array} domain.Receipt "ok"
// @Router /consents [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	userID := httpkit.MustUser(r)
	return h.ports.List(r.Context(), userID)
}
