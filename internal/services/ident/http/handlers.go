package http

import (
	stdhttp "net/http"

	"sahay/internal/modkit/httpkit"
	"sahay/internal/services/ident/domain"
)

// Register mounts the auth routes. register/login carry no guard (§6);
// role assignment requires an authenticated, admin caller and is mounted
// separately by RegisterAdmin behind Authenticate/RequireRole. Revoke has
// no HTTP route
func Register(r httpkit.Router, ports domain.Ports) {
	h := &handlers{ports: ports}
	httpkit.PostJSON[domain.RegisterInput](r, "/register", h.register)
	httpkit.PostJSON[domain.LoginInput](r, "/login", h.login)
}

// RegisterAdmin mounts role-admin routes that require national_admin
func RegisterAdmin(r httpkit.Router, ports domain.Ports) {
	h := &handlers{ports: ports}
	httpkit.PostJSON[domain.AssignRoleInput](r, "/roles", h.assignRole)
}

type handlers struct{ ports domain.Ports }

// swagger:route POST /auth/register Auth register
// @Summary Register a phone number, idempotent
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body domain.RegisterInput true "Register"
// @Success 200 {object} domain.User "ok"
// @Router /auth/register [post]
func (h *handlers) register(r *stdhttp.Request, in domain.RegisterInput) (any, error) {
	return h.ports.Register(r.Context(), in.Phone)
}

// swagger:route POST /auth/login Auth login
// @Summary Issue a bearer token for a registered phone number
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body domain.LoginInput true "Login"
// @Success 200 {object} domain.LoginOutput "ok"
// @Failure 404 {object} httpkit.Envelope "not found"
// @Router /auth/login [post]
func (h *handlers) login(r *stdhttp.Request, in domain.LoginInput) (any, error) {
	token, u, err := h.ports.Login(r.Context(), in.Phone)
	if err != nil {
		return nil, err
	}
	return domain.LoginOutput{Token: token, UserID: u.ID}, nil
}

// swagger:route POST /auth/roles Auth assignRole
// @Summary Assign a role to a user (national_admin only)
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body domain.AssignRoleInput true "AssignRole"
// @Success 200 {object} httpkit.Envelope "ok"
// @Router /auth/roles [post]
func (h *handlers) assignRole(r *stdhttp.Request, in domain.AssignRoleInput) (any, error) {
	if err := h.ports.AssignRole(r.Context(), in.UserID, in.Role); err != nil {
		return nil, err
	}
	return map[string]string{"status": "assigned"}, nil
}
