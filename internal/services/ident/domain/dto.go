package domain

// RegisterInput is the payload for POST /auth/register
type RegisterInput struct {
	Phone string `json:"phone" validate:"required,min=6,max=20" example:"+919812345670"`
}

// LoginInput is the payload for POST /auth/login
type LoginInput struct {
	Phone string `json:"phone" validate:"required,min=6,max=20" example:"+919812345670"`
}

// LoginOutput carries the freshly issued bearer token
type LoginOutput struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// AssignRoleInput is the payload for POST /auth/roles (national_admin only)
type AssignRoleInput struct {
	UserID string `json:"user_id" validate:"required"`
	Role   Role   `json:"role" validate:"required,oneof=citizen caregiver asha clinician district_officer state_officer national_admin"`
}
