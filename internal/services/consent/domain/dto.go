package domain

// GrantInput is the payload for POST /consents
type GrantInput struct {
	Category Category `json:"category" validate:"required,oneof=tracking cloud_sync neuro complaints analytics"`
	Scope    Scope    `json:"scope" validate:"required,oneof=asha clinician gov_aggregated"`
	Granted  bool     `json:"granted"`
	Version  int      `json:"version" validate:"required,min=1"`
}
