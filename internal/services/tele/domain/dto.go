package domain

// TransitionDTO is the PATCH /tele/requests/{id} request body. ClinicianID
// is required when To is "scheduled" (claiming the request); a
// validator/v10 struct-level tag would be more ergonomic here, but the
// service enforces this rather than the DTO since the rule only applies to
// one transition out of three
type TransitionDTO struct {
	ClinicianID string `json:"clinician_id"`
	To          Status `json:"to" validate:"required,oneof=scheduled in_progress completed"`
}

// PrescribeDTO is the POST /tele/prescriptions request body. SummaryText's
// 160-300 char bound is the spec's one explicit validation constraint (§7)
type PrescribeDTO struct {
	TeleRequestID string   `json:"tele_request_id" validate:"required"`
	Items         []string `json:"items" validate:"required,min=1,dive,required"`
	SummaryText   string   `json:"summary_text" validate:"required,min=160,max=300"`
}
