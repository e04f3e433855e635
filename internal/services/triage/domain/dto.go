package domain

// CreateInput is the POST /triage/sessions request body
type CreateInput struct {
	SymptomsText string `json:"symptoms_text" validate:"required,min=1"`
	Age          int    `json:"age" validate:"required,min=0,max=130"`
	Sex          string `json:"sex" validate:"required,oneof=male female other"`
	Pregnancy    bool   `json:"pregnancy"`
	Language     string `json:"language" validate:"omitempty,bcp47_language_tag"`
}
