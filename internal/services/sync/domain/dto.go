package domain

import (
	"encoding/json"
	"time"
)

// EnvelopeInput is the wire shape of one batch item
type EnvelopeInput struct {
	EventID    string          `json:"event_id" validate:"required,uuid4"`
	DeviceID   string          `json:"device_id" validate:"required"`
	EntityType string          `json:"entity_type" validate:"required,oneof=profile vitals mood water"`
	Operation  string          `json:"operation" validate:"required,oneof=create update delete"`
	ClientTime time.Time       `json:"client_time" validate:"required"`
	Payload    json.RawMessage `json:"payload" validate:"required"`
}

// BatchInput is the POST /sync/batch request body
type BatchInput struct {
	Items []EnvelopeInput `json:"items" validate:"required,min=1,max=500,dive"`
}
