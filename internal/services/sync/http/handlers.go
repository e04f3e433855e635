// Package http provides http transport for the sync gateway
package http

import (
	stdhttp "net/http"

	"sahay/internal/modkit/httpkit"
	"sahay/internal/services/sync/domain"
)

// Register mounts the sync routes. Auth is required; the batch always
// applies to the calling device's owning user
func Register(r httpkit.Router, ports domain.Ports) {
	h := &handlers{ports: ports}
	httpkit.PostJSON[domain.BatchInput](r, "/batch", h.submitBatch)
}

type handlers struct{ ports domain.Ports }

// swagger:route POST /sync/batch Sync submitBatch
// @Summary Submit an ordered batch of sync envelopes
// @Tags sync
// @Accept json
// @Produce json
// @Param payload body domain.BatchInput true "Batch"
// @Success 200 {object} domain.BatchResult "ok, per-item outcomes"
// @Router /sync/batch [post]
func (h *handlers) submitBatch(r *stdhttp.Request, in domain.BatchInput) (any, error) {
	userID := httpkit.MustUser(r)
	items := make([]domain.Envelope, len(in.Items))
	for i, it := range in.Items {
		items[i] = domain.Envelope{
			EventID:    it.EventID,
			DeviceID:   it.DeviceID,
			UserID:     userID,
			EntityType: domain.EntityType(it.EntityType),
			Operation:  domain.Operation(it.Operation),
			ClientTime: it.ClientTime,
			Payload:    it.Payload,
		}
	}
	return h.ports.SubmitBatch(r.Context(), userID, items)
}
