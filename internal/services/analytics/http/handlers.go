// Package http provides http transport for the analytics pipeline (4.G)
package http

import (
	stdhttp "net/http"

	"sahay/internal/modkit/httpkit"
	"sahay/internal/services/analytics/domain"
)

// RegisterEmit mounts the event emission endpoint, open to any
// authenticated caller (the consent check happens per-call against the
// caller's own user id)
func RegisterEmit(r httpkit.Router, ports domain.Ports) {
	h := &handlers{ports: ports}
	httpkit.PostJSON[domain.EmitDTO](r, "/events", h.emit)
}

// RegisterQuery mounts the k-anonymous aggregate query endpoints, gated to
// district_officer or higher by the caller (dashboard read surface, 4.H)
func RegisterQuery(r httpkit.Router, ports domain.Ports) {
	h := &handlers{ports: ports}
	httpkit.PostJSON[domain.QueryDTO](r, "/summary", h.summary)
	httpkit.PostJSON[domain.QueryDTO](r, "/timeseries", h.timeSeries)
	httpkit.PostJSON[domain.QueryDTO](r, "/heatmap", h.heatmap)
	httpkit.PostJSON[domain.QueryDTO](r, "/category", h.byCategory)
	httpkit.PostJSON[domain.QueryDTO](r, "/demographic", h.demographic)
	httpkit.PostJSON[domain.QueryDTO](r, "/top-region", h.topRegion)
}

// RegisterAdmin mounts the explicit-flush admin endpoint
func RegisterAdmin(r httpkit.Router, ports domain.Ports) {
	h := &handlers{ports: ports}
	httpkit.Post(r, "/flush", h.flush)
}

type handlers struct{ ports domain.Ports }

// swagger:route POST /analytics/events Analytics emit
// @Summary Emit a de-identified analytics event
// @Tags analytics
// @Accept json
// @Produce json
// @Param payload body domain.EmitDTO true "Event"
// @Success 204 "ok"
// @Router /analytics/events [post]
func (h *handlers) emit(r *stdhttp.Request, in domain.EmitDTO) (any, error) {
	uid, _ := httpkit.UserIfAny(r)
	err := h.ports.Emit(r.Context(), domain.EmitInput{
		UserID:    uid,
		EventType: domain.EventType(in.EventType),
		Category:  in.Category,
		EventTime: in.EventTime,
		Pincode:   in.Pincode,
		AgeYears:  in.AgeYears,
		Gender:    in.Gender,
		Payload:   in.Payload,
	})
	return nil, err
}

// swagger:route POST /analytics/summary Analytics summary
// @Summary Summary counts, k-anonymous
// @Tags analytics
// @Accept json
// @Produce json
// @Param payload body domain.QueryDTO true "Filter"
// @Success 200 {array} domain.AggregateRow "ok"
// @Router /analytics/summary [post]
func (h *handlers) summary(r *stdhttp.Request, in domain.QueryDTO) (any, error) {
	return h.ports.Summary(r.Context(), in.ToFilter())
}

func (h *handlers) timeSeries(r *stdhttp.Request, in domain.QueryDTO) (any, error) {
	return h.ports.TimeSeries(r.Context(), in.ToFilter())
}

func (h *handlers) heatmap(r *stdhttp.Request, in domain.QueryDTO) (any, error) {
	return h.ports.Heatmap(r.Context(), in.ToFilter())
}

func (h *handlers) byCategory(r *stdhttp.Request, in domain.QueryDTO) (any, error) {
	return h.ports.ByCategory(r.Context(), in.ToFilter())
}

func (h *handlers) demographic(r *stdhttp.Request, in domain.QueryDTO) (any, error) {
	return h.ports.Demographic(r.Context(), in.ToFilter())
}

func (h *handlers) topRegion(r *stdhttp.Request, in domain.QueryDTO) (any, error) {
	return h.ports.TopRegion(r.Context(), in.ToFilter(), in.Limit)
}

// swagger:route POST /analytics/flush Analytics flush
// @Summary Force an explicit buffer flush (4.G)
// @Tags analytics
// @Produce json
// @Success 200 {object} map[string]int "ok"
// @Router /analytics/flush [post]
func (h *handlers) flush(r *stdhttp.Request) (any, error) {
	n, err := h.ports.Flush(r.Context())
	return map[string]int{"flushed": n}, err
}
