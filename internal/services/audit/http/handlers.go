// Package http provides http transport for the audit chain
package http

import (
	stdhttp "net/http"
	"strconv"

	"sahay/internal/modkit/httpkit"
	"sahay/internal/services/audit/domain"
)

// Register mounts the audit routes
func Register(r httpkit.Router, ports domain.Ports) {
	h := &handlers{ports: ports}
	httpkit.Get(r, "/logs", h.logs)
	httpkit.Get(r, "/verify", h.verify)
}

type handlers struct{ ports domain.Ports }

// swagger:route GET /audit/logs Audit logs
// @Summary List audit entries since a sequence number
// @Tags audit
// @Produce json
// @Param since_seq query int false "exclusive lower bound"
// @Param limit query int false "max rows, capped at 1000"
// @Success 200 {array} domain.Entry "ok"
// @Router /audit/logs [get]
func (h *handlers) logs(r *stdhttp.Request) (any, error) {
	q := r.URL.Query()
	since := parseInt64(q.Get("since_seq"), 0)
	limit := int(parseInt64(q.Get("limit"), 200))
	return h.ports.List(r.Context(), since, limit)
}

// swagger:route GET /audit/verify Audit verify
// @Summary Walk the hash chain and report the first break, if any
// @Tags audit
// @Produce json
// @Param from_seq query int false "defaults to 1 (full verification)"
// @Success 200 {object} domain.VerifyResult "ok"
// @Router /audit/verify [get]
func (h *handlers) verify(r *stdhttp.Request) (any, error) {
	from := parseInt64(r.URL.Query().Get("from_seq"), 1)
	return h.ports.Verify(r.Context(), from)
}

func parseInt64(s string, def int64) int64 {
	if s == "" {
		return def
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return n
}
