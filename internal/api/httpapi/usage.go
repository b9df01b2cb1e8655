package httpapi

import (
	"net/http"
	"strconv"
	"time"
)

// parseRange reads ?from=&to= (RFC3339), defaulting to the trailing 30
// days, matching the teacher's convention of permissive query defaults
// over rejecting a bare GET /usage.
func parseRange(r *http.Request) (from, to time.Time, err error) {
	to = time.Now()
	from = to.AddDate(0, 0, -30)

	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return
		}
	}
	return
}

func (s *Server) handleUsageTotal(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	from, to, err := parseRange(r)
	if err != nil {
		badRequest(w, r, "from/to must be RFC3339 timestamps")
		return
	}

	total, err := s.store.TotalCostCents(r.Context(), p.TenantID, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":          from,
		"to":            to,
		"totalCostCents": total,
	})
}

// handleUsageBreakdown implements ?groupBy=provider. Agent/day grouping
// is also a natural extension; those aggregate along dimensions this repository's
// reporting queries do not yet expose (see DESIGN.md), so an unsupported
// groupBy is a 400 rather than a silently wrong answer.
func (s *Server) handleUsageBreakdown(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	groupBy := r.URL.Query().Get("groupBy")
	if groupBy == "" {
		groupBy = "provider"
	}
	if groupBy != "provider" {
		badRequest(w, r, "groupBy must be \"provider\"")
		return
	}

	from, to, err := parseRange(r)
	if err != nil {
		badRequest(w, r, "from/to must be RFC3339 timestamps")
		return
	}

	rows, err := s.store.UsageBreakdown(r.Context(), p.TenantID, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groupBy": groupBy, "breakdown": rows})
}

func (s *Server) handleUsageTopAgents(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	from, to, err := parseRange(r)
	if err != nil {
		badRequest(w, r, "from/to must be RFC3339 timestamps")
		return
	}

	rows, err := s.store.TopAgents(r.Context(), p.TenantID, from, to, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topAgents": rows})
}
