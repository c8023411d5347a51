package http

import (
	"net/http"

	"ledgerly/internal/core"
	"ledgerly/internal/stats"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	owner, resp := ownerID(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	period := stats.Week
	if v := r.URL.Query().Get("period"); v != "" {
		p, err := stats.ParsePeriod(v)
		if err != nil {
			FromError(r, err).Write(w)
			return
		}
		period = p
	}

	report, err := s.stats.Aggregate(r.Context(), owner, period)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewResponse().Data(toStatsDTO(report)).Write(w)
}

func handleCategories(w http.ResponseWriter, r *http.Request) {
	NewResponse().Data(map[string]any{
		"expense": core.ExpenseCategories,
		"income":  []string{core.IncomeCategory},
	}).Write(w)
}
