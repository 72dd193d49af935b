package http

import (
	"net/http"

	"github.com/sportbet/platform/internal/api/dto"
)

// reindexMatches reconstrói a projeção de partidas a partir do primário.
// Diferente da propagação em caminho quente, falha aqui é reportada: o
// operador pediu o reindex e precisa saber se ele completou.
func (s *Server) reindexMatches(w http.ResponseWriter, r *http.Request) {
	count, err := s.prop.SyncMatches(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ReindexResponse{Entity: "matches", Synced: count})
}

func (s *Server) reindexBets(w http.ResponseWriter, r *http.Request) {
	count, err := s.prop.SyncBets(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ReindexResponse{Entity: "bets", Synced: count})
}

// runSettlement dispara manualmente a varredura de apostas pendentes.
func (s *Server) runSettlement(w http.ResponseWriter, r *http.Request) {
	rep, err := s.settler.Run(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SettlementResponse{
		Won:     rep.Won,
		Lost:    rep.Lost,
		Skipped: rep.Skipped,
		Failed:  len(rep.Failures),
	})
}

func (s *Server) dailyRevenue(w http.ResponseWriter, r *http.Request) {
	rows, err := s.reports.DailyRevenueReport(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) sportPopularity(w http.ResponseWriter, r *http.Request) {
	rows, err := s.reports.SportPopularityReport(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// graphUserBets consulta o grafo: apostas do usuário com partida e times.
func (s *Server) graphUserBets(w http.ResponseWriter, r *http.Request) {
	rows, err := s.graph.UserBets(r.Context(), r.PathValue("email"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
