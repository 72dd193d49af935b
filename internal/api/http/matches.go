package http

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sportbet/platform/internal/api/dto"
	"github.com/sportbet/platform/internal/betting"
	"github.com/sportbet/platform/internal/model"
	"github.com/sportbet/platform/pkg/contracts/events"
)

const dateLayout = "2006-01-02"

func (s *Server) createMatch(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateMatchRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := validateMatchRequest(req); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := s.storeCtx(r)
	defer cancel()

	home := model.NormalizeTeamName(req.HomeTeam)
	away := model.NormalizeTeamName(req.AwayTeam)

	// cotações calculadas na criação e congeladas no registro
	quote, err := s.odds.Quote(ctx, home, away)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	match := &model.Match{
		Sport:     req.Sport,
		MatchType: req.MatchType,
		Date:      req.Date,
		Home:      model.MatchSide{Name: home},
		Away:      model.MatchSide{Name: away},
		Status:    model.MatchScheduled,
		HomePrice: quote.Price1,
		AwayPrice: quote.Price2,
	}
	id, err := s.matches.Create(ctx, match)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	match.ID = id
	s.prop.MatchUpserted(ctx, match)

	writeJSON(w, http.StatusCreated, matchResponse(match))
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeCtx(r)
	defer cancel()

	match, err := s.matches.Get(ctx, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matchResponse(match))
}

// reportResult grava o resultado final, publica match_finished e dispara o
// assentamento das apostas pendentes da partida.
func (s *Server) reportResult(w http.ResponseWriter, r *http.Request) {
	var req dto.ReportResultRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	var missing []string
	if !validSideStatus(req.Home.Status) {
		missing = append(missing, "home.status")
	}
	if !validSideStatus(req.Away.Status) {
		missing = append(missing, "away.status")
	}
	if len(missing) > 0 {
		s.fail(w, r, &betting.ValidationError{Fields: missing})
		return
	}

	ctx, cancel := s.storeCtx(r)
	defer cancel()

	id := r.PathValue("id")
	if err := s.matches.ReportResult(ctx, id, sideResult(req.Home), sideResult(req.Away)); err != nil {
		s.fail(w, r, err)
		return
	}
	match, err := s.matches.Get(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.prop.MatchUpserted(ctx, match)

	if perr := s.publ.PublishMatchFinished(r.Context(), events.MatchFinished{
		MatchID:   match.ID,
		Sport:     match.Sport,
		MatchType: match.MatchType,
		Date:      match.Date,
		HomeTeam:  match.Home.Name,
		AwayTeam:  match.Away.Name,
	}); perr != nil {
		s.log.Warn("publish match_finished failed", zap.Error(perr))
	}

	// assentamento síncrono das apostas da partida; o worker cobre o resto
	rep, err := s.settler.SettleMatch(r.Context(), match.ID)
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

// deleteMatch remove a partida e as apostas dependentes no primário, e
// propaga a cascata para o índice e o grafo.
func (s *Server) deleteMatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeCtx(r)
	defer cancel()

	id := r.PathValue("id")
	match, err := s.matches.Get(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	dependents, err := s.bets.ByMatch(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(dependents) > 0 {
		ids := make([]string, len(dependents))
		for i := range dependents {
			ids[i] = dependents[i].ID
		}
		if err := s.bets.DeleteBatch(ctx, ids); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	if err := s.matches.Delete(ctx, id); err != nil {
		s.fail(w, r, err)
		return
	}

	s.prop.MatchDeleted(ctx, match, dependents)
	w.WriteHeader(http.StatusNoContent)
}

func validateMatchRequest(req dto.CreateMatchRequest) error {
	var missing []string
	if req.Sport == "" {
		missing = append(missing, "sport")
	}
	if req.MatchType == "" {
		missing = append(missing, "matchType")
	}
	if req.HomeTeam == "" {
		missing = append(missing, "homeTeam")
	}
	if req.AwayTeam == "" {
		missing = append(missing, "awayTeam")
	}
	if _, err := time.Parse(dateLayout, req.Date); err != nil {
		missing = append(missing, "date")
	}
	if lo, hi := model.PairKey(req.HomeTeam, req.AwayTeam); lo == hi {
		missing = append(missing, "awayTeam")
	}
	if len(missing) > 0 {
		return &betting.ValidationError{Fields: missing}
	}
	return nil
}

func validSideStatus(st string) bool {
	return st == model.ResultWon || st == model.ResultLost || st == model.ResultDraw
}

func sideResult(sr dto.SideResult) *model.TeamResult {
	return &model.TeamResult{
		GoalsFor:     sr.GoalsFor,
		GoalsAgainst: sr.GoalsAgainst,
		Status:       sr.Status,
		YellowCards:  sr.YellowCards,
		RedCards:     sr.RedCards,
		Fouls:        sr.Fouls,
	}
}

func matchResponse(m *model.Match) dto.MatchResponse {
	resp := dto.MatchResponse{
		MatchID:   m.ID,
		Sport:     m.Sport,
		MatchType: m.MatchType,
		Date:      m.Date,
		HomeTeam:  m.Home.Name,
		AwayTeam:  m.Away.Name,
		Status:    string(m.Status),
		HomeOdds:  m.HomePrice,
		AwayOdds:  m.AwayPrice,
	}
	if m.Home.Result != nil {
		resp.Home = teamResult(m.Home.Result)
	}
	if m.Away.Result != nil {
		resp.Away = teamResult(m.Away.Result)
	}
	return resp
}

func teamResult(tr *model.TeamResult) *dto.SideResult {
	return &dto.SideResult{
		GoalsFor:     tr.GoalsFor,
		GoalsAgainst: tr.GoalsAgainst,
		Status:       tr.Status,
		YellowCards:  tr.YellowCards,
		RedCards:     tr.RedCards,
		Fouls:        tr.Fouls,
	}
}
