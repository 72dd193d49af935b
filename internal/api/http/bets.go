package http

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/sportbet/platform/internal/api/dto"
	"github.com/sportbet/platform/internal/betting"
	"github.com/sportbet/platform/internal/model"
	"github.com/sportbet/platform/pkg/contracts/events"
)

// placeBet valida a submissão, debita o stake e persiste a aposta PENDING.
// Propagação e evento bet_placed acontecem depois da escrita no primário.
func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := s.storeCtx(r)
	defer cancel()

	draft, err := s.validator.Validate(ctx, submission(req))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := s.ledger.PlaceBet(ctx, draft)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	draft.ID = id

	s.prop.BetUpserted(ctx, draft)
	s.publishBetPlaced(r, draft)
	if s.OnBetPlaced != nil {
		s.OnBetPlaced()
	}

	writeJSON(w, http.StatusCreated, dto.PlaceBetResponse{
		BetID:  id,
		Status: string(draft.Status),
		Stake:  model.CentsToFloat(draft.StakeCents),
		Odds:   draft.Odds,
	})
}

func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeCtx(r)
	defer cancel()

	status := r.URL.Query().Get("status")
	cacheName := "status:" + status
	if s.lists != nil {
		var cached []dto.BetResponse
		if ok, err := s.lists.GetJSON(ctx, "bets", cacheName, &cached); err == nil && ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	var (
		bets []model.Bet
		err  error
	)
	switch status {
	case "":
		bets, err = s.bets.All(ctx)
	case string(model.BetPending), string(model.BetWon), string(model.BetLost):
		bets, err = s.bets.ListByStatus(ctx, model.BetStatus(status))
	default:
		s.fail(w, r, &betting.ValidationError{Fields: []string{"status"}})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := make([]dto.BetResponse, 0, len(bets))
	for i := range bets {
		out = append(out, betResponse(&bets[i]))
	}
	if s.lists != nil {
		if err := s.lists.SetJSON(ctx, "bets", cacheName, out); err != nil {
			s.log.Warn("cache bets list", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// updateBetStatus é o override administrativo: ignora a regra de transição
// e não movimenta saldo.
func (s *Server) updateBetStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateBetStatusRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	var missing []string
	if req.BetID == "" {
		missing = append(missing, "betId")
	}
	switch model.BetStatus(req.Status) {
	case model.BetPending, model.BetWon, model.BetLost:
	default:
		missing = append(missing, "status")
	}
	if len(missing) > 0 {
		s.fail(w, r, &betting.ValidationError{Fields: missing})
		return
	}

	ctx, cancel := s.storeCtx(r)
	defer cancel()

	if err := s.bets.OverrideStatus(ctx, req.BetID, model.BetStatus(req.Status)); err != nil {
		s.fail(w, r, err)
		return
	}
	bet, err := s.bets.Get(ctx, req.BetID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.prop.BetUpserted(ctx, bet)

	writeJSON(w, http.StatusOK, dto.BetStatusResponse{BetID: bet.ID, Status: string(bet.Status)})
}

func (s *Server) deleteBet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeCtx(r)
	defer cancel()

	id := r.PathValue("id")
	bet, err := s.bets.Get(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.bets.Delete(ctx, id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.prop.BetDeleted(ctx, bet)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) publishBetPlaced(r *http.Request, bet *model.Bet) {
	if err := s.publ.PublishBetPlaced(r.Context(), events.BetPlaced{
		BetID:      bet.ID,
		UserID:     bet.UserID,
		UserEmail:  bet.UserEmail,
		MatchID:    bet.MatchID,
		Choice:     string(bet.Selection.Choice()),
		StakeCents: bet.StakeCents,
		Odds:       bet.Odds,
		BatchRef:   bet.BatchRef,
	}); err != nil {
		s.log.Warn("publish bet_placed failed", zap.String("betId", bet.ID), zap.Error(err))
	}
}

func submission(req dto.PlaceBetRequest) betting.Submission {
	sub := betting.Submission{
		UserID:     req.UserID,
		UserEmail:  req.UserEmail,
		Choice:     req.Bet.Choice,
		Team:       req.Bet.Team,
		Score:      req.Bet.Score,
		StakeCents: model.CentsFromFloat(req.Bet.Stake),
		Odds:       req.Bet.Odds,
	}
	sub.Event.Team1 = req.Event.Team1
	sub.Event.Team2 = req.Event.Team2
	sub.Event.Type = req.Event.Type
	sub.Event.Date = req.Event.Date
	return sub
}

func betResponse(b *model.Bet) dto.BetResponse {
	resp := dto.BetResponse{
		BetID:     b.ID,
		UserEmail: b.UserEmail,
		Event: dto.EventPayload{
			Team1: b.Event.Team1,
			Team2: b.Event.Team2,
			Type:  b.Event.Type,
			Date:  b.Event.Date,
		},
		Choice:   string(b.Selection.Choice()),
		Stake:    model.CentsToFloat(b.StakeCents),
		Odds:     b.Odds,
		Status:   string(b.Status),
		BatchRef: b.BatchRef,
	}
	switch b.Selection.Choice() {
	case model.ChoiceWinner:
		resp.Team = b.Selection.Team()
	case model.ChoiceExactScore:
		t1, t2 := b.Selection.Score()
		resp.Score = &dto.ScorePair{Team1: t1, Team2: t2}
	}
	return resp
}
