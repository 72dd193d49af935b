package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sportbet/platform/internal/model"
	"github.com/sportbet/platform/internal/repo"
	"github.com/sportbet/platform/pkg/contracts/events"
)

// BetSource é a visão do store de apostas usada pelo settlement.
type BetSource interface {
	ListPending(ctx context.Context, until string) ([]model.Bet, error)
	ByMatch(ctx context.Context, matchID string) ([]model.Bet, error)
	UpdateStatusIfPending(ctx context.Context, id string, status model.BetStatus) error
}

// MatchResolver resolve a partida pela mesma regra da colocação.
type MatchResolver interface {
	ResolveByPair(ctx context.Context, team1, team2, date string) (*model.Match, error)
}

// Crediter aplica o lado financeiro do settlement (ledger).
type Crediter interface {
	SettleCredit(ctx context.Context, bet *model.Bet, outcome model.BetStatus) error
}

// Publisher emite o evento bet_settled; opcional.
type Publisher interface {
	PublishBetSettled(ctx context.Context, e events.BetSettled) error
}

// Propagator espelha a aposta atualizada nas projeções; opcional.
type Propagator interface {
	BetUpserted(ctx context.Context, bet *model.Bet)
}

// Failure registra uma aposta que falhou individualmente no lote.
type Failure struct {
	BetID string
	Err   error
}

// Report resume uma execução do settlement.
type Report struct {
	Won      int
	Lost     int
	Skipped  int
	Failures []Failure
}

// Engine resolve apostas PENDING contra resultados de partidas FINISHED.
// PENDING -> {WON, LOST} é terminal; re-settlement é rejeitado pelo update
// condicional do store. Lote best-effort: falha em uma aposta não bloqueia
// as demais.
type Engine struct {
	bets    BetSource
	matches MatchResolver
	ledger  Crediter
	log     *zap.Logger

	Publisher  Publisher
	Propagator Propagator

	// OnSettled é chamado por aposta assentada, com "WON" ou "LOST" (métrica)
	OnSettled func(status string)
}

func NewEngine(bets BetSource, matches MatchResolver, ledger Crediter, log *zap.Logger) *Engine {
	return &Engine{bets: bets, matches: matches, ledger: ledger, log: log}
}

// Run varre as apostas PENDING cuja data do evento já passou e tenta
// assentar cada uma.
func (e *Engine) Run(ctx context.Context) (Report, error) {
	today := time.Now().UTC().Format("2006-01-02")
	pending, err := e.bets.ListPending(ctx, today)
	if err != nil {
		return Report{}, fmt.Errorf("list pending: %w", err)
	}
	return e.settleAll(ctx, pending), nil
}

// SettleMatch assenta as apostas pendentes de uma única partida; disparado
// quando o resultado da partida é reportado.
func (e *Engine) SettleMatch(ctx context.Context, matchID string) (Report, error) {
	bets, err := e.bets.ByMatch(ctx, matchID)
	if err != nil {
		return Report{}, fmt.Errorf("bets by match: %w", err)
	}
	return e.settleAll(ctx, bets), nil
}

func (e *Engine) settleAll(ctx context.Context, bets []model.Bet) Report {
	var rep Report
	for i := range bets {
		bet := &bets[i]
		if bet.Status != model.BetPending {
			continue
		}
		outcome, ok, err := e.settleOne(ctx, bet)
		if err != nil {
			rep.Failures = append(rep.Failures, Failure{BetID: bet.ID, Err: err})
			continue
		}
		if !ok {
			rep.Skipped++
			continue
		}
		if outcome == model.BetWon {
			rep.Won++
		} else {
			rep.Lost++
		}
	}
	return rep
}

// settleOne resolve a partida da aposta, deriva o desfecho e aplica a
// transição de status + crédito. ok=false indica skip (partida ainda sem
// resultado ou aposta órfã), não erro.
func (e *Engine) settleOne(ctx context.Context, bet *model.Bet) (model.BetStatus, bool, error) {
	match, err := e.matches.ResolveByPair(ctx, bet.Event.Team1, bet.Event.Team2, bet.Event.Date)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			e.log.Warn("no match for pending bet",
				zap.String("betId", bet.ID),
				zap.String("team1", bet.Event.Team1),
				zap.String("team2", bet.Event.Team2),
				zap.String("date", bet.Event.Date),
			)
			return "", false, nil
		}
		return "", false, fmt.Errorf("resolve match: %w", err)
	}
	if match.Status != model.MatchFinished || match.Home.Result == nil || match.Away.Result == nil {
		return "", false, nil
	}

	outcome := Outcome(bet, match)

	if err := e.bets.UpdateStatusIfPending(ctx, bet.ID, outcome); err != nil {
		if errors.Is(err, repo.ErrAlreadySettled) {
			// outra instância chegou antes; nada a fazer
			return "", false, nil
		}
		return "", false, fmt.Errorf("update status: %w", err)
	}

	if err := e.ledger.SettleCredit(ctx, bet, outcome); err != nil {
		return "", false, err
	}

	bet.Status = outcome
	if e.OnSettled != nil {
		e.OnSettled(string(outcome))
	}
	if e.Propagator != nil {
		e.Propagator.BetUpserted(ctx, bet)
	}
	if e.Publisher != nil {
		payout := int64(0)
		if outcome == model.BetWon {
			payout = model.WinningsCents(bet.StakeCents, bet.Odds)
		}
		if perr := e.Publisher.PublishBetSettled(ctx, events.BetSettled{
			BetID:       bet.ID,
			UserID:      bet.UserID,
			MatchID:     match.ID,
			Status:      string(outcome),
			StakeCents:  bet.StakeCents,
			PayoutCents: payout,
			Ts:          time.Now(),
		}); perr != nil {
			e.log.Warn("publish bet_settled", zap.String("betId", bet.ID), zap.Error(perr))
		}
	}
	return outcome, true, nil
}

// Outcome deriva o desfecho de uma aposta a partir do resultado final.
// WINNER ganha se o time escolhido venceu, ou se a partida empatou e a
// escolha foi "draw". EXACT_SCORE ganha se os dois componentes do placar
// previsto baterem exatamente. Qualquer outra combinação perde.
func Outcome(bet *model.Bet, match *model.Match) model.BetStatus {
	home, away := match.Home, match.Away

	switch bet.Selection.Choice() {
	case model.ChoiceWinner:
		winner := ""
		switch {
		case home.Result.Status == model.ResultWon:
			winner = home.Name
		case away.Result.Status == model.ResultWon:
			winner = away.Name
		case home.Result.Status == model.ResultDraw || away.Result.Status == model.ResultDraw:
			winner = "draw"
		}
		if winner != "" && strings.EqualFold(bet.Selection.Team(), winner) {
			return model.BetWon
		}

	case model.ChoiceExactScore:
		p1, p2 := bet.Selection.Score()
		// o placar previsto segue a ordem team_1/team_2 do snapshot da
		// aposta, que pode estar invertida em relação aos lados da partida
		actual1, actual2 := home.Result.GoalsFor, away.Result.GoalsFor
		if !strings.EqualFold(bet.Event.Team1, home.Name) {
			actual1, actual2 = actual2, actual1
		}
		if p1 == actual1 && p2 == actual2 {
			return model.BetWon
		}
	}
	return model.BetLost
}
