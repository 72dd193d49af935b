package repo

import (
	"context"

	"github.com/sportbet/platform/internal/model"
)

// Primary agrega as visões do store primário que a propagação consome
// para reconstruir projeções e recalcular rivalidade.
type Primary struct {
	Teams   *Teams
	Matches *Matches
	Bets    *Bets
}

func (p *Primary) AllTeams(ctx context.Context) ([]model.Team, error) {
	return p.Teams.All(ctx)
}

func (p *Primary) AllMatches(ctx context.Context) ([]model.Match, error) {
	return p.Matches.All(ctx)
}

func (p *Primary) AllBets(ctx context.Context) ([]model.Bet, error) {
	return p.Bets.All(ctx)
}

func (p *Primary) ResolveByPair(ctx context.Context, team1, team2, date string) (*model.Match, error) {
	return p.Matches.ResolveByPair(ctx, team1, team2, date)
}

func (p *Primary) CountByPair(ctx context.Context, team1, team2 string) (int, error) {
	return p.Matches.CountByPair(ctx, team1, team2)
}
