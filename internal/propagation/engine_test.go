package propagation_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/sportbet/platform/internal/model"
	"github.com/sportbet/platform/internal/propagation"
	"github.com/sportbet/platform/internal/repo"
)

type fakeIndex struct {
	matches map[string]propagation.MatchDoc
	bets    map[string]propagation.BetDoc
	fail    bool
}

func newIndex() *fakeIndex {
	return &fakeIndex{matches: map[string]propagation.MatchDoc{}, bets: map[string]propagation.BetDoc{}}
}

func (f *fakeIndex) UpsertMatch(_ context.Context, doc propagation.MatchDoc) error {
	if f.fail {
		return errors.New("index down")
	}
	f.matches[doc.MatchID] = doc
	return nil
}

func (f *fakeIndex) UpsertBet(_ context.Context, doc propagation.BetDoc) error {
	if f.fail {
		return errors.New("index down")
	}
	f.bets[doc.BetID] = doc
	return nil
}

func (f *fakeIndex) DeleteMatch(_ context.Context, matchID string) error {
	delete(f.matches, matchID)
	return nil
}

func (f *fakeIndex) DeleteBet(_ context.Context, betID string) error {
	delete(f.bets, betID)
	return nil
}

type fakeGraph struct {
	teams     map[string]bool
	matches   map[string]bool
	bets      map[string]bool
	rivalries map[string]bool
}

func newGraph() *fakeGraph {
	return &fakeGraph{
		teams:     map[string]bool{},
		matches:   map[string]bool{},
		bets:      map[string]bool{},
		rivalries: map[string]bool{},
	}
}

func (f *fakeGraph) UpsertTeam(_ context.Context, team *model.Team) error {
	f.teams[team.Name] = true
	return nil
}

func (f *fakeGraph) UpsertMatch(_ context.Context, match *model.Match) error {
	f.matches[match.ID] = true
	return nil
}

func (f *fakeGraph) UpsertBet(_ context.Context, bet *model.Bet) error {
	f.bets[bet.ID] = true
	return nil
}

func (f *fakeGraph) DeleteBet(_ context.Context, betID string) error {
	delete(f.bets, betID)
	return nil
}

func (f *fakeGraph) DeleteMatch(_ context.Context, matchID string) error {
	delete(f.matches, matchID)
	return nil
}

func (f *fakeGraph) SetRivalry(_ context.Context, team1, team2 string, rivals bool) error {
	lo, hi := model.PairKey(team1, team2)
	f.rivalries[lo+"|"+hi] = rivals
	return nil
}

type fakeCache struct{ invalidated []string }

func (f *fakeCache) InvalidateEntity(_ context.Context, entity string) error {
	f.invalidated = append(f.invalidated, entity)
	return nil
}

type fakePrimary struct {
	teams     []model.Team
	matches   []model.Match
	bets      []model.Bet
	pairCount int
}

func (f *fakePrimary) AllTeams(context.Context) ([]model.Team, error) { return f.teams, nil }

func (f *fakePrimary) AllMatches(context.Context) ([]model.Match, error) { return f.matches, nil }

func (f *fakePrimary) AllBets(context.Context) ([]model.Bet, error) { return f.bets, nil }

func (f *fakePrimary) ResolveByPair(_ context.Context, team1, team2, date string) (*model.Match, error) {
	for i := range f.matches {
		m := &f.matches[i]
		lo1, hi1 := model.PairKey(m.Home.Name, m.Away.Name)
		lo2, hi2 := model.PairKey(team1, team2)
		if lo1 == lo2 && hi1 == hi2 && m.Date == date {
			return m, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakePrimary) CountByPair(context.Context, string, string) (int, error) {
	return f.pairCount, nil
}

func sampleMatch() *model.Match {
	return &model.Match{
		ID:        "m1",
		Sport:     "soccer",
		MatchType: "league",
		Date:      "2026-09-01",
		Home:      model.MatchSide{Name: "Flamengo"},
		Away:      model.MatchSide{Name: "Palmeiras"},
		Status:    model.MatchScheduled,
		HomePrice: 1.80,
		AwayPrice: 2.40,
	}
}

func sampleBet(id string) *model.Bet {
	sel, _ := model.TeamPick("Flamengo")
	return &model.Bet{
		ID: id, UserID: "u1", UserEmail: "ana@example.com", MatchID: "m1",
		Event:      model.EventRef{Team1: "Flamengo", Team2: "Palmeiras", Date: "2026-09-01"},
		Selection:  sel,
		StakeCents: 1000, Odds: 1.80,
		Status: model.BetPending,
	}
}

func newEngine(index *fakeIndex, g *fakeGraph, c *fakeCache, p *fakePrimary) *propagation.Engine {
	return propagation.NewEngine(index, g, c, p, zap.NewNop())
}

func TestMatchUpsertedProjectsEverywhere(t *testing.T) {
	index, g, c := newIndex(), newGraph(), &fakeCache{}
	primary := &fakePrimary{pairCount: 1}
	eng := newEngine(index, g, c, primary)

	match := sampleMatch()
	eng.MatchUpserted(context.Background(), match)

	doc, ok := index.matches["m1"]
	if !ok {
		t.Fatal("match not indexed")
	}
	if doc.Teams != "Flamengo vs Palmeiras" || doc.Sport != "soccer" {
		t.Errorf("doc = %+v", doc)
	}
	if !g.matches["m1"] {
		t.Error("match not in graph")
	}
	if got := c.invalidated; len(got) == 0 || got[len(got)-1] != "matches" {
		t.Errorf("cache invalidations = %v", got)
	}
}

// Replay do mesmo evento não duplica: upsert chaveado pelo id do primário.
func TestMatchUpsertedIdempotent(t *testing.T) {
	index, g, c := newIndex(), newGraph(), &fakeCache{}
	eng := newEngine(index, g, c, &fakePrimary{})

	match := sampleMatch()
	eng.MatchUpserted(context.Background(), match)
	eng.MatchUpserted(context.Background(), match)

	if len(index.matches) != 1 || len(g.matches) != 1 {
		t.Errorf("index=%d graph=%d, want 1 each", len(index.matches), len(g.matches))
	}
}

func TestRivalryThreshold(t *testing.T) {
	lo, hi := model.PairKey("Flamengo", "Palmeiras")
	pair := lo + "|" + hi

	for _, tt := range []struct {
		count int
		want  bool
	}{
		{2, false},
		{3, true},
		{7, true},
	} {
		index, g, c := newIndex(), newGraph(), &fakeCache{}
		eng := newEngine(index, g, c, &fakePrimary{pairCount: tt.count})

		eng.MatchUpserted(context.Background(), sampleMatch())
		if g.rivalries[pair] != tt.want {
			t.Errorf("count=%d: rivalry=%v, want %v", tt.count, g.rivalries[pair], tt.want)
		}
	}
}

func TestBetUpsertedDenormalizesSport(t *testing.T) {
	index, g, c := newIndex(), newGraph(), &fakeCache{}
	primary := &fakePrimary{matches: []model.Match{*sampleMatch()}}
	eng := newEngine(index, g, c, primary)

	eng.BetUpserted(context.Background(), sampleBet("b1"))

	doc, ok := index.bets["b1"]
	if !ok {
		t.Fatal("bet not indexed")
	}
	if doc.Sport != "soccer" {
		t.Errorf("sport = %q, want soccer from resolved match", doc.Sport)
	}
	if !g.bets["b1"] {
		t.Error("bet not in graph")
	}
}

func TestBetUpsertedOrphanProjectsEmptySport(t *testing.T) {
	index, g, c := newIndex(), newGraph(), &fakeCache{}
	eng := newEngine(index, g, c, &fakePrimary{})

	eng.BetUpserted(context.Background(), sampleBet("b1"))

	if doc := index.bets["b1"]; doc.Sport != "" {
		t.Errorf("sport = %q, want empty for orphan bet", doc.Sport)
	}
}

// Remoção de partida com apostas: os nós das apostas caem antes do nó da
// partida, e a rivalidade some quando o histórico fica abaixo do limiar.
func TestMatchDeletedCascades(t *testing.T) {
	index, g, c := newIndex(), newGraph(), &fakeCache{}
	primary := &fakePrimary{pairCount: 3}
	eng := newEngine(index, g, c, primary)

	match := sampleMatch()
	b1, b2 := sampleBet("b1"), sampleBet("b2")
	eng.MatchUpserted(context.Background(), match)
	eng.BetUpserted(context.Background(), b1)
	eng.BetUpserted(context.Background(), b2)

	primary.pairCount = 2
	eng.MatchDeleted(context.Background(), match, []model.Bet{*b1, *b2})

	if len(index.matches) != 0 || len(index.bets) != 0 {
		t.Errorf("index still holds matches=%d bets=%d", len(index.matches), len(index.bets))
	}
	if len(g.matches) != 0 || len(g.bets) != 0 {
		t.Errorf("graph still holds matches=%d bets=%d", len(g.matches), len(g.bets))
	}
	lo, hi := model.PairKey("Flamengo", "Palmeiras")
	if g.rivalries[lo+"|"+hi] {
		t.Error("rivalry edge survived below threshold")
	}
}

// Falha de propagação é engolida: o grafo ainda recebe a escrita e o
// estágio que falhou é reportado via hook.
func TestFailuresAreSwallowed(t *testing.T) {
	index, g, c := newIndex(), newGraph(), &fakeCache{}
	index.fail = true
	eng := newEngine(index, g, c, &fakePrimary{})

	var stages []string
	eng.OnFailure = func(stage string) { stages = append(stages, stage) }

	eng.MatchUpserted(context.Background(), sampleMatch())

	if !g.matches["m1"] {
		t.Error("graph write skipped after index failure")
	}
	if len(stages) == 0 || stages[0] != "index.match" {
		t.Errorf("reported stages = %v, want index.match first", stages)
	}
}

func TestSyncRebuildsProjections(t *testing.T) {
	index, g, c := newIndex(), newGraph(), &fakeCache{}
	primary := &fakePrimary{
		teams:   []model.Team{{ID: "t1", Name: "Flamengo", Sport: "soccer", Rating: 1600}},
		matches: []model.Match{*sampleMatch()},
		bets:    []model.Bet{*sampleBet("b1"), *sampleBet("b2")},
	}
	eng := newEngine(index, g, c, primary)

	if err := eng.SyncAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !g.teams["Flamengo"] {
		t.Error("team not synced to graph")
	}
	if len(index.matches) != 1 || len(index.bets) != 2 {
		t.Errorf("index matches=%d bets=%d, want 1 and 2", len(index.matches), len(index.bets))
	}
}

// Diferente do caminho quente, o sync administrativo reporta a falha.
func TestSyncReportsFailure(t *testing.T) {
	index, g, c := newIndex(), newGraph(), &fakeCache{}
	index.fail = true
	primary := &fakePrimary{matches: []model.Match{*sampleMatch()}}
	eng := newEngine(index, g, c, primary)

	if _, err := eng.SyncMatches(context.Background()); err == nil {
		t.Error("want error from failed index write")
	}
}
