package betting_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sportbet/platform/internal/betting"
	"github.com/sportbet/platform/internal/model"
	"github.com/sportbet/platform/internal/repo"
)

type fakeMatches map[string]*model.Match

func pairDate(t1, t2, date string) string {
	lo, hi := model.PairKey(t1, t2)
	return lo + "|" + hi + "|" + date
}

func (f fakeMatches) ResolveByPair(_ context.Context, team1, team2, date string) (*model.Match, error) {
	if m, ok := f[pairDate(team1, team2, date)]; ok {
		return m, nil
	}
	return nil, repo.ErrNotFound
}

type fakeDup bool

func (f fakeDup) HasDuplicate(context.Context, string, model.BetChoice, string, string, string) (bool, error) {
	return bool(f), nil
}

type fakeUsers map[string]*model.User

func (f fakeUsers) Get(_ context.Context, id string) (*model.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, repo.ErrNotFound
}

func (f fakeUsers) ByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := f[email]; ok {
		return u, nil
	}
	return nil, repo.ErrNotFound
}

func fixture() (*betting.Validator, betting.Submission) {
	match := &model.Match{
		ID:        "m1",
		Sport:     "soccer",
		Date:      "2026-09-01",
		Home:      model.MatchSide{Name: "Flamengo"},
		Away:      model.MatchSide{Name: "Palmeiras"},
		Status:    model.MatchScheduled,
		HomePrice: 1.80,
		AwayPrice: 2.40,
	}
	matches := fakeMatches{pairDate("Flamengo", "Palmeiras", "2026-09-01"): match}
	users := fakeUsers{
		"u1":              {ID: "u1", Email: "ana@example.com", BalanceCents: 10000},
		"ana@example.com": {ID: "u1", Email: "ana@example.com", BalanceCents: 10000},
	}
	v := betting.NewValidator(matches, fakeDup(false), users)

	sub := betting.Submission{
		UserID:     "u1",
		Choice:     "winner",
		Team:       "Flamengo",
		StakeCents: 3000,
	}
	sub.Event.Team1 = "Flamengo"
	sub.Event.Team2 = "Palmeiras"
	sub.Event.Type = "league"
	sub.Event.Date = "2026-09-01"
	return v, sub
}

func TestValidateWinnerUsesMatchPrice(t *testing.T) {
	v, sub := fixture()

	bet, err := v.Validate(context.Background(), sub)
	if err != nil {
		t.Fatal(err)
	}
	if bet.MatchID != "m1" || bet.Status != model.BetPending {
		t.Errorf("bet = %+v", bet)
	}
	if bet.Selection.Choice() != model.ChoiceWinner || bet.Selection.Team() != "Flamengo" {
		t.Errorf("selection = %+v", bet.Selection)
	}
	// lado precificado recebe a cotação corrente da partida, não a submetida
	if bet.Odds != 1.80 {
		t.Errorf("odds = %v, want 1.80 from match", bet.Odds)
	}
}

func TestValidateAwaySidePrice(t *testing.T) {
	v, sub := fixture()
	sub.Team = "Palmeiras"

	bet, err := v.Validate(context.Background(), sub)
	if err != nil {
		t.Fatal(err)
	}
	if bet.Odds != 2.40 {
		t.Errorf("odds = %v, want 2.40", bet.Odds)
	}
}

func TestValidateReversedPairResolves(t *testing.T) {
	v, sub := fixture()
	sub.Event.Team1 = "Palmeiras"
	sub.Event.Team2 = "Flamengo"
	sub.Team = "Palmeiras"

	bet, err := v.Validate(context.Background(), sub)
	if err != nil {
		t.Fatal(err)
	}
	if bet.MatchID != "m1" {
		t.Errorf("matchID = %q, want m1", bet.MatchID)
	}
}

func TestValidateMissingFields(t *testing.T) {
	v, _ := fixture()

	_, err := v.Validate(context.Background(), betting.Submission{})
	var verr *betting.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("got %v, want ValidationError", err)
	}
	if len(verr.Fields) < 5 {
		t.Errorf("fields = %v, want all missing fields listed", verr.Fields)
	}
}

func TestValidateUserNotFound(t *testing.T) {
	v, sub := fixture()
	sub.UserID = "ghost"

	if _, err := v.Validate(context.Background(), sub); !errors.Is(err, betting.ErrUserNotFound) {
		t.Errorf("got %v, want ErrUserNotFound", err)
	}
}

func TestValidateResolvesUserByEmail(t *testing.T) {
	v, sub := fixture()
	sub.UserID = ""
	sub.UserEmail = "ana@example.com"

	bet, err := v.Validate(context.Background(), sub)
	if err != nil {
		t.Fatal(err)
	}
	if bet.UserID != "u1" {
		t.Errorf("userID = %q, want u1", bet.UserID)
	}
}

func TestValidateMatchNotFound(t *testing.T) {
	v, sub := fixture()
	sub.Event.Date = "2026-12-25"

	if _, err := v.Validate(context.Background(), sub); !errors.Is(err, betting.ErrMatchNotFound) {
		t.Errorf("got %v, want ErrMatchNotFound", err)
	}
}

func TestValidateWinnerTeamMustPlay(t *testing.T) {
	v, sub := fixture()
	sub.Team = "Corinthians"

	_, err := v.Validate(context.Background(), sub)
	var verr *betting.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("got %v, want ValidationError", err)
	}
}

func TestValidateDrawNeedsSubmittedOdds(t *testing.T) {
	v, sub := fixture()
	sub.Team = "draw"

	_, err := v.Validate(context.Background(), sub)
	var verr *betting.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("got %v, want ValidationError for missing odds", err)
	}

	sub.Odds = 3.10
	bet, err := v.Validate(context.Background(), sub)
	if err != nil {
		t.Fatal(err)
	}
	if bet.Odds != 3.10 || bet.Selection.Team() != "draw" {
		t.Errorf("bet = %+v", bet)
	}
}

func TestValidateExactScore(t *testing.T) {
	v, sub := fixture()
	sub.Choice = "score"
	sub.Team = ""
	sub.Score = &betting.ScorePair{Team1: 2, Team2: 1}
	sub.Odds = 7.50

	bet, err := v.Validate(context.Background(), sub)
	if err != nil {
		t.Fatal(err)
	}
	if bet.Selection.Choice() != model.ChoiceExactScore {
		t.Errorf("choice = %s", bet.Selection.Choice())
	}
	h, a := bet.Selection.Score()
	if h != 2 || a != 1 {
		t.Errorf("score = (%d,%d)", h, a)
	}
	if bet.Odds != 7.50 {
		t.Errorf("odds = %v, want submitted 7.50", bet.Odds)
	}
}

func TestValidateUnknownChoice(t *testing.T) {
	v, sub := fixture()
	sub.Choice = "handicap"

	_, err := v.Validate(context.Background(), sub)
	var verr *betting.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("got %v, want ValidationError", err)
	}
}

func TestValidateDuplicate(t *testing.T) {
	_, sub := fixture()
	match := &model.Match{
		ID: "m1", Date: "2026-09-01",
		Home: model.MatchSide{Name: "Flamengo"}, Away: model.MatchSide{Name: "Palmeiras"},
		HomePrice: 1.80, AwayPrice: 2.40,
	}
	v := betting.NewValidator(
		fakeMatches{pairDate("Flamengo", "Palmeiras", "2026-09-01"): match},
		fakeDup(true),
		fakeUsers{"u1": {ID: "u1", Email: "ana@example.com"}},
	)

	if _, err := v.Validate(context.Background(), sub); !errors.Is(err, betting.ErrDuplicateBet) {
		t.Errorf("got %v, want ErrDuplicateBet", err)
	}
}
