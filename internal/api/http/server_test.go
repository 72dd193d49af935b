package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sportbet/platform/internal/api/dto"
	"github.com/sportbet/platform/internal/betting"
	"github.com/sportbet/platform/internal/ledger"
	"github.com/sportbet/platform/internal/model"
	"github.com/sportbet/platform/internal/repo"
)

func TestFailStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &betting.ValidationError{Fields: []string{"bet.stake"}}, 400},
		{"empty checkout", ledger.ErrEmptyCheckout, 400},
		{"not found", repo.ErrNotFound, 404},
		{"user not found", betting.ErrUserNotFound, 404},
		{"match not found", betting.ErrMatchNotFound, 404},
		{"duplicate", repo.ErrDuplicate, 409},
		{"duplicate bet", betting.ErrDuplicateBet, 409},
		{"insufficient funds", repo.ErrInsufficientFunds, 409},
		{"already finished", repo.ErrAlreadyFinished, 409},
		{"already settled", repo.ErrAlreadySettled, 409},
		{"unknown", errors.New("boom"), 500},
	}

	s := &Server{log: zap.NewNop()}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/x", nil)
			s.fail(rec, req, tt.err)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

// Saldo insuficiente no checkout vira 400; o restante segue o mapeamento
// comum de fail.
func TestFailCheckoutStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"insufficient funds", repo.ErrInsufficientFunds, 400},
		{"mixed users", ledger.ErrMixedUsers, 400},
		{"duplicate bet", betting.ErrDuplicateBet, 409},
		{"unknown", errors.New("boom"), 500},
	}

	s := &Server{log: zap.NewNop()}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/cart/checkout", nil)
			s.failCheckout(rec, req, tt.err)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestCartListRoute(t *testing.T) {
	s := &Server{log: zap.NewNop()}
	mux := s.Router().(*http.ServeMux)
	req := httptest.NewRequest("GET", "/cart", nil)
	if _, pattern := mux.Handler(req); pattern != "GET /cart" {
		t.Errorf("pattern = %q, want %q", pattern, "GET /cart")
	}
}

func TestFailValidationListsFields(t *testing.T) {
	s := &Server{log: zap.NewNop()}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/bets", nil)

	s.fail(rec, req, &betting.ValidationError{Fields: []string{"bet.stake", "event.date"}})

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Fields) != 2 {
		t.Errorf("fields = %v, want both listed", resp.Fields)
	}
}

func TestValidateMatchRequest(t *testing.T) {
	valid := dto.CreateMatchRequest{
		Sport: "soccer", MatchType: "league", Date: "2026-09-01",
		HomeTeam: "Flamengo", AwayTeam: "Palmeiras",
	}
	if err := validateMatchRequest(valid); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}

	badDate := valid
	badDate.Date = "01/09/2026"
	if err := validateMatchRequest(badDate); err == nil {
		t.Error("date format accepted")
	}

	samePair := valid
	samePair.AwayTeam = " flamengo "
	if err := validateMatchRequest(samePair); err == nil {
		t.Error("team playing itself accepted")
	}
}

func TestSetIdentity(t *testing.T) {
	var sub betting.Submission
	setIdentity(&sub, "ana@example.com")
	if sub.UserEmail != "ana@example.com" || sub.UserID != "" {
		t.Errorf("email key: %+v", sub)
	}

	sub = betting.Submission{}
	setIdentity(&sub, "u1")
	if sub.UserID != "u1" || sub.UserEmail != "" {
		t.Errorf("id key: %+v", sub)
	}
}

func TestBetResponseShapes(t *testing.T) {
	sel, _ := model.TeamPick("Flamengo")
	winner := &model.Bet{
		ID: "b1", UserEmail: "ana@example.com",
		Selection: sel, StakeCents: 2990, Odds: 1.8, Status: model.BetPending,
	}
	resp := betResponse(winner)
	if resp.Team != "Flamengo" || resp.Score != nil {
		t.Errorf("winner resp = %+v", resp)
	}
	if resp.Stake != 29.90 {
		t.Errorf("stake = %v, want 29.90", resp.Stake)
	}

	score, _ := model.ScorePick(2, 1)
	exact := &model.Bet{ID: "b2", Selection: score, Status: model.BetWon}
	resp = betResponse(exact)
	if resp.Team != "" || resp.Score == nil || resp.Score.Team1 != 2 || resp.Score.Team2 != 1 {
		t.Errorf("exact score resp = %+v", resp)
	}
}

type fakeListCache struct {
	entries map[string][]byte
	sets    []string
}

func (f *fakeListCache) GetJSON(_ context.Context, entity, name string, out any) (bool, error) {
	payload, ok := f.entries[entity+":"+name]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(payload, out)
}

func (f *fakeListCache) SetJSON(_ context.Context, entity, name string, v any) error {
	f.sets = append(f.sets, entity+":"+name)
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.entries[entity+":"+name] = payload
	return nil
}

// Acerto de cache: a listagem responde sem nenhuma leitura no store
// primário (bets aqui é nil; qualquer acesso quebraria o teste).
func TestListBetsServedFromCache(t *testing.T) {
	cached := []dto.BetResponse{{BetID: "b1", Status: string(model.BetPending)}}
	payload, err := json.Marshal(cached)
	if err != nil {
		t.Fatal(err)
	}
	lists := &fakeListCache{entries: map[string][]byte{
		"bets:status:" + string(model.BetPending): payload,
	}}

	s := &Server{log: zap.NewNop(), lists: lists, storeTimeout: time.Second}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/bets?status=PENDING", nil)
	s.listBets(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []dto.BetResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].BetID != "b1" {
		t.Errorf("cached list = %+v", got)
	}
	if len(lists.sets) != 0 {
		t.Errorf("cache hit should not rewrite the entry: %v", lists.sets)
	}
}
