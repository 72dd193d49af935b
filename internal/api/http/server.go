package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sportbet/platform/internal/api/dto"
	"github.com/sportbet/platform/internal/betting"
	"github.com/sportbet/platform/internal/cart"
	"github.com/sportbet/platform/internal/graph"
	"github.com/sportbet/platform/internal/ledger"
	"github.com/sportbet/platform/internal/odds"
	"github.com/sportbet/platform/internal/producer"
	"github.com/sportbet/platform/internal/propagation"
	"github.com/sportbet/platform/internal/repo"
	"github.com/sportbet/platform/internal/search"
	"github.com/sportbet/platform/internal/settlement"
)

// ListCache é o cache de listagem (cache.QueryCache em produção). As
// escritas do primário invalidam a entidade via propagação; aqui só há
// leitura e preenchimento.
type ListCache interface {
	GetJSON(ctx context.Context, entity, name string, out any) (bool, error)
	SetJSON(ctx context.Context, entity, name string, v any) error
}

// Server expõe a API REST da plataforma: times, usuários, partidas,
// apostas, carrinho, relatórios e rotas administrativas.
type Server struct {
	log *zap.Logger

	users   *repo.Users
	teams   *repo.Teams
	matches *repo.Matches
	bets    *repo.Bets

	odds      *odds.Engine
	validator *betting.Validator
	ledger    *ledger.Ledger
	settler   *settlement.Engine
	prop      *propagation.Engine

	cart    *cart.Store
	graph   *graph.Store
	reports *search.Index
	publ    *producer.KafkaPublisher
	lists   ListCache

	storeTimeout time.Duration

	// Hooks de métrica, ligados aos counters Prometheus no main
	OnBetPlaced func()
	OnCheckout  func(placed int)
}

type Deps struct {
	Users   *repo.Users
	Teams   *repo.Teams
	Matches *repo.Matches
	Bets    *repo.Bets

	Odds      *odds.Engine
	Validator *betting.Validator
	Ledger    *ledger.Ledger
	Settler   *settlement.Engine
	Prop      *propagation.Engine

	Cart    *cart.Store
	Graph   *graph.Store
	Reports *search.Index
	Publ    *producer.KafkaPublisher
	Lists   ListCache

	StoreTimeout time.Duration
}

func NewServer(log *zap.Logger, d Deps) *Server {
	return &Server{
		log:          log,
		users:        d.Users,
		teams:        d.Teams,
		matches:      d.Matches,
		bets:         d.Bets,
		odds:         d.Odds,
		validator:    d.Validator,
		ledger:       d.Ledger,
		settler:      d.Settler,
		prop:         d.Prop,
		cart:         d.Cart,
		graph:        d.Graph,
		reports:      d.Reports,
		publ:         d.Publ,
		lists:        d.Lists,
		storeTimeout: d.StoreTimeout,
	}
}

// Router monta o mux com todas as rotas da API.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /users", s.createUser)
	mux.HandleFunc("GET /users/{id}", s.getUser)

	mux.HandleFunc("POST /teams", s.createTeam)
	mux.HandleFunc("GET /teams/{id}", s.getTeam)

	mux.HandleFunc("POST /matches", s.createMatch)
	mux.HandleFunc("GET /matches/{id}", s.getMatch)
	mux.HandleFunc("POST /matches/{id}/result", s.reportResult)
	mux.HandleFunc("DELETE /matches/{id}", s.deleteMatch)

	mux.HandleFunc("POST /bets", s.placeBet)
	mux.HandleFunc("GET /bets", s.listBets)
	mux.HandleFunc("POST /bets/update_status", s.updateBetStatus)
	mux.HandleFunc("DELETE /bets/{id}", s.deleteBet)

	mux.HandleFunc("POST /cart/items", s.cartAdd)
	mux.HandleFunc("GET /cart", s.cartList)
	mux.HandleFunc("PATCH /cart/items/{id}", s.cartUpdate)
	mux.HandleFunc("DELETE /cart/items/{id}", s.cartRemove)
	mux.HandleFunc("DELETE /cart/clear", s.cartClear)
	mux.HandleFunc("POST /cart/checkout", s.cartCheckout)

	mux.HandleFunc("POST /admin/reindex/matches", s.reindexMatches)
	mux.HandleFunc("POST /admin/reindex/bets", s.reindexBets)
	mux.HandleFunc("POST /admin/settlement/run", s.runSettlement)

	mux.HandleFunc("GET /reports/daily-revenue", s.dailyRevenue)
	mux.HandleFunc("GET /reports/sport-popularity", s.sportPopularity)

	mux.HandleFunc("GET /graph/users/{email}/bets", s.graphUserBets)

	return mux
}

// storeCtx limita cada requisição ao timeout de chamada de store.
func (s *Server) storeCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.storeTimeout)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fail traduz a taxonomia de erros de domínio em status HTTP:
// validação 400, não encontrado 404, conflito de estado 409, resto 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *betting.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "validation failed", Fields: verr.Fields})
		return
	}
	switch {
	case errors.Is(err, ledger.ErrEmptyCheckout), errors.Is(err, ledger.ErrMixedUsers):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, repo.ErrNotFound),
		errors.Is(err, betting.ErrUserNotFound),
		errors.Is(err, betting.ErrMatchNotFound),
		errors.Is(err, cart.ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, repo.ErrDuplicate),
		errors.Is(err, betting.ErrDuplicateBet),
		errors.Is(err, repo.ErrInsufficientFunds),
		errors.Is(err, repo.ErrAlreadyFinished),
		errors.Is(err, repo.ErrAlreadySettled):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	default:
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &betting.ValidationError{Fields: []string{"body"}}
	}
	return nil
}
