package propagation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sportbet/platform/internal/model"
	"github.com/sportbet/platform/internal/repo"
)

// Pares com pelo menos esse número de partidas históricas viram RIVAL_OF no grafo
const rivalryThreshold = 3

// Tentativas por escrita de propagação (upserts idempotentes, replay é seguro)
const attempts = 3

// SearchIndexer é a visão do índice de busca: upserts idempotentes chaveados
// pelo id do store primário.
type SearchIndexer interface {
	UpsertMatch(ctx context.Context, doc MatchDoc) error
	UpsertBet(ctx context.Context, doc BetDoc) error
	DeleteMatch(ctx context.Context, matchID string) error
	DeleteBet(ctx context.Context, betID string) error
}

// GraphStore é a visão do store de grafo (nós e arestas derivadas).
type GraphStore interface {
	UpsertTeam(ctx context.Context, team *model.Team) error
	UpsertMatch(ctx context.Context, match *model.Match) error
	UpsertBet(ctx context.Context, bet *model.Bet) error
	DeleteBet(ctx context.Context, betID string) error
	DeleteMatch(ctx context.Context, matchID string) error
	SetRivalry(ctx context.Context, team1, team2 string, rivals bool) error
}

// CacheInvalidator apaga entradas de cache de listagem do tipo afetado
// (delete-on-write, nunca write-through).
type CacheInvalidator interface {
	InvalidateEntity(ctx context.Context, entity string) error
}

// PrimarySource é a visão do store primário usada para reconstruir
// projeções e para a contagem de rivalidade.
type PrimarySource interface {
	AllTeams(ctx context.Context) ([]model.Team, error)
	AllMatches(ctx context.Context) ([]model.Match, error)
	AllBets(ctx context.Context) ([]model.Bet, error)
	ResolveByPair(ctx context.Context, team1, team2, date string) (*model.Match, error)
	CountByPair(ctx context.Context, team1, team2 string) (int, error)
}

// Engine espelha mutações do store primário no índice de busca e no grafo,
// e invalida o cache. Toda escrita é um upsert idempotente: replay não cria
// duplicata nem muda o estado final. Falha de propagação é logada e
// engolida: o store primário já é durável e o sync-all reconstrói as
// projeções a qualquer momento.
type Engine struct {
	index   SearchIndexer
	graph   GraphStore
	cache   CacheInvalidator
	primary PrimarySource
	log     *zap.Logger

	// OnFailure é chamado por estágio que esgotou as tentativas (métrica)
	OnFailure func(stage string)
}

func NewEngine(index SearchIndexer, graph GraphStore, cache CacheInvalidator, primary PrimarySource, log *zap.Logger) *Engine {
	return &Engine{index: index, graph: graph, cache: cache, primary: primary, log: log}
}

// TeamUpserted espelha um time criado/atualizado no grafo.
func (e *Engine) TeamUpserted(ctx context.Context, team *model.Team) {
	e.try(ctx, "graph.team", func(ctx context.Context) error {
		return e.graph.UpsertTeam(ctx, team)
	})
	e.try(ctx, "cache.teams", func(ctx context.Context) error {
		return e.cache.InvalidateEntity(ctx, "teams")
	})
}

// MatchUpserted espelha uma partida criada/atualizada: documento no índice,
// nós/arestas no grafo, recálculo da rivalidade do par e invalidação do cache.
func (e *Engine) MatchUpserted(ctx context.Context, match *model.Match) {
	e.try(ctx, "index.match", func(ctx context.Context) error {
		return e.index.UpsertMatch(ctx, BuildMatchDoc(match))
	})
	e.try(ctx, "graph.match", func(ctx context.Context) error {
		return e.graph.UpsertMatch(ctx, match)
	})
	e.refreshRivalry(ctx, match.Home.Name, match.Away.Name)
	e.try(ctx, "cache.matches", func(ctx context.Context) error {
		return e.cache.InvalidateEntity(ctx, "matches")
	})
}

// BetUpserted espelha uma aposta criada/atualizada (inclusive transição de
// status no settlement).
func (e *Engine) BetUpserted(ctx context.Context, bet *model.Bet) {
	e.try(ctx, "index.bet", func(ctx context.Context) error {
		return e.index.UpsertBet(ctx, BuildBetDoc(bet, e.sportOf(ctx, bet)))
	})
	e.try(ctx, "graph.bet", func(ctx context.Context) error {
		return e.graph.UpsertBet(ctx, bet)
	})
	e.try(ctx, "cache.bets", func(ctx context.Context) error {
		return e.cache.InvalidateEntity(ctx, "bets")
	})
}

// BetDeleted remove a projeção de uma aposta apagada no primário.
func (e *Engine) BetDeleted(ctx context.Context, bet *model.Bet) {
	e.try(ctx, "index.bet_delete", func(ctx context.Context) error {
		return e.index.DeleteBet(ctx, bet.ID)
	})
	e.try(ctx, "graph.bet_delete", func(ctx context.Context) error {
		return e.graph.DeleteBet(ctx, bet.ID)
	})
	e.try(ctx, "cache.bets", func(ctx context.Context) error {
		return e.cache.InvalidateEntity(ctx, "bets")
	})
}

// MatchDeleted propaga a remoção de uma partida em cascata: primeiro os nós
// de aposta dependentes, depois o nó da partida, e por fim remove a aresta
// de rivalidade se o histórico do par caiu abaixo do limiar.
func (e *Engine) MatchDeleted(ctx context.Context, match *model.Match, dependentBets []model.Bet) {
	for i := range dependentBets {
		e.BetDeleted(ctx, &dependentBets[i])
	}
	e.try(ctx, "index.match_delete", func(ctx context.Context) error {
		return e.index.DeleteMatch(ctx, match.ID)
	})
	e.try(ctx, "graph.match_delete", func(ctx context.Context) error {
		return e.graph.DeleteMatch(ctx, match.ID)
	})
	e.refreshRivalry(ctx, match.Home.Name, match.Away.Name)
	e.try(ctx, "cache.matches", func(ctx context.Context) error {
		return e.cache.InvalidateEntity(ctx, "matches")
	})
}

// SyncMatches reconstrói a projeção de partidas a partir do store primário.
// Usa o mesmo construtor de documento do caminho de propagação.
func (e *Engine) SyncMatches(ctx context.Context) (int, error) {
	matches, err := e.primary.AllMatches(ctx)
	if err != nil {
		return 0, fmt.Errorf("load matches: %w", err)
	}
	count := 0
	for i := range matches {
		m := &matches[i]
		if err := e.index.UpsertMatch(ctx, BuildMatchDoc(m)); err != nil {
			return count, fmt.Errorf("index match %s: %w", m.ID, err)
		}
		if err := e.graph.UpsertMatch(ctx, m); err != nil {
			return count, fmt.Errorf("graph match %s: %w", m.ID, err)
		}
		e.refreshRivalry(ctx, m.Home.Name, m.Away.Name)
		count++
	}
	return count, nil
}

// SyncBets reconstrói a projeção de apostas a partir do store primário.
func (e *Engine) SyncBets(ctx context.Context) (int, error) {
	bets, err := e.primary.AllBets(ctx)
	if err != nil {
		return 0, fmt.Errorf("load bets: %w", err)
	}
	count := 0
	for i := range bets {
		b := &bets[i]
		if err := e.index.UpsertBet(ctx, BuildBetDoc(b, e.sportOf(ctx, b))); err != nil {
			return count, fmt.Errorf("index bet %s: %w", b.ID, err)
		}
		if err := e.graph.UpsertBet(ctx, b); err != nil {
			return count, fmt.Errorf("graph bet %s: %w", b.ID, err)
		}
		count++
	}
	return count, nil
}

// SyncAll reconstrói todas as projeções (times, partidas, apostas).
func (e *Engine) SyncAll(ctx context.Context) error {
	teams, err := e.primary.AllTeams(ctx)
	if err != nil {
		return fmt.Errorf("load teams: %w", err)
	}
	for i := range teams {
		if err := e.graph.UpsertTeam(ctx, &teams[i]); err != nil {
			return fmt.Errorf("graph team %s: %w", teams[i].ID, err)
		}
	}
	if _, err := e.SyncMatches(ctx); err != nil {
		return err
	}
	if _, err := e.SyncBets(ctx); err != nil {
		return err
	}
	return nil
}

// refreshRivalry recalcula a aresta RIVAL_OF do par a partir da contagem
// autoritativa no store primário.
func (e *Engine) refreshRivalry(ctx context.Context, team1, team2 string) {
	count, err := e.primary.CountByPair(ctx, team1, team2)
	if err != nil {
		e.report("rivalry.count", err)
		return
	}
	e.try(ctx, "graph.rivalry", func(ctx context.Context) error {
		return e.graph.SetRivalry(ctx, team1, team2, count >= rivalryThreshold)
	})
}

// sportOf resolve o sport da aposta para a desnormalização do documento.
// Partida órfã projeta sport vazio; o reindex corrige depois.
func (e *Engine) sportOf(ctx context.Context, bet *model.Bet) string {
	match, err := e.primary.ResolveByPair(ctx, bet.Event.Team1, bet.Event.Team2, bet.Event.Date)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			e.report("sport.lookup", err)
		}
		return ""
	}
	return match.Sport
}

// try executa uma escrita de propagação com tentativas; replay é seguro
// porque toda escrita é upsert idempotente. Esgotadas as tentativas, loga e
// engole: o chamador nunca vê falha de propagação.
func (e *Engine) try(ctx context.Context, stage string, fn func(context.Context) error) {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return
		}
		if ctx.Err() != nil {
			break
		}
		time.Sleep(time.Duration(50*(i+1)) * time.Millisecond)
	}
	e.report(stage, err)
}

func (e *Engine) report(stage string, err error) {
	e.log.Warn("propagation failed",
		zap.String("stage", stage),
		zap.Error(err),
	)
	if e.OnFailure != nil {
		e.OnFailure(stage)
	}
}
