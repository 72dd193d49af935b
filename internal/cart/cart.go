package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sportbet/platform/internal/betting"
)

var ErrItemNotFound = errors.New("cart item not found")

// Item é uma submissão de aposta estacionada no carrinho do usuário.
type Item struct {
	ID         string             `json:"id"`
	Event      eventPayload       `json:"event"`
	Choice     string             `json:"choice"`
	Team       string             `json:"team,omitempty"`
	Score      *betting.ScorePair `json:"score,omitempty"`
	StakeCents int64              `json:"stake_cents"`
	Odds       float64            `json:"odds,omitempty"`
	AddedAt    time.Time          `json:"addedAt"`
}

type eventPayload struct {
	Team1 string `json:"team_1"`
	Team2 string `json:"team_2"`
	Type  string `json:"type"`
	Date  string `json:"date"`
}

// Store guarda carrinhos como hashes Redis: um campo por item, valor JSON.
// Toda operação renova o TTL da chave, mantendo vivo só o carrinho ativo.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func cartKey(userKey string) string {
	return "cart:user:" + userKey
}

// Add insere a submissão no carrinho e devolve o item com id gerado.
func (s *Store) Add(ctx context.Context, userKey string, sub betting.Submission) (*Item, error) {
	item := &Item{
		ID: uuid.NewString(),
		Event: eventPayload{
			Team1: sub.Event.Team1,
			Team2: sub.Event.Team2,
			Type:  sub.Event.Type,
			Date:  sub.Event.Date,
		},
		Choice:     sub.Choice,
		Team:       sub.Team,
		Score:      sub.Score,
		StakeCents: sub.StakeCents,
		Odds:       sub.Odds,
		AddedAt:    time.Now().UTC(),
	}
	if err := s.put(ctx, userKey, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Update sobrescreve um item existente mantendo o mesmo id.
func (s *Store) Update(ctx context.Context, userKey, itemID string, sub betting.Submission) (*Item, error) {
	key := cartKey(userKey)
	exists, err := s.rdb.HExists(ctx, key, itemID).Result()
	if err != nil {
		return nil, fmt.Errorf("cart hexists: %w", err)
	}
	if !exists {
		return nil, ErrItemNotFound
	}
	item := &Item{
		ID: itemID,
		Event: eventPayload{
			Team1: sub.Event.Team1,
			Team2: sub.Event.Team2,
			Type:  sub.Event.Type,
			Date:  sub.Event.Date,
		},
		Choice:     sub.Choice,
		Team:       sub.Team,
		Score:      sub.Score,
		StakeCents: sub.StakeCents,
		Odds:       sub.Odds,
		AddedAt:    time.Now().UTC(),
	}
	if err := s.put(ctx, userKey, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Items lista o conteúdo do carrinho em ordem de inserção (AddedAt, id
// como desempate) e renova o TTL. O hash do Redis não tem ordem própria.
func (s *Store) Items(ctx context.Context, userKey string) ([]Item, error) {
	key := cartKey(userKey)
	raw, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("cart hgetall: %w", err)
	}
	items := make([]Item, 0, len(raw))
	for _, payload := range raw {
		var item Item
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			return nil, fmt.Errorf("cart decode: %w", err)
		}
		items = append(items, item)
	}
	sortItems(items)
	if len(items) > 0 {
		s.touch(ctx, key)
	}
	return items, nil
}

// Remove apaga um item; carrinho vazio some junto com a chave.
func (s *Store) Remove(ctx context.Context, userKey, itemID string) error {
	n, err := s.rdb.HDel(ctx, cartKey(userKey), itemID).Result()
	if err != nil {
		return fmt.Errorf("cart hdel: %w", err)
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Clear descarta o carrinho inteiro.
func (s *Store) Clear(ctx context.Context, userKey string) error {
	if err := s.rdb.Del(ctx, cartKey(userKey)).Err(); err != nil {
		return fmt.Errorf("cart del: %w", err)
	}
	return nil
}

// Submissions converte os itens do carrinho em submissões prontas para o
// checkout, na ordem de inserção que Items garante.
func (s *Store) Submissions(ctx context.Context, userKey string) ([]betting.Submission, error) {
	items, err := s.Items(ctx, userKey)
	if err != nil {
		return nil, err
	}
	subs := make([]betting.Submission, 0, len(items))
	for _, item := range items {
		subs = append(subs, item.toSubmission())
	}
	return subs, nil
}

func sortItems(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].AddedAt.Before(items[j].AddedAt)
		}
		return items[i].ID < items[j].ID
	})
}

func (item Item) toSubmission() betting.Submission {
	sub := betting.Submission{
		Choice:     item.Choice,
		Team:       item.Team,
		Score:      item.Score,
		StakeCents: item.StakeCents,
		Odds:       item.Odds,
	}
	sub.Event.Team1 = item.Event.Team1
	sub.Event.Team2 = item.Event.Team2
	sub.Event.Type = item.Event.Type
	sub.Event.Date = item.Event.Date
	return sub
}

func (s *Store) put(ctx context.Context, userKey string, item *Item) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("cart encode: %w", err)
	}
	key := cartKey(userKey)
	if err := s.rdb.HSet(ctx, key, item.ID, payload).Err(); err != nil {
		return fmt.Errorf("cart hset: %w", err)
	}
	s.touch(ctx, key)
	return nil
}

// touch renova o TTL deslizante; falha aqui não invalida a operação.
func (s *Store) touch(ctx context.Context, key string) {
	s.rdb.Expire(ctx, key, s.ttl)
}
