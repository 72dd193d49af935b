package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/sportbet/platform/internal/propagation"
)

// Índices da projeção de busca/analytics
const (
	MatchesIndex = "matches_search"
	BetsIndex    = "bets_analytics"
)

const matchesMapping = `{
  "mappings": {
    "properties": {
      "match_id":  {"type": "keyword"},
      "sport":     {"type": "keyword"},
      "teams":     {"type": "text"},
      "team1":     {"type": "keyword"},
      "team2":     {"type": "keyword"},
      "date":      {"type": "date"},
      "matchType": {"type": "keyword"},
      "status":    {"type": "keyword"},
      "home_odds": {"type": "float"},
      "away_odds": {"type": "float"}
    }
  }
}`

const betsMapping = `{
  "mappings": {
    "properties": {
      "bet_id":     {"type": "keyword"},
      "user":       {"type": "keyword"},
      "team":       {"type": "keyword"},
      "match_id":   {"type": "keyword"},
      "status":     {"type": "keyword"},
      "stake":      {"type": "float"},
      "odds":       {"type": "float"},
      "sport":      {"type": "keyword"},
      "choice":     {"type": "keyword"},
      "event_date": {"type": "date"},
      "createdAt":  {"type": "date"}
    }
  }
}`

// Connect abre o cliente Elasticsearch e valida a conexão.
func Connect(addr string) (*elasticsearch.Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("elastic client: %w", err)
	}
	res, err := es.Info()
	if err != nil {
		return nil, fmt.Errorf("elastic ping: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elastic ping: %s", res.String())
	}
	return es, nil
}

// Index implementa o SearchIndexer do propagation sobre Elasticsearch.
// Todo upsert é chaveado pelo id do store primário: replay não duplica.
type Index struct{ es *elasticsearch.Client }

func NewIndex(es *elasticsearch.Client) *Index { return &Index{es: es} }

// EnsureIndexes cria os índices com seus mappings quando ainda não existem.
func (i *Index) EnsureIndexes(ctx context.Context) error {
	for name, mapping := range map[string]string{
		MatchesIndex: matchesMapping,
		BetsIndex:    betsMapping,
	} {
		exists, err := i.es.Indices.Exists([]string{name},
			i.es.Indices.Exists.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("index exists %s: %w", name, err)
		}
		exists.Body.Close()
		if exists.StatusCode == 200 {
			continue
		}
		res, err := i.es.Indices.Create(name,
			i.es.Indices.Create.WithBody(strings.NewReader(mapping)),
			i.es.Indices.Create.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
		res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("create index %s: %s", name, res.String())
		}
	}
	return nil
}

// ResetIndexes apaga e recria os dois índices (operação administrativa).
func (i *Index) ResetIndexes(ctx context.Context) error {
	res, err := i.es.Indices.Delete([]string{MatchesIndex, BetsIndex},
		i.es.Indices.Delete.WithContext(ctx),
		i.es.Indices.Delete.WithIgnoreUnavailable(true))
	if err != nil {
		return fmt.Errorf("delete indexes: %w", err)
	}
	res.Body.Close()
	return i.EnsureIndexes(ctx)
}

func (i *Index) UpsertMatch(ctx context.Context, doc propagation.MatchDoc) error {
	return i.upsert(ctx, MatchesIndex, doc.MatchID, doc)
}

func (i *Index) UpsertBet(ctx context.Context, doc propagation.BetDoc) error {
	return i.upsert(ctx, BetsIndex, doc.BetID, doc)
}

func (i *Index) DeleteMatch(ctx context.Context, matchID string) error {
	return i.delete(ctx, MatchesIndex, matchID)
}

func (i *Index) DeleteBet(ctx context.Context, betID string) error {
	return i.delete(ctx, BetsIndex, betID)
}

func (i *Index) upsert(ctx context.Context, index, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	res, err := i.es.Index(index, bytes.NewReader(body),
		i.es.Index.WithDocumentID(id),
		i.es.Index.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index %s/%s: %w", index, id, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index %s/%s: %s", index, id, res.String())
	}
	return nil
}

// delete remove um documento; 404 conta como sucesso (idempotente).
func (i *Index) delete(ctx context.Context, index, id string) error {
	res, err := i.es.Delete(index, id, i.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", index, id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete %s/%s: %s", index, id, res.String())
	}
	return nil
}
