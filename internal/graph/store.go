package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/sportbet/platform/internal/model"
)

// Connect abre o driver Neo4j e valida a conectividade.
func Connect(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j ping: %w", err)
	}
	return driver, nil
}

// Store implementa o GraphStore do propagation sobre Neo4j.
// Nós: User, Team, Match, Bet. Arestas: PLACED, ON_MATCH, ON_TEAM,
// HOME_TEAM, AWAY_TEAM, RIVAL_OF. Tudo via MERGE: replay é idempotente.
type Store struct{ driver neo4j.DriverWithContext }

func NewStore(driver neo4j.DriverWithContext) *Store { return &Store{driver: driver} }

// EnsureConstraints cria as constraints de unicidade dos nós.
func (s *Store) EnsureConstraints(ctx context.Context) error {
	stmts := []string{
		`CREATE CONSTRAINT IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`,
		`CREATE CONSTRAINT IF NOT EXISTS FOR (t:Team) REQUIRE t.name IS UNIQUE`,
		`CREATE CONSTRAINT IF NOT EXISTS FOR (m:Match) REQUIRE m.id IS UNIQUE`,
		`CREATE CONSTRAINT IF NOT EXISTS FOR (b:Bet) REQUIRE b.id IS UNIQUE`,
	}
	for _, stmt := range stmts {
		if err := s.write(ctx, stmt, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) UpsertTeam(ctx context.Context, team *model.Team) error {
	return s.write(ctx, `
		MERGE (t:Team {name: $name})
		SET t.sport = $sport, t.rating = $rating`,
		map[string]any{"name": team.Name, "sport": team.Sport, "rating": team.Rating})
}

func (s *Store) UpsertMatch(ctx context.Context, match *model.Match) error {
	return s.write(ctx, `
		MERGE (m:Match {id: $id})
		SET m.sport = $sport, m.matchType = $matchType,
		    m.startTime = $date, m.status = $status
		MERGE (t1:Team {name: $home})
		MERGE (t2:Team {name: $away})
		MERGE (m)-[:HOME_TEAM]->(t1)
		MERGE (m)-[:AWAY_TEAM]->(t2)`,
		map[string]any{
			"id":        match.ID,
			"sport":     match.Sport,
			"matchType": match.MatchType,
			"date":      match.Date,
			"status":    string(match.Status),
			"home":      match.Home.Name,
			"away":      match.Away.Name,
		})
}

func (s *Store) UpsertBet(ctx context.Context, bet *model.Bet) error {
	return s.write(ctx, `
		MERGE (u:User {id: $email})
		  ON CREATE SET u.createdAt = datetime()
		MERGE (b:Bet {id: $betId})
		SET b.status = $status, b.stake = $stake, b.odds = $odds,
		    b.choice = $choice
		MERGE (u)-[:PLACED]->(b)
		MERGE (t1:Team {name: $team1})
		MERGE (t2:Team {name: $team2})
		MERGE (b)-[:ON_TEAM]->(t1)
		MERGE (b)-[:ON_TEAM]->(t2)
		WITH b
		MATCH (m:Match {id: $matchId})
		MERGE (b)-[:ON_MATCH]->(m)`,
		map[string]any{
			"email":   bet.UserEmail,
			"betId":   bet.ID,
			"status":  string(bet.Status),
			"stake":   model.CentsToFloat(bet.StakeCents),
			"odds":    bet.Odds,
			"choice":  string(bet.Selection.Choice()),
			"team1":   bet.Event.Team1,
			"team2":   bet.Event.Team2,
			"matchId": bet.MatchID,
		})
}

func (s *Store) DeleteBet(ctx context.Context, betID string) error {
	return s.write(ctx,
		`MATCH (b:Bet {id: $id}) DETACH DELETE b`,
		map[string]any{"id": betID})
}

func (s *Store) DeleteMatch(ctx context.Context, matchID string) error {
	return s.write(ctx,
		`MATCH (m:Match {id: $id}) DETACH DELETE m`,
		map[string]any{"id": matchID})
}

// SetRivalry materializa (ou remove) a aresta derivada RIVAL_OF do par.
// A aresta é criada numa direção determinística para o MERGE ser idempotente.
func (s *Store) SetRivalry(ctx context.Context, team1, team2 string, rivals bool) error {
	lo, hi := model.PairKey(team1, team2)
	params := map[string]any{"lo": lo, "hi": hi}
	if rivals {
		return s.write(ctx, `
			MERGE (a:Team {name: $lo})
			MERGE (b:Team {name: $hi})
			MERGE (a)-[:RIVAL_OF]->(b)`, params)
	}
	return s.write(ctx, `
		MATCH (a:Team {name: $lo})-[r:RIVAL_OF]-(b:Team {name: $hi})
		DELETE r`, params)
}

// UserBet é uma linha da consulta de apostas de um usuário no grafo.
type UserBet struct {
	BetID   string   `json:"bet_id"`
	Status  string   `json:"status"`
	Stake   float64  `json:"stake"`
	Odds    float64  `json:"odds"`
	MatchID string   `json:"match_id,omitempty"`
	Sport   string   `json:"sport,omitempty"`
	Teams   []string `json:"teams,omitempty"`
}

// UserBets percorre PLACED -> Bet e os vizinhos ON_MATCH / ON_TEAM.
func (s *Store) UserBets(ctx context.Context, email string) ([]UserBet, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	rows, err := neo4j.ExecuteRead(ctx, session,
		func(tx neo4j.ManagedTransaction) ([]UserBet, error) {
			result, err := tx.Run(ctx, `
				MATCH (u:User {id: $email})-[:PLACED]->(b:Bet)
				OPTIONAL MATCH (b)-[:ON_MATCH]->(m:Match)
				OPTIONAL MATCH (b)-[:ON_TEAM]->(t:Team)
				RETURN b.id AS betId, b.status AS status, b.stake AS stake,
				       b.odds AS odds, m.id AS matchId, m.sport AS sport,
				       collect(t.name) AS teams`,
				map[string]any{"email": email})
			if err != nil {
				return nil, err
			}
			var out []UserBet
			for result.Next(ctx) {
				rec := result.Record()
				ub := UserBet{
					BetID:  stringValue(rec, "betId"),
					Status: stringValue(rec, "status"),
					Stake:  floatValue(rec, "stake"),
					Odds:   floatValue(rec, "odds"),
				}
				ub.MatchID = stringValue(rec, "matchId")
				ub.Sport = stringValue(rec, "sport")
				if v, ok := rec.Get("teams"); ok {
					if list, ok := v.([]any); ok {
						for _, item := range list {
							if name, ok := item.(string); ok {
								ub.Teams = append(ub.Teams, name)
							}
						}
					}
				}
				out = append(out, ub)
			}
			return out, result.Err()
		})
	if err != nil {
		return nil, fmt.Errorf("user bets %s: %w", email, err)
	}
	return rows, nil
}

func (s *Store) write(ctx context.Context, cypher string, params map[string]any) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := neo4j.ExecuteWrite(ctx, session,
		func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, cypher, params)
			if err != nil {
				return nil, err
			}
			return nil, res.Err()
		})
	if err != nil {
		return fmt.Errorf("neo4j write: %w", err)
	}
	return nil
}

func stringValue(rec *neo4j.Record, key string) string {
	if v, ok := rec.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func floatValue(rec *neo4j.Record, key string) float64 {
	if v, ok := rec.Get(key); ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return 0
}
