package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sportbet/platform/internal/model"
)

const dateLayout = "2006-01-02"

// Matches implementa a persistência de partidas no store primário.
type Matches struct{ db *sql.DB }

func NewMatches(db *sql.DB) *Matches { return &Matches{db: db} }

// Create insere uma partida. A tupla (sport, matchType, date, par) é única;
// duplicata retorna ErrDuplicate.
func (m *Matches) Create(ctx context.Context, match *model.Match) (string, error) {
	id := uuid.NewString()
	lo, hi := model.PairKey(match.Home.Name, match.Away.Name)
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO matches
		  (id, sport, match_type, date, home_team, away_team, team_lo, team_hi,
		   status, home_price, away_price)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		id, match.Sport, match.MatchType, match.Date,
		model.NormalizeTeamName(match.Home.Name), model.NormalizeTeamName(match.Away.Name),
		lo, hi, model.MatchScheduled, match.HomePrice, match.AwayPrice,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicate
		}
		return "", err
	}
	return id, nil
}

// Get retorna a partida pelo id.
func (m *Matches) Get(ctx context.Context, id string) (*model.Match, error) {
	row := m.db.QueryRowContext(ctx, selectMatch+` WHERE id=$1`, id)
	return scanMatch(row)
}

// ResolveByPair resolve a partida pelo par de times em qualquer ordem
// e pela data do evento. É a mesma regra usada na colocação e no settlement.
func (m *Matches) ResolveByPair(ctx context.Context, team1, team2, date string) (*model.Match, error) {
	lo, hi := model.PairKey(team1, team2)
	row := m.db.QueryRowContext(ctx,
		selectMatch+` WHERE team_lo=$1 AND team_hi=$2 AND date=$3`, lo, hi, date)
	return scanMatch(row)
}

// ReportResult grava o resultado final e transiciona SCHEDULED -> FINISHED.
// Partida já FINISHED retorna ErrAlreadyFinished.
func (m *Matches) ReportResult(ctx context.Context, id string, home, away *model.TeamResult) error {
	hb, err := json.Marshal(home)
	if err != nil {
		return err
	}
	ab, err := json.Marshal(away)
	if err != nil {
		return err
	}
	res, err := m.db.ExecContext(ctx, `
		UPDATE matches
		SET status=$2, home_result=$3, away_result=$4, updated_at=NOW()
		WHERE id=$1 AND status=$5`,
		id, model.MatchFinished, hb, ab, model.MatchScheduled)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := m.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM matches WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrAlreadyFinished
	}
	return nil
}

// Delete remove a partida do store primário. A limpeza em cascata das
// projeções (apostas no grafo, índice de busca, cache) é do propagation.
func (m *Matches) Delete(ctx context.Context, id string) error {
	res, err := m.db.ExecContext(ctx, `DELETE FROM matches WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecentForm devolve vitórias, empates e total de jogos do time nos últimos
// n jogos FINISHED, do mais recente para trás. Alimenta o cálculo de odds.
func (m *Matches) RecentForm(ctx context.Context, team string, n int) (wins, draws, games int, err error) {
	name := model.NormalizeTeamName(team)
	rows, err := m.db.QueryContext(ctx, `
		SELECT home_team, home_result, away_result
		FROM matches
		WHERE status=$1 AND (LOWER(home_team)=LOWER($2) OR LOWER(away_team)=LOWER($2))
		ORDER BY date DESC
		LIMIT $3`, model.MatchFinished, name, n)
	if err != nil {
		return 0, 0, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		var homeTeam string
		var hb, ab []byte
		if err := rows.Scan(&homeTeam, &hb, &ab); err != nil {
			return 0, 0, 0, err
		}
		side := hb
		if !strings.EqualFold(homeTeam, name) {
			side = ab
		}
		var result model.TeamResult
		if len(side) == 0 || json.Unmarshal(side, &result) != nil {
			continue
		}
		games++
		switch result.Status {
		case model.ResultWon:
			wins++
		case model.ResultDraw:
			draws++
		}
	}
	return wins, draws, games, rows.Err()
}

// CountByPair conta as partidas históricas entre um par de times.
// Usado pelo propagation para a regra de rivalidade no grafo.
func (m *Matches) CountByPair(ctx context.Context, team1, team2 string) (int, error) {
	lo, hi := model.PairKey(team1, team2)
	var n int
	err := m.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE team_lo=$1 AND team_hi=$2`, lo, hi).Scan(&n)
	return n, err
}

// All retorna todas as partidas; usado pelo sync-all das projeções.
func (m *Matches) All(ctx context.Context) ([]model.Match, error) {
	rows, err := m.db.QueryContext(ctx, selectMatch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Match
	for rows.Next() {
		match, err := scanMatchRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *match)
	}
	return out, rows.Err()
}

const selectMatch = `
	SELECT id, sport, match_type, date, home_team, away_team, status,
	       home_price, away_price, home_result, away_result, created_at, updated_at
	FROM matches`

type matchScanner interface{ Scan(dest ...any) error }

func scanMatch(row *sql.Row) (*model.Match, error) {
	match, err := scanInto(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return match, err
}

func scanMatchRows(rows *sql.Rows) (*model.Match, error) {
	return scanInto(rows)
}

func scanInto(s matchScanner) (*model.Match, error) {
	var match model.Match
	var date time.Time
	var hb, ab []byte
	err := s.Scan(&match.ID, &match.Sport, &match.MatchType, &date,
		&match.Home.Name, &match.Away.Name, &match.Status,
		&match.HomePrice, &match.AwayPrice, &hb, &ab,
		&match.CreatedAt, &match.UpdatedAt)
	if err != nil {
		return nil, err
	}
	match.Date = date.Format(dateLayout)
	if len(hb) > 0 {
		var r model.TeamResult
		if err := json.Unmarshal(hb, &r); err == nil {
			match.Home.Result = &r
		}
	}
	if len(ab) > 0 {
		var r model.TeamResult
		if err := json.Unmarshal(ab, &r); err == nil {
			match.Away.Result = &r
		}
	}
	return &match, nil
}
