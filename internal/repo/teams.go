package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/sportbet/platform/internal/model"
)

// Teams implementa a persistência de times no store primário.
type Teams struct{ db *sql.DB }

func NewTeams(db *sql.DB) *Teams { return &Teams{db: db} }

// Create insere um time. Par (nome, esporte) duplicado retorna ErrDuplicate.
func (t *Teams) Create(ctx context.Context, team *model.Team) (string, error) {
	id := uuid.NewString()
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO teams (id, name, sport, rating) VALUES ($1,$2,$3,$4)`,
		id, model.NormalizeTeamName(team.Name), team.Sport, team.Rating,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicate
		}
		return "", err
	}
	return id, nil
}

// Get retorna o time pelo id.
func (t *Teams) Get(ctx context.Context, id string) (*model.Team, error) {
	var tm model.Team
	err := t.db.QueryRowContext(ctx, `
		SELECT id, name, sport, rating, created_at, updated_at
		FROM teams WHERE id=$1`, id).
		Scan(&tm.ID, &tm.Name, &tm.Sport, &tm.Rating, &tm.CreatedAt, &tm.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

// RatingByName retorna o rating de um time pelo nome (case-insensitive).
// found=false quando o time não existe; o chamador aplica o baseline.
func (t *Teams) RatingByName(ctx context.Context, name string) (rating float64, found bool, err error) {
	err = t.db.QueryRowContext(ctx,
		`SELECT rating FROM teams WHERE LOWER(name)=LOWER($1)`,
		model.NormalizeTeamName(name)).Scan(&rating)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rating, true, nil
}

// All retorna todos os times; usado pelo sync-all das projeções.
func (t *Teams) All(ctx context.Context) ([]model.Team, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, name, sport, rating, created_at, updated_at FROM teams`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Team
	for rows.Next() {
		var tm model.Team
		if err := rows.Scan(&tm.ID, &tm.Name, &tm.Sport, &tm.Rating,
			&tm.CreatedAt, &tm.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, tm)
	}
	return out, rows.Err()
}
