package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sportbet/platform/internal/model"
)

// Bets implementa a persistência de apostas no store primário.
type Bets struct{ db *sql.DB }

func NewBets(db *sql.DB) *Bets { return &Bets{db: db} }

// Insert grava uma aposta PENDING. O índice único em
// (user_id, choice, team_lo, team_hi, event_date) faz da inserção a
// checagem de duplicata definitiva: violação retorna ErrDuplicate.
func (b *Bets) Insert(ctx context.Context, bet *model.Bet) (string, error) {
	id := uuid.NewString()
	lo, hi := model.PairKey(bet.Event.Team1, bet.Event.Team2)

	var pickTeam sql.NullString
	var pickHome, pickAway sql.NullInt64
	switch bet.Selection.Choice() {
	case model.ChoiceWinner:
		pickTeam = sql.NullString{String: bet.Selection.Team(), Valid: true}
	case model.ChoiceExactScore:
		h, a := bet.Selection.Score()
		pickHome = sql.NullInt64{Int64: int64(h), Valid: true}
		pickAway = sql.NullInt64{Int64: int64(a), Valid: true}
	}

	_, err := b.db.ExecContext(ctx, `
		INSERT INTO bets
		  (id, user_id, user_email, match_id, team1, team2, event_type, event_date,
		   team_lo, team_hi, choice, pick_team, pick_home_score, pick_away_score,
		   stake_cents, odds, status, batch_ref)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		id, bet.UserID, bet.UserEmail, bet.MatchID,
		bet.Event.Team1, bet.Event.Team2, bet.Event.Type, bet.Event.Date,
		lo, hi, bet.Selection.Choice(), pickTeam, pickHome, pickAway,
		bet.StakeCents, bet.Odds, model.BetPending, bet.BatchRef,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicate
		}
		return "", err
	}
	return id, nil
}

// Get retorna a aposta pelo id.
func (b *Bets) Get(ctx context.Context, id string) (*model.Bet, error) {
	bet, err := scanBet(b.db.QueryRowContext(ctx, selectBet+` WHERE id=$1`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return bet, err
}

// HasDuplicate é a checagem de leitura do validador: existe aposta do mesmo
// usuário com a mesma (escolha, par não-ordenado, data)? A palavra final é
// do índice único no Insert; a leitura só antecipa o 409.
func (b *Bets) HasDuplicate(ctx context.Context, userID string, choice model.BetChoice, team1, team2, date string) (bool, error) {
	lo, hi := model.PairKey(team1, team2)
	var exists bool
	err := b.db.QueryRowContext(ctx, `
		SELECT EXISTS(
		  SELECT 1 FROM bets
		  WHERE user_id=$1 AND choice=$2 AND team_lo=$3 AND team_hi=$4 AND event_date=$5
		)`, userID, choice, lo, hi, date).Scan(&exists)
	return exists, err
}

// UpdateStatusIfPending transiciona PENDING -> status de forma condicional.
// Aposta já assentada (ou inexistente) não muda: re-settlement é rejeitado.
func (b *Bets) UpdateStatusIfPending(ctx context.Context, id string, status model.BetStatus) error {
	res, err := b.db.ExecContext(ctx,
		`UPDATE bets SET status=$2 WHERE id=$1 AND status=$3`,
		id, status, model.BetPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := b.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM bets WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrAlreadySettled
	}
	return nil
}

// OverrideStatus força um status arbitrário (operação administrativa).
func (b *Bets) OverrideStatus(ctx context.Context, id string, status model.BetStatus) error {
	res, err := b.db.ExecContext(ctx, `UPDATE bets SET status=$2 WHERE id=$1`, id, status)
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

// Delete remove uma aposta. Administrativo: o saldo não é tocado.
func (b *Bets) Delete(ctx context.Context, id string) error {
	res, err := b.db.ExecContext(ctx, `DELETE FROM bets WHERE id=$1`, id)
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

// DeleteBatch remove um conjunto de apostas de uma vez; usado pelo rollback
// compensatório do checkout.
func (b *Bets) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := b.db.ExecContext(ctx,
		`DELETE FROM bets WHERE id = ANY($1)`, pq.Array(ids))
	return err
}

// ListPending retorna as apostas PENDING cuja data do evento já passou ou é
// hoje; é o conjunto de trabalho da varredura de settlement.
func (b *Bets) ListPending(ctx context.Context, until string) ([]model.Bet, error) {
	return b.list(ctx, selectBet+` WHERE status=$1 AND event_date <= $2`, model.BetPending, until)
}

// ListByStatus retorna as apostas com um status específico.
func (b *Bets) ListByStatus(ctx context.Context, status model.BetStatus) ([]model.Bet, error) {
	return b.list(ctx, selectBet+` WHERE status=$1`, status)
}

// ByMatch retorna as apostas que referenciam uma partida; usado pela
// propagação em cascata do delete de partida.
func (b *Bets) ByMatch(ctx context.Context, matchID string) ([]model.Bet, error) {
	return b.list(ctx, selectBet+` WHERE match_id=$1`, matchID)
}

// All retorna todas as apostas; usado pelo sync-all das projeções.
func (b *Bets) All(ctx context.Context) ([]model.Bet, error) {
	return b.list(ctx, selectBet)
}

const selectBet = `
	SELECT id, user_id, user_email, match_id, team1, team2, event_type, event_date,
	       choice, pick_team, pick_home_score, pick_away_score,
	       stake_cents, odds, status, batch_ref, created_at
	FROM bets`

func (b *Bets) list(ctx context.Context, query string, args ...any) ([]model.Bet, error) {
	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Bet
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *bet)
	}
	return out, rows.Err()
}

type betScanner interface{ Scan(dest ...any) error }

func scanBet(s betScanner) (*model.Bet, error) {
	var bet model.Bet
	var eventDate time.Time
	var choice string
	var pickTeam sql.NullString
	var pickHome, pickAway sql.NullInt64
	err := s.Scan(&bet.ID, &bet.UserID, &bet.UserEmail, &bet.MatchID,
		&bet.Event.Team1, &bet.Event.Team2, &bet.Event.Type, &eventDate,
		&choice, &pickTeam, &pickHome, &pickAway,
		&bet.StakeCents, &bet.Odds, &bet.Status, &bet.BatchRef, &bet.CreatedAt)
	if err != nil {
		return nil, err
	}
	bet.Event.Date = eventDate.Format(dateLayout)

	// Reconstrói a variante etiquetada a partir das colunas
	switch model.BetChoice(choice) {
	case model.ChoiceWinner:
		bet.Selection, err = model.TeamPick(pickTeam.String)
	case model.ChoiceExactScore:
		bet.Selection, err = model.ScorePick(int(pickHome.Int64), int(pickAway.Int64))
	default:
		err = model.ErrUnknownChoice
	}
	if err != nil {
		return nil, err
	}
	return &bet, nil
}
