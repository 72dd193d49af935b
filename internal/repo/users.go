package repo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/sportbet/platform/internal/model"
)

// Users implementa operações de persistência de usuários e saldo.
// O saldo só muda pelas operações condicionais daqui; nunca por overwrite.
type Users struct{ db *sql.DB }

func NewUsers(db *sql.DB) *Users { return &Users{db: db} }

// Create insere um usuário novo. Email duplicado retorna ErrDuplicate.
func (u *Users) Create(ctx context.Context, user *model.User) (string, error) {
	id := uuid.NewString()
	_, err := u.db.ExecContext(ctx, `
		INSERT INTO users (id, email, nickname, first_name, last_name, balance_cents)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		id, strings.ToLower(strings.TrimSpace(user.Email)),
		user.Nickname, user.FirstName, user.LastName, user.BalanceCents,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicate
		}
		return "", err
	}
	return id, nil
}

// Get retorna o usuário pelo id.
func (u *Users) Get(ctx context.Context, id string) (*model.User, error) {
	return u.scanOne(u.db.QueryRowContext(ctx, `
		SELECT id, email, nickname, first_name, last_name, balance_cents, created_at
		FROM users WHERE id=$1`, id))
}

// ByEmail retorna o usuário pelo email normalizado.
func (u *Users) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return u.scanOne(u.db.QueryRowContext(ctx, `
		SELECT id, email, nickname, first_name, last_name, balance_cents, created_at
		FROM users WHERE email=$1`, strings.ToLower(strings.TrimSpace(email))))
}

// DebitIfEnough decrementa o saldo somente se balance >= amount, num único
// UPDATE condicional (semântica compare-and-swap). Retorna
// ErrInsufficientFunds quando a condição falha e ErrNotFound quando o
// usuário não existe.
func (u *Users) DebitIfEnough(ctx context.Context, userID string, amountCents int64) error {
	res, err := u.db.ExecContext(ctx, `
		UPDATE users SET balance_cents = balance_cents - $1
		WHERE id=$2 AND balance_cents >= $1`, amountCents, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := u.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE id=$1)`, userID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrInsufficientFunds
	}
	return nil
}

// Credit incrementa o saldo do usuário (estorno de rollback ou crédito de settlement).
func (u *Users) Credit(ctx context.Context, userID string, amountCents int64) error {
	res, err := u.db.ExecContext(ctx,
		`UPDATE users SET balance_cents = balance_cents + $1 WHERE id=$2`, amountCents, userID)
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

func (u *Users) scanOne(row *sql.Row) (*model.User, error) {
	var usr model.User
	err := row.Scan(&usr.ID, &usr.Email, &usr.Nickname, &usr.FirstName,
		&usr.LastName, &usr.BalanceCents, &usr.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &usr, nil
}
