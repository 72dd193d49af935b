package repo

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate record")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyFinished   = errors.New("match already finished")
	ErrAlreadySettled    = errors.New("bet already settled")
)

// isUniqueViolation identifica violação de índice único do Postgres (23505)
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
