package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrEmailTaken is returned when the users.email unique constraint fires.
	ErrEmailTaken = errors.New("repository: email already registered")
	// ErrStatusChanged is returned when a conditional status update matched no row
	// because another writer moved the delivery first.
	ErrStatusChanged = errors.New("repository: delivery status changed concurrently")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
