package repo

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oychao1988/content-hub-sub001/internal/store"
)

// pgUniqueViolation — SQLSTATE нарушения уникальности.
const pgUniqueViolation = "23505"

// mapErr переводит ошибки pgx в ошибки store.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%s: %w: %s", op, store.ErrAlreadyExists, pgErr.ConstraintName)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// requireRow возвращает ErrNotFound, если UPDATE не затронул ни одной строки.
func requireRow(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
