package repository

import (
	"errors"

	support_errors "storefront-support/pkg/errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

func isUniqueViolation(err error) bool {
	return pgCode(err) == pgUniqueViolation
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// translate maps constraint failures onto sentinels; other errors pass through.
func translate(err error) error {
	if pgCode(err) == pgCheckViolation {
		return support_errors.ErrInvalidInput
	}
	return err
}
