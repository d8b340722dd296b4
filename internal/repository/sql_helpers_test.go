package repository

import (
	"errors"
	"fmt"
	"testing"

	support_errors "storefront-support/pkg/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgUniqueViolation})
	check := &pgconn.PgError{Code: pgCheckViolation, ConstraintName: "chk_messages_type"}
	other := errors.New("connection reset")

	assert.True(t, isUniqueViolation(unique))
	assert.False(t, isUniqueViolation(other))
	assert.ErrorIs(t, translate(check), support_errors.ErrInvalidInput)
	assert.Equal(t, other, translate(other))
	assert.NoError(t, translate(nil))
}
