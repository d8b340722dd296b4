package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"storefront-support/config"
	support_errors "storefront-support/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims AccessClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestParseAccessToken(t *testing.T) {
	svc := NewAuthService(&config.Config{JWTSecret: "secret"})
	valid := AccessClaims{
		UserID:           "cust-1",
		SessionID:        "sess-1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}

	claims, err := svc.ParseAccessToken(signToken(t, "secret", jwt.SigningMethodHS256, valid))
	require.NoError(t, err)
	assert.Equal(t, "cust-1", claims.UserID)
	assert.Equal(t, RoleCustomer, claims.Role)

	_, err = svc.ParseAccessToken(signToken(t, "other", jwt.SigningMethodHS256, valid))
	assert.ErrorIs(t, err, support_errors.ErrUnauthorized)

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	_, err = svc.ParseAccessToken(signToken(t, "secret", jwt.SigningMethodHS256, expired))
	assert.ErrorIs(t, err, support_errors.ErrUnauthorized)

	_, err = svc.ParseAccessToken("")
	assert.ErrorIs(t, err, support_errors.ErrUnauthorized)
}

func TestCallerContext(t *testing.T) {
	ctx := WithCallerContext(context.Background(), AccessClaims{UserID: "agent-1", Role: RoleAgent})
	id, ok := UserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "agent-1", id)
	assert.Equal(t, RoleAgent, RoleFromContext(ctx))

	_, ok = UserIDFromContext(context.Background())
	assert.False(t, ok)
}

func TestHTTPStatusAndCode(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(support_errors.ErrAuthenticationRequired))
	assert.Equal(t, "AUTH_REQUIRED", ErrorCode(support_errors.ErrAuthenticationRequired))
	assert.Equal(t, http.StatusConflict, HTTPStatus(support_errors.ErrConversationClosed))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(support_errors.ErrNotFound))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(support_errors.ErrInvalidInput))
	assert.Equal(t, http.StatusRequestEntityTooLarge, HTTPStatus(support_errors.ErrTooLarge))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(assert.AnError))
}
