package services

import (
	"context"
	"errors"
	"net/http"

	"storefront-support/config"
	support_errors "storefront-support/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleCustomer = "customer"
	RoleAgent    = "agent"
)

// AuthService verifies access tokens minted by the storefront identity provider.
type AuthService struct {
	jwtSecret []byte
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{jwtSecret: []byte(cfg.JWTSecret)}
}

type AccessClaims struct {
	UserID    string `json:"sub"`
	SessionID string `json:"sid,omitempty"`
	Role      string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (s *AuthService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, support_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, support_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return AccessClaims{}, support_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return AccessClaims{}, support_errors.ErrUnauthorized
	}
	if claims.Role == "" {
		claims.Role = RoleCustomer
	}
	return *claims, nil
}

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, support_errors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, support_errors.ErrUnauthorized), errors.Is(err, support_errors.ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, support_errors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, support_errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, support_errors.ErrAlreadyExists), errors.Is(err, support_errors.ErrConflict),
		errors.Is(err, support_errors.ErrConversationClosed), errors.Is(err, support_errors.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, support_errors.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, support_errors.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, support_errors.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, support_errors.ErrQueueFull), errors.Is(err, support_errors.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, support_errors.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode is the machine readable code placed in error envelopes.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, support_errors.ErrInvalidInput):
		return "VALIDATION_ERROR"
	case errors.Is(err, support_errors.ErrAuthenticationRequired):
		return "AUTH_REQUIRED"
	case errors.Is(err, support_errors.ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, support_errors.ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, support_errors.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, support_errors.ErrConversationClosed):
		return "CONVERSATION_CLOSED"
	case errors.Is(err, support_errors.ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, support_errors.ErrAlreadyExists), errors.Is(err, support_errors.ErrConflict):
		return "CONFLICT"
	case errors.Is(err, support_errors.ErrTooLarge):
		return "TOO_LARGE"
	case errors.Is(err, support_errors.ErrRateLimited):
		return "RATE_LIMITED"
	case errors.Is(err, support_errors.ErrQueueFull):
		return "QUEUE_FULL"
	case errors.Is(err, support_errors.ErrUpstream), errors.Is(err, support_errors.ErrUpstreamTimeout):
		return "UPSTREAM_ERROR"
	case errors.Is(err, support_errors.ErrServiceUnavailable):
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}

type ctxKey string

var userIDKey ctxKey = "user_id"
var sessionIDKey ctxKey = "session_id"
var roleKey ctxKey = "role"

func WithCallerContext(ctx context.Context, claims AccessClaims) context.Context {
	ctx = context.WithValue(ctx, userIDKey, claims.UserID)
	ctx = context.WithValue(ctx, sessionIDKey, claims.SessionID)
	ctx = context.WithValue(ctx, roleKey, claims.Role)
	return ctx
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(sessionIDKey).(string)
	return sessionID, ok && sessionID != ""
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}
