package handler

import (
	"strconv"
	"time"

	"storefront-support/internal/services"
	support_errors "storefront-support/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError hands err to the ErrorHandler middleware, which owns status mapping.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func callerID(c *gin.Context) string {
	id, _ := services.UserIDFromContext(c.Request.Context())
	return id
}

func parseUUID(value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, support_errors.ErrInvalidInput
	}
	return id, nil
}

// parseOptionalUUID treats an empty value as uuid.Nil.
func parseOptionalUUID(value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, nil
	}
	return parseUUID(value)
}

func parseInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, support_errors.ErrInvalidInput
	}
	return parsed, nil
}

func parseSince(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, support_errors.ErrInvalidInput
	}
	return t, nil
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
