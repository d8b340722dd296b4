package handler

import (
	"context"
	"net/http"

	"storefront-support/internal/services"
	"storefront-support/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AvailabilityReporter interface {
	Report(ctx context.Context, language string, conversationID uuid.UUID) (services.AvailabilityReport, error)
}

type AvailabilityHandler struct {
	reporter AvailabilityReporter
}

func NewAvailabilityHandler(reporter AvailabilityReporter) *AvailabilityHandler {
	return &AvailabilityHandler{reporter: reporter}
}

func (h *AvailabilityHandler) Get(c *gin.Context) {
	conversationID, err := parseOptionalUUID(c.Query("conversation_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	language := c.Query("language")
	if language == "" {
		language = c.GetHeader("Accept-Language")
	}

	report, err := h.reporter.Report(c.Request.Context(), language, conversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(report))
}
