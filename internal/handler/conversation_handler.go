package handler

import (
	"context"
	"net/http"
	"time"

	"storefront-support/internal/domain/conversation"
	"storefront-support/internal/domain/message"
	"storefront-support/internal/services"
	"storefront-support/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CustomerSessions is the customer-facing side of the session service.
type CustomerSessions interface {
	CreateConversation(ctx context.Context, customerID, language string) (conversation.Conversation, error)
	CurrentConversation(ctx context.Context, customerID, language string) (conversation.Conversation, error)
	Poll(ctx context.Context, customerID string, conversationID uuid.UUID, since time.Time, limit int) ([]message.Message, error)
	HandleInbound(ctx context.Context, in services.InboundMessage) ([]message.Message, error)
	RequestHuman(ctx context.Context, customerID string, conversationID uuid.UUID) (services.RequestHumanResult, error)
}

type ConversationHandler struct {
	sessions CustomerSessions
}

func NewConversationHandler(sessions CustomerSessions) *ConversationHandler {
	return &ConversationHandler{sessions: sessions}
}

// Create opens a conversation. Anonymous callers get one too but cannot post into it.
func (h *ConversationHandler) Create(c *gin.Context) {
	var req httpdto.CreateConversationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "VALIDATION_ERROR"))
			return
		}
	}

	conv, err := h.sessions.CreateConversation(c.Request.Context(), callerID(c), req.Language)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(conv))
}

// Current returns the caller's open conversation with its messages, creating one when needed.
func (h *ConversationHandler) Current(c *gin.Context) {
	var req httpdto.CurrentConversationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "VALIDATION_ERROR"))
			return
		}
	}

	conv, err := h.sessions.CurrentConversation(c.Request.Context(), callerID(c), req.Language)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(conv))
}

func (h *ConversationHandler) RequestHuman(c *gin.Context) {
	var req httpdto.RequestHumanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "VALIDATION_ERROR"))
		return
	}
	conversationID, err := parseUUID(req.ConversationID)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.sessions.RequestHuman(c.Request.Context(), callerID(c), conversationID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := httpdto.RequestHumanResponse{
		Queued:    result.Outcome.Queued,
		Assigned:  result.Outcome.Assigned,
		QueueFull: result.Outcome.QueueFull,
		Message:   result.Outcome.Message.Content,
	}
	if result.Outcome.Queued {
		pos := result.Outcome.Position
		resp.QueuePosition = &pos
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}
