package handler

import (
	"context"
	"net/http"
	"time"

	"storefront-support/internal/domain"
	"storefront-support/internal/domain/conversation"
	"storefront-support/internal/domain/message"
	"storefront-support/internal/services"
	"storefront-support/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AgentConsole interface {
	AcceptNext(ctx context.Context, agentID string) (conversation.Conversation, error)
	Accept(ctx context.Context, agentID string, conversationID uuid.UUID) (conversation.Conversation, error)
	Reply(ctx context.Context, in services.AgentReplyInput) (message.Message, error)
	Resolve(ctx context.Context, agentID string, conversationID uuid.UUID) (conversation.Conversation, error)
	Close(ctx context.Context, agentID string, conversationID uuid.UUID) (conversation.Conversation, error)
	Conversation(ctx context.Context, conversationID uuid.UUID, since time.Time) (conversation.Conversation, error)
	SetPresence(ctx context.Context, agentID string, online bool, capacity int) error
	Queue(ctx context.Context) (services.QueueView, error)
}

// AgentHandler serves the agent console. Routes are mounted behind RequireRole(agent).
type AgentHandler struct {
	console AgentConsole
}

func NewAgentHandler(console AgentConsole) *AgentHandler {
	return &AgentHandler{console: console}
}

func (h *AgentHandler) AcceptNext(c *gin.Context) {
	conv, err := h.console.AcceptNext(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(conv))
}

func (h *AgentHandler) Accept(c *gin.Context) {
	conversationID, err := parseUUID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	conv, err := h.console.Accept(c.Request.Context(), callerID(c), conversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(conv))
}

func (h *AgentHandler) Reply(c *gin.Context) {
	conversationID, err := parseUUID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	var req httpdto.AgentReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "VALIDATION_ERROR"))
		return
	}
	messageID, err := parseOptionalUUID(req.MessageID)
	if err != nil {
		respondError(c, err)
		return
	}

	msg, err := h.console.Reply(c.Request.Context(), services.AgentReplyInput{
		AgentID:        callerID(c),
		ConversationID: conversationID,
		MessageID:      messageID,
		Content:        req.Content,
		Type:           domain.MessageType(req.Type),
		AttachmentURL:  optionalString(req.AttachmentURL),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(msg))
}

func (h *AgentHandler) Resolve(c *gin.Context) {
	conversationID, err := parseUUID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	conv, err := h.console.Resolve(c.Request.Context(), callerID(c), conversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(conv))
}

func (h *AgentHandler) Close(c *gin.Context) {
	conversationID, err := parseUUID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	conv, err := h.console.Close(c.Request.Context(), callerID(c), conversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(conv))
}

// Conversation returns one conversation with messages after the optional since cursor.
func (h *AgentHandler) Conversation(c *gin.Context) {
	conversationID, err := parseUUID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	since, err := parseSince(c.Query("since"))
	if err != nil {
		respondError(c, err)
		return
	}
	conv, err := h.console.Conversation(c.Request.Context(), conversationID, since)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(conv))
}

func (h *AgentHandler) Queue(c *gin.Context) {
	view, err := h.console.Queue(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(view))
}

func (h *AgentHandler) Presence(c *gin.Context) {
	var req httpdto.PresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "VALIDATION_ERROR"))
		return
	}
	if err := h.console.SetPresence(c.Request.Context(), callerID(c), req.Online, req.Capacity); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"online": req.Online}))
}
