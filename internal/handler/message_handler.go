package handler

import (
	"net/http"
	"time"

	"storefront-support/internal/domain"
	"storefront-support/internal/services"
	"storefront-support/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MessageHandler struct {
	sessions CustomerSessions
}

func NewMessageHandler(sessions CustomerSessions) *MessageHandler {
	return &MessageHandler{sessions: sessions}
}

func (h *MessageHandler) Send(c *gin.Context) {
	var req httpdto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "VALIDATION_ERROR"))
		return
	}

	conversationID, err := parseUUID(req.ConversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	messageID, err := parseOptionalUUID(req.MessageID)
	if err != nil {
		respondError(c, err)
		return
	}
	if messageID == uuid.Nil {
		messageID = uuid.New()
	}

	replies, err := h.sessions.HandleInbound(c.Request.Context(), services.InboundMessage{
		ConversationID: conversationID,
		MessageID:      messageID,
		CustomerID:     callerID(c),
		Content:        req.Content,
		Type:           domain.MessageType(req.Type),
		AttachmentURL:  optionalString(req.AttachmentURL),
		Language:       req.Language,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.SendMessageResponse{
		Accepted:  true,
		MessageID: messageID.String(),
		Replies:   replies,
	}))
}

// List returns messages newer than the since cursor.
func (h *MessageHandler) List(c *gin.Context) {
	conversationID, err := parseUUID(c.Query("conversation_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	since, err := parseSince(c.Query("since"))
	if err != nil {
		respondError(c, err)
		return
	}
	limit, err := parseInt(c.Query("limit"))
	if err != nil {
		respondError(c, err)
		return
	}

	items, err := h.sessions.Poll(c.Request.Context(), callerID(c), conversationID, since, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := httpdto.ListMessagesResponse{Messages: items}
	if len(items) > 0 {
		resp.Cursor = items[len(items)-1].Timestamp.UTC().Format(time.RFC3339Nano)
	} else if !since.IsZero() {
		resp.Cursor = since.UTC().Format(time.RFC3339Nano)
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}
