package httpdto

import "storefront-support/internal/domain/message"

type SendMessageRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	MessageID      string `json:"message_id"`
	Content        string `json:"content"`
	Type           string `json:"type"`
	AttachmentURL  string `json:"attachment_url"`
	Language       string `json:"language"`
}

type SendMessageResponse struct {
	Accepted  bool              `json:"accepted"`
	MessageID string            `json:"message_id,omitempty"`
	Replies   []message.Message `json:"replies"`
}

type ListMessagesResponse struct {
	Messages []message.Message `json:"messages"`
	// Cursor is the timestamp to pass as since on the next poll.
	Cursor string `json:"cursor,omitempty"`
}
