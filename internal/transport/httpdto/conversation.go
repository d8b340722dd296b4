package httpdto

type CreateConversationRequest struct {
	Language string `json:"language"`
}

type CurrentConversationRequest struct {
	Language string `json:"language"`
}

type RequestHumanRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
}

type RequestHumanResponse struct {
	Queued        bool   `json:"queued"`
	QueuePosition *int   `json:"queue_position,omitempty"`
	Assigned      bool   `json:"assigned"`
	QueueFull     bool   `json:"queue_full,omitempty"`
	Message       string `json:"message,omitempty"`
}
