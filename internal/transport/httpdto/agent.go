package httpdto

type AgentReplyRequest struct {
	MessageID     string `json:"message_id"`
	Content       string `json:"content"`
	Type          string `json:"type"`
	AttachmentURL string `json:"attachment_url"`
}

type PresenceRequest struct {
	Online   bool `json:"online"`
	Capacity int  `json:"capacity"`
}
