package events

// Event type constants. These follow the format: domain.action

// Message events
const (
	EventTypeMessageCreated = "message.created"
)

// Conversation events
const (
	EventTypeConversationCreated  = "conversation.created"
	EventTypeConversationUpdated  = "conversation.updated"
	EventTypeConversationQueued   = "conversation.queued"
	EventTypeConversationAssigned = "conversation.assigned"
	EventTypeConversationResolved = "conversation.resolved"
	EventTypeConversationClosed   = "conversation.closed"
	EventTypeQueueChanged         = "queue.changed"
)

// Aggregate type constants
const (
	AggregateTypeMessage      = "message"
	AggregateTypeConversation = "conversation"
	AggregateTypeQueue        = "queue"
)

// Redis channel prefixes
const (
	ChannelPrefixConversation = "channel:conversation:"
	ChannelAgents             = "channel:agents"
)

func ConversationChannel(conversationID string) string {
	return ChannelPrefixConversation + conversationID
}
