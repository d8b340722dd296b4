package events

// ChannelResolver determines which Redis channels to publish to
type ChannelResolver interface {
	ResolveChannels(env Envelope, conversationID string) []string
}

// SupportChannelResolver sends conversation traffic to the conversation's
// channel and queue movements to the agent console channel.
type SupportChannelResolver struct{}

func NewSupportChannelResolver() *SupportChannelResolver {
	return &SupportChannelResolver{}
}

func (r *SupportChannelResolver) ResolveChannels(env Envelope, conversationID string) []string {
	var channels []string
	if conversationID != "" {
		channels = append(channels, ConversationChannel(conversationID))
	}

	switch env.EventType {
	case EventTypeConversationQueued, EventTypeConversationAssigned,
		EventTypeConversationResolved, EventTypeConversationClosed, EventTypeQueueChanged:
		channels = append(channels, ChannelAgents)
	}
	return channels
}
