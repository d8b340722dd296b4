package conversation

import (
	"time"

	"storefront-support/internal/domain"
	"storefront-support/internal/domain/message"

	"github.com/google/uuid"
)

// Conversation represents the conversations table
type Conversation struct {
	ID              uuid.UUID                 `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID      *string                   `gorm:"type:text;index:idx_conversations_customer" json:"customer_id,omitempty"`
	Status          domain.ConversationStatus `gorm:"type:text;not null;default:OPEN" json:"status"`
	Mode            domain.ConversationMode   `gorm:"type:text;not null;default:AI" json:"mode"`
	Language        domain.LanguageCode       `gorm:"type:text;not null;default:en" json:"language"`
	AssignedAgentID *string                   `gorm:"type:text" json:"assigned_agent_id,omitempty"`
	QueuePosition   *int                      `json:"queue_position,omitempty"`
	Version         int64                     `gorm:"not null;default:0" json:"version"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `gorm:"index:idx_conversations_updated,sort:desc" json:"updated_at"`

	// Relationships
	Messages []message.Message `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (c Conversation) IsClosed() bool {
	return c.Status == domain.ConversationStatusClosed
}

// OwnedBy reports whether customerID may act on the conversation.
// Conversations started anonymously have no owner and are claimable by nobody.
func (c Conversation) OwnedBy(customerID string) bool {
	return c.CustomerID != nil && *c.CustomerID == customerID
}
