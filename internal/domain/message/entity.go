package message

import (
	"time"

	"storefront-support/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Message represents the messages table. Rows are append-only.
type Message struct {
	ID             uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID          `gorm:"type:uuid;not null;index:idx_messages_conversation_ts,priority:1" json:"conversation_id"`
	Content        string             `gorm:"type:text" json:"content"`
	Type           domain.MessageType `gorm:"type:text;not null;default:TEXT" json:"type"`
	SenderType     domain.SenderType  `gorm:"type:text;not null" json:"sender_type"`
	SenderID       *string            `gorm:"type:text" json:"sender_id,omitempty"`
	AttachmentURL  *string            `gorm:"type:text" json:"attachment_url,omitempty"`
	Metadata       datatypes.JSON     `json:"metadata,omitempty"`
	Timestamp      time.Time          `gorm:"not null;index:idx_messages_conversation_ts,priority:2" json:"timestamp"`
}

func (Message) TableName() string {
	return "messages"
}

// OrderInfo is the structured payload of an ORDER_INFO message.
type OrderInfo struct {
	OrderNumber       string     `json:"order_number"`
	Status            string     `json:"status"`
	PaymentStatus     string     `json:"payment_status"`
	ShippingStatus    string     `json:"shipping_status"`
	TrackingNumber    string     `json:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
}

// ProductLink is one entry of a PRODUCT_LINK message payload.
type ProductLink struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Rating   float64 `json:"rating"`
	URL      string  `json:"url"`
}
