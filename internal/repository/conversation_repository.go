package repository

import (
	"context"
	"errors"

	"storefront-support/internal/domain"
	"storefront-support/internal/domain/conversation"
	support_errors "storefront-support/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &PostgresConversationRepository{db: db}
}

func (r *PostgresConversationRepository) Create(ctx context.Context, c *conversation.Conversation) error {
	res := r.db.WithContext(ctx).Omit("Messages").Create(c)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) || isUniqueViolation(res.Error) {
			return support_errors.ErrAlreadyExists
		}
		return translate(res.Error)
	}
	return nil
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error) {
	var c conversation.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conversation.Conversation{}, support_errors.ErrNotFound
		}
		return conversation.Conversation{}, err
	}
	return c, nil
}

func (r *PostgresConversationRepository) FindActiveByCustomer(ctx context.Context, customerID string) (conversation.Conversation, error) {
	var c conversation.Conversation
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND status <> ?", customerID, domain.ConversationStatusClosed).
		Order("updated_at DESC").
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conversation.Conversation{}, support_errors.ErrNotFound
		}
		return conversation.Conversation{}, err
	}
	return c, nil
}

func (r *PostgresConversationRepository) Update(ctx context.Context, c *conversation.Conversation) error {
	res := r.db.WithContext(ctx).
		Model(&conversation.Conversation{}).
		Where("id = ? AND version = ?", c.ID, c.Version).
		Updates(map[string]interface{}{
			"status":            c.Status,
			"mode":              c.Mode,
			"language":          c.Language,
			"assigned_agent_id": c.AssignedAgentID,
			"updated_at":        c.UpdatedAt,
			"version":           c.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, c.ID); err != nil {
			return err
		}
		return support_errors.ErrConflict
	}
	c.Version++
	return nil
}

func (r *PostgresConversationRepository) SetQueuePosition(ctx context.Context, id uuid.UUID, position *int) error {
	res := r.db.WithContext(ctx).
		Model(&conversation.Conversation{}).
		Where("id = ?", id).
		Update("queue_position", position)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return support_errors.ErrNotFound
	}
	return nil
}
