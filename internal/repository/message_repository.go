package repository

import (
	"context"
	"errors"
	"time"

	"storefront-support/internal/domain/message"
	support_errors "storefront-support/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Append(ctx context.Context, m *message.Message) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) || isUniqueViolation(res.Error) {
			return false, nil
		}
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *PostgresMessageRepository) AppendBatch(ctx context.Context, msgs []message.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range msgs {
			err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
				Create(&msgs[i]).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	return translate(err)
}

func (r *PostgresMessageRepository) Get(ctx context.Context, id uuid.UUID) (message.Message, error) {
	var m message.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, support_errors.ErrNotFound
		}
		return message.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) ListSince(ctx context.Context, conversationID uuid.UUID, since time.Time, limit int) ([]message.Message, error) {
	var messages []message.Message
	q := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if !since.IsZero() {
		q = q.Where("timestamp > ?", since)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Order("timestamp ASC").Order("id ASC").Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *PostgresMessageRepository) Recent(ctx context.Context, conversationID uuid.UUID, n int) ([]message.Message, error) {
	var messages []message.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("timestamp DESC").
		Limit(n).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *PostgresMessageRepository) LatestTimestamp(ctx context.Context, conversationID uuid.UUID) (time.Time, error) {
	var m message.Message
	err := r.db.WithContext(ctx).
		Select("timestamp").
		Where("conversation_id = ?", conversationID).
		Order("timestamp DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return m.Timestamp, nil
}
