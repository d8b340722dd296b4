package repository

import (
	"fmt"

	"storefront-support/internal/domain/conversation"
	"storefront-support/internal/domain/message"

	"gorm.io/gorm"
)

// InitSchema creates the tables, indexes and check constraints. Safe to run repeatedly.
func InitSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&conversation.Conversation{},
		&message.Message{},
	); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	// Constraints are added inside DO blocks so a second run is a no-op.
	constraints := []string{
		`DO $$ BEGIN
			ALTER TABLE conversations ADD CONSTRAINT chk_conversations_status
				CHECK (status IN ('OPEN', 'PENDING', 'RESOLVED', 'CLOSED'));
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
		`DO $$ BEGIN
			ALTER TABLE conversations ADD CONSTRAINT chk_conversations_mode
				CHECK (mode IN ('AI', 'HUMAN'));
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
		`DO $$ BEGIN
			ALTER TABLE conversations ADD CONSTRAINT chk_conversations_queue_position
				CHECK (queue_position IS NULL OR queue_position >= 1);
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
		`DO $$ BEGIN
			ALTER TABLE messages ADD CONSTRAINT chk_messages_type
				CHECK (type IN ('TEXT', 'IMAGE', 'FILE', 'ORDER_INFO', 'PRODUCT_LINK'));
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
		`DO $$ BEGIN
			ALTER TABLE messages ADD CONSTRAINT chk_messages_sender_type
				CHECK (sender_type IN ('CUSTOMER', 'AGENT', 'SYSTEM', 'AI'));
		EXCEPTION
			WHEN duplicate_object THEN null;
		END $$;`,
	}
	for _, stmt := range constraints {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create constraint: %w", err)
		}
	}
	return nil
}

// Truncate removes every row. Intended for local development only.
func Truncate(db *gorm.DB) error {
	if err := db.Exec("TRUNCATE TABLE messages, conversations").Error; err != nil {
		return fmt.Errorf("truncate failed: %w", err)
	}
	return nil
}

// Counts reports row counts per table.
func Counts(db *gorm.DB) (map[string]int64, error) {
	counts := make(map[string]int64)
	for table, model := range map[string]interface{}{
		"conversations": &conversation.Conversation{},
		"messages":      &message.Message{},
	} {
		var n int64
		if err := db.Model(model).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
