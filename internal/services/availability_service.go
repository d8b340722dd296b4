package services

import (
	"context"
	"time"

	"storefront-support/internal/availability"
	"storefront-support/internal/domain"
	"storefront-support/internal/locale"
	"storefront-support/internal/repository"

	"github.com/google/uuid"
)

type AvailabilityReport struct {
	IsLiveChatAvailable bool                    `json:"is_live_chat_available"`
	IsAIAvailable       bool                    `json:"is_ai_available"`
	NextAvailableTime   *time.Time              `json:"next_available_time"`
	CurrentMode         domain.ConversationMode `json:"current_mode"`
	Message             string                  `json:"message"`
}

type AvailabilityService struct {
	checker       *availability.Checker
	conversations repository.ConversationRepository
}

func NewAvailabilityService(checker *availability.Checker, conversations repository.ConversationRepository) *AvailabilityService {
	return &AvailabilityService{checker: checker, conversations: conversations}
}

// Report describes who can serve the customer right now. conversationID is optional
// and only used to report the conversation's current mode.
func (s *AvailabilityService) Report(ctx context.Context, language string, conversationID uuid.UUID) (AvailabilityReport, error) {
	lang := domain.NormalizeLanguage(language)
	report := AvailabilityReport{
		IsLiveChatAvailable: s.checker.IsAvailable(),
		IsAIAvailable:       true,
		CurrentMode:         domain.ConversationModeAI,
	}

	if conversationID != uuid.Nil {
		conv, err := s.conversations.GetByID(ctx, conversationID)
		if err != nil {
			return AvailabilityReport{}, err
		}
		report.CurrentMode = conv.Mode
		lang = conv.Language
	}

	if next, ok := s.checker.NextAvailable(); ok {
		next = next.In(s.checker.Location())
		report.NextAvailableTime = &next
	}

	switch {
	case report.CurrentMode == domain.ConversationModeHuman:
		report.Message = locale.Text(lang, locale.HumanModeActive)
	case report.IsLiveChatAvailable:
		report.Message = locale.Text(lang, locale.LiveChatAvailable)
	default:
		opening, ok := s.checker.NextOpening()
		if !ok {
			report.Message = locale.Text(lang, locale.LiveChatNoSchedule)
			break
		}
		when := opening.In(s.checker.Location()).Format("Mon 02 Jan 15:04 MST")
		report.Message = locale.Text(lang, locale.LiveChatOffline, when)
	}
	return report, nil
}
