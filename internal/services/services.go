package services

import (
	"github.com/sirupsen/logrus"

	"github.com/feedbackos/feedbackos-backend/internal/config"
	"github.com/feedbackos/feedbackos-backend/internal/providers"
	"github.com/feedbackos/feedbackos-backend/internal/repository"
)

// Services holds all service instances
type Services struct {
	Session      *SessionService
	Conversation *ConversationService
	Extraction   *ExtractionService
	Insights     *InsightsService
}

// NewServices creates all service instances. The provider is the single
// long-lived generation client, constructed once at startup and shared by
// the conversation and extraction pipelines.
func NewServices(
	provider providers.Provider,
	gen config.GenerationConfig,
	sessions repository.SessionRepository,
	messages repository.MessageRepository,
	locations repository.LocationRepository,
	insights repository.InsightRepository,
	logger *logrus.Logger,
) *Services {
	return &Services{
		Session:      NewSessionService(sessions, messages, locations, logger),
		Conversation: NewConversationService(provider, sessions, messages, locations, gen.ChatModel, gen.Timeout, logger),
		Extraction:   NewExtractionService(provider, sessions, messages, locations, insights, gen.AnalysisModel, gen.Timeout, logger),
		Insights:     NewInsightsService(insights, locations),
	}
}
