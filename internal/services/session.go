package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/feedbackos/feedbackos-backend/internal/agent"
	"github.com/feedbackos/feedbackos-backend/internal/repository"
)

// SessionService creates and reads feedback sessions.
type SessionService struct {
	sessions  repository.SessionRepository
	messages  repository.MessageRepository
	locations repository.LocationRepository
	logger    *logrus.Logger
}

// NewSessionService creates a new session service
func NewSessionService(
	sessions repository.SessionRepository,
	messages repository.MessageRepository,
	locations repository.LocationRepository,
	logger *logrus.Logger,
) *SessionService {
	return &SessionService{
		sessions:  sessions,
		messages:  messages,
		locations: locations,
		logger:    logger,
	}
}

// SessionContext is what a client needs to start chatting: the new session
// plus the org/location it belongs to.
type SessionContext struct {
	SessionID    string `json:"sessionId"`
	LocationID   string `json:"locationId"`
	LocationName string `json:"locationName"`
	LocationType string `json:"locationType"`
	OrgID        string `json:"orgId"`
	OrgName      string `json:"orgName"`
}

// Create starts a new session at a location.
func (s *SessionService) Create(ctx context.Context, locationID string) (*SessionContext, error) {
	location, err := s.locations.Get(ctx, locationID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrLocationNotFound
		}
		return nil, err
	}

	org, err := s.locations.GetOrganization(ctx, location.OrgID)
	if err != nil {
		return nil, err
	}

	session := &repository.Session{
		LocationID: location.ID,
		AgentState: string(agent.StateGreeter),
		Status:     repository.SessionActive,
		Source:     "CHAT",
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"session":  session.ID,
		"location": location.ID,
	}).Info("session created")

	return &SessionContext{
		SessionID:    session.ID,
		LocationID:   location.ID,
		LocationName: location.Name,
		LocationType: location.LocationType,
		OrgID:        org.ID,
		OrgName:      org.Name,
	}, nil
}

// Get retrieves a session by ID.
func (s *SessionService) Get(ctx context.Context, id string) (*repository.Session, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// Messages returns the ordered transcript of a session.
func (s *SessionService) Messages(ctx context.Context, sessionID string) ([]repository.Message, error) {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.messages.ListBySession(ctx, sessionID)
}
