package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/feedbackos/feedbackos-backend/internal/agent"
	"github.com/feedbackos/feedbackos-backend/internal/classifier"
	"github.com/feedbackos/feedbackos-backend/internal/providers"
	"github.com/feedbackos/feedbackos-backend/internal/repository"
)

// apologyReply replaces the assistant turn when generation fails after
// fragments have already been produced. The half-written buffer is discarded.
const apologyReply = "I'm sorry, something went wrong on our side. " +
	"What you've shared so far has been saved. Thank you for your patience."

// ConversationService orchestrates one conversation turn: persist the user
// message, classify it, advance the state machine, build the directive,
// stream the assistant reply and persist it.
type ConversationService struct {
	provider  providers.Provider
	sessions  repository.SessionRepository
	messages  repository.MessageRepository
	locations repository.LocationRepository
	chatModel string
	timeout   time.Duration
	logger    *logrus.Logger
}

// NewConversationService creates a new conversation service
func NewConversationService(
	provider providers.Provider,
	sessions repository.SessionRepository,
	messages repository.MessageRepository,
	locations repository.LocationRepository,
	chatModel string,
	timeout time.Duration,
	logger *logrus.Logger,
) *ConversationService {
	return &ConversationService{
		provider:  provider,
		sessions:  sessions,
		messages:  messages,
		locations: locations,
		chatModel: chatModel,
		timeout:   timeout,
		logger:    logger,
	}
}

// TurnRequest is one incoming user turn.
type TurnRequest struct {
	SessionID  string
	Message    string
	AgentState agent.State
	History    []providers.Message
}

// TurnEvent is one element of the live reply stream: token fragments while
// the reply is being generated, then exactly one terminal event carrying
// Done and NextState. Err replaces everything on fatal failure.
type TurnEvent struct {
	Token     string      `json:"token"`
	Done      bool        `json:"done"`
	NextState agent.State `json:"nextState,omitempty"`
	Err       error       `json:"-"`
}

// SubmitTurn runs the full per-turn pipeline and returns a live event stream.
// The returned channel is closed after the terminal event. Errors that occur
// before any generation output are returned synchronously; later failures
// arrive as events.
func (s *ConversationService) SubmitTurn(ctx context.Context, req TurnRequest) (<-chan TurnEvent, error) {
	session, err := s.sessions.Get(ctx, req.SessionID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	location, err := s.locations.Get(ctx, session.LocationID)
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

	// The user turn is persisted before classification and generation so a
	// crisis message is never lost even if a later step fails.
	if _, err := s.messages.Create(ctx, repository.Message{
		SessionID:  session.ID,
		Role:       "user",
		Content:    req.Message,
		AgentState: string(req.AgentState),
	}); err != nil {
		return nil, fmt.Errorf("persist user turn: %w", err)
	}

	result := classifier.Classify(req.Message)

	currentState := req.AgentState
	if result.IsSensitive {
		if !session.IsSensitive {
			if err := s.sessions.Update(ctx, session.ID, map[string]interface{}{"is_sensitive": true}); err != nil {
				return nil, fmt.Errorf("flag session sensitive: %w", err)
			}
		}
		currentState = agent.StateSensitiveHandler
		s.logger.WithFields(logrus.Fields{
			"session":  session.ID,
			"category": result.Category,
		}).Warn("sensitive content detected, switching to sensitive handler")
	} else if session.IsSensitive && currentState != agent.StateEnded {
		// A flagged session never re-enters the normal flow, whatever
		// state the caller supplied.
		currentState = agent.StateSensitiveHandler
	}

	msgCount, err := s.messages.CountBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	nextState := agent.Next(currentState, msgCount, result.IsSensitive)

	systemPrompt := agent.BuildSystemPrompt(agent.PromptContext{
		OrgName:      org.Name,
		LocationName: location.Name,
		LocationType: location.LocationType,
		SessionID:    session.ID,
		State:        currentState,
		Progress:     fmt.Sprintf("%d messages so far", msgCount),
		MessageCount: msgCount,
	})

	// The generation call runs detached from the caller's context: a client
	// disconnect must not abandon a turn that the model is mid-way through,
	// or the transcript would lose its assistant half. Only the configured
	// timeout cancels it.
	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)

	stream, err := s.provider.StreamComplete(genCtx, providers.Request{
		System:    systemPrompt,
		Messages:  append(req.History, providers.Message{Role: "user", Content: req.Message}),
		Model:     s.chatModel,
		MaxTokens: 200,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	events := make(chan TurnEvent)

	go func() {
		defer close(events)
		defer cancel()

		var full strings.Builder
		callerGone := false

		emit := func(ev TurnEvent) {
			if callerGone {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				// Caller disconnected; keep draining the stream so the
				// turn is still completed and persisted server-side.
				callerGone = true
			}
		}

		for chunk := range stream {
			switch {
			case chunk.Error != "":
				if full.Len() == 0 {
					// Nothing was generated: no assistant turn is written
					// and a retry re-enters the same state.
					s.logger.WithField("session", session.ID).WithField("error", chunk.Error).
						Error("generation failed before first fragment")
					emit(TurnEvent{Err: fmt.Errorf("%w: %s", ErrGenerationFailed, chunk.Error)})
					return
				}
				// Mid-stream failure: discard the partial buffer and
				// substitute an apology turn as the canonical reply.
				s.logger.WithField("session", session.ID).WithField("error", chunk.Error).
					Error("generation failed mid-stream, substituting apology turn")
				emit(TurnEvent{Token: apologyReply})
				s.finishTurn(session.ID, apologyReply, currentState, nextState, emit)
				return

			case chunk.Done:
				s.finishTurn(session.ID, full.String(), currentState, nextState, emit)
				return

			case chunk.Delta != "":
				full.WriteString(chunk.Delta)
				emit(TurnEvent{Token: chunk.Delta})
			}
		}

		// Channel closed without a terminal chunk; treat as completed.
		s.finishTurn(session.ID, full.String(), currentState, nextState, emit)
	}()

	return events, nil
}

// finishTurn persists the assistant reply, completes the session when the
// conversation has ended, and emits the terminal event. Persistence uses a
// fresh context so a dropped client cannot cancel it.
func (s *ConversationService) finishTurn(
	sessionID, content string,
	currentState, nextState agent.State,
	emit func(TurnEvent),
) {
	persistCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := s.messages.Create(persistCtx, repository.Message{
		SessionID:  sessionID,
		Role:       "assistant",
		Content:    content,
		AgentState: string(currentState),
	}); err != nil {
		s.logger.WithField("session", sessionID).WithError(err).Error("failed to persist assistant turn")
		emit(TurnEvent{Err: fmt.Errorf("persist assistant turn: %w", err)})
		return
	}

	updates := map[string]interface{}{"agent_state": string(nextState)}
	if nextState == agent.StateEnded {
		updates["status"] = repository.SessionCompleted
		updates["ended_at"] = time.Now()
	}
	if err := s.sessions.Update(persistCtx, sessionID, updates); err != nil {
		s.logger.WithField("session", sessionID).WithError(err).Error("failed to update session state")
	}

	emit(TurnEvent{Done: true, NextState: nextState})
}
