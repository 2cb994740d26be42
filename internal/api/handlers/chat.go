package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/feedbackos/feedbackos-backend/internal/agent"
	"github.com/feedbackos/feedbackos-backend/internal/providers"
	"github.com/feedbackos/feedbackos-backend/internal/services"
)

// ChatHandler handles conversation turn submission
type ChatHandler struct {
	conversations *services.ConversationService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(conversations *services.ConversationService) *ChatHandler {
	return &ChatHandler{conversations: conversations}
}

type chatRequest struct {
	SessionID  string              `json:"sessionId"`
	Message    string              `json:"message"`
	AgentState string              `json:"agentState"`
	History    []providers.Message `json:"history"`
}

// validate checks the submission before any side effect.
func (r *chatRequest) validate() error {
	if _, err := uuid.Parse(r.SessionID); err != nil {
		return errors.New("sessionId must be a valid UUID")
	}
	if r.Message == "" {
		return errors.New("message is required")
	}
	if !agent.State(r.AgentState).Valid() {
		return fmt.Errorf("unknown agentState: %s", r.AgentState)
	}
	for _, m := range r.History {
		if m.Role != "user" && m.Role != "assistant" {
			return fmt.Errorf("invalid history role: %s", m.Role)
		}
	}
	return nil
}

func (r *chatRequest) toTurnRequest() services.TurnRequest {
	return services.TurnRequest{
		SessionID:  r.SessionID,
		Message:    r.Message,
		AgentState: agent.State(r.AgentState),
		History:    r.History,
	}
}

// sseEvent is the wire shape of one stream fragment.
type sseEvent struct {
	Token     string `json:"token"`
	Done      bool   `json:"done"`
	NextState string `json:"nextState,omitempty"`
}

// SubmitTurn handles POST /api/v1/chat, streaming the assistant reply as
// server-sent events.
func (h *ChatHandler) SubmitTurn(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := req.validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	events, err := h.conversations.SubmitTurn(c.Context(), req.toTurnRequest())
	if err != nil {
		return turnErrorResponse(c, err)
	}

	// Set SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		for ev := range events {
			if ev.Err != nil {
				fmt.Fprintf(w, "event: error\ndata: %s\n\n", ev.Err.Error())
				w.Flush()
				return
			}
			data, _ := json.Marshal(sseEvent{
				Token:     ev.Token,
				Done:      ev.Done,
				NextState: string(ev.NextState),
			})
			fmt.Fprintf(w, "data: %s\n\n", data)
			w.Flush()
		}
	})

	return nil
}

// wsEvent mirrors sseEvent for the websocket transport, with an error field
// instead of a separate event type.
type wsEvent struct {
	Token     string `json:"token"`
	Done      bool   `json:"done"`
	NextState string `json:"nextState,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SubmitTurnWS handles the websocket variant: one request frame in, a stream
// of event frames out.
func (h *ChatHandler) SubmitTurnWS(c *websocket.Conn) {
	defer c.Close()

	var req chatRequest
	if err := c.ReadJSON(&req); err != nil {
		c.WriteJSON(wsEvent{Error: "failed to parse request"})
		return
	}
	if err := req.validate(); err != nil {
		c.WriteJSON(wsEvent{Error: err.Error()})
		return
	}

	// Canceling on return tells the service this consumer is gone; it keeps
	// draining the model stream and persists the turn server-side.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := h.conversations.SubmitTurn(ctx, req.toTurnRequest())
	if err != nil {
		c.WriteJSON(wsEvent{Error: err.Error()})
		return
	}

	for ev := range events {
		if ev.Err != nil {
			c.WriteJSON(wsEvent{Error: ev.Err.Error()})
			return
		}
		if err := c.WriteJSON(wsEvent{Token: ev.Token, Done: ev.Done, NextState: string(ev.NextState)}); err != nil {
			// Client disconnected mid-stream.
			return
		}
	}
}

func turnErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrSessionNotFound), errors.Is(err, services.ErrLocationNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrGenerationFailed):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
