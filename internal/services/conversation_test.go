package services

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackos/feedbackos-backend/internal/agent"
	"github.com/feedbackos/feedbackos-backend/internal/providers"
	"github.com/feedbackos/feedbackos-backend/internal/repository"
	"github.com/feedbackos/feedbackos-backend/internal/repository/memory"
)

const (
	testOrgID      = "11111111-1111-1111-1111-111111111111"
	testLocationID = "22222222-2222-2222-2222-222222222222"
	testSessionID  = "33333333-3333-3333-3333-333333333333"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestStore(t *testing.T, state agent.State) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	store.AddOrganization(repository.Organization{ID: testOrgID, Name: "City Transit"})
	store.AddLocation(repository.Location{
		ID: testLocationID, OrgID: testOrgID,
		Name: "Central Station", LocationType: "transit_hub",
	})
	err := store.Sessions().Create(context.Background(), &repository.Session{
		ID:         testSessionID,
		LocationID: testLocationID,
		AgentState: string(state),
	})
	require.NoError(t, err)
	return store
}

func newConversationService(store *memory.Store, provider providers.Provider) *ConversationService {
	return NewConversationService(
		provider,
		store.Sessions(), store.Messages(), store.Locations(),
		"test-chat-model", 5*time.Second, testLogger(),
	)
}

func collect(t *testing.T, events <-chan TurnEvent) (tokens string, terminal TurnEvent) {
	t.Helper()
	for ev := range events {
		if ev.Err != nil || ev.Done {
			return tokens, ev
		}
		tokens += ev.Token
	}
	t.Fatal("event stream closed without a terminal event")
	return "", TurnEvent{}
}

func TestSubmitTurn_GreeterFlow(t *testing.T) {
	store := newTestStore(t, agent.StateGreeter)
	provider := &fakeProvider{streamText: "Hi there! Mind answering a few quick questions?"}
	svc := newConversationService(store, provider)

	events, err := svc.SubmitTurn(context.Background(), TurnRequest{
		SessionID:  testSessionID,
		Message:    "hi",
		AgentState: agent.StateGreeter,
	})
	require.NoError(t, err)

	tokens, terminal := collect(t, events)
	require.NoError(t, terminal.Err)
	assert.True(t, terminal.Done)
	assert.Equal(t, agent.StateInterviewer, terminal.NextState)
	assert.Equal(t, "Hi there! Mind answering a few quick questions?", tokens)

	// Directive was built for the greeter state.
	assert.Contains(t, provider.request().System, "Ask for consent")
	assert.Equal(t, "test-chat-model", provider.request().Model)

	// User turn persisted before the assistant turn, both state-tagged.
	msgs, err := store.Messages().ListBySession(context.Background(), testSessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, string(agent.StateGreeter), msgs[0].AgentState)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, tokens, msgs[1].Content)

	session, err := store.Sessions().Get(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.Equal(t, string(agent.StateInterviewer), session.AgentState)
	assert.Equal(t, repository.SessionActive, session.Status)
	assert.False(t, session.IsSensitive)
}

func TestSubmitTurn_CrisisMessageForcesSensitiveHandler(t *testing.T) {
	store := newTestStore(t, agent.StateInterviewer)
	provider := &fakeProvider{streamText: "I'm really sorry you're feeling this way."}
	svc := newConversationService(store, provider)

	events, err := svc.SubmitTurn(context.Background(), TurnRequest{
		SessionID:  testSessionID,
		Message:    "I want to die",
		AgentState: agent.StateInterviewer,
	})
	require.NoError(t, err)

	_, terminal := collect(t, events)
	require.NoError(t, terminal.Err)
	assert.Equal(t, agent.StateSensitiveHandler, terminal.NextState)

	// Sensitive flag latched; directive came from the sensitive handler.
	session, err := store.Sessions().Get(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.True(t, session.IsSensitive)
	assert.Contains(t, provider.request().System, "STOP collecting feedback")

	// The assistant turn is tagged with the forced state, and the following
	// turn resolves to ENDED.
	msgs, _ := store.Messages().ListBySession(context.Background(), testSessionID)
	require.Len(t, msgs, 2)
	assert.Equal(t, string(agent.StateSensitiveHandler), msgs[1].AgentState)
	assert.Equal(t, agent.StateEnded, agent.Next(terminal.NextState, len(msgs), false))
}

func TestSubmitTurn_FlaggedSessionNeverReentersNormalFlow(t *testing.T) {
	store := newTestStore(t, agent.StateInterviewer)
	require.NoError(t, store.Sessions().Update(context.Background(), testSessionID,
		map[string]interface{}{"is_sensitive": true}))

	provider := &fakeProvider{streamText: "Take care of yourself."}
	svc := newConversationService(store, provider)

	events, err := svc.SubmitTurn(context.Background(), TurnRequest{
		SessionID:  testSessionID,
		Message:    "anyway, the platform was crowded",
		AgentState: agent.StateInterviewer,
	})
	require.NoError(t, err)

	_, terminal := collect(t, events)
	require.NoError(t, terminal.Err)

	// Even a harmless follow-up stays in the sensitive flow.
	assert.Contains(t, provider.request().System, "STOP collecting feedback")
	assert.Equal(t, agent.StateEnded, terminal.NextState)
}

func TestSubmitTurn_CloserEndsSession(t *testing.T) {
	store := newTestStore(t, agent.StateCloser)
	provider := &fakeProvider{streamText: "Thanks so much, your feedback reaches the team."}
	svc := newConversationService(store, provider)

	events, err := svc.SubmitTurn(context.Background(), TurnRequest{
		SessionID:  testSessionID,
		Message:    "that's all from me",
		AgentState: agent.StateCloser,
	})
	require.NoError(t, err)

	_, terminal := collect(t, events)
	require.NoError(t, terminal.Err)
	assert.Equal(t, agent.StateEnded, terminal.NextState)

	session, err := store.Sessions().Get(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.Equal(t, repository.SessionCompleted, session.Status)
	require.NotNil(t, session.EndedAt)
}

func TestSubmitTurn_MidStreamFailureSubstitutesApology(t *testing.T) {
	store := newTestStore(t, agent.StateInterviewer)
	provider := &fakeProvider{streamChunks: []providers.StreamChunk{
		{Delta: "The thing about your "},
		{Error: "connection reset"},
	}}
	svc := newConversationService(store, provider)

	events, err := svc.SubmitTurn(context.Background(), TurnRequest{
		SessionID:  testSessionID,
		Message:    "the queue is always long",
		AgentState: agent.StateInterviewer,
	})
	require.NoError(t, err)

	var sawApology bool
	var terminal TurnEvent
	for ev := range events {
		if ev.Token == apologyReply {
			sawApology = true
		}
		if ev.Done || ev.Err != nil {
			terminal = ev
		}
	}
	require.NoError(t, terminal.Err)
	assert.True(t, terminal.Done)
	assert.True(t, sawApology)

	// The persisted assistant turn is the apology, not the partial buffer.
	msgs, _ := store.Messages().ListBySession(context.Background(), testSessionID)
	require.Len(t, msgs, 2)
	assert.Equal(t, apologyReply, msgs[1].Content)
}

func TestSubmitTurn_FailureBeforeFirstFragment(t *testing.T) {
	store := newTestStore(t, agent.StateInterviewer)
	provider := &fakeProvider{streamChunks: []providers.StreamChunk{
		{Error: "model overloaded"},
	}}
	svc := newConversationService(store, provider)

	events, err := svc.SubmitTurn(context.Background(), TurnRequest{
		SessionID:  testSessionID,
		Message:    "the kiosk screen is broken",
		AgentState: agent.StateInterviewer,
	})
	require.NoError(t, err)

	_, terminal := collect(t, events)
	require.Error(t, terminal.Err)
	assert.ErrorIs(t, terminal.Err, ErrGenerationFailed)

	// User turn is kept, no assistant turn is written, state is untouched
	// so a retry re-enters the same state.
	msgs, _ := store.Messages().ListBySession(context.Background(), testSessionID)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].Role)

	session, _ := store.Sessions().Get(context.Background(), testSessionID)
	assert.Equal(t, string(agent.StateInterviewer), session.AgentState)
	assert.Equal(t, repository.SessionActive, session.Status)
}

func TestSubmitTurn_StreamCallFails(t *testing.T) {
	store := newTestStore(t, agent.StateGreeter)
	provider := &fakeProvider{streamErr: errFakeGeneration}
	svc := newConversationService(store, provider)

	_, err := svc.SubmitTurn(context.Background(), TurnRequest{
		SessionID:  testSessionID,
		Message:    "hello",
		AgentState: agent.StateGreeter,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestSubmitTurn_UnknownSession(t *testing.T) {
	store := newTestStore(t, agent.StateGreeter)
	svc := newConversationService(store, &fakeProvider{streamText: "hi"})

	_, err := svc.SubmitTurn(context.Background(), TurnRequest{
		SessionID:  "44444444-4444-4444-4444-444444444444",
		Message:    "hi",
		AgentState: agent.StateGreeter,
	})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSubmitTurn_InterviewerCeiling(t *testing.T) {
	store := newTestStore(t, agent.StateInterviewer)
	// Seed 9 prior messages; this turn's user message makes 10.
	for i := 0; i < 9; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		_, err := store.Messages().Create(context.Background(), repository.Message{
			SessionID: testSessionID, Role: role, Content: "x",
			AgentState: string(agent.StateInterviewer),
		})
		require.NoError(t, err)
	}

	provider := &fakeProvider{streamText: "Thanks, wrapping up now."}
	svc := newConversationService(store, provider)

	events, err := svc.SubmitTurn(context.Background(), TurnRequest{
		SessionID:  testSessionID,
		Message:    "that's everything",
		AgentState: agent.StateInterviewer,
	})
	require.NoError(t, err)

	_, terminal := collect(t, events)
	require.NoError(t, terminal.Err)
	assert.Equal(t, agent.StateCloser, terminal.NextState)
}

func TestSubmitTurn_DisconnectedCallerStillPersistsTurn(t *testing.T) {
	store := newTestStore(t, agent.StateInterviewer)
	provider := &fakeProvider{streamText: "The platform lighting has been broken for two weeks now."}
	svc := newConversationService(store, provider)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := svc.SubmitTurn(ctx, TurnRequest{
		SessionID:  testSessionID,
		Message:    "the lighting is terrible",
		AgentState: agent.StateInterviewer,
	})
	require.NoError(t, err)

	// Receive one fragment, then drop the connection and stop reading.
	first, ok := <-events
	require.True(t, ok)
	require.NoError(t, first.Err)
	cancel()

	// The service drains the stream on its own and completes the turn.
	deadline := time.Now().Add(2 * time.Second)
	for {
		msgs, err := store.Messages().ListBySession(context.Background(), testSessionID)
		require.NoError(t, err)
		if len(msgs) == 2 {
			assert.Equal(t, "assistant", msgs[1].Role)
			assert.Equal(t, "The platform lighting has been broken for two weeks now.", msgs[1].Content)
			break
		}
		require.True(t, time.Now().Before(deadline),
			"assistant turn was not persisted after the caller went away")
		time.Sleep(10 * time.Millisecond)
	}

	session, err := store.Sessions().Get(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.Equal(t, string(agent.StateInterviewer), session.AgentState)

	// The event channel is closed, not leaked.
	for range events {
	}
}
