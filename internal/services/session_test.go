package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackos/feedbackos-backend/internal/agent"
	"github.com/feedbackos/feedbackos-backend/internal/repository"
	"github.com/feedbackos/feedbackos-backend/internal/repository/memory"
)

func TestSessionCreate(t *testing.T) {
	store := memory.NewStore()
	store.AddOrganization(repository.Organization{ID: testOrgID, Name: "City Transit"})
	store.AddLocation(repository.Location{
		ID: testLocationID, OrgID: testOrgID,
		Name: "Central Station", LocationType: "transit_hub",
	})
	svc := NewSessionService(store.Sessions(), store.Messages(), store.Locations(), testLogger())

	sctx, err := svc.Create(context.Background(), testLocationID)
	require.NoError(t, err)
	assert.NotEmpty(t, sctx.SessionID)
	assert.Equal(t, "Central Station", sctx.LocationName)
	assert.Equal(t, "City Transit", sctx.OrgName)

	session, err := svc.Get(context.Background(), sctx.SessionID)
	require.NoError(t, err)
	assert.Equal(t, string(agent.StateGreeter), session.AgentState)
	assert.Equal(t, repository.SessionActive, session.Status)
	assert.False(t, session.IsSensitive)
}

func TestSessionCreate_UnknownLocation(t *testing.T) {
	store := memory.NewStore()
	svc := NewSessionService(store.Sessions(), store.Messages(), store.Locations(), testLogger())

	_, err := svc.Create(context.Background(), "99999999-9999-9999-9999-999999999999")
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestSessionMessages_UnknownSession(t *testing.T) {
	store := memory.NewStore()
	svc := NewSessionService(store.Sessions(), store.Messages(), store.Locations(), testLogger())

	_, err := svc.Messages(context.Background(), "99999999-9999-9999-9999-999999999999")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
