package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackos/feedbackos-backend/internal/repository"
	"github.com/feedbackos/feedbackos-backend/internal/repository/memory"
)

func seedInsights(t *testing.T, store *memory.Store) {
	t.Helper()
	records := []repository.InsightRecord{
		{PrimaryCategory: "wait_time", SeverityScore: 8, SentimentPolarity: -0.8,
			Keywords: []string{"queue", "slow"}, Summary: "Long waits.", Categories: []string{"wait_time"}},
		{PrimaryCategory: "wait_time", SeverityScore: 6, SentimentPolarity: -0.4,
			Keywords: []string{"queue"}, Summary: "Still waiting.", Categories: []string{"wait_time"}},
		{PrimaryCategory: "cleanliness", SeverityScore: 4, SentimentPolarity: -0.2,
			Keywords: []string{"dirty"}, Summary: "Messy corner.", Categories: []string{"cleanliness"}},
		{PrimaryCategory: "positive_experience", SeverityScore: 1, SentimentPolarity: 0.9,
			Keywords: []string{"friendly"}, Summary: "Great staff.", Categories: []string{"positive_experience"}},
	}
	for i, rec := range records {
		rec.SessionID = fmt.Sprintf("55555555-5555-5555-5555-00000000000%d", i)
		rec.LocationID = testLocationID
		rec.OrgID = testOrgID
		require.NoError(t, store.Insights().Create(context.Background(), &rec))
	}
}

func TestDashboard(t *testing.T) {
	store := newTestStore(t, "ENDED")
	seedInsights(t, store)
	svc := NewInsightsService(store.Insights(), store.Locations())

	d, err := svc.Dashboard(context.Background(), testOrgID)
	require.NoError(t, err)

	assert.Equal(t, 4, d.TotalSessions)
	assert.Equal(t, 4.8, d.AvgSeverity)  // (8+6+4+1)/4 = 4.75 rounded to 1dp
	assert.Equal(t, -0.13, d.AvgSentiment)

	require.NotEmpty(t, d.CategoryCounts)
	assert.Equal(t, "wait_time", d.CategoryCounts[0].Category)
	assert.Equal(t, 2, d.CategoryCounts[0].Count)
	assert.Equal(t, 50, d.CategoryCounts[0].Percentage)

	require.Len(t, d.SeverityDistribution, 4)
	assert.Equal(t, 1, d.SeverityDistribution[0].Count) // critical: the 8
	assert.Equal(t, 1, d.SeverityDistribution[1].Count) // high: the 6
	assert.Equal(t, 1, d.SeverityDistribution[2].Count) // medium: the 4
	assert.Equal(t, 1, d.SeverityDistribution[3].Count) // low: the 1

	require.NotEmpty(t, d.TopKeywords)
	assert.Equal(t, "queue", d.TopKeywords[0].Keyword)
	assert.Equal(t, 2, d.TopKeywords[0].Count)

	require.Len(t, d.LocationBreakdown, 1)
	assert.Equal(t, "Central Station", d.LocationBreakdown[0].Name)
	assert.Equal(t, 4, d.LocationBreakdown[0].SessionCount)

	assert.Len(t, d.RecentInsights, 4)
	assert.Equal(t, "Central Station", d.RecentInsights[0].LocationName)
}

func TestDashboard_EmptyOrg(t *testing.T) {
	store := memory.NewStore()
	store.AddOrganization(repository.Organization{ID: testOrgID, Name: "Empty Org"})
	svc := NewInsightsService(store.Insights(), store.Locations())

	d, err := svc.Dashboard(context.Background(), testOrgID)
	require.NoError(t, err)

	assert.Zero(t, d.TotalSessions)
	assert.Zero(t, d.AvgSeverity)
	assert.Empty(t, d.CategoryCounts)
	assert.Empty(t, d.RecentInsights)
}
