package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/feedbackos/feedbackos-backend/internal/repository"
)

// dashboardWindow is how far back the dashboard aggregation looks.
const dashboardWindow = 30 * 24 * time.Hour

// InsightsService aggregates insight records into dashboard payloads.
type InsightsService struct {
	insights  repository.InsightRepository
	locations repository.LocationRepository
}

// NewInsightsService creates a new insights service
func NewInsightsService(insights repository.InsightRepository, locations repository.LocationRepository) *InsightsService {
	return &InsightsService{insights: insights, locations: locations}
}

type CategoryCount struct {
	Category   string `json:"category"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

type SeverityBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type TrendPoint struct {
	Date        string  `json:"date"`
	Count       int     `json:"count"`
	AvgSeverity float64 `json:"avgSeverity"`
}

type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

type LocationStats struct {
	LocationID   string  `json:"locationId"`
	Name         string  `json:"name"`
	SessionCount int     `json:"sessionCount"`
	AvgSeverity  float64 `json:"avgSeverity"`
}

type RecentInsight struct {
	ID                string    `json:"id"`
	Summary           string    `json:"summary"`
	PrimaryCategory   string    `json:"primaryCategory"`
	SeverityScore     int       `json:"severityScore"`
	SentimentPolarity float64   `json:"sentimentPolarity"`
	CreatedAt         time.Time `json:"createdAt"`
	LocationName      string    `json:"locationName"`
}

// Dashboard is the aggregated 30-day view for one organization.
type Dashboard struct {
	TotalSessions        int              `json:"totalSessions"`
	AvgSeverity          float64          `json:"avgSeverity"`
	AvgSentiment         float64          `json:"avgSentiment"`
	CategoryCounts       []CategoryCount  `json:"categoryCounts"`
	SeverityDistribution []SeverityBucket `json:"severityDistribution"`
	TrendData            []TrendPoint     `json:"trendData"`
	TopKeywords          []KeywordCount   `json:"topKeywords"`
	LocationBreakdown    []LocationStats  `json:"locationBreakdown"`
	RecentInsights       []RecentInsight  `json:"recentInsights"`
}

// Dashboard aggregates the organization's insight records from the last
// 30 days.
func (s *InsightsService) Dashboard(ctx context.Context, orgID string) (*Dashboard, error) {
	since := time.Now().Add(-dashboardWindow)

	insights, err := s.insights.ListByOrgSince(ctx, orgID, since)
	if err != nil {
		return nil, err
	}
	locations, err := s.locations.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{TotalSessions: len(insights)}

	if len(insights) > 0 {
		var sevSum, sentSum float64
		for _, i := range insights {
			sevSum += float64(i.SeverityScore)
			sentSum += i.SentimentPolarity
		}
		d.AvgSeverity = round1(sevSum / float64(len(insights)))
		d.AvgSentiment = round2(sentSum / float64(len(insights)))
	}

	d.CategoryCounts = categoryCounts(insights)
	d.SeverityDistribution = severityDistribution(insights)
	d.TrendData = trendData(insights)
	d.TopKeywords = topKeywords(insights, 15)
	d.LocationBreakdown = locationBreakdown(insights, locations)
	d.RecentInsights = recentInsights(insights, locations, 8)

	return d, nil
}

func categoryCounts(insights []repository.InsightRecord) []CategoryCount {
	counts := map[string]int{}
	for _, i := range insights {
		counts[i.PrimaryCategory]++
	}
	out := make([]CategoryCount, 0, len(counts))
	for category, count := range counts {
		out = append(out, CategoryCount{
			Category:   category,
			Count:      count,
			Percentage: int(math.Round(float64(count) / float64(len(insights)) * 100)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func severityDistribution(insights []repository.InsightRecord) []SeverityBucket {
	buckets := []SeverityBucket{
		{Label: "Critical (8-10)"},
		{Label: "High (6-7)"},
		{Label: "Medium (4-5)"},
		{Label: "Low (1-3)"},
	}
	for _, i := range insights {
		switch {
		case i.SeverityScore >= 8:
			buckets[0].Count++
		case i.SeverityScore >= 6:
			buckets[1].Count++
		case i.SeverityScore >= 4:
			buckets[2].Count++
		default:
			buckets[3].Count++
		}
	}
	return buckets
}

func trendData(insights []repository.InsightRecord) []TrendPoint {
	type agg struct {
		count    int
		severity int
	}
	byDay := map[string]*agg{}
	for _, i := range insights {
		day := i.CreatedAt.Format("2006-01-02")
		if byDay[day] == nil {
			byDay[day] = &agg{}
		}
		byDay[day].count++
		byDay[day].severity += i.SeverityScore
	}
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)
	out := make([]TrendPoint, 0, len(days))
	for _, day := range days {
		a := byDay[day]
		out = append(out, TrendPoint{
			Date:        day,
			Count:       a.count,
			AvgSeverity: round1(float64(a.severity) / float64(a.count)),
		})
	}
	return out
}

func topKeywords(insights []repository.InsightRecord, limit int) []KeywordCount {
	counts := map[string]int{}
	for _, i := range insights {
		for _, kw := range i.Keywords {
			counts[kw]++
		}
	}
	out := make([]KeywordCount, 0, len(counts))
	for keyword, count := range counts {
		out = append(out, KeywordCount{Keyword: keyword, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Keyword < out[j].Keyword
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func locationBreakdown(insights []repository.InsightRecord, locations []repository.Location) []LocationStats {
	out := make([]LocationStats, 0, len(locations))
	for _, loc := range locations {
		stats := LocationStats{LocationID: loc.ID, Name: loc.Name}
		var sevSum int
		for _, i := range insights {
			if i.LocationID == loc.ID {
				stats.SessionCount++
				sevSum += i.SeverityScore
			}
		}
		if stats.SessionCount > 0 {
			stats.AvgSeverity = round1(float64(sevSum) / float64(stats.SessionCount))
		}
		out = append(out, stats)
	}
	return out
}

func recentInsights(insights []repository.InsightRecord, locations []repository.Location, limit int) []RecentInsight {
	names := map[string]string{}
	for _, loc := range locations {
		names[loc.ID] = loc.Name
	}
	if len(insights) > limit {
		insights = insights[:limit]
	}
	out := make([]RecentInsight, 0, len(insights))
	for _, i := range insights {
		out = append(out, RecentInsight{
			ID:                i.ID,
			Summary:           i.Summary,
			PrimaryCategory:   i.PrimaryCategory,
			SeverityScore:     i.SeverityScore,
			SentimentPolarity: i.SentimentPolarity,
			CreatedAt:         i.CreatedAt,
			LocationName:      names[i.LocationID],
		})
	}
	return out
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
