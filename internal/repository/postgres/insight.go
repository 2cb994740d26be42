package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/feedbackos/feedbackos-backend/internal/repository"
)

// InsightRepository implements repository.InsightRepository using PostgreSQL
type InsightRepository struct {
	db *sqlx.DB
}

// NewInsightRepository creates a new PostgreSQL insight repository
func NewInsightRepository(db *sqlx.DB) repository.InsightRepository {
	return &InsightRepository{db: db}
}

// Create inserts an insight record and marks the owning session as analyzed
// in a single transaction. The UNIQUE constraint on session_id enforces the
// one-insight-per-session rule.
func (r *InsightRepository) Create(ctx context.Context, insight *repository.InsightRecord) error {
	if insight.ID == "" {
		insight.ID = uuid.New().String()
	}
	insight.CreatedAt = time.Now()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO insight_records (id, session_id, location_id, org_id, categories, primary_category,
			sentiment_polarity, severity_score, frequency, keywords, summary, actionable, created_at)
		VALUES (:id, :session_id, :location_id, :org_id, :categories, :primary_category,
			:sentiment_polarity, :severity_score, :frequency, :keywords, :summary, :actionable, :created_at)
	`

	if _, err := tx.NamedExecContext(ctx, query, insight); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return repository.ErrDuplicate
		}
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE sessions SET status = $1 WHERE id = $2",
		repository.SessionAnalyzed, insight.SessionID,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// GetBySession retrieves the insight record for a session, if any
func (r *InsightRepository) GetBySession(ctx context.Context, sessionID string) (*repository.InsightRecord, error) {
	var insight repository.InsightRecord
	query := `
		SELECT id, session_id, location_id, org_id, categories, primary_category,
			sentiment_polarity, severity_score, frequency, keywords, summary, actionable, created_at
		FROM insight_records
		WHERE session_id = $1
	`

	err := r.db.GetContext(ctx, &insight, query, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &insight, nil
}

// ListByOrgSince retrieves an organization's insight records created after the
// given time, newest first
func (r *InsightRepository) ListByOrgSince(ctx context.Context, orgID string, since time.Time) ([]repository.InsightRecord, error) {
	var insights []repository.InsightRecord
	query := `
		SELECT id, session_id, location_id, org_id, categories, primary_category,
			sentiment_polarity, severity_score, frequency, keywords, summary, actionable, created_at
		FROM insight_records
		WHERE org_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`

	err := r.db.SelectContext(ctx, &insights, query, orgID, since)
	if err != nil {
		return nil, err
	}

	return insights, nil
}
