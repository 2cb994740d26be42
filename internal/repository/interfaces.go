package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a create collides with an existing row,
// e.g. a second insight record for the same session.
var ErrDuplicate = errors.New("already exists")

// Session lifecycle statuses.
const (
	SessionActive    = "ACTIVE"
	SessionCompleted = "COMPLETED"
	SessionAnalyzed  = "ANALYZED"
)

// Organization is the owner of one or more physical locations.
type Organization struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// Location is a physical site where feedback sessions are collected.
type Location struct {
	ID           string    `db:"id"`
	OrgID        string    `db:"org_id"`
	Name         string    `db:"name"`
	LocationType string    `db:"location_type"`
	CreatedAt    time.Time `db:"created_at"`
}

// Session represents one feedback conversation. IsSensitive is a one-way
// latch: once set it is never cleared.
type Session struct {
	ID           string     `db:"id"`
	LocationID   string     `db:"location_id"`
	AgentState   string     `db:"agent_state"`
	Status       string     `db:"status"`
	IsSensitive  bool       `db:"is_sensitive"`
	ConsentGiven bool       `db:"consent_given"`
	Source       string     `db:"source"`
	StartedAt    time.Time  `db:"started_at"`
	EndedAt      *time.Time `db:"ended_at"`
}

// Message is one turn in a session transcript, tagged with the agent state
// that was active when it was produced. Append-only.
type Message struct {
	ID         string    `db:"id"`
	SessionID  string    `db:"session_id"`
	Role       string    `db:"role"`
	Content    string    `db:"content"`
	AgentState string    `db:"agent_state"`
	CreatedAt  time.Time `db:"created_at"`
}

// InsightRecord is the structured analysis of one completed session.
// At most one exists per session.
type InsightRecord struct {
	ID                string         `db:"id"`
	SessionID         string         `db:"session_id"`
	LocationID        string         `db:"location_id"`
	OrgID             string         `db:"org_id"`
	Categories        pq.StringArray `db:"categories"`
	PrimaryCategory   string         `db:"primary_category"`
	SentimentPolarity float64        `db:"sentiment_polarity"`
	SeverityScore     int            `db:"severity_score"`
	Frequency         string         `db:"frequency"`
	Keywords          pq.StringArray `db:"keywords"`
	Summary           string         `db:"summary"`
	Actionable        bool           `db:"actionable"`
	CreatedAt         time.Time      `db:"created_at"`
}

// SessionRepository defines session storage operations
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
}

// MessageRepository defines message storage operations
type MessageRepository interface {
	Create(ctx context.Context, message Message) (string, error)
	ListBySession(ctx context.Context, sessionID string) ([]Message, error)
	CountBySession(ctx context.Context, sessionID string) (int, error)
}

// LocationRepository defines location storage operations
type LocationRepository interface {
	Get(ctx context.Context, id string) (*Location, error)
	GetOrganization(ctx context.Context, orgID string) (*Organization, error)
	ListByOrg(ctx context.Context, orgID string) ([]Location, error)
}

// InsightRepository defines insight storage operations. Create must atomically
// insert the record and move the owning session to SessionAnalyzed; a second
// create for the same session returns ErrDuplicate.
type InsightRepository interface {
	Create(ctx context.Context, insight *InsightRecord) error
	GetBySession(ctx context.Context, sessionID string) (*InsightRecord, error)
	ListByOrgSince(ctx context.Context, orgID string, since time.Time) ([]InsightRecord, error)
}
