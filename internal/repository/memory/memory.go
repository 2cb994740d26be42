// Package memory provides in-memory implementations of the repository
// interfaces for tests. Semantics mirror the postgres implementations,
// including the one-insight-per-session guard.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/feedbackos/feedbackos-backend/internal/repository"
)

type Store struct {
	mu       sync.Mutex
	sessions map[string]*repository.Session
	messages []repository.Message
	orgs     map[string]*repository.Organization
	locs     map[string]*repository.Location
	insights map[string]*repository.InsightRecord // keyed by session ID
	seq      int
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*repository.Session),
		orgs:     make(map[string]*repository.Organization),
		locs:     make(map[string]*repository.Location),
		insights: make(map[string]*repository.InsightRecord),
	}
}

func (s *Store) Sessions() repository.SessionRepository { return (*sessionRepo)(s) }
func (s *Store) Messages() repository.MessageRepository { return (*messageRepo)(s) }
func (s *Store) Locations() repository.LocationRepository {
	return (*locationRepo)(s)
}
func (s *Store) Insights() repository.InsightRepository { return (*insightRepo)(s) }

// AddOrganization seeds an organization.
func (s *Store) AddOrganization(org repository.Organization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgs[org.ID] = &org
}

// AddLocation seeds a location.
func (s *Store) AddLocation(loc repository.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locs[loc.ID] = &loc
}

type sessionRepo Store

func (r *sessionRepo) Create(_ context.Context, session *repository.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.Status == "" {
		session.Status = repository.SessionActive
	}
	session.StartedAt = time.Now()
	cp := *session
	r.sessions[session.ID] = &cp
	return nil
}

func (r *sessionRepo) Get(_ context.Context, id string) (*repository.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *session
	return &cp, nil
}

func (r *sessionRepo) Update(_ context.Context, id string, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	for key, value := range updates {
		switch key {
		case "agent_state":
			session.AgentState = value.(string)
		case "status":
			session.Status = value.(string)
		case "is_sensitive":
			session.IsSensitive = value.(bool)
		case "consent_given":
			session.ConsentGiven = value.(bool)
		case "ended_at":
			t := value.(time.Time)
			session.EndedAt = &t
		}
	}
	return nil
}

type messageRepo Store

func (r *messageRepo) Create(_ context.Context, message repository.Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	message.ID = uuid.New().String()
	r.seq++
	// Synthetic strictly increasing timestamps keep ordering stable even
	// when two appends land in the same wall-clock nanosecond.
	message.CreatedAt = time.Now().Add(time.Duration(r.seq) * time.Microsecond)
	r.messages = append(r.messages, message)
	return message.ID, nil
}

func (r *messageRepo) ListBySession(_ context.Context, sessionID string) ([]repository.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.Message
	for _, m := range r.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *messageRepo) CountBySession(_ context.Context, sessionID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, m := range r.messages {
		if m.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

type locationRepo Store

func (r *locationRepo) Get(_ context.Context, id string) (*repository.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, ok := r.locs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *loc
	return &cp, nil
}

func (r *locationRepo) GetOrganization(_ context.Context, orgID string) (*repository.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	org, ok := r.orgs[orgID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *org
	return &cp, nil
}

func (r *locationRepo) ListByOrg(_ context.Context, orgID string) ([]repository.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.Location
	for _, loc := range r.locs {
		if loc.OrgID == orgID {
			out = append(out, *loc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type insightRepo Store

func (r *insightRepo) Create(_ context.Context, insight *repository.InsightRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.insights[insight.SessionID]; exists {
		return repository.ErrDuplicate
	}
	if insight.ID == "" {
		insight.ID = uuid.New().String()
	}
	insight.CreatedAt = time.Now()
	cp := *insight
	r.insights[insight.SessionID] = &cp
	if session, ok := r.sessions[insight.SessionID]; ok {
		session.Status = repository.SessionAnalyzed
	}
	return nil
}

func (r *insightRepo) GetBySession(_ context.Context, sessionID string) (*repository.InsightRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	insight, ok := r.insights[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *insight
	return &cp, nil
}

func (r *insightRepo) ListByOrgSince(_ context.Context, orgID string, since time.Time) ([]repository.InsightRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.InsightRecord
	for _, insight := range r.insights {
		if insight.OrgID == orgID && !insight.CreatedAt.Before(since) {
			out = append(out, *insight)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
