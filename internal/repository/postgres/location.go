package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/feedbackos/feedbackos-backend/internal/repository"
)

// LocationRepository implements repository.LocationRepository using PostgreSQL
type LocationRepository struct {
	db *sqlx.DB
}

// NewLocationRepository creates a new PostgreSQL location repository
func NewLocationRepository(db *sqlx.DB) repository.LocationRepository {
	return &LocationRepository{db: db}
}

// Get retrieves a location by ID
func (r *LocationRepository) Get(ctx context.Context, id string) (*repository.Location, error) {
	var location repository.Location
	query := `
		SELECT id, org_id, name, location_type, created_at
		FROM locations
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &location, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &location, nil
}

// GetOrganization retrieves the organization owning a location
func (r *LocationRepository) GetOrganization(ctx context.Context, orgID string) (*repository.Organization, error) {
	var org repository.Organization
	query := `
		SELECT id, name, created_at
		FROM organizations
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &org, query, orgID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &org, nil
}

// ListByOrg retrieves all locations belonging to an organization
func (r *LocationRepository) ListByOrg(ctx context.Context, orgID string) ([]repository.Location, error) {
	var locations []repository.Location
	query := `
		SELECT id, org_id, name, location_type, created_at
		FROM locations
		WHERE org_id = $1
		ORDER BY name ASC
	`

	err := r.db.SelectContext(ctx, &locations, query, orgID)
	if err != nil {
		return nil, err
	}

	return locations, nil
}
