package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/david/grantdesk/internal/models"
)

const orgCols = `id, user_id, name, type, mission, location, annual_budget, focus_areas, created_at, updated_at`

func scanOrg(row pgx.Row) (*models.Organization, error) {
	var (
		o       models.Organization
		orgType string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Name, &orgType, &o.Mission, &o.Location, &o.Budget,
		&o.FocusAreas, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Type = models.OrgType(orgType)
	if o.FocusAreas == nil {
		o.FocusAreas = []string{}
	}
	return &o, nil
}

// GetOrganizationByUser returns the caller's organization profile.
func (s *Store) GetOrganizationByUser(ctx context.Context, userID uuid.UUID) (*models.Organization, error) {
	o, err := scanOrg(s.pool.QueryRow(ctx, "SELECT "+orgCols+" FROM organizations WHERE user_id = $1", userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "db: get organization")
	}
	return o, nil
}

// SaveOrganization creates or replaces the profile owned by o.UserID.
func (s *Store) SaveOrganization(ctx context.Context, o models.Organization) (*models.Organization, error) {
	focus := o.FocusAreas
	if focus == nil {
		focus = []string{}
	}
	saved, err := scanOrg(s.pool.QueryRow(ctx, `
		INSERT INTO organizations (user_id, name, type, mission, location, annual_budget, focus_areas)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			mission = EXCLUDED.mission,
			location = EXCLUDED.location,
			annual_budget = EXCLUDED.annual_budget,
			focus_areas = EXCLUDED.focus_areas,
			updated_at = NOW()
		RETURNING `+orgCols,
		o.UserID, o.Name, string(o.Type), o.Mission, o.Location, o.Budget, focus,
	))
	if err != nil {
		return nil, eris.Wrap(err, "db: save organization")
	}
	return saved, nil
}

// UpsertMatch stores the latest fit assessment for an org and grant.
func (s *Store) UpsertMatch(ctx context.Context, m models.GrantMatch) (*models.GrantMatch, error) {
	out := m
	err := s.pool.QueryRow(ctx, `
		INSERT INTO grant_matches (org_id, grant_id, fit_score, strengths, gaps, recommendation)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (org_id, grant_id) DO UPDATE SET
			fit_score = EXCLUDED.fit_score,
			strengths = EXCLUDED.strengths,
			gaps = EXCLUDED.gaps,
			recommendation = EXCLUDED.recommendation,
			created_at = NOW()
		RETURNING id, created_at`,
		m.OrgID, m.GrantID, m.FitScore, nonNil(m.Strengths), nonNil(m.Gaps), m.Recommendation,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "db: upsert match")
	}
	return &out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
