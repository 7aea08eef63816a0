package db

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/david/grantdesk/internal/models"
)

// CreateProposal returns the org's existing proposal for the grant, or
// creates a draft with the standard empty sections. created reports which.
func (s *Store) CreateProposal(ctx context.Context, orgID, grantID uuid.UUID) (id uuid.UUID, created bool, err error) {
	err = s.pool.QueryRow(ctx,
		"SELECT id FROM proposals WHERE org_id = $1 AND grant_id = $2", orgID, grantID,
	).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, eris.Wrap(err, "db: find proposal")
	}

	sections, err := json.Marshal(models.EmptySections())
	if err != nil {
		return uuid.Nil, false, eris.Wrap(err, "db: marshal sections")
	}

	// ON CONFLICT covers a concurrent create for the same pair.
	err = s.pool.QueryRow(ctx, `
		INSERT INTO proposals (org_id, grant_id, status, sections)
		VALUES ($1, $2, 'draft', $3::jsonb)
		ON CONFLICT (org_id, grant_id) DO UPDATE SET updated_at = proposals.updated_at
		RETURNING id, (xmax = 0)`,
		orgID, grantID, string(sections),
	).Scan(&id, &created)
	if err != nil {
		return uuid.Nil, false, eris.Wrap(err, "db: create proposal")
	}
	return id, created, nil
}

// GetProposal loads a proposal owned by orgID.
func (s *Store) GetProposal(ctx context.Context, orgID, id uuid.UUID) (*models.Proposal, error) {
	var (
		p        models.Proposal
		status   string
		sections []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, org_id, grant_id, status, sections, created_at, updated_at
		FROM proposals WHERE id = $1 AND org_id = $2`, id, orgID,
	).Scan(&p.ID, &p.OrgID, &p.GrantID, &status, &sections, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "db: get proposal")
	}
	p.Status = models.ProposalStatus(status)
	p.Sections = models.EmptySections()
	if len(sections) > 0 {
		if err := json.Unmarshal(sections, &p.Sections); err != nil {
			return nil, eris.Wrap(err, "db: decode proposal sections")
		}
	}
	return &p, nil
}

// ListProposals returns the org's proposals, most recently edited first.
func (s *Store) ListProposals(ctx context.Context, orgID uuid.UUID) ([]models.ProposalListItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.grant_id, g.title, p.status, p.updated_at
		FROM proposals p
		JOIN grants g ON g.id = p.grant_id
		WHERE p.org_id = $1
		ORDER BY p.updated_at DESC`, orgID)
	if err != nil {
		return nil, eris.Wrap(err, "db: list proposals")
	}
	defer rows.Close()

	items := []models.ProposalListItem{}
	for rows.Next() {
		var (
			it     models.ProposalListItem
			status string
		)
		if err := rows.Scan(&it.ID, &it.GrantID, &it.GrantTitle, &status, &it.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "db: scan proposal")
		}
		it.Status = models.ProposalStatus(status)
		items = append(items, it)
	}
	return items, eris.Wrap(rows.Err(), "db: list proposals rows")
}

// UpdateProposalSection replaces one section's text.
func (s *Store) UpdateProposalSection(ctx context.Context, orgID, id uuid.UUID, key, content string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE proposals
		SET sections = jsonb_set(sections, ARRAY[$1::text], to_jsonb($2::text), true), updated_at = NOW()
		WHERE id = $3 AND org_id = $4`,
		key, content, id, orgID,
	)
	if err != nil {
		return eris.Wrap(err, "db: update proposal section")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProposalStatus moves a proposal through draft, review and submitted.
func (s *Store) UpdateProposalStatus(ctx context.Context, orgID, id uuid.UUID, status models.ProposalStatus) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE proposals SET status = $1, updated_at = NOW() WHERE id = $2 AND org_id = $3",
		string(status), id, orgID,
	)
	if err != nil {
		return eris.Wrap(err, "db: update proposal status")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
