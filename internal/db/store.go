package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/david/grantdesk/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type Store struct {
	pool Pool
}

func NewStore(pool Pool) *Store {
	return &Store{pool: pool}
}

// grantSyncConfig is the ingestion column allow-list. Enrichment columns
// (ai_summary, eligibility_parsed) and text owned by other flows
// (description, eligibility_raw) must never appear here.
var grantSyncConfig = UpsertConfig{
	Table: "grants",
	Columns: []string{
		"source", "source_id", "title", "agency", "amount_min", "amount_max",
		"deadline", "posted_date", "category", "status", "source_url",
	},
	ConflictKeys: []string{"source", "source_id"},
	KeepExisting: []string{"amount_min", "amount_max"},
	ExtraSet:     map[string]string{"updated_at": "NOW()"},
	Returning:    []string{"source_id", "created_at", "(xmax = 0) AS inserted"},
}

// UpsertGrants writes a batch in one statement keyed on (source, source_id).
// The batch must not repeat a conflict key. Each returned row carries the
// insert flag derived from the row's xmax.
func (s *Store) UpsertGrants(ctx context.Context, batch []models.GrantUpsert) ([]models.UpsertedGrant, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	sql, err := BuildUpsertSQL(grantSyncConfig, len(batch))
	if err != nil {
		return nil, err
	}

	args := make([]any, 0, len(batch)*len(grantSyncConfig.Columns))
	for _, g := range batch {
		category := g.Category
		if category == nil {
			category = []string{}
		}
		args = append(args,
			g.Source, g.SourceID, g.Title, g.Agency, g.AmountMin, g.AmountMax,
			g.Deadline, g.PostedDate, category, string(g.Status), g.SourceURL,
		)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "db: upsert grants")
	}
	defer rows.Close()

	out := make([]models.UpsertedGrant, 0, len(batch))
	for rows.Next() {
		var (
			r        models.UpsertedGrant
			inserted bool
		)
		if err := rows.Scan(&r.SourceID, &r.CreatedAt, &inserted); err != nil {
			return nil, eris.Wrap(err, "db: scan upserted grant")
		}
		r.Inserted = &inserted
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "db: upsert grants rows")
	}
	return out, nil
}

const grantCols = `id, source, source_id, title, agency, description, eligibility_raw,
	amount_min, amount_max, deadline, posted_date, category, status, source_url,
	ai_summary, eligibility_parsed, created_at, updated_at`

func scanGrant(scan func(dest ...any) error, extra ...any) (models.Grant, error) {
	var (
		g                 models.Grant
		status            string
		aiSummary, parsed []byte
	)
	dest := []any{
		&g.ID, &g.Source, &g.SourceID, &g.Title, &g.Agency, &g.Description, &g.EligibilityRaw,
		&g.AmountMin, &g.AmountMax, &g.Deadline, &g.PostedDate, &g.Category, &status, &g.SourceURL,
		&aiSummary, &parsed, &g.CreatedAt, &g.UpdatedAt,
	}
	if err := scan(append(dest, extra...)...); err != nil {
		return g, err
	}
	g.Status = models.GrantStatus(status)
	if len(aiSummary) > 0 {
		g.AISummary = aiSummary
	}
	if len(parsed) > 0 {
		g.EligibilityParsed = parsed
	}
	if g.Category == nil {
		g.Category = []string{}
	}
	return g, nil
}

// GrantList is one page of ListGrants.
type GrantList struct {
	Grants []models.Grant `json:"grants"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// ListGrants filters by free text, status and focus area, soonest deadline first.
func (s *Store) ListGrants(ctx context.Context, f models.GrantFilter) (*GrantList, error) {
	where := "WHERE 1=1"
	var args []any
	argIdx := 1

	if f.Query != "" {
		where += fmt.Sprintf(" AND (title ILIKE '%%' || $%d || '%%' OR agency ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%d || '%%')", argIdx, argIdx, argIdx)
		args = append(args, f.Query)
		argIdx++
	}
	if f.Status != "" && f.Status != "all" {
		where += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, f.Status)
		argIdx++
	}
	if f.Category != "" {
		where += fmt.Sprintf(" AND category @> ARRAY[$%d]::text[]", argIdx)
		args = append(args, f.Category)
		argIdx++
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s, COUNT(*) OVER() AS total_count FROM grants %s
		ORDER BY deadline ASC NULLS LAST, title ASC
		LIMIT $%d OFFSET $%d`, grantCols, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "db: list grants")
	}
	defer rows.Close()

	out := &GrantList{Grants: []models.Grant{}, Limit: limit, Offset: offset}
	for rows.Next() {
		var total int
		g, err := scanGrant(rows.Scan, &total)
		if err != nil {
			return nil, eris.Wrap(err, "db: scan grant")
		}
		out.Total = total
		out.Grants = append(out.Grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "db: list grants rows")
	}
	return out, nil
}

func (s *Store) GetGrant(ctx context.Context, id uuid.UUID) (*models.Grant, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+grantCols+" FROM grants WHERE id = $1", id)
	g, err := scanGrant(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "db: get grant %s", id)
	}
	return &g, nil
}

// SetAISummary stores enrichment output. It touches no ingestion column.
func (s *Store) SetAISummary(ctx context.Context, id uuid.UUID, summary []byte) error {
	return s.setEnrichment(ctx, "ai_summary", id, summary)
}

// SetEligibilityParsed stores structured eligibility. It touches no ingestion column.
func (s *Store) SetEligibilityParsed(ctx context.Context, id uuid.UUID, parsed []byte) error {
	return s.setEnrichment(ctx, "eligibility_parsed", id, parsed)
}

func (s *Store) setEnrichment(ctx context.Context, column string, id uuid.UUID, value []byte) error {
	sql := fmt.Sprintf("UPDATE grants SET %s = $1::jsonb WHERE id = $2", pgx.Identifier{column}.Sanitize())
	tag, err := s.pool.Exec(ctx, sql, string(value), id)
	if err != nil {
		return eris.Wrapf(err, "db: set %s", column)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
