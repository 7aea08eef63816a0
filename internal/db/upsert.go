package db

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig defines the parameters for a multi-row upsert statement.
type UpsertConfig struct {
	Table        string            // target table
	Columns      []string          // all columns being inserted
	ConflictKeys []string          // columns forming the unique constraint
	UpdateCols   []string          // columns to update on conflict; nil = all non-conflict columns
	KeepExisting []string          // update columns that keep the stored value when the new one is NULL
	ExtraSet     map[string]string // additional SET expressions, e.g. updated_at = NOW()
	Returning    []string          // RETURNING expressions, verbatim
}

// updateColumns resolves the DO UPDATE column list.
func (cfg UpsertConfig) updateColumns() []string {
	if cfg.UpdateCols != nil {
		return cfg.UpdateCols
	}
	conflictSet := make(map[string]bool, len(cfg.ConflictKeys))
	for _, k := range cfg.ConflictKeys {
		conflictSet[k] = true
	}
	var cols []string
	for _, c := range cfg.Columns {
		if !conflictSet[c] {
			cols = append(cols, c)
		}
	}
	return cols
}

// BuildUpsertSQL renders INSERT ... VALUES (...), (...) ON CONFLICT ... DO UPDATE
// for rowCount rows with positional parameters in row-major order.
func BuildUpsertSQL(cfg UpsertConfig, rowCount int) (string, error) {
	if len(cfg.Columns) == 0 {
		return "", eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return "", eris.New("db: upsert: no conflict keys specified")
	}
	if rowCount <= 0 {
		return "", eris.New("db: upsert: no rows")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", pgx.Identifier{cfg.Table}.Sanitize(), quoteAndJoin(cfg.Columns))

	n := 1
	for r := 0; r < rowCount; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range cfg.Columns {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", n)
			n++
		}
		b.WriteByte(')')
	}

	keep := make(map[string]bool, len(cfg.KeepExisting))
	for _, k := range cfg.KeepExisting {
		keep[k] = true
	}

	table := pgx.Identifier{cfg.Table}.Sanitize()
	var setClauses []string
	for _, col := range cfg.updateColumns() {
		id := pgx.Identifier{col}.Sanitize()
		if keep[col] {
			setClauses = append(setClauses, fmt.Sprintf("%s = COALESCE(EXCLUDED.%s, %s.%s)", id, id, table, id))
			continue
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", id, id))
	}
	for col, expr := range cfg.ExtraSet {
		setClauses = append(setClauses, fmt.Sprintf("%s = %s", pgx.Identifier{col}.Sanitize(), expr))
	}

	fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET %s", quoteAndJoin(cfg.ConflictKeys), strings.Join(setClauses, ", "))

	if len(cfg.Returning) > 0 {
		b.WriteString(" RETURNING ")
		b.WriteString(strings.Join(cfg.Returning, ", "))
	}

	return b.String(), nil
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
