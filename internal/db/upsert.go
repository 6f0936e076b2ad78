package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// RunColumn is the leading key column of every per-run result table.
const RunColumn = "run_id"

// RunTable describes a per-run result table such as run_region_colours.
// Rows are keyed by run_id followed by Key.
type RunTable struct {
	Name   string   // optionally schema-qualified
	Key    []string // key columns after run_id, e.g. region_code
	Values []string // columns replaced when a key already exists
}

func (t RunTable) columns() []string {
	cols := make([]string, 0, 1+len(t.Key)+len(t.Values))
	cols = append(cols, RunColumn)
	cols = append(cols, t.Key...)
	return append(cols, t.Values...)
}

// stageName is the temp table rows are copied into before the merge.
func (t RunTable) stageName() string {
	parts := identifier(t.Name)
	return "stage_" + parts[len(parts)-1]
}

// UpsertRun saves rows for one run. Each row holds the Key values then the
// Values values; run_id is prepended. Rows are copied into a temp table and
// merged with INSERT ... ON CONFLICT in one transaction. It returns the
// number of rows inserted or updated.
func UpsertRun(ctx context.Context, pool Pool, t RunTable, runID string, rows [][]any) (int64, error) {
	if t.Name == "" {
		return 0, eris.New("db: upsert: no table specified")
	}
	if runID == "" {
		return 0, eris.Errorf("db: upsert %s: no run id", t.Name)
	}
	width := len(t.Key) + len(t.Values)
	if width == 0 {
		return 0, eris.Errorf("db: upsert %s: no columns specified", t.Name)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	staged := make([][]any, len(rows))
	for i, row := range rows {
		if len(row) != width {
			return 0, eris.Errorf("db: upsert %s: row %d has %d values, want %d", t.Name, i, len(row), width)
		}
		staged[i] = append([]any{runID}, row...)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	target := identifier(t.Name).Sanitize()
	stage := pgx.Identifier{t.stageName()}.Sanitize()
	cols := t.columns()

	createSQL := fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP", stage, target)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: create stage table", t.Name)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{t.stageName()}, cols, pgx.CopyFromRows(staged)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: copy into stage table", t.Name)
	}

	action := "DO NOTHING"
	if len(t.Values) > 0 {
		sets := make([]string, len(t.Values))
		for i, col := range t.Values {
			sets[i] = quote(col) + " = EXCLUDED." + quote(col)
		}
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	list := quoteAndJoin(cols)
	mergeSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		target, list, list, stage, quoteAndJoin(append([]string{RunColumn}, t.Key...)), action,
	)
	tag, err := tx.Exec(ctx, mergeSQL)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: merge", t.Name)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

// identifier splits a schema-qualified table name.
func identifier(table string) pgx.Identifier {
	parts := strings.SplitN(table, ".", 2)
	return pgx.Identifier(parts)
}

func quote(col string) string {
	return pgx.Identifier{col}.Sanitize()
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ", ")
}
