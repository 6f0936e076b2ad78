package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/catchment-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	label      TEXT NOT NULL,
	scenarios  TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_cells (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	tbl      TEXT NOT NULL,
	row_id   TEXT NOT NULL,
	scenario TEXT NOT NULL,
	property TEXT NOT NULL,
	subtype  TEXT NOT NULL DEFAULT '',
	value    REAL,
	text     TEXT,
	PRIMARY KEY (run_id, tbl, row_id, scenario, property, subtype)
);

CREATE TABLE IF NOT EXISTS run_region_colours (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	region_code TEXT NOT NULL,
	colour_ind  INTEGER NOT NULL,
	PRIMARY KEY (run_id, region_code)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_label ON runs(label);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, label string, scenarios []string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	if scenarios == nil {
		scenarios = []string{}
	}

	scenariosJSON, err := json.Marshal(scenarios)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal scenarios")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, label, scenarios, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, label, string(scenariosJSON), string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Label:     label,
		Scenarios: scenarios,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET summary = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(summaryJSON), string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, msg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET error = ?, status = ?, updated_at = ? WHERE id = ?`,
		msg, string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, label, scenarios, status, summary, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, label, scenarios, status, summary, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Label != "" {
		query += ` AND label = ?`
		args = append(args, filter.Label)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// SaveCells replaces any cell with the same key, so re-saving a table is
// idempotent.
func (s *SQLiteStore) SaveCells(ctx context.Context, runID string, cells []Cell) (int64, error) {
	if len(cells) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin save cells")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO run_cells (run_id, tbl, row_id, scenario, property, subtype, value, text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare save cells")
	}
	defer stmt.Close() //nolint:errcheck

	for _, row := range cellRows(runID, cells) {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert cell for run %s", runID)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit save cells")
	}
	return int64(len(cells)), nil
}

func (s *SQLiteStore) ListCells(ctx context.Context, runID, table string) ([]Cell, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tbl, row_id, scenario, property, subtype, value, text FROM run_cells
		 WHERE run_id = ? AND tbl = ?
		 ORDER BY row_id, scenario, property, subtype`,
		runID, table,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list cells")
	}
	defer rows.Close() //nolint:errcheck

	var cells []Cell
	for rows.Next() {
		var c Cell
		var value sql.NullFloat64
		var text sql.NullString
		if err := rows.Scan(&c.Table, &c.RowID, &c.Scenario, &c.Property, &c.Subtype, &value, &text); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cell")
		}
		if value.Valid {
			c.Value = &value.Float64
		}
		if text.Valid {
			c.Text = &text.String
		}
		cells = append(cells, c)
	}
	return cells, eris.Wrap(rows.Err(), "sqlite: list cells iterate")
}

func (s *SQLiteStore) SaveRegionColours(ctx context.Context, runID string, colours map[string]int) error {
	if len(colours) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save colours")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, row := range colourRows(colours) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_region_colours (run_id, region_code, colour_ind) VALUES (?, ?, ?)
			 ON CONFLICT (run_id, region_code) DO UPDATE SET colour_ind = excluded.colour_ind`,
			runID, row[0], row[1],
		); err != nil {
			return eris.Wrapf(err, "sqlite: save colour for run %s", runID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save colours")
}

func (s *SQLiteStore) RegionColours(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT region_code, colour_ind FROM run_region_colours WHERE run_id = ?`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: region colours")
	}
	defer rows.Close() //nolint:errcheck

	out := make(map[string]int)
	for rows.Next() {
		var code string
		var ind int
		if err := rows.Scan(&code, &ind); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan region colour")
		}
		out[code] = ind
	}
	return out, eris.Wrap(rows.Err(), "sqlite: region colours iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(model.ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var scenariosJSON string
	var summaryJSON, errMsg sql.NullString

	err := row.Scan(&r.ID, &r.Label, &scenariosJSON, &r.Status, &summaryJSON, &errMsg, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(model.ErrNotFound, "run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if err := decodeRun(&r, []byte(scenariosJSON), nullBytes(summaryJSON)); err != nil {
		return nil, err
	}
	r.Error = errMsg.String
	return &r, nil
}

func nullBytes(s sql.NullString) []byte {
	if !s.Valid {
		return nil
	}
	return []byte(s.String)
}

// decodeRun fills the JSON-encoded run fields shared by both backends.
func decodeRun(r *model.Run, scenariosJSON, summaryJSON []byte) error {
	if err := json.Unmarshal(scenariosJSON, &r.Scenarios); err != nil {
		return eris.Wrap(err, "store: unmarshal scenarios")
	}
	if summaryJSON != nil {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal(summaryJSON, r.Summary); err != nil {
			return eris.Wrap(err, "store: unmarshal summary")
		}
	}
	return nil
}

// colourRows returns (region_code, colour_ind) rows sorted by region code.
func colourRows(colours map[string]int) [][]any {
	codes := make([]string, 0, len(colours))
	for code := range colours {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	rows := make([][]any, len(codes))
	for i, code := range codes {
		rows[i] = []any{code, colours[code]}
	}
	return rows
}
