package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/catchment-cli/internal/db"
	"github.com/sells-group/catchment-cli/internal/model"
	"github.com/sells-group/catchment-cli/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries prepared on each new connection.
var preparedStatements = map[string]string{
	"insert_run":   `INSERT INTO runs (id, label, scenarios, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"complete_run": `UPDATE runs SET summary = $1, status = $2, updated_at = $3 WHERE id = $4`,
	"fail_run":     `UPDATE runs SET error = $1, status = $2, updated_at = $3 WHERE id = $4`,
	"get_run":      `SELECT id, label, scenarios, status, summary, error, created_at, updated_at FROM runs WHERE id = $1`,
	"list_cells":   `SELECT tbl, row_id, scenario, property, subtype, value, text FROM run_cells WHERE run_id = $1 AND tbl = $2 ORDER BY row_id, scenario, property, subtype`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("postgres ping")
	if err := resilience.Do(ctx, retry, pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	label      TEXT NOT NULL,
	scenarios  JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    JSONB,
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_cells (
	run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	tbl      TEXT NOT NULL,
	row_id   TEXT NOT NULL,
	scenario TEXT NOT NULL,
	property TEXT NOT NULL,
	subtype  TEXT NOT NULL DEFAULT '',
	value    DOUBLE PRECISION,
	text     TEXT,
	PRIMARY KEY (run_id, tbl, row_id, scenario, property, subtype)
);

CREATE TABLE IF NOT EXISTS run_region_colours (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	region_code TEXT NOT NULL,
	colour_ind  INTEGER NOT NULL,
	PRIMARY KEY (run_id, region_code)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_label ON runs(label);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, label string, scenarios []string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	if scenarios == nil {
		scenarios = []string{}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, label, scenarios, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, label, scenarios, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET summary = $1, status = $2, updated_at = $3 WHERE id = $4`,
		summary, string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, msg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET error = $1, status = $2, updated_at = $3 WHERE id = $4`,
		msg, string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, label, scenarios, status, summary, error, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, label, scenarios, status, summary, error, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Label != "" {
		query += fmt.Sprintf(` AND label = $%d`, argIdx)
		args = append(args, filter.Label)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// SaveCells clears the run's existing cells for every table present in
// cells, then bulk-loads them with COPY.
func (s *PostgresStore) SaveCells(ctx context.Context, runID string, cells []Cell) (int64, error) {
	if len(cells) == 0 {
		return 0, nil
	}
	tables := make(map[string]bool)
	for _, c := range cells {
		tables[c.Table] = true
	}
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	if _, err := s.pool.Exec(ctx,
		`DELETE FROM run_cells WHERE run_id = $1 AND tbl = ANY($2)`, runID, names,
	); err != nil {
		return 0, eris.Wrapf(err, "postgres: clear cells for run %s", runID)
	}

	n, err := db.CopyFrom(ctx, s.pool, "run_cells", cellColumns, cellRows(runID, cells))
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: save cells for run %s", runID)
	}
	return n, nil
}

func (s *PostgresStore) ListCells(ctx context.Context, runID, table string) ([]Cell, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT tbl, row_id, scenario, property, subtype, value, text FROM run_cells WHERE run_id = $1 AND tbl = $2 ORDER BY row_id, scenario, property, subtype`,
		runID, table,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list cells")
	}
	defer rows.Close()

	var cells []Cell
	for rows.Next() {
		var c Cell
		if err := rows.Scan(&c.Table, &c.RowID, &c.Scenario, &c.Property, &c.Subtype, &c.Value, &c.Text); err != nil {
			return nil, eris.Wrap(err, "postgres: scan cell")
		}
		cells = append(cells, c)
	}
	return cells, eris.Wrap(rows.Err(), "postgres: list cells iterate")
}

var regionColoursTable = db.RunTable{
	Name:   "run_region_colours",
	Key:    []string{"region_code"},
	Values: []string{"colour_ind"},
}

// SaveRegionColours merges colours into the run's saved region colours.
func (s *PostgresStore) SaveRegionColours(ctx context.Context, runID string, colours map[string]int) error {
	_, err := db.UpsertRun(ctx, s.pool, regionColoursTable, runID, colourRows(colours))
	return eris.Wrapf(err, "postgres: save colours for run %s", runID)
}

func (s *PostgresStore) RegionColours(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT region_code, colour_ind FROM run_region_colours WHERE run_id = $1`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: region colours")
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var code string
		var ind int
		if err := rows.Scan(&code, &ind); err != nil {
			return nil, eris.Wrap(err, "postgres: scan region colour")
		}
		out[code] = ind
	}
	return out, eris.Wrap(rows.Err(), "postgres: region colours iterate")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var scenariosJSON []byte
	var summaryJSON []byte
	var errMsg *string

	if err := row.Scan(&r.ID, &r.Label, &scenariosJSON, &r.Status, &summaryJSON, &errMsg, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if err := decodeRun(&r, scenariosJSON, summaryJSON); err != nil {
		return nil, err
	}
	if errMsg != nil {
		r.Error = *errMsg
	}
	return &r, nil
}
