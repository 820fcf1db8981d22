// Package postgres provides a Postgres-backed reference store for deployments
// where several hub instances share one queue.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apc-golf/refhub/internal/refs"
	"github.com/apc-golf/refhub/internal/store/sqlutil"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements refs.Store over a pgx connection pool.
type Store struct {
	pool  querier
	table string
	clock refs.Clock
	idGen refs.IDGenerator
}

// New connects to Postgres using the provided config.
func New(ctx context.Context, cfg Config, clock refs.Clock, idGen refs.IDGenerator) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "reference_items"
	}
	if !sqlutil.ValidTableName(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, table: table, clock: clock, idGen: idGen}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool querier, table string, clock refs.Clock, idGen refs.IDGenerator) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "reference_items"
	}
	if !sqlutil.ValidTableName(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: pool, table: table, clock: clock, idGen: idGen}, nil
}

// Init creates the reference table and its dedupe index if missing.
func (s *Store) Init(ctx context.Context) error {
	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id TEXT PRIMARY KEY,
  brand TEXT NOT NULL,
  season TEXT NOT NULL,
  item TEXT NOT NULL,
  source_url TEXT NOT NULL,
  page_title TEXT NOT NULL DEFAULT '',
  image_path TEXT NOT NULL DEFAULT '',
  captured_at TEXT NOT NULL DEFAULT '',
  "SILHOUETTE" TEXT NOT NULL DEFAULT '',
  "COLOR" TEXT NOT NULL DEFAULT '',
  "DETAIL" TEXT NOT NULL DEFAULT '',
  "MATERIAL" TEXT NOT NULL DEFAULT '',
  "MOOD" TEXT NOT NULL DEFAULT '',
  "FUNCTION" TEXT NOT NULL DEFAULT '',
  "USE_CASE" TEXT NOT NULL DEFAULT '',
  fit_key TEXT NOT NULL DEFAULT '',
  apc_fit_score INTEGER,
  notes TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'PENDING',
  error_message TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	index := fmt.Sprintf(`
CREATE UNIQUE INDEX IF NOT EXISTS ux_references_source_key
ON %s (brand, season, item, source_url)`, s.table)
	if _, err := s.pool.Exec(ctx, index); err != nil {
		return fmt.Errorf("create unique index: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Enqueue inserts new PENDING rows, counting unique-index hits as duplicates.
func (s *Store) Enqueue(ctx context.Context, rows []refs.NewRef) (int, int, error) {
	query := fmt.Sprintf(`
INSERT INTO %s (id, brand, season, item, source_url, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, 'PENDING', $6, $7)`, s.table)

	inserted, duplicated := 0, 0
	for _, row := range rows {
		id, err := s.idGen.NewID(row.Brand, row.Season, row.Item)
		if err != nil {
			return inserted, duplicated, fmt.Errorf("generate row id: %w", err)
		}
		ts := sqlutil.FormatTime(s.clock.Now())
		_, err = s.pool.Exec(ctx, query, id, row.Brand, row.Season, row.Item, row.SourceURL, ts, ts)
		if err != nil {
			if isUniqueViolation(err) {
				duplicated++
				continue
			}
			return inserted, duplicated, fmt.Errorf("insert reference: %w", err)
		}
		inserted++
	}
	return inserted, duplicated, nil
}

func quotedColumns() string {
	cols := make([]string, len(refs.ExportColumns))
	for i, c := range refs.ExportColumns {
		if c == strings.ToUpper(c) && c != "id" {
			cols[i] = `"` + c + `"`
		} else {
			cols[i] = c
		}
	}
	return strings.Join(cols, ", ")
}

// List returns rows matching the filter, newest update first.
func (s *Store) List(ctx context.Context, filter refs.Filter) ([]refs.Reference, error) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if v := strings.TrimSpace(filter.Brand); v != "" {
		conds = append(conds, "brand ILIKE "+arg("%"+v+"%"))
	}
	if v := strings.TrimSpace(filter.Season); v != "" {
		conds = append(conds, "season ILIKE "+arg("%"+v+"%"))
	}
	if v := strings.TrimSpace(filter.Item); v != "" {
		conds = append(conds, "item ILIKE "+arg("%"+v+"%"))
	}
	if filter.Status != "" && filter.Status != "ALL" {
		conds = append(conds, "status = "+arg(filter.Status))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 5000
	}

	query := fmt.Sprintf(`
SELECT %s FROM %s %s ORDER BY updated_at DESC LIMIT %s`,
		quotedColumns(), s.table, where, arg(limit))
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query references: %w", err)
	}
	defer rows.Close()

	var out []refs.Reference
	for rows.Next() {
		var (
			ref       refs.Reference
			score     *int
			createdAt string
			updatedAt string
		)
		err := rows.Scan(
			&ref.ID, &ref.Brand, &ref.Season, &ref.Item, &ref.SourceURL,
			&ref.PageTitle, &ref.ImagePath, &ref.CapturedAt,
			&ref.Silhouette, &ref.Color, &ref.Detail, &ref.Material,
			&ref.Mood, &ref.Function, &ref.UseCase,
			&ref.FitKey, &score, &ref.Notes,
			(*string)(&ref.Status), &ref.ErrorMessage, &createdAt, &updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		ref.APCFitScore = score
		ref.CreatedAt = sqlutil.ParseTime(createdAt)
		ref.UpdatedAt = sqlutil.ParseTime(updatedAt)
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate references: %w", err)
	}
	return out, nil
}

// ListPending returns up to limit PENDING rows, oldest first.
func (s *Store) ListPending(ctx context.Context, limit int) ([]refs.PendingRef, error) {
	query := fmt.Sprintf(`
SELECT id, brand, season, item, source_url
FROM %s WHERE status = 'PENDING'
ORDER BY created_at ASC LIMIT $1`, s.table)
	return s.queryPending(ctx, query, limit)
}

// ListFailed returns up to limit FAILED rows, most recently updated first.
func (s *Store) ListFailed(ctx context.Context, limit int) ([]refs.PendingRef, error) {
	query := fmt.Sprintf(`
SELECT id, brand, season, item, source_url
FROM %s WHERE status = 'FAILED'
ORDER BY updated_at DESC LIMIT $1`, s.table)
	return s.queryPending(ctx, query, limit)
}

func (s *Store) queryPending(ctx context.Context, query string, limit int) ([]refs.PendingRef, error) {
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var out []refs.PendingRef
	for rows.Next() {
		var r refs.PendingRef
		if err := rows.Scan(&r.ID, &r.Brand, &r.Season, &r.Item, &r.SourceURL); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// MarkProcessing flips the named rows to PROCESSING in one statement.
func (s *Store) MarkProcessing(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
UPDATE %s SET status='PROCESSING', updated_at=$1 WHERE id = ANY($2)`, s.table)
	if _, err := s.pool.Exec(ctx, query, sqlutil.FormatTime(s.clock.Now()), ids); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	return nil
}

// ApplyCaptureResult writes the worker's outcome back onto a claimed row.
func (s *Store) ApplyCaptureResult(ctx context.Context, id string, result refs.CaptureResult) error {
	status := result.Status
	if status == "" {
		status = refs.StatusFailed
	}
	query := fmt.Sprintf(`
UPDATE %s
SET image_path=$1, captured_at=$2, page_title=$3, status=$4, error_message=$5, updated_at=$6
WHERE id=$7`, s.table)
	_, err := s.pool.Exec(ctx, query,
		result.ImagePath, result.CapturedAt, result.PageTitle,
		string(status), result.ErrorMessage,
		sqlutil.FormatTime(s.clock.Now()), id)
	if err != nil {
		return fmt.Errorf("apply capture result: %w", err)
	}
	return nil
}

// ResetToPending requeues failed rows, clearing their error text.
func (s *Store) ResetToPending(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`
UPDATE %s SET status='PENDING', error_message='', updated_at=$1 WHERE id = ANY($2)`, s.table)
	tag, err := s.pool.Exec(ctx, query, sqlutil.FormatTime(s.clock.Now()), ids)
	if err != nil {
		return 0, fmt.Errorf("reset to pending: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// UpdateTags applies human edits row by row. Rows without an ID are skipped.
func (s *Store) UpdateTags(ctx context.Context, updates []refs.TagUpdate) (int, error) {
	query := fmt.Sprintf(`
UPDATE %s
SET "SILHOUETTE"=$1, "COLOR"=$2, "DETAIL"=$3, "MATERIAL"=$4, "MOOD"=$5,
    "FUNCTION"=$6, "USE_CASE"=$7, fit_key=$8, apc_fit_score=$9, notes=$10,
    status=$11, updated_at=$12
WHERE id=$13`, s.table)

	updated := 0
	for _, row := range updates {
		if row.ID == "" {
			continue
		}
		status := row.Status
		if status == "" {
			status = string(refs.StatusSuccess)
		}
		_, err := s.pool.Exec(ctx, query,
			row.Silhouette, row.Color, row.Detail, row.Material, row.Mood,
			row.Function, row.UseCase, row.FitKey,
			sqlutil.ScoreOrNull(row.APCFitScore), row.Notes, status,
			sqlutil.FormatTime(s.clock.Now()), row.ID)
		if err != nil {
			return updated, fmt.Errorf("update tags for %s: %w", row.ID, err)
		}
		updated++
	}
	return updated, nil
}

// SaveUploadedAsset indexes a locally uploaded file as an already-captured row.
func (s *Store) SaveUploadedAsset(ctx context.Context, ref refs.NewRef, imagePath string) (string, error) {
	id, err := s.idGen.NewID(ref.Brand, ref.Season, ref.Item)
	if err != nil {
		return "", fmt.Errorf("generate row id: %w", err)
	}
	ts := sqlutil.FormatTime(s.clock.Now())
	query := fmt.Sprintf(`
INSERT INTO %s (id, brand, season, item, source_url, image_path, captured_at, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, 'SUCCESS', $8, $9)
ON CONFLICT (brand, season, item, source_url) DO NOTHING`, s.table)
	_, err = s.pool.Exec(ctx, query,
		id, ref.Brand, ref.Season, ref.Item, ref.SourceURL, imagePath, ts, ts, ts)
	if err != nil {
		return "", fmt.Errorf("insert uploaded asset: %w", err)
	}
	return id, nil
}

// Stats counts rows per status.
func (s *Store) Stats(ctx context.Context) (refs.Stats, error) {
	query := fmt.Sprintf(`SELECT status, COUNT(1) FROM %s GROUP BY status`, s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return refs.Stats{}, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var stats refs.Stats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return refs.Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		switch refs.Status(status) {
		case refs.StatusPending:
			stats.Pending = count
		case refs.StatusProcessing:
			stats.Processing = count
		case refs.StatusSuccess:
			stats.Success = count
		case refs.StatusFailed:
			stats.Failed = count
		}
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return refs.Stats{}, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
