// Package sqlite provides the file-backed reference store used by the hub.
// The serve and work processes share one database file, so the connection
// enables WAL and a busy timeout instead of relying on external locking.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/apc-golf/refhub/internal/refs"
	"github.com/apc-golf/refhub/internal/store/sqlutil"
)

// Config controls the sqlite-backed store.
type Config struct {
	Path  string
	Table string
}

// Store implements refs.Store over a local sqlite file.
type Store struct {
	db    *sql.DB
	table string
	clock refs.Clock
	idGen refs.IDGenerator
}

// New opens (creating if needed) the database file and returns a Store.
func New(cfg Config, clock refs.Clock, idGen refs.IDGenerator) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	table := cfg.Table
	if table == "" {
		table = "reference_items"
	}
	if !sqlutil.ValidTableName(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer keeps WAL contention predictable between serve and work.
	db.SetMaxOpenConns(1)

	return &Store{
		db:    db,
		table: table,
		clock: clock,
		idGen: idGen,
	}, nil
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
  SILHOUETTE TEXT NOT NULL DEFAULT '',
  COLOR TEXT NOT NULL DEFAULT '',
  DETAIL TEXT NOT NULL DEFAULT '',
  MATERIAL TEXT NOT NULL DEFAULT '',
  MOOD TEXT NOT NULL DEFAULT '',
  FUNCTION TEXT NOT NULL DEFAULT '',
  USE_CASE TEXT NOT NULL DEFAULT '',
  fit_key TEXT NOT NULL DEFAULT '',
  apc_fit_score INTEGER,
  notes TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'PENDING',
  error_message TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
)`, s.table)
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	index := fmt.Sprintf(`
CREATE UNIQUE INDEX IF NOT EXISTS ux_references_source_key
ON %s (brand, season, item, source_url)`, s.table)
	if _, err := s.db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("create unique index: %w", err)
	}
	return nil
}

// Enqueue inserts new PENDING rows. Rows hitting the (brand, season, item,
// source_url) unique index are counted as duplicates, not failures.
func (s *Store) Enqueue(ctx context.Context, rows []refs.NewRef) (int, int, error) {
	inserted, duplicated := 0, 0
	query := fmt.Sprintf(`
INSERT INTO %s (id, brand, season, item, source_url, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, 'PENDING', ?, ?)`, s.table)

	for _, row := range rows {
		id, err := s.idGen.NewID(row.Brand, row.Season, row.Item)
		if err != nil {
			return inserted, duplicated, fmt.Errorf("generate row id: %w", err)
		}
		ts := sqlutil.FormatTime(s.clock.Now())
		_, err = s.db.ExecContext(ctx, query, id, row.Brand, row.Season, row.Item, row.SourceURL, ts, ts)
		if err != nil {
			if sqlutil.IsUniqueViolation(err) {
				duplicated++
				continue
			}
			return inserted, duplicated, fmt.Errorf("insert reference: %w", err)
		}
		inserted++
	}
	return inserted, duplicated, nil
}

// List returns rows matching the filter, newest update first.
func (s *Store) List(ctx context.Context, filter refs.Filter) ([]refs.Reference, error) {
	var conds []string
	var args []any
	if v := strings.TrimSpace(filter.Brand); v != "" {
		conds = append(conds, "brand LIKE ?")
		args = append(args, "%"+v+"%")
	}
	if v := strings.TrimSpace(filter.Season); v != "" {
		conds = append(conds, "season LIKE ?")
		args = append(args, "%"+v+"%")
	}
	if v := strings.TrimSpace(filter.Item); v != "" {
		conds = append(conds, "item LIKE ?")
		args = append(args, "%"+v+"%")
	}
	if filter.Status != "" && filter.Status != "ALL" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 5000
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
SELECT %s FROM %s %s ORDER BY updated_at DESC LIMIT ?`,
		strings.Join(refs.ExportColumns, ", "), s.table, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query references: %w", err)
	}
	defer rows.Close()

	var out []refs.Reference
	for rows.Next() {
		ref, err := scanReference(rows)
		if err != nil {
			return nil, err
		}
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
FROM %s
WHERE status = 'PENDING'
ORDER BY created_at ASC
LIMIT ?`, s.table)
	return s.queryPending(ctx, query, limit)
}

// ListFailed returns up to limit FAILED rows, most recently updated first.
func (s *Store) ListFailed(ctx context.Context, limit int) ([]refs.PendingRef, error) {
	query := fmt.Sprintf(`
SELECT id, brand, season, item, source_url
FROM %s
WHERE status = 'FAILED'
ORDER BY updated_at DESC
LIMIT ?`, s.table)
	return s.queryPending(ctx, query, limit)
}

func (s *Store) queryPending(ctx context.Context, query string, limit int) ([]refs.PendingRef, error) {
	rows, err := s.db.QueryContext(ctx, query, limit)
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
UPDATE %s SET status='PROCESSING', updated_at=? WHERE id IN (%s)`,
		s.table, sqlutil.Placeholders(len(ids)))
	args := make([]any, 0, len(ids)+1)
	args = append(args, sqlutil.FormatTime(s.clock.Now()))
	for _, id := range ids {
		args = append(args, id)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
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
SET image_path = ?,
    captured_at = ?,
    page_title = ?,
    status = ?,
    error_message = ?,
    updated_at = ?
WHERE id = ?`, s.table)
	_, err := s.db.ExecContext(ctx, query,
		result.ImagePath,
		result.CapturedAt,
		result.PageTitle,
		string(status),
		result.ErrorMessage,
		sqlutil.FormatTime(s.clock.Now()),
		id,
	)
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
UPDATE %s SET status='PENDING', error_message='', updated_at=? WHERE id IN (%s)`,
		s.table, sqlutil.Placeholders(len(ids)))
	args := make([]any, 0, len(ids)+1)
	args = append(args, sqlutil.FormatTime(s.clock.Now()))
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset to pending: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// UpdateTags applies human edits row by row. Rows without an ID are skipped.
func (s *Store) UpdateTags(ctx context.Context, updates []refs.TagUpdate) (int, error) {
	query := fmt.Sprintf(`
UPDATE %s
SET SILHOUETTE=?, COLOR=?, DETAIL=?, MATERIAL=?, MOOD=?, FUNCTION=?, USE_CASE=?,
    fit_key=?, apc_fit_score=?, notes=?, status=?, updated_at=?
WHERE id=?`, s.table)

	updated := 0
	for _, row := range updates {
		if row.ID == "" {
			continue
		}
		status := row.Status
		if status == "" {
			status = string(refs.StatusSuccess)
		}
		_, err := s.db.ExecContext(ctx, query,
			row.Silhouette, row.Color, row.Detail, row.Material, row.Mood, row.Function, row.UseCase,
			row.FitKey, sqlutil.ScoreOrNull(row.APCFitScore), row.Notes, status,
			sqlutil.FormatTime(s.clock.Now()), row.ID,
		)
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
INSERT OR IGNORE INTO %s (
  id, brand, season, item, source_url, image_path, captured_at,
  status, created_at, updated_at
)
VALUES (?, ?, ?, ?, ?, ?, ?, 'SUCCESS', ?, ?)`, s.table)
	_, err = s.db.ExecContext(ctx, query,
		id, ref.Brand, ref.Season, ref.Item, ref.SourceURL, imagePath, ts, ts, ts)
	if err != nil {
		return "", fmt.Errorf("insert uploaded asset: %w", err)
	}
	return id, nil
}

// Stats counts rows per status.
func (s *Store) Stats(ctx context.Context) (refs.Stats, error) {
	query := fmt.Sprintf(`SELECT status, COUNT(1) FROM %s GROUP BY status`, s.table)
	rows, err := s.db.QueryContext(ctx, query)
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

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite database: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReference(row rowScanner) (refs.Reference, error) {
	var (
		ref       refs.Reference
		score     sql.NullInt64
		createdAt string
		updatedAt string
	)
	err := row.Scan(
		&ref.ID, &ref.Brand, &ref.Season, &ref.Item, &ref.SourceURL,
		&ref.PageTitle, &ref.ImagePath, &ref.CapturedAt,
		&ref.Silhouette, &ref.Color, &ref.Detail, &ref.Material,
		&ref.Mood, &ref.Function, &ref.UseCase,
		&ref.FitKey, &score, &ref.Notes,
		(*string)(&ref.Status), &ref.ErrorMessage, &createdAt, &updatedAt,
	)
	if err != nil {
		return refs.Reference{}, fmt.Errorf("scan reference: %w", err)
	}
	if score.Valid {
		v := int(score.Int64)
		ref.APCFitScore = &v
	}
	ref.CreatedAt = sqlutil.ParseTime(createdAt)
	ref.UpdatedAt = sqlutil.ParseTime(updatedAt)
	return ref, nil
}
