// Package memory provides an in-process reference store for tests and
// ephemeral runs. Rows live in a map guarded by a mutex.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/apc-golf/refhub/internal/refs"
)

// Store implements refs.Store over an in-memory map.
type Store struct {
	mu    sync.RWMutex
	rows  map[string]refs.Reference
	order []string // insertion order, for stable pending listings
	clock refs.Clock
	idGen refs.IDGenerator
}

// New creates an empty in-memory store.
func New(clock refs.Clock, idGen refs.IDGenerator) *Store {
	return &Store{
		rows:  make(map[string]refs.Reference),
		clock: clock,
		idGen: idGen,
	}
}

// Init is a no-op for the in-memory store.
func (s *Store) Init(ctx context.Context) error { return nil }

func (s *Store) sourceKey(brand, season, item, url string) string {
	return strings.Join([]string{brand, season, item, url}, "\x00")
}

// Enqueue inserts new PENDING rows, counting collection+URL duplicates.
func (s *Store) Enqueue(ctx context.Context, newRows []refs.NewRef) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(s.rows))
	for _, r := range s.rows {
		seen[s.sourceKey(r.Brand, r.Season, r.Item, r.SourceURL)] = true
	}

	inserted, duplicated := 0, 0
	for _, row := range newRows {
		key := s.sourceKey(row.Brand, row.Season, row.Item, row.SourceURL)
		if seen[key] {
			duplicated++
			continue
		}
		id, err := s.idGen.NewID(row.Brand, row.Season, row.Item)
		if err != nil {
			return inserted, duplicated, err
		}
		now := s.clock.Now()
		s.rows[id] = refs.Reference{
			ID:        id,
			Brand:     row.Brand,
			Season:    row.Season,
			Item:      row.Item,
			SourceURL: row.SourceURL,
			Status:    refs.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.order = append(s.order, id)
		seen[key] = true
		inserted++
	}
	return inserted, duplicated, nil
}

// List returns rows matching the filter, newest update first.
func (s *Store) List(ctx context.Context, filter refs.Filter) ([]refs.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []refs.Reference
	for _, r := range s.rows {
		if !matches(r, filter) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	limit := filter.Limit
	if limit <= 0 {
		limit = 5000
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matches(r refs.Reference, f refs.Filter) bool {
	if v := strings.TrimSpace(f.Brand); v != "" && !containsFold(r.Brand, v) {
		return false
	}
	if v := strings.TrimSpace(f.Season); v != "" && !containsFold(r.Season, v) {
		return false
	}
	if v := strings.TrimSpace(f.Item); v != "" && !containsFold(r.Item, v) {
		return false
	}
	if f.Status != "" && f.Status != "ALL" && string(r.Status) != f.Status {
		return false
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// ListPending returns up to limit PENDING rows in insertion order.
func (s *Store) ListPending(ctx context.Context, limit int) ([]refs.PendingRef, error) {
	return s.listByStatus(refs.StatusPending, limit)
}

// ListFailed returns up to limit FAILED rows in insertion order.
func (s *Store) ListFailed(ctx context.Context, limit int) ([]refs.PendingRef, error) {
	return s.listByStatus(refs.StatusFailed, limit)
}

func (s *Store) listByStatus(status refs.Status, limit int) ([]refs.PendingRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []refs.PendingRef
	for _, id := range s.order {
		r, ok := s.rows[id]
		if !ok || r.Status != status {
			continue
		}
		out = append(out, refs.PendingRef{
			ID:        r.ID,
			Brand:     r.Brand,
			Season:    r.Season,
			Item:      r.Item,
			SourceURL: r.SourceURL,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// MarkProcessing flips the named rows to PROCESSING.
func (s *Store) MarkProcessing(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	for _, id := range ids {
		if r, ok := s.rows[id]; ok {
			r.Status = refs.StatusProcessing
			r.UpdatedAt = now
			s.rows[id] = r
		}
	}
	return nil
}

// ApplyCaptureResult writes the worker's outcome back onto a claimed row.
func (s *Store) ApplyCaptureResult(ctx context.Context, id string, result refs.CaptureResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil
	}
	status := result.Status
	if status == "" {
		status = refs.StatusFailed
	}
	r.ImagePath = result.ImagePath
	r.CapturedAt = result.CapturedAt
	r.PageTitle = result.PageTitle
	r.Status = status
	r.ErrorMessage = result.ErrorMessage
	r.UpdatedAt = s.clock.Now()
	s.rows[id] = r
	return nil
}

// ResetToPending requeues rows, clearing error text.
func (s *Store) ResetToPending(ctx context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	n := 0
	for _, id := range ids {
		r, ok := s.rows[id]
		if !ok {
			continue
		}
		r.Status = refs.StatusPending
		r.ErrorMessage = ""
		r.UpdatedAt = now
		s.rows[id] = r
		n++
	}
	return n, nil
}

// UpdateTags applies per-row edits, skipping rows without an ID.
func (s *Store) UpdateTags(ctx context.Context, updates []refs.TagUpdate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	updated := 0
	for _, u := range updates {
		if u.ID == "" {
			continue
		}
		r, ok := s.rows[u.ID]
		if !ok {
			continue
		}
		r.Silhouette = u.Silhouette
		r.Color = u.Color
		r.Detail = u.Detail
		r.Material = u.Material
		r.Mood = u.Mood
		r.Function = u.Function
		r.UseCase = u.UseCase
		r.FitKey = u.FitKey
		r.Notes = u.Notes
		if v, err := strconv.Atoi(strings.TrimSpace(u.APCFitScore)); err == nil {
			r.APCFitScore = &v
		} else {
			r.APCFitScore = nil
		}
		if u.Status == "" {
			r.Status = refs.StatusSuccess
		} else {
			r.Status = refs.Status(u.Status)
		}
		r.UpdatedAt = now
		s.rows[u.ID] = r
		updated++
	}
	return updated, nil
}

// SaveUploadedAsset indexes an uploaded file as an already-captured row.
func (s *Store) SaveUploadedAsset(ctx context.Context, ref refs.NewRef, imagePath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if s.sourceKey(r.Brand, r.Season, r.Item, r.SourceURL) ==
			s.sourceKey(ref.Brand, ref.Season, ref.Item, ref.SourceURL) {
			return r.ID, nil
		}
	}
	id, err := s.idGen.NewID(ref.Brand, ref.Season, ref.Item)
	if err != nil {
		return "", err
	}
	now := s.clock.Now()
	s.rows[id] = refs.Reference{
		ID:         id,
		Brand:      ref.Brand,
		Season:     ref.Season,
		Item:       ref.Item,
		SourceURL:  ref.SourceURL,
		ImagePath:  imagePath,
		CapturedAt: now.Format("2006-01-02T15:04:05"),
		Status:     refs.StatusSuccess,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.order = append(s.order, id)
	return id, nil
}

// Stats counts rows per status.
func (s *Store) Stats(ctx context.Context) (refs.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats refs.Stats
	for _, r := range s.rows {
		switch r.Status {
		case refs.StatusPending:
			stats.Pending++
		case refs.StatusProcessing:
			stats.Processing++
		case refs.StatusSuccess:
			stats.Success++
		case refs.StatusFailed:
			stats.Failed++
		}
		stats.Total++
	}
	return stats, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }
