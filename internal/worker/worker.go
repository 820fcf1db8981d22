// Package worker drains the capture queue in batches.
package worker

import (
	"context"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/apc-golf/refhub/internal/capture"
	"github.com/apc-golf/refhub/internal/metrics"
	"github.com/apc-golf/refhub/internal/refs"
	"github.com/apc-golf/refhub/internal/store/sqlutil"
)

// Config controls one worker instance.
type Config struct {
	Retries int    // extra attempts after the first failure
	Topic   string // capture event topic
}

// Deps are the collaborators a Worker drives.
type Deps struct {
	Store     refs.Store
	Capturer  refs.Capturer
	Prober    refs.Prober
	Blob      refs.BlobStore
	Publisher refs.Publisher
	Clock     refs.Clock
	Logger    *zap.Logger
}

// Result summarizes one batch run.
type Result struct {
	Claimed   int `json:"claimed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Worker claims PENDING rows, captures them, and writes the outcome back.
type Worker struct {
	cfg  Config
	deps Deps
}

// New builds a Worker. Prober and Publisher are optional.
func New(cfg Config, deps Deps) (*Worker, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Capturer == nil {
		return nil, fmt.Errorf("capturer is required")
	}
	if deps.Blob == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if deps.Clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Worker{cfg: cfg, deps: deps}, nil
}

// RunBatch claims up to limit PENDING rows and processes them to completion.
// Rows are claimed up front so a second worker never captures the same URL.
func (w *Worker) RunBatch(ctx context.Context, limit int) (Result, error) {
	log := w.deps.Logger

	pending, err := w.deps.Store.ListPending(ctx, limit)
	if err != nil {
		return Result{}, fmt.Errorf("list pending: %w", err)
	}
	if len(pending) == 0 {
		log.Info("queue empty, nothing to capture")
		return Result{}, nil
	}

	ids := make([]string, len(pending))
	for i, row := range pending {
		ids[i] = row.ID
	}
	if err := w.deps.Store.MarkProcessing(ctx, ids); err != nil {
		return Result{}, fmt.Errorf("mark processing: %w", err)
	}
	log.Info("claimed batch", zap.Int("rows", len(pending)))

	result := Result{Claimed: len(pending)}
	seqs := make(map[string]int)
	for _, row := range pending {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("batch canceled: %w", err)
		}
		key := row.Brand + "\x00" + row.Season + "\x00" + row.Item
		seqs[key]++
		outcome := w.captureOne(ctx, row, seqs[key])

		if err := w.deps.Store.ApplyCaptureResult(ctx, row.ID, outcome); err != nil {
			return result, fmt.Errorf("apply result for %s: %w", row.ID, err)
		}
		if outcome.Status == refs.StatusSuccess {
			result.Succeeded++
		} else {
			result.Failed++
		}
		w.publishEvent(ctx, row, outcome)
	}

	w.reportQueueDepth(ctx)
	log.Info("batch finished",
		zap.Int("claimed", result.Claimed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (w *Worker) captureOne(ctx context.Context, row refs.PendingRef, seq int) refs.CaptureResult {
	log := w.deps.Logger.With(zap.String("id", row.ID), zap.String("url", row.SourceURL))
	start := w.deps.Clock.Now()

	title := ""
	if w.deps.Prober != nil {
		t, err := w.deps.Prober.Title(ctx, row.SourceURL)
		if err != nil {
			log.Debug("title probe failed", zap.Error(err))
		} else {
			title = t
		}
	}

	var (
		shot    []byte
		lastErr error
	)
	attempts := w.cfg.Retries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		shot, lastErr = w.deps.Capturer.Capture(ctx, row.SourceURL)
		if lastErr == nil {
			break
		}
		log.Warn("capture attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(lastErr),
		)
		if ctx.Err() != nil {
			break
		}
	}
	duration := w.deps.Clock.Now().Sub(start)
	if duration < 0 {
		duration = 0
	}

	if lastErr != nil {
		metrics.ObserveCapture("FAILED", duration)
		return refs.CaptureResult{
			PageTitle:    title,
			Status:       refs.StatusFailed,
			ErrorMessage: lastErr.Error(),
		}
	}

	at := w.deps.Clock.Now()
	rel := capture.ImagePath(row.Brand, row.Season, row.Item, at, seq)
	if _, err := w.deps.Blob.Put(ctx, rel, "image/jpeg", shot); err != nil {
		metrics.ObserveCapture("FAILED", duration)
		return refs.CaptureResult{
			PageTitle:    title,
			Status:       refs.StatusFailed,
			ErrorMessage: fmt.Sprintf("store image: %v", err),
		}
	}

	metrics.ObserveCapture("SUCCESS", duration)
	log.Info("captured", zap.String("image", rel), zap.Duration("took", duration))
	return refs.CaptureResult{
		ImagePath:  path.Join("output", rel),
		CapturedAt: sqlutil.FormatTime(at),
		PageTitle:  title,
		Status:     refs.StatusSuccess,
	}
}

func (w *Worker) publishEvent(ctx context.Context, row refs.PendingRef, outcome refs.CaptureResult) {
	if w.deps.Publisher == nil {
		return
	}
	event := refs.CaptureEvent{
		ID:        row.ID,
		Brand:     row.Brand,
		Season:    row.Season,
		Item:      row.Item,
		SourceURL: row.SourceURL,
		Status:    outcome.Status,
		ImageURI:  outcome.ImagePath,
		Timestamp: sqlutil.FormatTime(w.deps.Clock.Now()),
	}
	if _, err := w.deps.Publisher.Publish(ctx, w.cfg.Topic, event); err != nil {
		w.deps.Logger.Warn("publish capture event failed",
			zap.String("id", row.ID), zap.Error(err))
	}
}

func (w *Worker) reportQueueDepth(ctx context.Context) {
	stats, err := w.deps.Store.Stats(ctx)
	if err != nil {
		w.deps.Logger.Debug("queue stats failed", zap.Error(err))
		return
	}
	metrics.SetQueueDepth("PENDING", stats.Pending)
	metrics.SetQueueDepth("PROCESSING", stats.Processing)
	metrics.SetQueueDepth("SUCCESS", stats.Success)
	metrics.SetQueueDepth("FAILED", stats.Failed)
}

// Drain runs batches until the queue is empty or ctx is canceled. interval
// spaces batches out so a long queue does not monopolize the browser.
func (w *Worker) Drain(ctx context.Context, batchSize int, interval time.Duration) (Result, error) {
	var total Result
	for {
		res, err := w.RunBatch(ctx, batchSize)
		total.Claimed += res.Claimed
		total.Succeeded += res.Succeeded
		total.Failed += res.Failed
		if err != nil {
			return total, err
		}
		if res.Claimed == 0 {
			return total, nil
		}
		if interval > 0 {
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return total, fmt.Errorf("drain canceled: %w", ctx.Err())
			}
		}
	}
}
