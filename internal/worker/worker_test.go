package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	blobmem "github.com/apc-golf/refhub/internal/blob/memory"
	"github.com/apc-golf/refhub/internal/id/refid"
	pubmem "github.com/apc-golf/refhub/internal/publisher/memory"
	"github.com/apc-golf/refhub/internal/refs"
	storemem "github.com/apc-golf/refhub/internal/store/memory"
)

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time { return c.t }

// fakeCapturer fails failures times per URL before succeeding. URLs in
// dead never succeed.
type fakeCapturer struct {
	failures int
	dead     string
	calls    map[string]int
	shot     []byte
}

func (f *fakeCapturer) Capture(_ context.Context, url string) ([]byte, error) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[url]++
	if url == f.dead {
		return nil, errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	if f.calls[url] <= f.failures {
		return nil, errors.New("render timeout")
	}
	return f.shot, nil
}

type fakeProber struct {
	title string
	err   error
}

func (f *fakeProber) Title(context.Context, string) (string, error) {
	return f.title, f.err
}

func newFixture(t *testing.T, cfg Config, cap refs.Capturer) (*Worker, *storemem.Store, *blobmem.BlobStore, *pubmem.Publisher) {
	t.Helper()
	clock := &fixedClock{t: time.Date(2026, 8, 29, 12, 0, 0, 0, time.Local)}
	store := storemem.New(clock, refid.New())
	blob := blobmem.NewBlobStore()
	pub := pubmem.New()
	w, err := New(cfg, Deps{
		Store:     store,
		Capturer:  cap,
		Prober:    &fakeProber{title: "Lookbook"},
		Blob:      blob,
		Publisher: pub,
		Clock:     clock,
		Logger:    zap.NewNop(),
	})
	require.NoError(t, err)
	return w, store, blob, pub
}

func enqueue(t *testing.T, store *storemem.Store, urls ...string) {
	t.Helper()
	rows := make([]refs.NewRef, len(urls))
	for i, u := range urls {
		rows[i] = refs.NewRef{Brand: "A.P.C.", Season: "26SS", Item: "jacket", SourceURL: u}
	}
	_, _, err := store.Enqueue(context.Background(), rows)
	require.NoError(t, err)
}

func TestRunBatchSuccess(t *testing.T) {
	cap := &fakeCapturer{shot: []byte("jpeg-bytes")}
	w, store, blob, pub := newFixture(t, Config{Topic: "reference-captures"}, cap)
	enqueue(t, store, "https://example.com/1", "https://example.com/2")

	res, err := w.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, Result{Claimed: 2, Succeeded: 2, Failed: 0}, res)

	rows, err := store.List(context.Background(), refs.Filter{Status: "SUCCESS"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Contains(t, r.ImagePath, "output/a-p-c/26ss/jacket/")
		assert.Equal(t, "Lookbook", r.PageTitle)
		assert.NotEmpty(t, r.CapturedAt)
	}
	// Two screenshots in blob storage, sequence keeps them distinct.
	assert.Equal(t, 2, blob.Len())
	assert.Len(t, pub.Events("reference-captures"), 2)
	last, ok := pub.Last()
	require.True(t, ok)
	assert.Equal(t, "reference-captures", last.Topic)
	assert.Equal(t, refs.StatusSuccess, last.Event.Status)
}

func TestRunBatchRetriesThenSucceeds(t *testing.T) {
	cap := &fakeCapturer{failures: 2, shot: []byte("jpeg")}
	w, store, _, _ := newFixture(t, Config{Retries: 2}, cap)
	enqueue(t, store, "https://example.com/slow")

	res, err := w.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 3, cap.calls["https://example.com/slow"])
}

func TestRunBatchExhaustedRetriesMarksFailed(t *testing.T) {
	cap := &fakeCapturer{failures: 100}
	w, store, _, pub := newFixture(t, Config{Retries: 1}, cap)
	enqueue(t, store, "https://example.com/broken")

	res, err := w.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, Result{Claimed: 1, Succeeded: 0, Failed: 1}, res)
	assert.Equal(t, 2, cap.calls["https://example.com/broken"])

	failed, err := store.ListFailed(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)

	rows, err := store.List(context.Background(), refs.Filter{Status: "FAILED"})
	require.NoError(t, err)
	assert.Equal(t, "render timeout", rows[0].ErrorMessage)

	// Failures publish too, so downstream consumers see the terminal state.
	events := pub.Events("")
	require.Len(t, events, 1)
	assert.Equal(t, refs.StatusFailed, events[0].Status)
	assert.Equal(t, "https://example.com/broken", events[0].SourceURL)
}

func TestRunBatchEmptyQueue(t *testing.T) {
	w, _, _, pub := newFixture(t, Config{}, &fakeCapturer{shot: []byte("x")})
	res, err := w.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Empty(t, pub.Events(""))
}

func TestRunBatchPublishFailureKeepsCapture(t *testing.T) {
	cap := &fakeCapturer{shot: []byte("jpeg")}
	w, store, _, pub := newFixture(t, Config{Topic: "reference-captures"}, cap)
	pub.FailWith(errors.New("broker down"))
	enqueue(t, store, "https://example.com/1")

	res, err := w.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, Result{Claimed: 1, Succeeded: 1}, res)

	// The row is the source of truth; a lost event never fails the capture.
	rows, err := store.List(context.Background(), refs.Filter{Status: "SUCCESS"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, pub.Events(""))
}

func TestRunBatchRowFailureIsIsolated(t *testing.T) {
	// Three URLs in the same collection; the middle one never resolves.
	cap := &fakeCapturer{shot: []byte("jpeg"), dead: "https://example.com/2"}
	w, store, _, _ := newFixture(t, Config{Retries: 1}, cap)
	enqueue(t, store, "https://example.com/1", "https://example.com/2", "https://example.com/3")

	res, err := w.RunBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, Result{Claimed: 3, Succeeded: 2, Failed: 1}, res)

	rows, err := store.List(context.Background(), refs.Filter{Status: "FAILED"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "https://example.com/2", rows[0].SourceURL)
	assert.Contains(t, rows[0].ErrorMessage, "ERR_NAME_NOT_RESOLVED")
}

func TestRunBatchRespectsLimit(t *testing.T) {
	cap := &fakeCapturer{shot: []byte("jpeg")}
	w, store, _, _ := newFixture(t, Config{}, cap)
	enqueue(t, store, "https://example.com/1", "https://example.com/2", "https://example.com/3")

	res, err := w.RunBatch(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Claimed)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 2, stats.Success)
}

func TestDrainRunsUntilEmpty(t *testing.T) {
	cap := &fakeCapturer{shot: []byte("jpeg")}
	w, store, _, _ := newFixture(t, Config{}, cap)
	enqueue(t, store, "https://example.com/1", "https://example.com/2", "https://example.com/3")

	total, err := w.Drain(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total.Claimed)
	assert.Equal(t, 3, total.Succeeded)
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(Config{}, Deps{
		Capturer: &fakeCapturer{},
		Blob:     blobmem.NewBlobStore(),
		Clock:    &fixedClock{t: time.Now()},
	})
	assert.Error(t, err)
}
