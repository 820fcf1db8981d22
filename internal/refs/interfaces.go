package refs

import (
	"context"
	"time"
)

// Store persists reference rows and drives the status-flag queue.
type Store interface {
	Init(ctx context.Context) error
	Enqueue(ctx context.Context, rows []NewRef) (inserted, duplicated int, err error)
	List(ctx context.Context, filter Filter) ([]Reference, error)
	ListPending(ctx context.Context, limit int) ([]PendingRef, error)
	ListFailed(ctx context.Context, limit int) ([]PendingRef, error)
	MarkProcessing(ctx context.Context, ids []string) error
	ApplyCaptureResult(ctx context.Context, id string, result CaptureResult) error
	ResetToPending(ctx context.Context, ids []string) (int, error)
	UpdateTags(ctx context.Context, rows []TagUpdate) (int, error)
	SaveUploadedAsset(ctx context.Context, ref NewRef, imagePath string) (string, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	Put(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes capture events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Capturer renders a URL in a headless browser and returns screenshot bytes.
type Capturer interface {
	Capture(ctx context.Context, url string) ([]byte, error)
}

// Prober fetches lightweight page metadata without a browser.
type Prober interface {
	Title(ctx context.Context, url string) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces reference row IDs.
type IDGenerator interface {
	NewID(brand, season, item string) (string, error)
}
