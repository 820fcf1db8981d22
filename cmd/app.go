package cmd

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/apc-golf/refhub/internal/blob/gcs"
	bloblocal "github.com/apc-golf/refhub/internal/blob/local"
	blobmem "github.com/apc-golf/refhub/internal/blob/memory"
	"github.com/apc-golf/refhub/internal/capture"
	"github.com/apc-golf/refhub/internal/clock/system"
	"github.com/apc-golf/refhub/internal/config"
	"github.com/apc-golf/refhub/internal/id/refid"
	"github.com/apc-golf/refhub/internal/logging"
	pubmem "github.com/apc-golf/refhub/internal/publisher/memory"
	pubgcp "github.com/apc-golf/refhub/internal/publisher/pubsub"
	"github.com/apc-golf/refhub/internal/refs"
	storemem "github.com/apc-golf/refhub/internal/store/memory"
	storepg "github.com/apc-golf/refhub/internal/store/postgres"
	storesqlite "github.com/apc-golf/refhub/internal/store/sqlite"
	"github.com/apc-golf/refhub/internal/worker"
)

// app holds the wired service graph shared by the subcommands.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	clock    refs.Clock
	store    refs.Store
	blob     refs.BlobStore
	pub      refs.Publisher
	capturer *capture.Capturer
	prober   *capture.Prober

	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp builds everything except the headless capturer, which only the
// worker path needs.
func newApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	log, err := logging.New("refhub", cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(log)

	a := &app{
		cfg:   cfg,
		log:   log,
		clock: system.New(),
	}
	a.closers = append(a.closers, func() { _ = log.Sync() })

	if err := a.wireStore(ctx); err != nil {
		a.close()
		return nil, err
	}
	if err := a.wireBlob(ctx); err != nil {
		a.close()
		return nil, err
	}
	if err := a.wirePublisher(ctx); err != nil {
		a.close()
		return nil, err
	}
	a.prober = capture.NewProber(capture.ProberConfig{
		UserAgent: cfg.Capture.UserAgent,
		Timeout:   cfg.ProbeTimeout(),
	})
	return a, nil
}

func (a *app) wireStore(ctx context.Context) error {
	idGen := refid.New()
	switch a.cfg.DB.Driver {
	case "sqlite":
		store, err := storesqlite.New(storesqlite.Config{
			Path:  a.cfg.SQLitePath(),
			Table: a.cfg.DB.Table,
		}, a.clock, idGen)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		a.store = store
	case "postgres":
		store, err := storepg.New(ctx, storepg.Config{
			DSN:   a.cfg.DB.DSN,
			Table: a.cfg.DB.Table,
		}, a.clock, idGen)
		if err != nil {
			return fmt.Errorf("open postgres store: %w", err)
		}
		a.store = store
	case "memory":
		a.store = storemem.New(a.clock, idGen)
	default:
		return fmt.Errorf("unknown db.driver %q", a.cfg.DB.Driver)
	}
	a.closers = append(a.closers, func() { _ = a.store.Close() })

	if err := a.store.Init(ctx); err != nil {
		return fmt.Errorf("init store schema: %w", err)
	}
	return nil
}

func (a *app) wireBlob(ctx context.Context) error {
	switch a.cfg.Blob.Provider {
	case "local":
		blob, err := bloblocal.New(bloblocal.Config{BaseDir: a.cfg.OutputRoot()})
		if err != nil {
			return fmt.Errorf("init local blob store: %w", err)
		}
		a.blob = blob
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("create gcs client: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		blob, err := gcs.New(client, gcs.Config{Bucket: a.cfg.Blob.GCSBucket})
		if err != nil {
			return fmt.Errorf("init gcs blob store: %w", err)
		}
		a.blob = blob
	case "memory":
		a.blob = blobmem.NewBlobStore()
	default:
		return fmt.Errorf("unknown blob.provider %q", a.cfg.Blob.Provider)
	}
	return nil
}

func (a *app) wirePublisher(ctx context.Context) error {
	switch a.cfg.Publisher.Provider {
	case "pubsub":
		client, err := pubsub.NewClient(ctx, a.cfg.Publisher.ProjectID)
		if err != nil {
			return fmt.Errorf("create pubsub client: %w", err)
		}
		pub, err := pubgcp.New(client)
		if err != nil {
			return fmt.Errorf("init pubsub publisher: %w", err)
		}
		a.closers = append(a.closers, func() { _ = pub.Close() })
		a.pub = pub
	case "memory":
		a.pub = pubmem.New()
	default:
		return fmt.Errorf("unknown publisher.provider %q", a.cfg.Publisher.Provider)
	}
	return nil
}

// wireCapturer starts the shared headless browser. Call it only from paths
// that actually capture.
func (a *app) wireCapturer() error {
	capturer, err := capture.NewCapturer(capture.Config{
		ViewportWidth:     a.cfg.Capture.Width,
		ViewportHeight:    a.cfg.Capture.Height,
		Quality:           a.cfg.Capture.JPEGQuality,
		UserAgent:         a.cfg.Capture.UserAgent,
		NavigationTimeout: a.cfg.CaptureTimeout(),
	})
	if err != nil {
		return fmt.Errorf("init headless capturer: %w", err)
	}
	a.capturer = capturer
	a.closers = append(a.closers, capturer.Close)
	return nil
}

func (a *app) newWorker() (*worker.Worker, error) {
	return worker.New(worker.Config{
		Retries: a.cfg.Capture.MaxRetries,
		Topic:   a.cfg.Worker.Topic,
	}, worker.Deps{
		Store:     a.store,
		Capturer:  a.capturer,
		Prober:    a.prober,
		Blob:      a.blob,
		Publisher: a.pub,
		Clock:     a.clock,
		Logger:    a.log,
	})
}
