package capture

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// ProberConfig controls the lightweight title prober.
type ProberConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// Prober fetches a page's <title> with a plain HTTP GET. It runs before the
// headless capture so rows get a human-readable label even when rendering
// later fails.
type Prober struct {
	cfg           ProberConfig
	baseCollector *colly.Collector
}

// NewProber builds a Prober.
func NewProber(cfg ProberConfig) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	return &Prober{cfg: cfg, baseCollector: c}
}

// Title returns the trimmed document title for url, or an empty string when
// the page has none.
func (p *Prober) Title(ctx context.Context, url string) (string, error) {
	collector := p.baseCollector.Clone()
	if p.cfg.UserAgent != "" {
		collector.UserAgent = p.cfg.UserAgent
	}
	collector.SetRequestTimeout(p.cfg.Timeout)

	var (
		title    string
		fetchErr error
	)
	collector.OnHTML("title", func(e *colly.HTMLElement) {
		if title == "" {
			title = strings.TrimSpace(e.Text)
		}
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := collector.Visit(url); err != nil && fetchErr == nil {
			fetchErr = err
		}
		collector.Wait()
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return "", fmt.Errorf("title probe canceled: %w", ctx.Err())
	}
	if fetchErr != nil {
		return "", fmt.Errorf("probe %s: %w", url, fetchErr)
	}
	return title, nil
}
