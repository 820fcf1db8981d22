package capture

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProberTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>  A.P.C. SS26 Lookbook  </title></head><body></body></html>`))
	}))
	defer srv.Close()

	p := NewProber(ProberConfig{Timeout: 5 * time.Second})
	title, err := p.Title(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "A.P.C. SS26 Lookbook", title)
}

func TestProberNoTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><p>untitled</p></body></html>`))
	}))
	defer srv.Close()

	p := NewProber(ProberConfig{})
	title, err := p.Title(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Empty(t, title)
}

func TestProberServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewProber(ProberConfig{})
	_, err := p.Title(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestNewCapturerRejectsNegativeParallel(t *testing.T) {
	_, err := NewCapturer(Config{MaxParallel: -1})
	assert.Error(t, err)
}
