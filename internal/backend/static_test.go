package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"sjsage522/pagescope/config"
	"sjsage522/pagescope/internal/document"
	"sjsage522/pagescope/logger"
	"sjsage522/pagescope/pkg/errors"
	"sjsage522/pagescope/services/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticFetchURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept-Language"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><title>Hi</title></html>"))
	}))
	defer server.Close()

	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewStatic(WithClock(func() time.Time { return fixed }))
	doc, err := s.Acquire(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, server.URL, doc.Source())
	assert.Equal(t, "<html><title>Hi</title></html>", doc.Content())
	assert.Equal(t, "utf-8", doc.Encoding())
	assert.Equal(t, fixed, doc.RetrievedAt())
}

func TestStaticFetchLatin1Redetected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		w.Write([]byte("<p>日本語</p>"))
	}))
	defer server.Close()

	doc, err := NewStatic().Acquire(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "<p>日本語</p>", doc.Content())
	assert.Equal(t, "utf-8", doc.Encoding())
}

func TestStaticFetchLatin1RedetectedPastFirstKilobyte(t *testing.T) {
	head := "<html><head><style>" + strings.Repeat("p { margin: 0; }\n", 100) + "</style></head>"
	body := head + "<body><p>こんにちは</p></body></html>"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		w.Write([]byte(body))
	}))
	defer server.Close()

	doc, err := NewStatic().Acquire(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "utf-8", doc.Encoding())
	assert.Contains(t, doc.Content(), "<p>こんにちは</p>")
}

func TestStaticHTTPStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	doc, err := NewStatic().Acquire(context.Background(), server.URL+"/missing")
	require.Error(t, err)
	assert.Nil(t, doc)

	e, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindHTTPStatus, e.Kind)
	assert.Equal(t, errors.CategoryAcquisition, e.Category)
	assert.Equal(t, http.StatusNotFound, e.StatusCode)
}

func TestStaticTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := NewStatic(WithTimeout(50*time.Millisecond)).Acquire(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, errors.KindTimeout, errors.KindOf(err))
}

func TestStaticTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewStatic().Acquire(context.Background(), url)
	require.Error(t, err)
	assert.Equal(t, errors.KindTransport, errors.KindOf(err))
}

func TestStaticRetry(t *testing.T) {
	tests := []struct {
		name      string
		failures  int32
		status    int
		retries   int
		wantHits  int32
		wantError errors.Kind
	}{
		{"recovers after server errors", 2, http.StatusServiceUnavailable, 2, 3, ""},
		{"gives up when retries run out", 5, http.StatusBadGateway, 2, 3, errors.KindHTTPStatus},
		{"client error is not retried", 5, http.StatusNotFound, 2, 1, errors.KindHTTPStatus},
		{"rate limit is retried", 1, http.StatusTooManyRequests, 1, 2, ""},
		{"no retries by default", 1, http.StatusInternalServerError, 0, 1, errors.KindHTTPStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if hits.Add(1) <= tt.failures {
					w.WriteHeader(tt.status)
					return
				}
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Write([]byte("<p>ok</p>"))
			}))
			defer server.Close()

			s := NewStatic(WithRetry(tt.retries, time.Millisecond))
			doc, err := s.Acquire(context.Background(), server.URL)

			assert.Equal(t, tt.wantHits, hits.Load())
			if tt.wantError == "" {
				require.NoError(t, err)
				assert.Equal(t, "<p>ok</p>", doc.Content())
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantError, errors.KindOf(err))
		})
	}
}

func TestStaticRetryStopsOnCancel(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := NewStatic(WithRetry(5, time.Minute)).Acquire(ctx, server.URL)
	require.Error(t, err)
	assert.Equal(t, errors.KindHTTPStatus, errors.KindOf(err))
	assert.Equal(t, int32(1), hits.Load())
}

func TestStaticCache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<p>cached</p>"))
	}))
	defer server.Close()

	s := NewStatic(WithCache(cache.NewMemoryCache(), time.Minute))
	for i := 0; i < 3; i++ {
		doc, err := s.Acquire(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "<p>cached</p>", doc.Content())
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestStaticCacheSkipsFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	s := NewStatic(WithCache(cache.NewMemoryCache(), time.Minute))
	for i := 0; i < 2; i++ {
		_, err := s.Acquire(context.Background(), server.URL)
		require.Error(t, err)
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestStaticReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.html")
	require.NoError(t, os.WriteFile(path, []byte("\xEF\xBB\xBF<a href=\"/x\">x</a>"), 0644))

	s := NewStatic()
	for _, source := range []string{path, document.FileSource(path)} {
		doc, err := s.Acquire(context.Background(), source)
		require.NoError(t, err)
		assert.Equal(t, document.FileSource(path), doc.Source())
		assert.Equal(t, `<a href="/x">x</a>`, doc.Content())
	}
}

func TestStaticReadFileErrors(t *testing.T) {
	dir := t.TempDir()
	s := NewStatic()

	_, err := s.Acquire(context.Background(), filepath.Join(dir, "absent.html"))
	assert.Equal(t, errors.KindFileNotFound, errors.KindOf(err))

	bad := filepath.Join(dir, "bad.html")
	require.NoError(t, os.WriteFile(bad, []byte{0xff, 0xfe, 0xfd}, 0644))
	_, err = s.Acquire(context.Background(), bad)
	assert.Equal(t, errors.KindDecodeFailure, errors.KindOf(err))

	_, err = s.Acquire(context.Background(), dir)
	assert.Equal(t, errors.KindFileRead, errors.KindOf(err))
}

func TestStaticLifecycleNoops(t *testing.T) {
	s := NewStatic()
	assert.Equal(t, "static", s.Name())
	assert.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()

	b, err := New(cfg, logger.Nop(), nil)
	require.NoError(t, err)
	assert.Equal(t, "static", b.Name())

	cfg.Backend = config.BackendRendered
	b, err = New(cfg, logger.Nop(), nil)
	require.NoError(t, err)
	assert.Equal(t, "rendered", b.Name())
	_, ok := b.(Snapshotter)
	assert.True(t, ok)
	assert.NoError(t, b.Close())

	cfg.Backend = "lynx"
	_, err = New(cfg, logger.Nop(), nil)
	assert.Error(t, err)
}
