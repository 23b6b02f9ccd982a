package backend

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"sjsage522/pagescope/helpers"
	"sjsage522/pagescope/internal/document"
	"sjsage522/pagescope/logger"
	"sjsage522/pagescope/pkg/errors"
	"sjsage522/pagescope/services/cache"
)

const (
	// DefaultTimeout bounds a static HTTP fetch
	DefaultTimeout = 10 * time.Second

	cacheKeyPrefix = "pagescope:static:"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Static fetches documents over plain HTTP or from the local filesystem
type Static struct {
	client         *http.Client
	timeout        time.Duration
	userAgent      string
	acceptLanguage string
	cache          cache.CacheService
	cacheTTL       time.Duration
	retries        int
	retryDelay     time.Duration
	log            *logger.Logger
	now            func() time.Time
}

// StaticOption configures a Static backend
type StaticOption func(*Static)

// WithClient sets the HTTP client
func WithClient(c *http.Client) StaticOption {
	return func(s *Static) { s.client = c }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) StaticOption {
	return func(s *Static) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) StaticOption {
	return func(s *Static) { s.userAgent = ua }
}

// WithAcceptLanguage overrides the Accept-Language header
func WithAcceptLanguage(lang string) StaticOption {
	return func(s *Static) { s.acceptLanguage = lang }
}

// WithCache stores successful HTTP responses in c for ttl
func WithCache(c cache.CacheService, ttl time.Duration) StaticOption {
	return func(s *Static) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithRetry retries a failed request up to retries more times when the
// failure is retryable. The wait grows linearly: delay, 2*delay, ...
func WithRetry(retries int, delay time.Duration) StaticOption {
	return func(s *Static) {
		if retries > 0 {
			s.retries = retries
		}
		if delay > 0 {
			s.retryDelay = delay
		}
	}
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) StaticOption {
	return func(s *Static) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source for RetrievedAt
func WithClock(now func() time.Time) StaticOption {
	return func(s *Static) { s.now = now }
}

// NewStatic creates a Static backend
func NewStatic(opts ...StaticOption) *Static {
	s := &Static{
		client:  &http.Client{},
		timeout: DefaultTimeout,
		log:     logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.ForComponent("static")
	return s
}

// Name returns "static"
func (s *Static) Name() string { return "static" }

// Start is a no-op; the static backend owns no process
func (s *Static) Start(ctx context.Context) error { return nil }

// Close is a no-op
func (s *Static) Close() error { return nil }

// Acquire fetches an http(s) URL or reads a local file
func (s *Static) Acquire(ctx context.Context, source string) (*document.Document, error) {
	if helpers.IsHTTPURL(source) {
		return s.fetchURL(ctx, source)
	}
	return s.readFile(source)
}

type cachedResponse struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

func cacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (s *Static) fetchURL(ctx context.Context, rawURL string) (*document.Document, error) {
	if resp, ok := s.cached(rawURL); ok {
		return s.decode(rawURL, resp.Body, resp.ContentType)
	}

	for attempt := 0; ; attempt++ {
		doc, err := s.fetchOnce(ctx, rawURL)
		if err == nil || attempt >= s.retries || !retryable(err) {
			return doc, err
		}

		wait := s.retryDelay * time.Duration(attempt+1)
		s.log.Warn().
			Err(err).
			Str("target", rawURL).
			Int("attempt", attempt+1).
			Dur("wait", wait).
			Msg("Retrying fetch")
		if !sleepCtx(ctx, wait) {
			return nil, err
		}
	}
}

func retryable(err error) bool {
	e, ok := errors.As(err)
	return ok && e.IsRetryable()
}

// sleepCtx waits for d and reports false if ctx ended first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Static) fetchOnce(ctx context.Context, rawURL string) (*document.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.NewAcquisition(errors.KindTransport, "fetch", rawURL, "failed to create request", err)
	}
	helpers.ApplyHeaders(req, helpers.BrowserHeaders(s.userAgent, s.acceptLanguage))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, s.transportError(ctx, rawURL, "failed to fetch URL", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, errors.NewHTTPStatus("fetch", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, s.transportError(ctx, rawURL, "failed to read response body", err)
	}

	contentType := resp.Header.Get("Content-Type")
	doc, err := s.decode(rawURL, body, contentType)
	if err != nil {
		return nil, err
	}
	s.store(rawURL, cachedResponse{ContentType: contentType, Body: body})
	return doc, nil
}

func (s *Static) decode(rawURL string, body []byte, contentType string) (*document.Document, error) {
	text, enc, err := helpers.DecodeBody(body, contentType)
	if err != nil {
		return nil, errors.NewAcquisition(errors.KindDecodeFailure, "fetch", rawURL, "failed to decode body", err)
	}
	s.log.Debug().
		Str("target", rawURL).
		Str("encoding", enc).
		Int("bytes", len(body)).
		Msg("Decoded response")
	return document.New(rawURL, text, enc, s.now()), nil
}

func (s *Static) transportError(ctx context.Context, rawURL, msg string, err error) error {
	if isTimeout(err) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewAcquisition(errors.KindTimeout, "fetch", rawURL, "request timed out after "+s.timeout.String(), err)
	}
	return errors.NewAcquisition(errors.KindTransport, "fetch", rawURL, msg, err)
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

func (s *Static) cached(rawURL string) (cachedResponse, bool) {
	var resp cachedResponse
	if s.cache == nil {
		return resp, false
	}
	data, err := s.cache.Get(cacheKey(rawURL))
	if err != nil {
		if !stderrors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn().Err(err).Str("target", rawURL).Msg("Cache lookup failed")
		}
		return resp, false
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		s.log.Warn().Err(err).Str("target", rawURL).Msg("Discarding corrupt cache entry")
		return resp, false
	}
	s.log.Debug().Str("target", rawURL).Msg("Serving response from cache")
	return resp, true
}

func (s *Static) store(rawURL string, resp cachedResponse) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.cache.Set(cacheKey(rawURL), data, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Str("target", rawURL).Msg("Cache store failed")
	}
}

// localPath strips a file:// scheme from source
func localPath(source string) string {
	if strings.HasPrefix(strings.ToLower(source), "file://") {
		if u, err := url.Parse(source); err == nil && u.Path != "" {
			return u.Path
		}
		return source[len("file://"):]
	}
	return source
}

func (s *Static) readFile(source string) (*document.Document, error) {
	path := localPath(source)
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewAcquisition(errors.KindFileNotFound, "fetch", path, "file not found", err)
		}
		return nil, errors.NewAcquisition(errors.KindFileRead, "fetch", path, "failed to read file", err)
	}
	if !utf8.Valid(data) {
		return nil, errors.NewAcquisition(errors.KindDecodeFailure, "fetch", path, "file is not valid UTF-8", nil)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	return document.New(document.FileSource(path), string(data), "utf-8", s.now()), nil
}
