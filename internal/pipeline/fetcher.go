package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ppiankov/wikicite/internal/cache"
	"github.com/ppiankov/wikicite/internal/logging"
	"github.com/ppiankov/wikicite/internal/model"
	"github.com/ppiankov/wikicite/internal/util"
	"github.com/ppiankov/wikicite/internal/worker"
)

// Source fetch errors
var (
	ErrRobotsDisallowed   = errors.New("disallowed by robots.txt")
	ErrSourceAccessDenied = errors.New("access denied by source")
	ErrSourceNotFound     = errors.New("source page not found")
	ErrSourceUnavailable  = errors.New("source temporarily unavailable")
)

// fetchSleepFunc waits out a retry backoff; swapped out in tests
var fetchSleepFunc = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

const (
	defaultFetchAttempts = 3
	defaultMaxBodyBytes  = 5_000_000
)

// StatusError reports a non-2xx response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Fetcher fetches cited source pages
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	attempts   int
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	cache      cache.Cache
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, insecureTLS bool, httpProxy, httpsProxy, noProxy string) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}
	return &Fetcher{
		httpClient: util.NewHTTPClient(util.ClientOptions{
			Timeout:     timeout,
			InsecureTLS: insecureTLS,
			HTTPProxy:   httpProxy,
			HTTPSProxy:  httpsProxy,
			NoProxy:     noProxy,
		}),
		userAgent: userAgent,
		maxBytes:  maxBytes,
		attempts:  defaultFetchAttempts,
		logger:    logging.Discard(),
	}
}

// NewFetcherFromConfig wires a Fetcher with robots checks, rate limiting and
// caching as configured
func NewFetcherFromConfig(cfg *model.Config, logger *slog.Logger) *Fetcher {
	f := NewFetcher(cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes,
		cfg.HTTP.InsecureTLS, cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)
	if cfg.HTTP.MaxRetries > 0 {
		f.attempts = cfg.HTTP.MaxRetries
	}
	if cfg.HTTP.RespectRobots {
		f.WithRobots(util.NewRobotsChecker(f.httpClient, cfg.HTTP.UserAgent))
	}
	if cfg.RateLimiting.RequestsPerSecond > 0 {
		f.WithLimiter(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.Burst))
	}
	if cfg.Cache.Enabled {
		f.WithCache(cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL), cfg.Cache.DiskTTL)
	}
	if logger != nil {
		f.logger = logger
	}
	return f
}

// WithRobots enables robots.txt checks before each source fetch
func (f *Fetcher) WithRobots(r *util.RobotsChecker) *Fetcher {
	f.robots = r
	return f
}

// WithLimiter throttles source fetches per host
func (f *Fetcher) WithLimiter(l *worker.Limiter) *Fetcher {
	f.limiter = l
	return f
}

// WithCache stores extracted source content under its URL
func (f *Fetcher) WithCache(c cache.Cache, ttl time.Duration) *Fetcher {
	f.cache = c
	f.cacheTTL = ttl
	return f
}

// HTTPClient returns the client the fetcher uses, so other collaborators can
// share its transport settings
func (f *Fetcher) HTTPClient() *http.Client {
	return f.httpClient
}

// FetchResult contains the fetched HTML and metadata
type FetchResult struct {
	HTML        string
	ContentType string
	FinalURL    string
}

// Fetch retrieves HTML content from the given URL in a single attempt
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		HTML:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// FetchWithRetry retries transient failures (429, 5xx, connection errors)
// with exponential backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt < f.attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			f.logger.Debug("retrying fetch", "url", rawURL, "attempt", attempt+1, "backoff", backoff, "error", lastErr)
			if err := fetchSleepFunc(ctx, backoff); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", f.attempts, lastErr)
}

// isRetryableFetchError reports whether a fetch error is worth another attempt:
// 429 and 5xx responses, and transport failures other than cancellation.
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Op != "parse"
}

// FetchSource downloads a cited page and extracts its readable text
func (f *Fetcher) FetchSource(ctx context.Context, rawURL string) (*model.SourceContent, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid source URL %q", rawURL)
	}

	key := cache.CacheKey(cache.KindSource, rawURL)
	if f.cache != nil {
		var cached model.SourceContent
		if cache.GetJSON(f.cache, key, &cached) {
			f.logger.Debug("source cache hit", "url", rawURL)
			return &cached, nil
		}
	}

	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("check robots.txt: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrRobotsDisallowed)
		}
		if delay > 0 && f.limiter != nil {
			f.limiter.CrawlDelay(parsed.Host, delay)
		}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	result, err := f.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, classifyFetchError(err)
	}

	content, err := ExtractContent(result.HTML, result.FinalURL)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if err := cache.SetJSON(f.cache, key, content, f.cacheTTL); err != nil {
			f.logger.Warn("cache source", "url", rawURL, "error", err)
		}
	}

	return content, nil
}

func classifyFetchError(err error) error {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return err
	}
	switch {
	case statusErr.Code == http.StatusUnauthorized || statusErr.Code == http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrSourceAccessDenied, err)
	case statusErr.Code == http.StatusNotFound || statusErr.Code == http.StatusGone:
		return fmt.Errorf("%w: %w", ErrSourceNotFound, err)
	case statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500:
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	default:
		return err
	}
}
