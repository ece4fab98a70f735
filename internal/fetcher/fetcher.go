package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/k8crawler/internal/model"
)

// Default fetcher settings.
const (
	DefaultTimeout     = 15 * time.Second
	DefaultMaxRetries  = 2
	DefaultBackoff     = 1 * time.Second
	DefaultMaxBodySize = 5 * 1024 * 1024
	DefaultUserAgent   = "k8crawler/1.0"
)

// HeaderFunc returns the User-Agent and extra headers for a host.
// An empty user agent keeps the fetcher default.
type HeaderFunc func(host string) (userAgent string, headers map[string]string)

// Fetcher retrieves single URLs with retries.
type Fetcher struct {
	client      *http.Client
	timeout     time.Duration
	maxRetries  int
	backoff     time.Duration
	maxBodySize int64
	userAgent   string
	headers     HeaderFunc

	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client.
func WithClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithTimeout sets the timeout of a single attempt.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxRetries sets the number of retries after a transient failure.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		f.maxRetries = n
	}
}

// WithBackoff sets the linear backoff unit; retry n waits n*d.
func WithBackoff(d time.Duration) Option {
	return func(f *Fetcher) {
		f.backoff = d
	}
}

// WithMaxBodySize caps the number of body bytes kept.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = n
	}
}

// WithUserAgent sets the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithHeaders sets per-host User-Agent and header overrides.
func WithHeaders(fn HeaderFunc) Option {
	return func(f *Fetcher) {
		f.headers = fn
	}
}

// WithSleep replaces the backoff sleep, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Fetcher) {
		f.sleep = sleep
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:     DefaultTimeout,
		maxRetries:  DefaultMaxRetries,
		backoff:     DefaultBackoff,
		maxBodySize: DefaultMaxBodySize,
		userAgent:   DefaultUserAgent,
		sleep:       sleepContext,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client, _ = NewHTTPClient("") //nolint:errcheck // only proxy parsing can fail
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}
	if f.maxRetries < 0 {
		f.maxRetries = 0
	}
	if f.maxBodySize <= 0 {
		f.maxBodySize = DefaultMaxBodySize
	}
	return f
}

// Client returns the underlying HTTP client, e.g. for robots.txt fetches.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// Fetch retrieves rawURL. The returned result always has URL and FetchedAt
// set; Err is nil only for a response with a status below 400.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) model.FetchResult {
	result := model.FetchResult{URL: rawURL}

	normalized, err := model.NormalizeURL(rawURL)
	if err != nil {
		result.FetchedAt = f.now()
		result.Err = &Error{URL: rawURL, Kind: ErrPermanent, Err: err}
		return result
	}

	stop := stopFrom(ctx)
	for attempt := 1; ; attempt++ {
		result.Attempts = attempt
		retry := f.attempt(ctx, normalized, &result)
		result.FetchedAt = f.now()

		if !retry || attempt > f.maxRetries || stopped(stop) {
			break
		}

		wait := time.Duration(attempt) * f.backoff
		f.logger.Debug("retrying fetch",
			"url", rawURL,
			"attempt", attempt,
			"wait", wait,
			"error", result.Err,
		)
		sleepCtx, cancel := untilStopped(ctx, stop)
		err := f.sleep(sleepCtx, wait)
		cancel()
		if stopped(stop) && ctx.Err() == nil {
			f.logger.Debug("stop signaled, not retrying", "url", rawURL, "attempts", attempt)
			break
		}
		if err != nil {
			result.Err = &Error{URL: rawURL, StatusCode: result.StatusCode, Kind: err}
			break
		}
	}

	var fe *Error
	if errors.As(result.Err, &fe) {
		fe.Attempts = result.Attempts
	}
	return result
}

// attempt performs one request and fills result. It reports whether the
// failure is transient and worth retrying.
func (f *Fetcher) attempt(ctx context.Context, rawURL string, result *model.FetchResult) bool {
	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		result.Err = &Error{URL: rawURL, Kind: ErrPermanent, Err: err}
		return false
	}
	f.setHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		result.StatusCode = 0
		if ctxErr := ctx.Err(); ctxErr != nil {
			result.Err = &Error{URL: rawURL, Kind: ctxErr, Err: err}
			return false
		}
		if isCertificateError(err) {
			result.Err = &Error{URL: rawURL, Kind: ErrPermanent, Err: err}
			return false
		}
		result.Err = &Error{URL: rawURL, Kind: ErrTransient, Err: err}
		return true
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.ContentType = resp.Header.Get("Content-Type")
	result.FinalURL = rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		result.FinalURL = resp.Request.URL.String()
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		result.Body = nil
		result.Err = &Error{URL: rawURL, StatusCode: resp.StatusCode, Kind: ErrTransient}
		return true
	case resp.StatusCode >= 400:
		result.Body = nil
		result.Err = &Error{URL: rawURL, StatusCode: resp.StatusCode, Kind: ErrPermanent}
		return false
	}

	body, truncated, err := readBody(resp, f.maxBodySize)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			result.Err = &Error{URL: rawURL, StatusCode: resp.StatusCode, Kind: ctxErr, Err: err}
			return false
		}
		result.Err = &Error{URL: rawURL, StatusCode: resp.StatusCode, Kind: ErrTransient, Err: err}
		return true
	}
	if truncated {
		f.logger.Debug("response body truncated", "url", rawURL, "limit", f.maxBodySize)
	}
	result.Body = body
	result.Err = nil
	return false
}

func (f *Fetcher) setHeaders(req *http.Request) {
	userAgent := f.userAgent
	var extra map[string]string
	if f.headers != nil {
		ua, headers := f.headers(req.URL.Host)
		if ua != "" {
			userAgent = ua
		}
		extra = headers
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/rss+xml,application/atom+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, v := range extra {
		req.Header.Set(k, v)
	}
}

func isCertificateError(err error) bool {
	var certErr *tls.CertificateVerificationError
	return errors.As(err, &certErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
