// Package resource fetches IIIF documents over HTTP and loads manifests and collections.
package resource

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"github.com/Laisky/tamerlane/library/iiif"
	"github.com/Laisky/tamerlane/library/log"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "tamerlane-iiif-viewer"
	acceptHeader     = "application/ld+json, application/json;q=0.9"
	// logBodyLimit caps the number of response bytes logged for debugging.
	logBodyLimit = 2048
)

// Resource is a fetched and decoded IIIF document.
type Resource struct {
	URL  string
	Kind iiif.Kind
	// Data is the raw JSON body. It is shared between coalesced callers and must not be modified.
	Data []byte
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
// It has no effect when WithHTTPClient is also given.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if trimmed := strings.TrimSpace(ua); trimmed != "" {
			f.userAgent = trimmed
		}
	}
}

// WithLogger overrides the logger used when no contextual logger is present.
func WithLogger(logger logSDK.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Fetcher retrieves IIIF documents and classifies them by declared type.
// Concurrent fetches of the same URL share one request.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    logSDK.Logger
	inflight  singleflight.Group
}

// NewFetcher constructs a Fetcher.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
		logger:    log.Logger.Named("resource_fetcher"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	if f.client == nil {
		client, err := gutils.NewHTTPClient(gutils.WithHTTPClientTimeout(f.timeout))
		if err != nil {
			return nil, errors.Wrap(err, "new http client")
		}
		f.client = client
	}

	return f, nil
}

// Fetch downloads url and returns the decoded document with its kind.
// It fails on transport errors, non-2xx status and bodies that are not a JSON object.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Resource, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("resource url cannot be empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// the shared request outlives any single caller, the client timeout still bounds it
	sharedCtx := context.WithoutCancel(ctx)
	ch := f.inflight.DoChan(url, func() (any, error) {
		return f.fetch(sharedCtx, url)
	})

	select {
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "fetch %q", url)
	case ret := <-ch:
		if ret.Err != nil {
			return nil, ret.Err
		}
		if ret.Shared {
			f.loggerFrom(ctx).Debug("coalesced resource fetch", zap.String("url", url))
		}

		return ret.Val.(*Resource), nil
	}
}

func (f *Fetcher) fetch(ctx context.Context, url string) (*Resource, error) {
	logger := f.loggerFrom(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "create request for %q", url)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", f.userAgent)

	logger.Debug("outgoing http request",
		zap.String("method", req.Method),
		zap.String("url", url),
	)

	startAt := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "get %q", url)
	}
	defer gutils.CloseWithLog(resp.Body, logger)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read response body of %q", url)
	}

	truncatedBody, truncated := truncateForLog(body, logBodyLimit)
	logger.Debug("incoming http response",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.String("body", truncatedBody),
		zap.Bool("body_truncated", truncated),
		zap.Duration("cost", time.Since(startAt)),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Errorf("get %q returned status %d", url, resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.Errorf("decode %q: response is not valid json", url)
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, errors.Errorf("decode %q: expect json object, got %s", url, root.Type)
	}

	return &Resource{
		URL:  url,
		Kind: iiif.Classify(root),
		Data: body,
	}, nil
}

func (f *Fetcher) loggerFrom(ctx context.Context) logSDK.Logger {
	return log.FromContext(ctx, f.logger, "resource_fetcher")
}

// truncateForLog limits the payload logged for debugging and reports whether truncation occurred.
func truncateForLog(body []byte, limit int) (string, bool) {
	if len(body) <= limit {
		return string(body), false
	}
	return string(body[:limit]), true
}
