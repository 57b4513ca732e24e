package schema

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"golang.org/x/sync/singleflight"

	"github.com/songquanpeng/contract-tester/common/config"
	"github.com/songquanpeng/contract-tester/probe/model"
)

// Fetcher downloads schema description documents.
type Fetcher struct {
	client        *http.Client
	cache         DocumentCache
	group         singleflight.Group
	discoveryPath string
	userAgent     string
	maxBytes      int64
}

type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the default client, whose timeout is SCHEMA_FETCH_TIMEOUT.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithCache enables document caching. A nil cache disables it.
func WithCache(cache DocumentCache) FetcherOption {
	return func(f *Fetcher) {
		f.cache = cache
	}
}

func WithDiscoveryPath(path string) FetcherOption {
	return func(f *Fetcher) {
		f.discoveryPath = strings.TrimPrefix(path, "/")
	}
}

func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:        &http.Client{Timeout: config.SchemaFetchTimeout},
		discoveryPath: config.DiscoveryPath,
		userAgent:     config.UserAgent,
		maxBytes:      config.MaxSchemaBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// DocumentURL derives where the schema document of endpoint lives: the endpoint
// with its last two path segments removed, followed by discoveryPath.
func DocumentURL(endpoint, discoveryPath string) (string, error) {
	u, segments, err := splitEndpoint(endpoint)
	if err != nil {
		return "", err
	}
	base := segments[:len(segments)-2]
	u.Path = "/" + strings.Join(append(base, strings.TrimPrefix(discoveryPath, "/")), "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// OperationPath is the path key the endpoint is listed under: its final two segments.
func OperationPath(endpoint string) (string, error) {
	_, segments, err := splitEndpoint(endpoint)
	if err != nil {
		return "", err
	}
	return "/" + strings.Join(segments[len(segments)-2:], "/"), nil
}

func splitEndpoint(endpoint string) (*url.URL, []string, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "parse endpoint %q", endpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, nil, errors.Errorf("endpoint %q must be an http(s) URL", endpoint)
	}
	var segments []string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) < 2 {
		return nil, nil, errors.Wrapf(model.ErrSchemaNotFound,
			"endpoint %q needs at least two path segments", endpoint)
	}
	return u, segments, nil
}

// Fetch downloads and decodes the schema document of endpoint.
// Every failure to obtain a usable document is a *model.SchemaFetchError.
func (f *Fetcher) Fetch(ctx context.Context, endpoint string) (*Document, error) {
	docURL, err := DocumentURL(endpoint, f.discoveryPath)
	if err != nil {
		return nil, err
	}

	raw, err := f.load(ctx, docURL)
	if err != nil {
		return nil, err
	}

	doc, err := ParseDocument(raw)
	if err != nil {
		// a broken document must not be served again from the cache
		if f.cache != nil {
			f.cache.Delete(ctx, docURL)
		}
		return nil, &model.SchemaFetchError{URL: docURL, Err: err}
	}
	return doc, nil
}

func (f *Fetcher) load(ctx context.Context, docURL string) ([]byte, error) {
	if f.cache != nil {
		if raw, ok := f.cache.Get(ctx, docURL); ok {
			gmw.GetLogger(ctx).Debug("schema document served from cache", zap.String("url", docURL))
			return raw, nil
		}
	}

	v, err, shared := f.group.Do(docURL, func() (any, error) {
		return f.download(ctx, docURL)
	})
	if err != nil {
		return nil, err
	}
	raw := v.([]byte)
	if f.cache != nil && !shared {
		f.cache.Set(ctx, docURL, raw)
	}
	return raw, nil
}

func (f *Fetcher) download(ctx context.Context, docURL string) ([]byte, error) {
	logger := gmw.GetLogger(ctx).Named("schema")
	startAt := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return nil, &model.SchemaFetchError{URL: docURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		logger.Warn("schema document request failed", zap.String("url", docURL), zap.Error(err))
		return nil, &model.SchemaFetchError{URL: docURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("schema document request rejected",
			zap.String("url", docURL),
			zap.Int("status", resp.StatusCode))
		return nil, &model.SchemaFetchError{URL: docURL, StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &model.SchemaFetchError{URL: docURL, Err: errors.Wrap(err, "read body")}
	}
	if int64(len(raw)) > f.maxBytes {
		return nil, &model.SchemaFetchError{
			URL: docURL,
			Err: errors.Errorf("document larger than %d bytes", f.maxBytes),
		}
	}

	logger.Debug("schema document fetched",
		zap.String("url", docURL),
		zap.Int("bytes", len(raw)),
		zap.Duration("took", time.Since(startAt)))
	return raw, nil
}
