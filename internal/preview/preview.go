// Package preview finds a representative image for a web page. Lookups are
// best effort: every failure is reported as "no image".
package preview

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/Kerhoff/hive/internal/metrics"
)

const (
	maxBodyBytes = 1 << 20
	userAgent    = "Mozilla/5.0 (compatible; HiveBot/1.0)"
	cacheTTL     = time.Hour
)

// imageExtensions are the suffixes LooksLikeImage accepts
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".bmp": true,
}

// Fetcher returns a preview image URL for a page
type Fetcher interface {
	Available() bool
	FetchImage(ctx context.Context, pageURL string) (string, bool)
}

// New returns an HTTP fetcher, or a no-op one when previews are disabled
func New(enabled bool, timeout time.Duration, m *metrics.Metrics, logger *logrus.Logger) Fetcher {
	if !enabled {
		logger.Info("Link previews disabled")
		return NoopFetcher{}
	}
	return NewHTTPFetcher(&http.Client{Timeout: timeout}, timeout, m, logger)
}

// HTTPFetcher reads og:image or twitter:image from a page's HTML
type HTTPFetcher struct {
	client  *http.Client
	timeout time.Duration
	cache   *cache.Cache
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

// NewHTTPFetcher creates a fetcher over client. Results, including misses,
// are memoised for an hour and outbound requests are rate limited.
func NewHTTPFetcher(client *http.Client, timeout time.Duration, m *metrics.Metrics, logger *logrus.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client:  client,
		timeout: timeout,
		cache:   cache.New(cacheTTL, 2*cacheTTL),
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		metrics: m,
		logger:  logger,
	}
}

func (f *HTTPFetcher) Available() bool { return true }

// FetchImage never fails; ok is false whenever no image was found
func (f *HTTPFetcher) FetchImage(ctx context.Context, pageURL string) (string, bool) {
	pageURL = strings.TrimSpace(pageURL)
	if !IsWebURL(pageURL) {
		return "", false
	}

	if cached, found := f.cache.Get(pageURL); found {
		f.metrics.PreviewFetch("cached")
		image := cached.(string)
		return image, image != ""
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	image, err := f.fetch(ctx, pageURL)
	if err != nil {
		f.metrics.PreviewFetch("error")
		f.logger.WithField("url", pageURL).WithError(err).Debug("Link preview failed")
		return "", false
	}

	f.cache.Set(pageURL, image, cache.DefaultExpiration)
	if image == "" {
		f.metrics.PreviewFetch("none")
		return "", false
	}
	f.metrics.PreviewFetch("found")
	return image, true
}

func (f *HTTPFetcher) fetch(ctx context.Context, pageURL string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limited: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType != "text/html" {
		return "", fmt.Errorf("unexpected content type %q", mediaType)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	image := extractImage(doc)
	if image == "" {
		return "", nil
	}
	base := req.URL
	if resp.Request != nil {
		base = resp.Request.URL
	}
	return resolve(base, image), nil
}

// extractImage prefers og:image over twitter:image
func extractImage(doc *html.Node) string {
	var og, twitter string

	var traverse func(*html.Node)
	traverse = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "meta" {
			var key, content string
			for _, attr := range node.Attr {
				switch strings.ToLower(attr.Key) {
				case "property", "name":
					if key == "" {
						key = strings.ToLower(strings.TrimSpace(attr.Val))
					}
				case "content":
					content = strings.TrimSpace(attr.Val)
				}
			}
			switch {
			case key == "og:image" && og == "":
				og = content
			case key == "twitter:image" && twitter == "":
				twitter = content
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			traverse(child)
		}
	}
	traverse(doc)

	if og != "" {
		return og
	}
	return twitter
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

// IsWebURL reports whether s is an absolute http or https URL
func IsWebURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// LooksLikeImage reports whether the URL path ends in an image extension
func LooksLikeImage(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(u.Path))]
}

// NoopFetcher never finds an image
type NoopFetcher struct{}

func (NoopFetcher) Available() bool { return false }

func (NoopFetcher) FetchImage(context.Context, string) (string, bool) { return "", false }
