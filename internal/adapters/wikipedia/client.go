// Package wikipedia implements ports.ArticleProvider against the Wikimedia
// REST page-summary endpoint.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lookoutar/lookout/internal/core/domain"
	"github.com/lookoutar/lookout/internal/core/ports"
	"github.com/lookoutar/lookout/internal/pkg/metrics"
)

// Client resolves POI external references ("lang:Title" or a bare title) to
// article summaries. Lookups are read-through cached in the shared cache
// since summaries change rarely and the endpoint is rate-limited on its own.
type Client struct {
	baseURL string
	cache   ports.CacheService // may be nil
	ttl     time.Duration
	http    *http.Client
}

// New creates a client. baseURL is the summary endpoint root, e.g.
// "https://en.wikipedia.org/api/rest_v1/page/summary".
func New(baseURL string, cache ports.CacheService, ttl, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   cache,
		ttl:     ttl,
		http:    &http.Client{Timeout: timeout},
	}
}

type summaryResponse struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
	Thumb   struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
	Coordinates *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coordinates"`
}

// Lookup implements ports.ArticleProvider.
func (c *Client) Lookup(ctx context.Context, ref string) (*domain.Article, error) {
	title := titleFromRef(ref)
	if title == "" {
		return nil, fmt.Errorf("%w: empty article reference", domain.ErrInvalidInput)
	}

	cacheKey := "article:" + title
	if c.cache != nil {
		if data, err := c.cache.Get(ctx, cacheKey); err == nil {
			var a domain.Article
			if err := json.Unmarshal(data, &a); err == nil {
				metrics.ArticleLookups.WithLabelValues("cached").Inc()
				return &a, nil
			}
		}
	}

	reqURL := c.baseURL + "/" + url.PathEscape(title)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ArticleLookups.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.ArticleLookups.WithLabelValues("missing").Inc()
		return nil, fmt.Errorf("%w: article %q", domain.ErrNotFound, title)
	case resp.StatusCode != http.StatusOK:
		metrics.ArticleLookups.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: HTTP %d for %q", domain.ErrProviderUnavailable, resp.StatusCode, title)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrProviderUnavailable, err)
	}

	var sum summaryResponse
	if err := json.Unmarshal(body, &sum); err != nil {
		return nil, fmt.Errorf("%w: decode summary: %v", domain.ErrProviderUnavailable, err)
	}

	article := &domain.Article{
		Title:        sum.Title,
		Summary:      sum.Extract,
		ImageURL:     sum.Thumb.Source,
		CanonicalURL: sum.ContentURLs.Desktop.Page,
	}
	if sum.Coordinates != nil {
		article.Coordinates = &domain.GeoPoint{Lat: sum.Coordinates.Lat, Lon: sum.Coordinates.Lon}
	}

	if c.cache != nil {
		if data, err := json.Marshal(article); err == nil {
			_ = c.cache.Set(ctx, cacheKey, data, int(c.ttl/time.Second))
		}
	}
	metrics.ArticleLookups.WithLabelValues("ok").Inc()
	return article, nil
}

// titleFromRef strips an optional "lang:" prefix from a wikipedia tag value.
// Bare wikidata IDs pass through unchanged.
func titleFromRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.Index(ref, ":"); i > 0 && i <= 3 {
		return strings.TrimSpace(ref[i+1:])
	}
	return ref
}
