package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/minhyannv/ai-chat-go/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	DefaultSearchURL     = "https://html.duckduckgo.com/html/"
	defaultSearchResults = 5
	maxSearchResults     = 10
	defaultSearchTimeout = 15 * time.Second
	defaultCacheSize     = 128
	defaultCacheTTL      = 10 * time.Minute
	maxSearchBodyBytes   = 5 * 1024 * 1024
	searchUserAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// SearchOptions configures WebSearch. Zero values take defaults.
type SearchOptions struct {
	BaseURL    string
	MaxResults int
	Timeout    time.Duration
	HTTPClient *http.Client
	CacheSize  int
	CacheTTL   time.Duration
	// RequestsPerSecond limits outgoing searches; zero means one per second.
	RequestsPerSecond float64
}

type searchEntry struct {
	results  []SearchResult
	storedAt time.Time
}

// WebSearch queries the DuckDuckGo HTML endpoint.
type WebSearch struct {
	baseURL    string
	maxResults int
	client     *http.Client
	cache      *lru.Cache[string, searchEntry]
	ttl        time.Duration
	limiter    *rate.Limiter
	now        func() time.Time
}

func NewWebSearch(opts SearchOptions) (*WebSearch, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultSearchURL
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultSearchResults
	}
	if opts.MaxResults > maxSearchResults {
		opts.MaxResults = maxSearchResults
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultSearchTimeout
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return errors.New("too many redirects")
				}
				return nil
			},
		}
	}
	cache, err := lru.New[string, searchEntry](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create search cache: %w", err)
	}
	return &WebSearch{
		baseURL:    opts.BaseURL,
		maxResults: opts.MaxResults,
		client:     client,
		cache:      cache,
		ttl:        opts.CacheTTL,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		now:        time.Now,
	}, nil
}

// Search returns up to n results for query. Results are cached per query.
func (s *WebSearch) Search(ctx context.Context, query string, n int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is empty")
	}
	if n <= 0 || n > maxSearchResults {
		n = s.maxResults
	}

	key := strings.ToLower(query)
	if entry, ok := s.cache.Get(key); ok {
		if s.now().Sub(entry.storedAt) < s.ttl {
			return limitResults(entry.results, n), nil
		}
		s.cache.Remove(key)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("search rate limit: %w", err)
	}
	results, err := s.fetch(ctx, query)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, searchEntry{results: results, storedAt: s.now()})
	return limitResults(results, n), nil
}

func limitResults(results []SearchResult, n int) []SearchResult {
	if len(results) > n {
		return results[:n]
	}
	return results
}

func (s *WebSearch) fetch(ctx context.Context, query string) (results []SearchResult, err error) {
	tracer := trace.SpanFromContext(ctx).TracerProvider().Tracer("tools")
	ctx, span := tracer.Start(ctx, telemetry.SpanSearchRequest)
	defer func() {
		span.SetAttributes(attribute.Int("ai_chat.search.results", len(results)))
		telemetry.RecordError(span, err)
		span.End()
	}()

	searchURL := s.baseURL + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", searchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request: unexpected status %s", resp.Status)
	}
	return parseResults(io.LimitReader(resp.Body, maxSearchBodyBytes))
}

// parseResults extracts hits from a DuckDuckGo HTML result page.
func parseResults(r io.Reader) ([]SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}
	var results []SearchResult
	doc.Find(".result").Each(func(_ int, sel *goquery.Selection) {
		link := sel.Find("a.result__a").First()
		title := collapseSpace(link.Text())
		href, _ := link.Attr("href")
		target := resolveResultURL(href)
		if title == "" || target == "" {
			return
		}
		results = append(results, SearchResult{
			Title:   title,
			URL:     target,
			Snippet: collapseSpace(sel.Find(".result__snippet").First().Text()),
		})
	})
	return results, nil
}

// resolveResultURL unwraps DuckDuckGo's //duckduckgo.com/l/?uddg= redirects.
func resolveResultURL(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	if parsed.Scheme == "http" || parsed.Scheme == "https" {
		return href
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FormatResults renders results as numbered text for the model.
func FormatResults(query string, results []SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for %q.", query)
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%d. %s - %s", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "\n   %s", r.Snippet)
		}
	}
	return b.String()
}

// Spec exposes the search as the web_search tool.
func (s *WebSearch) Spec() Spec {
	return Spec{
		Name:        "web_search",
		Description: "Search the web for current information. Returns the top results with titles, links and snippets.",
		Parameters: []Parameter{
			{Name: "query", Type: TypeString, Required: true, Description: "Search query."},
			{Name: "max_results", Type: TypeInteger, Description: fmt.Sprintf("Number of results (1-%d, default %d).", maxSearchResults, s.maxResults)},
		},
		Handler: func(ctx context.Context, args Args) (string, error) {
			query := args.String("query")
			results, err := s.Search(ctx, query, args.Int("max_results", s.maxResults))
			if err != nil {
				return "", err
			}
			return FormatResults(query, results), nil
		},
	}
}
