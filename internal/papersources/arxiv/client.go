package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/scholar-search-service/internal/domain"
	"github.com/helixir/scholar-search-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultMinInterval is the spacing arXiv asks clients to respect.
	DefaultMinInterval = 3 * time.Second

	// DefaultTimeout is the per-attempt request timeout.
	DefaultTimeout = 10 * time.Second

	// venueName is reported as the venue of every arXiv result.
	venueName = "arXiv"

	// sourceName is the human-readable name for this source.
	sourceName = "arXiv"
)

// arxivIDRegex extracts the arXiv ID from the full URL.
// Matches patterns like "http://arxiv.org/abs/2301.12345v1" or "http://arxiv.org/abs/hep-th/9901001v1".
var arxivIDRegex = regexp.MustCompile(`arxiv\.org/abs/(.+?)(?:v\d+)?$`)

// Config holds configuration for the arXiv client.
type Config struct {
	// BaseURL is the arXiv API base URL.
	BaseURL string

	// Timeout is the per-attempt request timeout.
	Timeout time.Duration

	// MaxRetries is the number of retries on 429 and 5xx responses.
	MaxRetries int

	// Enabled indicates whether this provider is enabled for searches.
	Enabled bool
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

// Client searches arXiv papers.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.PaperSearcher = (*Client)(nil)

// New creates a new arXiv client that schedules requests through limiter.
func New(cfg Config, limiter *papersources.RateLimiter) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:     cfg.Timeout,
		MinInterval: DefaultMinInterval,
		MaxRetries:  cfg.MaxRetries,
	}, limiter)

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new arXiv client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Name returns the provider identifier.
func (c *Client) Name() domain.ProviderName {
	return domain.ProviderArXiv
}

// IsEnabled returns whether this provider is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// SearchPapers queries arXiv for papers matching the given parameters.
func (c *Client) SearchPapers(ctx context.Context, params domain.SearchParams) (*papersources.PaperPage, error) {
	papers, err := c.search(ctx, params)
	if err != nil {
		return nil, domain.NewProviderError(domain.ProviderArXiv, err)
	}
	return &papersources.PaperPage{Papers: papers}, nil
}

func (c *Client) search(ctx context.Context, params domain.SearchParams) ([]domain.PaperResult, error) {
	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	// Parse the Atom XML response (limit body to 10MB).
	var feed Feed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	papers := make([]domain.PaperResult, 0, len(feed.Entries))
	for i := range feed.Entries {
		papers = append(papers, entryToPaper(&feed.Entries[i]))
	}
	return papers, nil
}

// buildSearchURL constructs the arXiv search API URL.
func (c *Client) buildSearchURL(params domain.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"

	searchQuery := "all:" + params.Query
	if dateFilter := buildDateFilter(params.YearFrom, params.YearTo); dateFilter != "" {
		searchQuery = searchQuery + " AND " + dateFilter
	}

	query := url.Values{}
	query.Set("search_query", searchQuery)
	query.Set("start", strconv.Itoa(params.Offset()))
	query.Set("max_results", strconv.Itoa(params.Limit))

	if params.Sort == domain.SortRecent {
		query.Set("sortBy", "submittedDate")
	} else {
		query.Set("sortBy", "relevance")
	}
	query.Set("sortOrder", "descending")

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// buildDateFilter constructs the arXiv submittedDate range for the year bounds.
func buildDateFilter(from, to *int) string {
	if from == nil && to == nil {
		return ""
	}

	fromStr, toStr := "*", "*"
	if from != nil {
		fromStr = fmt.Sprintf("%04d01010000", *from)
	}
	if to != nil {
		toStr = fmt.Sprintf("%04d12312359", *to)
	}

	return fmt.Sprintf("submittedDate:[%s TO %s]", fromStr, toStr)
}

// entryToPaper converts an arXiv Atom entry to a PaperResult.
func entryToPaper(entry *Entry) domain.PaperResult {
	entryURL := strings.TrimSpace(entry.ID)
	paper := domain.NewPaperResult(domain.ProviderArXiv, extractArXivID(entryURL), normalizeWhitespace(entry.Title))

	for _, a := range entry.Authors {
		name := normalizeWhitespace(a.Name)
		if name == "" {
			name = domain.UnknownAuthor
		}
		paper.Authors = append(paper.Authors, domain.PaperAuthor{Name: name})
	}

	paper.Venue = venueName
	paper.Abstract = normalizeWhitespace(entry.Summary)
	paper.URL = entryURL
	paper.DOI = strings.TrimSpace(entry.DOI)
	paper.SourceTypes = append(paper.SourceTypes, "preprint")

	if published := strings.TrimSpace(entry.Published); published != "" {
		paper.PublishedAt = published
		if t, err := time.Parse(time.RFC3339, published); err == nil {
			paper.Year = t.Year()
		}
	}

	for _, cat := range entry.Categories {
		if cat.Term != "" {
			paper.Tags = append(paper.Tags, cat.Term)
		}
	}

	return paper
}

// extractArXivID extracts the arXiv ID from the full entry URL.
// Input: "http://arxiv.org/abs/2301.12345v1" -> "2301.12345"
// Entries with an unexpected id shape keep the raw value.
func extractArXivID(entryURL string) string {
	matches := arxivIDRegex.FindStringSubmatch(entryURL)
	if len(matches) < 2 {
		return entryURL
	}
	return matches[1]
}

// normalizeWhitespace trims and collapses multiple whitespace characters.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
