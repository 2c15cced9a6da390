package crossref

import (
	"context"
	"encoding/json"
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
	// DefaultBaseURL is the default Crossref API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultMinInterval is the minimum spacing between requests.
	DefaultMinInterval = 200 * time.Millisecond

	// DefaultTimeout is the per-attempt request timeout.
	DefaultTimeout = 8 * time.Second

	sourceName = "Crossref"
)

// markupRegex matches JATS and HTML tags embedded in Crossref abstracts.
var markupRegex = regexp.MustCompile(`<[^>]+>`)

// Config holds configuration for the Crossref client.
type Config struct {
	BaseURL    string
	Mailto     string
	Timeout    time.Duration
	MaxRetries int
	Enabled    bool
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

// Client searches Crossref works.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.PaperSearcher = (*Client)(nil)

// New creates a new Crossref client that schedules requests through limiter.
func New(cfg Config, limiter *papersources.RateLimiter) *Client {
	cfg.applyDefaults()

	userAgent := papersources.DefaultUserAgent
	if cfg.Mailto != "" {
		userAgent += " (mailto:" + cfg.Mailto + ")"
	}

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:     cfg.Timeout,
		MinInterval: DefaultMinInterval,
		MaxRetries:  cfg.MaxRetries,
		UserAgent:   userAgent,
	}, limiter)

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new Crossref client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Name returns the provider identifier.
func (c *Client) Name() domain.ProviderName {
	return domain.ProviderCrossref
}

// IsEnabled returns whether this provider is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// SearchPapers queries the works endpoint with offset pagination.
func (c *Client) SearchPapers(ctx context.Context, params domain.SearchParams) (*papersources.PaperPage, error) {
	papers, err := c.search(ctx, params)
	if err != nil {
		return nil, domain.NewProviderError(domain.ProviderCrossref, err)
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

	var worksResp WorksResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&worksResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	papers := make([]domain.PaperResult, 0, len(worksResp.Message.Items))
	for i := range worksResp.Message.Items {
		papers = append(papers, itemToPaper(&worksResp.Message.Items[i]))
	}
	return papers, nil
}

func (c *Client) buildSearchURL(params domain.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/works"

	query := url.Values{}
	query.Set("query", params.Query)
	query.Set("rows", strconv.Itoa(params.Limit))
	query.Set("offset", strconv.Itoa(params.Offset()))

	var filters []string
	if params.YearFrom != nil {
		filters = append(filters, fmt.Sprintf("from-pub-date:%04d", *params.YearFrom))
	}
	if params.YearTo != nil {
		filters = append(filters, fmt.Sprintf("until-pub-date:%04d", *params.YearTo))
	}
	if len(filters) > 0 {
		query.Set("filter", strings.Join(filters, ","))
	}
	if c.config.Mailto != "" {
		query.Set("mailto", c.config.Mailto)
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// itemToPaper converts a Crossref work item to a PaperResult.
func itemToPaper(item *Item) domain.PaperResult {
	paper := domain.NewPaperResult(domain.ProviderCrossref, item.DOI, firstNonEmpty(item.Title))

	for _, a := range item.Author {
		name := strings.TrimSpace(strings.TrimSpace(a.Given) + " " + strings.TrimSpace(a.Family))
		if name == "" {
			name = strings.TrimSpace(a.Name)
		}
		if name == "" {
			name = domain.UnknownAuthor
		}
		paper.Authors = append(paper.Authors, domain.PaperAuthor{Name: name, ID: a.ORCID})
	}

	paper.Venue = firstNonEmpty(item.ContainerTitle)
	paper.Abstract = stripMarkup(item.Abstract)
	paper.URL = item.URL
	paper.DOI = item.DOI
	paper.CitedByCount = item.IsReferencedByCount
	paper.Year, paper.PublishedAt = issuedDate(item.Issued)

	if item.Type != "" {
		paper.SourceTypes = append(paper.SourceTypes, item.Type)
	}
	if len(item.Subject) > 0 {
		paper.Tags = append(paper.Tags, item.Subject...)
	}

	return paper
}

// issuedDate returns the year and the dash-joined date parts of a partial date.
func issuedDate(d *DateInfo) (int, string) {
	if d == nil || len(d.DateParts) == 0 {
		return 0, ""
	}

	parts := make([]string, 0, len(d.DateParts[0]))
	for _, p := range d.DateParts[0] {
		if p == nil {
			break
		}
		parts = append(parts, strconv.Itoa(*p))
	}
	if len(parts) == 0 {
		return 0, ""
	}

	year, _ := strconv.Atoi(parts[0])
	return year, strings.Join(parts, "-")
}

// stripMarkup removes JATS tags and collapses whitespace.
func stripMarkup(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(markupRegex.ReplaceAllString(s, " ")), " ")
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
