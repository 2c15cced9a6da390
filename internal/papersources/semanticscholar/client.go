package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/scholar-search-service/internal/domain"
	"github.com/helixir/scholar-search-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultMinInterval is the spacing for the unauthenticated tier.
	DefaultMinInterval = time.Second

	// DefaultTimeout is the per-attempt HTTP request timeout.
	DefaultTimeout = 8 * time.Second

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// paperFields is the list of paper fields to request from the API.
	paperFields = "title,authors,year,venue,url,abstract,citationCount,externalIds,publicationDate,publicationTypes"

	// authorFields is the list of author fields to request from the API.
	authorFields = "name,url,affiliations,homepage,paperCount,citationCount,externalIds"

	// sourceName is the human-readable name for this source.
	sourceName = "Semantic Scholar"
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL is the base URL for the API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the optional API key for authenticated requests.
	APIKey string

	// Timeout is the per-attempt HTTP request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// MaxRetries is the number of retries on 429 and 5xx responses.
	MaxRetries int

	// Limiter is the shared request queue. Used only when NewClient builds
	// its own HTTP client.
	Limiter *papersources.RateLimiter

	// Enabled indicates whether this provider is enabled.
	Enabled bool
}

// Client searches Semantic Scholar papers and authors.
type Client struct {
	httpClient *papersources.HTTPClient
	config     Config
}

var (
	_ papersources.PaperSearcher  = (*Client)(nil)
	_ papersources.AuthorSearcher = (*Client)(nil)
)

// NewClient creates a new Semantic Scholar client with the given configuration.
// If httpClient is nil, a new one will be created from the configuration and
// cfg.Limiter.
func NewClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	if httpClient == nil {
		httpClient = papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			MinInterval:  DefaultMinInterval,
			MaxRetries:   cfg.MaxRetries,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
		}, cfg.Limiter)
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Name returns the provider identifier.
func (c *Client) Name() domain.ProviderName {
	return domain.ProviderSemanticScholar
}

// IsEnabled returns whether this provider is currently enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// SearchPapers queries the paper search endpoint with offset pagination.
func (c *Client) SearchPapers(ctx context.Context, params domain.SearchParams) (*papersources.PaperPage, error) {
	searchURL, err := c.buildURL([]string{"paper", "search"}, params, paperFields)
	if err != nil {
		return nil, domain.NewProviderError(domain.ProviderSemanticScholar, fmt.Errorf("building search URL: %w", err))
	}

	var searchResp PaperSearchResponse
	if err := c.getJSON(ctx, searchURL, &searchResp); err != nil {
		return nil, domain.NewProviderError(domain.ProviderSemanticScholar, err)
	}

	papers := make([]domain.PaperResult, 0, len(searchResp.Data))
	for _, p := range searchResp.Data {
		papers = append(papers, convertPaper(p))
	}
	return &papersources.PaperPage{Papers: papers}, nil
}

// SearchAuthors queries the author search endpoint with offset pagination.
func (c *Client) SearchAuthors(ctx context.Context, params domain.SearchParams) ([]domain.AuthorResult, error) {
	searchURL, err := c.buildURL([]string{"author", "search"}, params, authorFields)
	if err != nil {
		return nil, domain.NewProviderError(domain.ProviderSemanticScholar, fmt.Errorf("building search URL: %w", err))
	}

	var searchResp AuthorSearchResponse
	if err := c.getJSON(ctx, searchURL, &searchResp); err != nil {
		return nil, domain.NewProviderError(domain.ProviderSemanticScholar, err)
	}

	authors := make([]domain.AuthorResult, 0, len(searchResp.Data))
	for _, a := range searchResp.Data {
		authors = append(authors, convertAuthor(a))
	}
	return authors, nil
}

// getJSON executes a GET request and decodes a JSON body into out.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if err := c.handleErrorResponse(resp); err != nil {
		return err
	}

	// Limit body to 10MB to prevent resource exhaustion.
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// buildURL constructs a search URL for the given endpoint path.
func (c *Client) buildURL(path []string, params domain.SearchParams, fields string) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	searchURL := baseURL.JoinPath(path...)

	q := searchURL.Query()
	q.Set("query", params.Query)
	q.Set("fields", fields)
	q.Set("limit", strconv.Itoa(params.Limit))
	q.Set("offset", strconv.Itoa(params.Offset()))

	if path[0] == "paper" {
		if year := yearRange(params); year != "" {
			q.Set("year", year)
		}
	}

	searchURL.RawQuery = q.Encode()
	return searchURL.String(), nil
}

// yearRange formats the year bounds as Semantic Scholar's year filter:
// "2019-2021", "2019-" or "-2021".
func yearRange(params domain.SearchParams) string {
	switch {
	case params.YearFrom != nil && params.YearTo != nil:
		return fmt.Sprintf("%d-%d", *params.YearFrom, *params.YearTo)
	case params.YearFrom != nil:
		return fmt.Sprintf("%d-", *params.YearFrom)
	case params.YearTo != nil:
		return fmt.Sprintf("-%d", *params.YearTo)
	}
	return ""
}

// handleErrorResponse checks for API errors and returns appropriate error types.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Read the error body (limit to 1MB to prevent resource exhaustion)
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, "failed to read error response", err)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		message := errResp.Error
		if message == "" {
			message = errResp.Message
		}
		if message == "" {
			message = string(body)
		}
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, message, nil)
	}

	return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
}

// convertPaper converts a single API paper to a PaperResult.
func convertPaper(p Paper) domain.PaperResult {
	paper := domain.NewPaperResult(domain.ProviderSemanticScholar, p.PaperID, p.Title)

	for _, a := range p.Authors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			name = domain.UnknownAuthor
		}
		paper.Authors = append(paper.Authors, domain.PaperAuthor{Name: name, ID: a.AuthorID})
	}

	paper.Year = p.Year
	paper.Venue = p.Venue
	paper.Abstract = p.Abstract
	paper.URL = p.URL
	paper.CitedByCount = p.CitationCount
	paper.PublishedAt = p.PublicationDate
	if p.ExternalIDs != nil {
		paper.DOI = p.ExternalIDs.DOI
	}
	if len(p.PublicationTypes) > 0 {
		paper.SourceTypes = append(paper.SourceTypes, p.PublicationTypes...)
	}

	return paper
}

// convertAuthor converts an API author to an AuthorResult.
func convertAuthor(a Author) domain.AuthorResult {
	author := domain.NewAuthorResult(domain.ProviderSemanticScholar, a.AuthorID, a.Name)
	if len(a.Affiliations) > 0 {
		author.Affiliation = a.Affiliations[0]
	}
	if a.ExternalIDs != nil {
		author.ORCID = string(a.ExternalIDs.ORCID)
	}
	author.WorksCount = a.PaperCount
	author.CitedByCount = a.CitationCount

	author.ProfileURL = a.URL
	if author.ProfileURL == "" {
		author.ProfileURL = a.Homepage
	}
	return author
}

