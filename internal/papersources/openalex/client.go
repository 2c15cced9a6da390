package openalex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/scholar-search-service/internal/domain"
	"github.com/helixir/scholar-search-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultMinInterval is the minimum spacing between requests.
	DefaultMinInterval = 100 * time.Millisecond

	// DefaultTimeout is the per-attempt request timeout.
	DefaultTimeout = 8 * time.Second

	// doiPrefix is the URL prefix that OpenAlex uses for DOIs.
	doiPrefix = "https://doi.org/"

	// openAlexIDPrefix is the URL prefix for OpenAlex IDs.
	openAlexIDPrefix = "https://openalex.org/"
)

// Config holds configuration for the OpenAlex client.
type Config struct {
	// BaseURL is the OpenAlex API base URL.
	// Defaults to https://api.openalex.org
	BaseURL string

	// Mailto is the contact email for the polite pool.
	// See: https://docs.openalex.org/how-to-use-the-api/rate-limits-and-authentication
	Mailto string

	// APIKey is an optional bearer token.
	APIKey string

	// Timeout is the per-attempt request timeout.
	// Defaults to 8 seconds.
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

// Client searches OpenAlex works and authors.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var (
	_ papersources.PaperSearcher  = (*Client)(nil)
	_ papersources.AuthorSearcher = (*Client)(nil)
)

// New creates a new OpenAlex client that schedules requests through limiter.
func New(cfg Config, limiter *papersources.RateLimiter) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:      cfg.Timeout,
		MinInterval:  DefaultMinInterval,
		MaxRetries:   cfg.MaxRetries,
		APIKey:       cfg.APIKey,
		APIKeyHeader: "Authorization",
		APIKeyPrefix: "Bearer ",
	}, limiter)

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new OpenAlex client with a custom HTTP client.
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
	return domain.ProviderOpenAlex
}

// IsEnabled returns whether this provider is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// SearchPapers queries the works endpoint. OpenAlex is cursor paginated:
// params.Cursor (default "*") is forwarded and the next cursor is returned.
func (c *Client) SearchPapers(ctx context.Context, params domain.SearchParams) (*papersources.PaperPage, error) {
	searchURL, err := c.buildWorksURL(params)
	if err != nil {
		return nil, domain.NewProviderError(domain.ProviderOpenAlex, fmt.Errorf("building search URL: %w", err))
	}

	var worksResp WorksResponse
	if err := c.getJSON(ctx, searchURL, &worksResp); err != nil {
		return nil, domain.NewProviderError(domain.ProviderOpenAlex, err)
	}

	papers := make([]domain.PaperResult, 0, len(worksResp.Results))
	for i := range worksResp.Results {
		papers = append(papers, workToPaper(&worksResp.Results[i]))
	}

	return &papersources.PaperPage{
		Papers:     papers,
		NextCursor: worksResp.Meta.NextCursor,
	}, nil
}

// SearchAuthors queries the authors endpoint.
func (c *Client) SearchAuthors(ctx context.Context, params domain.SearchParams) ([]domain.AuthorResult, error) {
	searchURL, err := c.buildAuthorsURL(params)
	if err != nil {
		return nil, domain.NewProviderError(domain.ProviderOpenAlex, fmt.Errorf("building search URL: %w", err))
	}

	var authorsResp AuthorsResponse
	if err := c.getJSON(ctx, searchURL, &authorsResp); err != nil {
		return nil, domain.NewProviderError(domain.ProviderOpenAlex, err)
	}

	authors := make([]domain.AuthorResult, 0, len(authorsResp.Results))
	for i := range authorsResp.Results {
		authors = append(authors, authorToResult(&authorsResp.Results[i]))
	}
	return authors, nil
}

// getJSON executes a GET request and decodes a JSON body into out.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return domain.NewExternalAPIError("OpenAlex", resp.StatusCode, string(body), nil)
	}

	// Limit body to 10MB to prevent resource exhaustion.
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// buildWorksURL constructs the works search URL with query parameters.
func (c *Client) buildWorksURL(params domain.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	baseURL.Path = "/works"

	query := url.Values{}
	query.Set("search", params.Query)
	query.Set("per-page", strconv.Itoa(params.Limit))

	cursor := params.Cursor
	if cursor == "" {
		cursor = domain.DefaultCursor
	}
	query.Set("cursor", cursor)

	if filters := buildYearFilters(params); len(filters) > 0 {
		query.Set("filter", strings.Join(filters, ","))
	}
	if c.config.Mailto != "" {
		query.Set("mailto", c.config.Mailto)
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// buildAuthorsURL constructs the authors search URL with query parameters.
func (c *Client) buildAuthorsURL(params domain.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	baseURL.Path = "/authors"

	query := url.Values{}
	query.Set("search", params.Query)
	query.Set("per-page", strconv.Itoa(params.Limit))
	if params.Page > 1 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if c.config.Mailto != "" {
		query.Set("mailto", c.config.Mailto)
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// buildYearFilters converts the year bounds to publication date filters.
func buildYearFilters(params domain.SearchParams) []string {
	var filters []string
	if params.YearFrom != nil {
		filters = append(filters, fmt.Sprintf("from_publication_date:%04d-01-01", *params.YearFrom))
	}
	if params.YearTo != nil {
		filters = append(filters, fmt.Sprintf("to_publication_date:%04d-12-31", *params.YearTo))
	}
	return filters
}

// workToPaper converts an OpenAlex Work to a PaperResult.
func workToPaper(work *Work) domain.PaperResult {
	title := work.DisplayName
	if title == "" {
		title = work.Title
	}

	paper := domain.NewPaperResult(domain.ProviderOpenAlex, normalizeOpenAlexID(work.ID), title)

	for _, authorship := range work.Authorships {
		name := strings.TrimSpace(authorship.Author.DisplayName)
		if name == "" {
			name = domain.UnknownAuthor
		}
		paper.Authors = append(paper.Authors, domain.PaperAuthor{
			Name: name,
			ID:   normalizeOpenAlexID(authorship.Author.ID),
		})
	}

	paper.Year = work.PublicationYear
	paper.PublishedAt = work.PublicationDate
	paper.CitedByCount = work.CitedByCount
	paper.DOI = normalizeDOI(work.DOI)
	paper.Abstract = reconstructAbstract(work.AbstractInvertedIndex)

	if work.PrimaryLocation != nil && work.PrimaryLocation.Source != nil {
		paper.Venue = work.PrimaryLocation.Source.DisplayName
	}

	switch {
	case work.DOI != "":
		paper.URL = work.DOI
	case work.PrimaryLocation != nil:
		paper.URL = work.PrimaryLocation.LandingPageURL
	}

	if work.Type != "" {
		paper.SourceTypes = append(paper.SourceTypes, work.Type)
	}
	for _, concept := range work.Concepts {
		if concept.DisplayName != "" {
			paper.Tags = append(paper.Tags, concept.DisplayName)
		}
	}

	return paper
}

// authorToResult converts an OpenAlex Author to an AuthorResult.
func authorToResult(author *Author) domain.AuthorResult {
	result := domain.NewAuthorResult(domain.ProviderOpenAlex, normalizeOpenAlexID(author.ID), author.DisplayName)
	result.ORCID = normalizeORCID(author.ORCID)
	result.WorksCount = author.WorksCount
	result.CitedByCount = author.CitedByCount
	result.ProfileURL = author.ID

	switch {
	case author.LastKnownInstitution != nil:
		result.Affiliation = author.LastKnownInstitution.DisplayName
	case len(author.LastKnownInstitutions) > 0 && author.LastKnownInstitutions[0] != nil:
		result.Affiliation = author.LastKnownInstitutions[0].DisplayName
	}

	return result
}

// normalizeDOI strips the https://doi.org/ prefix from DOIs and returns lowercase.
func normalizeDOI(doi string) string {
	if doi == "" {
		return ""
	}
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, doiPrefix)
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi:")
	return strings.ToLower(strings.TrimSpace(doi))
}

// normalizeOpenAlexID extracts the short ID from full OpenAlex URLs.
func normalizeOpenAlexID(id string) string {
	id = strings.TrimSpace(id)
	return strings.TrimPrefix(id, openAlexIDPrefix)
}

// normalizeORCID strips any URL prefixes from ORCID identifiers.
func normalizeORCID(orcid string) string {
	orcid = strings.TrimSpace(orcid)
	orcid = strings.TrimPrefix(orcid, "https://orcid.org/")
	return strings.TrimPrefix(orcid, "http://orcid.org/")
}

// reconstructAbstract reconstructs the abstract text from OpenAlex's inverted index format.
// OpenAlex stores abstracts as inverted indices mapping words to their positions.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	const maxAbstractWords = 100_000
	totalPairs := 0
	for _, positions := range invertedIndex {
		totalPairs += len(positions)
	}
	// Guard against malicious payloads with excessive position entries.
	if totalPairs > maxAbstractWords {
		return ""
	}

	pairs := make([]posWord, 0, totalPairs)
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].pos == pairs[j].pos {
			return pairs[i].word < pairs[j].word
		}
		return pairs[i].pos < pairs[j].pos
	})

	var builder strings.Builder
	builder.Grow(totalPairs * 7)
	for i, pair := range pairs {
		if i > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(pair.word)
	}

	return builder.String()
}
