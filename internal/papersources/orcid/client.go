package orcid

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
	// DefaultBaseURL is the default ORCID public API base URL.
	DefaultBaseURL = "https://pub.orcid.org/v3.0"

	// DefaultMinInterval is the minimum spacing between requests.
	DefaultMinInterval = 200 * time.Millisecond

	// DefaultTimeout is the per-attempt request timeout.
	DefaultTimeout = 8 * time.Second

	// profileBaseURL prefixes an ORCID iD to form the public profile link.
	profileBaseURL = "https://orcid.org/"

	sourceName = "ORCID"
)

// Config holds configuration for the ORCID client.
type Config struct {
	BaseURL string

	// APIKey is an optional public API read token sent as a bearer token.
	APIKey string

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

// Client searches the ORCID registry for researchers.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.AuthorSearcher = (*Client)(nil)

// New creates a new ORCID client that schedules requests through limiter.
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

// NewWithHTTPClient creates a new ORCID client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Name returns the provider identifier.
func (c *Client) Name() domain.ProviderName {
	return domain.ProviderORCID
}

// IsEnabled returns whether this provider is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// SearchAuthors queries the expanded-search endpoint. The endpoint does not
// report works or citation counts, so both are zero.
func (c *Client) SearchAuthors(ctx context.Context, params domain.SearchParams) ([]domain.AuthorResult, error) {
	authors, err := c.search(ctx, params)
	if err != nil {
		return nil, domain.NewProviderError(domain.ProviderORCID, err)
	}
	return authors, nil
}

func (c *Client) search(ctx context.Context, params domain.SearchParams) ([]domain.AuthorResult, error) {
	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	// The registry answers in XML unless JSON is requested explicitly.
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	var searchResp ExpandedSearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	authors := make([]domain.AuthorResult, 0, len(searchResp.Results))
	for i := range searchResp.Results {
		authors = append(authors, resultToAuthor(&searchResp.Results[i]))
	}
	return authors, nil
}

func (c *Client) buildSearchURL(params domain.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/expanded-search/"

	query := url.Values{}
	query.Set("q", params.Query)
	query.Set("start", strconv.Itoa(params.Offset()))
	query.Set("rows", strconv.Itoa(params.Limit))

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

func resultToAuthor(r *ExpandedResult) domain.AuthorResult {
	orcidID := strings.TrimSpace(r.ORCIDID)

	name := strings.TrimSpace(strings.TrimSpace(r.GivenNames) + " " + strings.TrimSpace(r.FamilyNames))
	if name == "" {
		name = r.CreditName
	}

	author := domain.NewAuthorResult(domain.ProviderORCID, orcidID, name)
	author.ORCID = orcidID
	if orcidID != "" {
		author.ProfileURL = profileBaseURL + orcidID
	}
	for _, inst := range r.InstitutionName {
		if inst = strings.TrimSpace(inst); inst != "" {
			author.Affiliation = inst
			break
		}
	}
	return author
}
