// Package papersources provides interfaces and shared plumbing for bibliographic
// provider clients.
//
// Each provider (OpenAlex, Semantic Scholar, arXiv, Crossref, ORCID) implements
// one or both capability interfaces: PaperSearcher and AuthorSearcher. The search
// orchestrator discovers capabilities through the Registry and fans a request out
// to every matching provider.
//
// Pagination is asymmetric across providers. OpenAlex is cursor paginated: it
// consumes SearchParams.Cursor (defaulting to "*") and reports the next cursor in
// PaperPage.NextCursor. Every other provider is offset paginated with
// offset = (page-1)*limit and ignores the cursor entirely.
//
// Example usage:
//
//	limiter := papersources.NewSpacingLimiter(100 * time.Millisecond)
//	source := openalex.New(cfg, limiter)
//	page, err := source.SearchPapers(ctx, params)
package papersources

import (
	"context"

	"github.com/helixir/scholar-search-service/internal/domain"
)

// PaperPage is one page of paper results from a provider.
type PaperPage struct {
	// Papers contains the normalized papers returned by the provider.
	Papers []domain.PaperResult

	// NextCursor is the opaque cursor for the following page.
	// Only cursor-paginated providers set it.
	NextCursor string
}

// Provider is the identity shared by every provider client.
type Provider interface {
	// Name returns the provider identifier used in result ids and errors.
	Name() domain.ProviderName

	// IsEnabled returns whether this provider is configured for use.
	IsEnabled() bool
}

// PaperSearcher is implemented by providers that can search for papers.
type PaperSearcher interface {
	Provider

	// SearchPapers queries the provider for papers matching params.
	//
	// Implementations must:
	//   - Schedule every outbound call through the provider's rate limiter
	//   - Return failures as *domain.ProviderError
	//   - Map missing optional fields to absent values without panicking
	SearchPapers(ctx context.Context, params domain.SearchParams) (*PaperPage, error)
}

// AuthorSearcher is implemented by providers that can search for authors.
type AuthorSearcher interface {
	Provider

	// SearchAuthors queries the provider for authors matching params.
	// The same failure and scheduling rules as SearchPapers apply.
	SearchAuthors(ctx context.Context, params domain.SearchParams) ([]domain.AuthorResult, error)
}
