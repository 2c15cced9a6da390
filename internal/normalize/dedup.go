// Package normalize merges and orders the result lists gathered from several
// providers: papers and authors are deduplicated, and papers are ranked.
package normalize

import (
	"strings"

	"github.com/helixir/scholar-search-service/internal/domain"
)

// PaperKey returns the merge key of a paper: its DOI when present, otherwise
// its title, both lower-cased and trimmed.
func PaperKey(p domain.PaperResult) string {
	if doi := strings.ToLower(strings.TrimSpace(p.DOI)); doi != "" {
		return doi
	}
	return strings.ToLower(strings.TrimSpace(p.Title))
}

// AuthorKey returns the merge key of an author: the ORCID when present,
// otherwise the name, both lower-cased and trimmed.
func AuthorKey(a domain.AuthorResult) string {
	if orcid := strings.ToLower(strings.TrimSpace(a.ORCID)); orcid != "" {
		return orcid
	}
	return strings.ToLower(strings.TrimSpace(a.Name))
}

// IsTrustedSource reports whether a provider's descriptive metadata replaces
// other providers' values when papers collide.
func IsTrustedSource(p domain.ProviderName) bool {
	return p == domain.ProviderOpenAlex || p == domain.ProviderSemanticScholar
}

// DeduplicatePapers merges papers sharing a PaperKey. The first paper seen
// for a key keeps its position in the output. Later duplicates fill an empty
// abstract and a zero citation count. A duplicate from a trusted source also
// replaces the descriptive fields and the identity of the merged entry, while
// the merged abstract and citation count are kept.
//
// The input slice is not modified.
func DeduplicatePapers(papers []domain.PaperResult) []domain.PaperResult {
	out := make([]domain.PaperResult, 0, len(papers))
	index := make(map[string]int, len(papers))

	for _, paper := range papers {
		key := PaperKey(paper)
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, paper)
			continue
		}

		existing := &out[i]
		if existing.Abstract == "" && paper.Abstract != "" {
			existing.Abstract = paper.Abstract
		}
		if existing.CitedByCount == 0 && paper.CitedByCount != 0 {
			existing.CitedByCount = paper.CitedByCount
		}
		if IsTrustedSource(paper.Provider) {
			*existing = overlayTrusted(*existing, paper)
		}
	}

	return out
}

// overlayTrusted returns merged with the descriptive fields and identity of
// trusted. Empty fields on trusted keep the merged value.
func overlayTrusted(merged, trusted domain.PaperResult) domain.PaperResult {
	result := merged

	result.ID = trusted.ID
	result.Provider = trusted.Provider
	result.ProviderID = trusted.ProviderID

	if trusted.Title != "" && trusted.Title != domain.UntitledPaper {
		result.Title = trusted.Title
	}
	if len(trusted.Authors) > 0 {
		result.Authors = trusted.Authors
	}
	if trusted.Year != 0 {
		result.Year = trusted.Year
	}
	if trusted.Venue != "" {
		result.Venue = trusted.Venue
	}
	if trusted.URL != "" {
		result.URL = trusted.URL
	}
	if trusted.DOI != "" {
		result.DOI = trusted.DOI
	}
	if trusted.PublishedAt != "" {
		result.PublishedAt = trusted.PublishedAt
	}
	if len(trusted.SourceTypes) > 0 {
		result.SourceTypes = trusted.SourceTypes
	}
	if len(trusted.Tags) > 0 {
		result.Tags = trusted.Tags
	}

	return result
}

// DeduplicateAuthors merges authors sharing an AuthorKey. The first author
// seen for a key keeps its position. Later duplicates fill a missing
// affiliation and raise worksCount only when strictly greater.
//
// The input slice is not modified.
func DeduplicateAuthors(authors []domain.AuthorResult) []domain.AuthorResult {
	out := make([]domain.AuthorResult, 0, len(authors))
	index := make(map[string]int, len(authors))

	for _, author := range authors {
		key := AuthorKey(author)
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, author)
			continue
		}

		existing := &out[i]
		if existing.Affiliation == "" && author.Affiliation != "" {
			existing.Affiliation = author.Affiliation
		}
		if author.WorksCount > existing.WorksCount {
			existing.WorksCount = author.WorksCount
		}
	}

	return out
}
