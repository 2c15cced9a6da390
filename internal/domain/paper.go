package domain

import "strings"

// Placeholders used when a provider omits a required display field.
const (
	UntitledPaper = "Untitled"
	UnknownAuthor = "Unknown author"
)

// PaperAuthor is an author entry on a paper result.
type PaperAuthor struct {
	Name string `json:"name"`
	ID   string `json:"id,omitempty"`
}

// PaperResult is the normalized shape of a paper from any provider.
// ID is always Provider + ":" + ProviderID.
type PaperResult struct {
	ID           string        `json:"id"`
	Provider     ProviderName  `json:"provider"`
	ProviderID   string        `json:"providerId"`
	Title        string        `json:"title"`
	Authors      []PaperAuthor `json:"authors"`
	Year         int           `json:"year,omitempty"`
	Venue        string        `json:"venue,omitempty"`
	Abstract     string        `json:"abstract,omitempty"`
	URL          string        `json:"url,omitempty"`
	DOI          string        `json:"doi,omitempty"`
	CitedByCount int           `json:"citedByCount"`
	PublishedAt  string        `json:"publishedAt,omitempty"`
	SourceTypes  []string      `json:"sourceTypes"`
	Tags         []string      `json:"tags,omitempty"`
}

// AuthorResult is the normalized shape of an author from any provider.
type AuthorResult struct {
	ID           string       `json:"id"`
	Provider     ProviderName `json:"provider"`
	ProviderID   string       `json:"providerId"`
	Name         string       `json:"name"`
	Affiliation  string       `json:"affiliation,omitempty"`
	ORCID        string       `json:"orcid,omitempty"`
	WorksCount   int          `json:"worksCount"`
	CitedByCount int          `json:"citedByCount"`
	ProfileURL   string       `json:"profileUrl,omitempty"`
}

// ResultID builds the public identifier for a provider record.
func ResultID(provider ProviderName, providerID string) string {
	return string(provider) + ":" + providerID
}

// NewPaperResult creates a PaperResult with its id derived from provider
// and providerId, the title placeholder applied and non-nil slices.
func NewPaperResult(provider ProviderName, providerID, title string) PaperResult {
	title = strings.TrimSpace(title)
	if title == "" {
		title = UntitledPaper
	}
	return PaperResult{
		ID:          ResultID(provider, providerID),
		Provider:    provider,
		ProviderID:  providerID,
		Title:       title,
		Authors:     []PaperAuthor{},
		SourceTypes: []string{},
	}
}

// NewAuthorResult creates an AuthorResult with its id derived from provider
// and providerId and the name placeholder applied.
func NewAuthorResult(provider ProviderName, providerID, name string) AuthorResult {
	name = strings.TrimSpace(name)
	if name == "" {
		name = UnknownAuthor
	}
	return AuthorResult{
		ID:         ResultID(provider, providerID),
		Provider:   provider,
		ProviderID: providerID,
		Name:       name,
	}
}
