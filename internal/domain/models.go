// Package domain provides domain models and business logic for the Scholar Search Service.
package domain

import (
	"encoding/json"
	"strings"
)

// ProviderName identifies an upstream bibliographic provider.
// The values are part of the public API: they appear in result ids,
// in the providers query parameter, and in meta.errors.
type ProviderName string

const (
	ProviderOpenAlex        ProviderName = "openalex"
	ProviderSemanticScholar ProviderName = "semanticscholar"
	ProviderArXiv           ProviderName = "arxiv"
	ProviderCrossref        ProviderName = "crossref"
	ProviderORCID           ProviderName = "orcid"
)

// AllProviders lists every provider in fan-out order.
var AllProviders = []ProviderName{
	ProviderOpenAlex,
	ProviderSemanticScholar,
	ProviderArXiv,
	ProviderCrossref,
	ProviderORCID,
}

// IsValid returns true if the provider name is one of the known providers.
func (p ProviderName) IsValid() bool {
	for _, known := range AllProviders {
		if p == known {
			return true
		}
	}
	return false
}

// ResultType selects which result branches a search runs.
type ResultType string

const (
	ResultTypePapers  ResultType = "papers"
	ResultTypeAuthors ResultType = "authors"
	ResultTypeAll     ResultType = "all"
)

// IncludesPapers returns true if paper providers should be queried.
func (t ResultType) IncludesPapers() bool {
	return t == ResultTypePapers || t == ResultTypeAll
}

// IncludesAuthors returns true if author providers should be queried.
func (t ResultType) IncludesAuthors() bool {
	return t == ResultTypeAuthors || t == ResultTypeAll
}

// SortMode selects the paper ranking strategy.
type SortMode string

const (
	SortRelevance SortMode = "relevance"
	SortRecent    SortMode = "recent"
)

// Default and bound values for search parameters.
const (
	DefaultLimit    = 10
	MaxLimit        = 25
	DefaultPage     = 1
	MinQueryLength  = 2
	DefaultCursor   = "*"
	DefaultType     = ResultTypeAll
	DefaultSortMode = SortRelevance
)

// SearchParams is the validated, defaulted form of a search request.
// Field order is fixed so that CacheKey is deterministic.
type SearchParams struct {
	Query     string         `json:"q" validate:"required,min=2"`
	Type      ResultType     `json:"type" validate:"oneof=papers authors all"`
	Limit     int            `json:"limit" validate:"min=1,max=25"`
	Page      int            `json:"page" validate:"min=1"`
	Cursor    string         `json:"cursor,omitempty"`
	YearFrom  *int           `json:"yearFrom,omitempty" validate:"omitempty,min=1,max=9999"`
	YearTo    *int           `json:"yearTo,omitempty" validate:"omitempty,min=1,max=9999"`
	Sort      SortMode       `json:"sort" validate:"oneof=relevance recent"`
	Providers []ProviderName `json:"providers,omitempty" validate:"omitempty,dive,oneof=openalex semanticscholar arxiv crossref orcid"`
}

// WithDefaults returns a copy of the params with zero values replaced by defaults.
func (p SearchParams) WithDefaults() SearchParams {
	if p.Type == "" {
		p.Type = DefaultType
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Page == 0 {
		p.Page = DefaultPage
	}
	if p.Sort == "" {
		p.Sort = DefaultSortMode
	}
	return p
}

// Offset returns the zero-based result offset for offset-paginated providers.
func (p SearchParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// AllowsProvider reports whether the providers filter admits the given provider.
// An empty filter admits every provider.
func (p SearchParams) AllowsProvider(name ProviderName) bool {
	if len(p.Providers) == 0 {
		return true
	}
	for _, allowed := range p.Providers {
		if allowed == name {
			return true
		}
	}
	return false
}

// CacheKey returns the deterministic serialization of the params used as the
// result cache key. Two requests with identical resolved params share a key.
func (p SearchParams) CacheKey() string {
	b, err := json.Marshal(p)
	if err != nil {
		// SearchParams only holds strings, ints and slices of strings.
		return p.Query
	}
	return string(b)
}

// ParseProviderList splits a comma-separated providers value into names.
// Blank entries are dropped and names are lower-cased.
func ParseProviderList(raw string) []ProviderName {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	names := make([]ProviderName, 0, len(parts))
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		names = append(names, ProviderName(part))
	}
	return names
}
