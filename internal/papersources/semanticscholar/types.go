// Package semanticscholar provides a client for the Semantic Scholar API.
//
// Semantic Scholar is a free, AI-powered research tool for scientific literature.
// This package searches papers and authors through the Semantic Scholar Graph
// API. Both endpoints are offset paginated.
//
// API Documentation: https://api.semanticscholar.org/api-docs/
package semanticscholar

import (
	"bytes"
	"encoding/json"
)

// PaperSearchResponse represents the response from the paper search endpoint.
type PaperSearchResponse struct {
	// Total is the total number of papers matching the query.
	Total int `json:"total"`

	// Offset is the current offset in the result set.
	Offset int `json:"offset"`

	// Next is the offset for the next page of results.
	// A value of 0 indicates no more results.
	Next int `json:"next"`

	// Data contains the list of papers returned by the search.
	Data []Paper `json:"data"`
}

// AuthorSearchResponse represents the response from the author search endpoint.
type AuthorSearchResponse struct {
	Total  int      `json:"total"`
	Offset int      `json:"offset"`
	Data   []Author `json:"data"`
}

// Paper represents a single paper in the Semantic Scholar API response.
type Paper struct {
	// PaperID is the Semantic Scholar unique identifier for the paper.
	PaperID string `json:"paperId"`

	// Title is the title of the paper.
	Title string `json:"title"`

	// Abstract is the paper's abstract text.
	Abstract string `json:"abstract"`

	// Year is the publication year.
	Year int `json:"year"`

	// PublicationDate is the full publication date in YYYY-MM-DD format.
	PublicationDate string `json:"publicationDate"`

	// Venue is the publication venue (conference, journal name, etc.).
	Venue string `json:"venue"`

	// URL is the Semantic Scholar page for the paper.
	URL string `json:"url"`

	// Authors is the list of paper authors.
	Authors []PaperAuthor `json:"authors"`

	// CitationCount is the number of citations this paper has received.
	CitationCount int `json:"citationCount"`

	// PublicationTypes lists types such as "JournalArticle" or "Conference".
	PublicationTypes []string `json:"publicationTypes"`

	// ExternalIDs contains external identifiers for the paper (DOI, ArXiv, etc.).
	ExternalIDs *ExternalIDs `json:"externalIds,omitempty"`
}

// ExternalIDs contains external identifiers for a paper or author.
type ExternalIDs struct {
	// DOI is the Digital Object Identifier.
	DOI string `json:"DOI,omitempty"`

	// ArXiv is the ArXiv identifier.
	ArXiv string `json:"ArXiv,omitempty"`
}

// PaperAuthor represents an author entry on a paper.
type PaperAuthor struct {
	// AuthorID is the Semantic Scholar unique identifier for the author.
	AuthorID string `json:"authorId,omitempty"`

	// Name is the author's name.
	Name string `json:"name"`
}

// Author represents an author record from the author search endpoint.
type Author struct {
	AuthorID      string   `json:"authorId"`
	Name          string   `json:"name"`
	URL           string   `json:"url"`
	Homepage      string   `json:"homepage"`
	Affiliations  []string `json:"affiliations"`
	PaperCount    int      `json:"paperCount"`
	CitationCount int      `json:"citationCount"`

	ExternalIDs *AuthorExternalIDs `json:"externalIds"`
}

// AuthorExternalIDs holds the external identifiers of an author record.
type AuthorExternalIDs struct {
	ORCID firstString `json:"ORCID"`
}

// firstString decodes a JSON value that is either a string or a list of
// strings, keeping the first entry. Any other shape decodes as empty so one
// odd record cannot fail a whole page.
type firstString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *firstString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	var list []string
	if len(data) > 0 && data[0] == '[' {
		if json.Unmarshal(data, &list) == nil && len(list) > 0 {
			*s = firstString(list[0])
		}
		return nil
	}

	var v string
	if json.Unmarshal(data, &v) == nil {
		*s = firstString(v)
	}
	return nil
}

// ErrorResponse represents an error response from the Semantic Scholar API.
type ErrorResponse struct {
	// Error is the error message from the API.
	Error string `json:"error,omitempty"`

	// Message is an alternative error message field.
	Message string `json:"message,omitempty"`
}
