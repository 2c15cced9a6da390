// Package openalex provides a client for the OpenAlex API.
//
// OpenAlex is a free, open catalog of scholarly works, authors, venues,
// institutions, and concepts. The client searches works and authors and is
// the only cursor-paginated provider.
//
// API Documentation: https://docs.openalex.org/
package openalex

// WorksResponse represents the top-level response from the works search endpoint.
type WorksResponse struct {
	Meta    Meta   `json:"meta"`
	Results []Work `json:"results"`
}

// AuthorsResponse represents the top-level response from the authors search endpoint.
type AuthorsResponse struct {
	Meta    Meta     `json:"meta"`
	Results []Author `json:"results"`
}

// Meta contains metadata about the search results including pagination info.
type Meta struct {
	Count      int    `json:"count"`
	NextCursor string `json:"next_cursor"`
}

// Work represents an academic work (paper) in OpenAlex.
type Work struct {
	ID              string       `json:"id"`
	DOI             string       `json:"doi"`
	Title           string       `json:"title"`
	DisplayName     string       `json:"display_name"`
	PublicationYear int          `json:"publication_year"`
	PublicationDate string       `json:"publication_date"`
	Type            string       `json:"type"`
	CitedByCount    int          `json:"cited_by_count"`
	Authorships     []Authorship `json:"authorships"`
	PrimaryLocation *Location    `json:"primary_location"`
	Concepts        []Concept    `json:"concepts"`

	// Abstract is stored as an inverted index - we will reconstruct it
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
}

// Authorship represents an author's contribution to a work.
type Authorship struct {
	Author AuthorRef `json:"author"`
}

// AuthorRef contains the author fields embedded in a work.
type AuthorRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Location represents where a work is available.
type Location struct {
	Source         *Source `json:"source"`
	LandingPageURL string  `json:"landing_page_url"`
}

// Source represents a publication venue (journal, repository, etc.).
type Source struct {
	DisplayName string `json:"display_name"`
}

// Concept is a topic tag attached to a work.
type Concept struct {
	DisplayName string `json:"display_name"`
}

// Author represents an author record from the authors endpoint.
type Author struct {
	ID                    string         `json:"id"`
	DisplayName           string         `json:"display_name"`
	ORCID                 string         `json:"orcid"`
	WorksCount            int            `json:"works_count"`
	CitedByCount          int            `json:"cited_by_count"`
	LastKnownInstitution  *Institution   `json:"last_known_institution"`
	LastKnownInstitutions []*Institution `json:"last_known_institutions"`
}

// Institution represents an academic institution.
type Institution struct {
	DisplayName string `json:"display_name"`
}
