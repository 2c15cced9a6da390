// Package crossref provides a client for the Crossref REST API.
//
// Crossref is the DOI registration agency for most scholarly publishers. The
// client searches works only and is offset paginated through rows and offset.
// Crossref asks clients to identify themselves with a contact address, which
// is sent both in the User-Agent header and as the mailto parameter.
//
// API Documentation: https://api.crossref.org/swagger-ui/index.html
package crossref

// WorksResponse represents the envelope returned by the works endpoint.
type WorksResponse struct {
	Status  string       `json:"status"`
	Message WorksMessage `json:"message"`
}

// WorksMessage holds the result page.
type WorksMessage struct {
	TotalResults int    `json:"total-results"`
	Items        []Item `json:"items"`
}

// Item is a single work record.
type Item struct {
	DOI                 string    `json:"DOI"`
	URL                 string    `json:"URL"`
	Type                string    `json:"type"`
	Title               []string  `json:"title"`
	ContainerTitle      []string  `json:"container-title"`
	Abstract            string    `json:"abstract"`
	Author              []Author  `json:"author"`
	Issued              *DateInfo `json:"issued"`
	IsReferencedByCount int       `json:"is-referenced-by-count"`
	Subject             []string  `json:"subject"`
}

// Author is a contributor on a work. Organisations carry Name instead of
// given and family names.
type Author struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
	ORCID  string `json:"ORCID"`
}

// DateInfo is Crossref's partial date form: [[year, month, day]] where month
// and day may be missing.
type DateInfo struct {
	DateParts [][]*int `json:"date-parts"`
}
