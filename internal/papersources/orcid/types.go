// Package orcid provides a client for the ORCID public API expanded search.
//
// ORCID is the registry of persistent researcher identifiers. The client
// searches authors only and is offset paginated through start and rows.
//
// API Documentation: https://info.orcid.org/documentation/api-tutorials/api-tutorial-searching-the-orcid-registry/
package orcid

// ExpandedSearchResponse is the body of the expanded-search endpoint.
type ExpandedSearchResponse struct {
	Results  []ExpandedResult `json:"expanded-result"`
	NumFound int              `json:"num-found"`
}

// ExpandedResult is one researcher record.
type ExpandedResult struct {
	ORCIDID         string   `json:"orcid-id"`
	GivenNames      string   `json:"given-names"`
	FamilyNames     string   `json:"family-names"`
	CreditName      string   `json:"credit-name"`
	InstitutionName []string `json:"institution-name"`
}
