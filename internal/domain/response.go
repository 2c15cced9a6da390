package domain

// ProviderFailure describes one provider call that failed during a search.
type ProviderFailure struct {
	Provider ProviderName `json:"provider"`
	Message  string       `json:"message"`
}

// QueryEcho echoes the resolved search params alongside the providers that
// were attempted.
type QueryEcho struct {
	SearchParams
	ProvidersUsed []ProviderName `json:"providersUsed"`
}

// ResponseMeta carries timing and partial-failure information.
type ResponseMeta struct {
	TookMs     int64             `json:"tookMs"`
	Partial    bool              `json:"partial"`
	Errors     []ProviderFailure `json:"errors"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

// SearchResponse is the envelope returned for every successful search.
// Once stored in the result cache a response is never mutated; readers that
// need to adjust Meta work on a copy.
type SearchResponse struct {
	Query   QueryEcho      `json:"query"`
	Papers  []PaperResult  `json:"papers"`
	Authors []AuthorResult `json:"authors"`
	Meta    ResponseMeta   `json:"meta"`
}

// WithTook returns a shallow copy of the response with Meta.TookMs replaced.
// Result slices are shared with the receiver and must be treated as read-only.
func (r *SearchResponse) WithTook(tookMs int64) *SearchResponse {
	cp := *r
	cp.Meta.TookMs = tookMs
	return &cp
}

// FailedProviders returns the provider names recorded in Meta.Errors.
func (r *SearchResponse) FailedProviders() []ProviderName {
	names := make([]ProviderName, 0, len(r.Meta.Errors))
	for _, e := range r.Meta.Errors {
		names = append(names, e.Provider)
	}
	return names
}
