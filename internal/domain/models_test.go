package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestSearchParams_WithDefaults(t *testing.T) {
	p := SearchParams{Query: "graph neural networks"}.WithDefaults()

	assert.Equal(t, ResultTypeAll, p.Type)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Equal(t, DefaultPage, p.Page)
	assert.Equal(t, SortRelevance, p.Sort)
	assert.Empty(t, p.Cursor)
}

func TestSearchParams_Offset(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		limit    int
		expected int
	}{
		{name: "first page", page: 1, limit: 10, expected: 0},
		{name: "third page", page: 3, limit: 10, expected: 20},
		{name: "second page of 25", page: 2, limit: 25, expected: 25},
		{name: "zero page", page: 0, limit: 10, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := SearchParams{Page: tt.page, Limit: tt.limit}
			assert.Equal(t, tt.expected, p.Offset())
		})
	}
}

func TestSearchParams_AllowsProvider(t *testing.T) {
	t.Run("empty filter allows everything", func(t *testing.T) {
		p := SearchParams{}
		for _, name := range AllProviders {
			assert.True(t, p.AllowsProvider(name))
		}
	})

	t.Run("filter restricts", func(t *testing.T) {
		p := SearchParams{Providers: []ProviderName{ProviderArXiv, ProviderORCID}}
		assert.True(t, p.AllowsProvider(ProviderArXiv))
		assert.True(t, p.AllowsProvider(ProviderORCID))
		assert.False(t, p.AllowsProvider(ProviderOpenAlex))
	})
}

func TestSearchParams_CacheKey(t *testing.T) {
	base := SearchParams{
		Query:    "transformers",
		Type:     ResultTypePapers,
		Limit:    10,
		Page:     1,
		Sort:     SortRelevance,
		YearFrom: intPtr(2019),
	}

	t.Run("identical params share a key", func(t *testing.T) {
		other := base
		other.YearFrom = intPtr(2019)
		assert.Equal(t, base.CacheKey(), other.CacheKey())
	})

	t.Run("any field change changes the key", func(t *testing.T) {
		changed := []SearchParams{base, base, base, base, base}
		changed[0].Query = "Transformers"
		changed[1].Page = 2
		changed[2].Sort = SortRecent
		changed[3].YearFrom = nil
		changed[4].Providers = []ProviderName{ProviderArXiv}

		for i, c := range changed {
			assert.NotEqual(t, base.CacheKey(), c.CacheKey(), "variant %d", i)
		}
	})

	t.Run("serialization is stable", func(t *testing.T) {
		assert.Equal(t,
			`{"q":"transformers","type":"papers","limit":10,"page":1,"yearFrom":2019,"sort":"relevance"}`,
			base.CacheKey())
	})
}

func TestParseProviderList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []ProviderName
	}{
		{name: "empty", input: "", expected: nil},
		{name: "blank", input: "  ", expected: nil},
		{name: "single", input: "arxiv", expected: []ProviderName{ProviderArXiv}},
		{
			name:     "trims and lower-cases",
			input:    " OpenAlex, crossref ,,ORCID",
			expected: []ProviderName{ProviderOpenAlex, ProviderCrossref, ProviderORCID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseProviderList(tt.input))
		})
	}
}

func TestProviderName_IsValid(t *testing.T) {
	assert.True(t, ProviderSemanticScholar.IsValid())
	assert.False(t, ProviderName("scopus").IsValid())
}

func TestResultType_Branches(t *testing.T) {
	assert.True(t, ResultTypeAll.IncludesPapers())
	assert.True(t, ResultTypeAll.IncludesAuthors())
	assert.True(t, ResultTypePapers.IncludesPapers())
	assert.False(t, ResultTypePapers.IncludesAuthors())
	assert.False(t, ResultTypeAuthors.IncludesPapers())
	assert.True(t, ResultTypeAuthors.IncludesAuthors())
}

func TestNewPaperResult(t *testing.T) {
	p := NewPaperResult(ProviderCrossref, "10.1000/xyz", "   ")

	assert.Equal(t, "crossref:10.1000/xyz", p.ID)
	assert.Equal(t, UntitledPaper, p.Title)
	assert.NotNil(t, p.Authors)
	assert.NotNil(t, p.SourceTypes)
	assert.Zero(t, p.CitedByCount)
}

func TestNewAuthorResult(t *testing.T) {
	a := NewAuthorResult(ProviderORCID, "0000-0002-1825-0097", "")

	assert.Equal(t, "orcid:0000-0002-1825-0097", a.ID)
	assert.Equal(t, UnknownAuthor, a.Name)
}

func TestSearchResponse_WithTook(t *testing.T) {
	orig := &SearchResponse{
		Papers: []PaperResult{NewPaperResult(ProviderArXiv, "2301.00001", "A")},
		Meta:   ResponseMeta{TookMs: 900, Errors: []ProviderFailure{}},
	}

	cp := orig.WithTook(3)

	assert.Equal(t, int64(3), cp.Meta.TookMs)
	assert.Equal(t, int64(900), orig.Meta.TookMs)
	assert.Equal(t, orig.Papers, cp.Papers)
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	errs = errs.Add("q", "must be at least 2 characters")
	errs = errs.Add("limit", "must be at most 25")
	errs = errs.Add("q", "second message is ignored")

	t.Run("fields map keeps first message per field", func(t *testing.T) {
		fields := errs.Fields()
		require.Len(t, fields, 2)
		assert.Equal(t, "must be at least 2 characters", fields["q"])
		assert.Equal(t, "must be at most 25", fields["limit"])
	})

	t.Run("error message lists fields in order", func(t *testing.T) {
		assert.Equal(t,
			"validation failed: limit: must be at most 25; q: must be at least 2 characters",
			errs.Error())
	})

	t.Run("matches ErrInvalidInput", func(t *testing.T) {
		var err error = errs
		assert.True(t, errors.Is(err, ErrInvalidInput))

		wrapped := fmt.Errorf("search: %w", err)
		var target ValidationErrors
		require.True(t, errors.As(wrapped, &target))
		assert.Len(t, target, 3)
	})

	t.Run("single validation error unwraps to sentinel", func(t *testing.T) {
		assert.ErrorIs(t, NewValidationError("page", "must be at least 1"), ErrInvalidInput)
	})
}

func TestProviderError(t *testing.T) {
	t.Run("wraps cause", func(t *testing.T) {
		cause := NewExternalAPIError("Crossref", 503, "unavailable", nil)
		err := NewProviderError(ProviderCrossref, cause)

		assert.Equal(t, ProviderCrossref, err.Provider)
		assert.Equal(t, "Crossref API error (status 503): unavailable", err.Message)
		assert.Equal(t, "crossref: Crossref API error (status 503): unavailable", err.Error())

		var apiErr *ExternalAPIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 503, apiErr.StatusCode)
		assert.ErrorIs(t, err, ErrServiceUnavailable)
	})

	t.Run("keeps deadline classification", func(t *testing.T) {
		err := NewProviderError(ProviderArXiv, fmt.Errorf("executing request: %w", context.DeadlineExceeded))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("does not double wrap", func(t *testing.T) {
		inner := NewProviderError(ProviderORCID, errors.New("boom"))
		outer := NewProviderError(ProviderOpenAlex, fmt.Errorf("ctx: %w", inner))
		assert.Same(t, inner, outer)
	})

	t.Run("nil cause", func(t *testing.T) {
		err := NewProviderError(ProviderORCID, nil)
		assert.Equal(t, "unknown error", err.Message)
	})
}

func TestNewExternalAPIError(t *testing.T) {
	t.Run("classifies status", func(t *testing.T) {
		assert.ErrorIs(t, NewExternalAPIError("OpenAlex", 429, "slow down", nil), ErrRateLimited)
		assert.ErrorIs(t, NewExternalAPIError("OpenAlex", 502, "bad gateway", nil), ErrServiceUnavailable)
		assert.NoError(t, errors.Unwrap(NewExternalAPIError("OpenAlex", 404, "not found", nil)))
	})

	t.Run("keeps explicit cause", func(t *testing.T) {
		cause := errors.New("read failed")
		err := NewExternalAPIError("ORCID", 503, "failed to read error response", cause)
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, ErrServiceUnavailable)
	})

	t.Run("replaces markup with status text", func(t *testing.T) {
		body := "<html><body>" + strings.Repeat("x", 500_000) + "</body></html>"
		err := NewExternalAPIError("OpenAlex", 502, body, nil)

		assert.Equal(t, "Bad Gateway", err.Message)
		assert.Equal(t, "OpenAlex API error (status 502): Bad Gateway", err.Error())
	})

	t.Run("truncates long text", func(t *testing.T) {
		err := NewExternalAPIError("Crossref", 400, strings.Repeat("é", 400), nil)

		assert.LessOrEqual(t, len(err.Message), maxAPIErrorMessage+len("..."))
		assert.True(t, strings.HasSuffix(err.Message, "..."))
		assert.True(t, utf8.ValidString(err.Message))
	})

	t.Run("collapses whitespace and fills empty bodies", func(t *testing.T) {
		assert.Equal(t, "query too long", NewExternalAPIError("arXiv", 400, "  query\n  too long\n", nil).Message)
		assert.Equal(t, "Service Unavailable", NewExternalAPIError("arXiv", 503, "", nil).Message)
	})
}
