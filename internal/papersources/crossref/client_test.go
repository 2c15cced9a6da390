package crossref

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/scholar-search-service/internal/domain"
	"github.com/helixir/scholar-search-service/internal/papersources"
)

const sampleWorks = `{
  "status": "ok",
  "message": {
    "total-results": 2,
    "items": [
      {
        "DOI": "10.1145/3065386",
        "URL": "https://doi.org/10.1145/3065386",
        "type": "journal-article",
        "title": ["ImageNet classification with deep convolutional neural networks"],
        "container-title": ["Communications of the ACM"],
        "abstract": "<jats:p>We trained a large,\n deep <jats:italic>convolutional</jats:italic> neural network.</jats:p>",
        "author": [
          {"given": "Alex", "family": "Krizhevsky", "ORCID": "http://orcid.org/0000-0001-0000-0001"},
          {"name": "Google Brain Team"},
          {}
        ],
        "issued": {"date-parts": [[2017, 5, 24]]},
        "is-referenced-by-count": 75000,
        "subject": ["General Computer Science"]
      },
      {
        "DOI": "10.5555/untitled",
        "title": [],
        "issued": {"date-parts": [[null]]}
      }
    ]
  }
}`

func newTestClient(serverURL string) *Client {
	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout: 5 * time.Second,
	}, papersources.NewSpacingLimiter(0))

	return NewWithHTTPClient(Config{BaseURL: serverURL, Mailto: "ops@example.org", Enabled: true}, httpClient)
}

func testParams(query string) domain.SearchParams {
	return domain.SearchParams{Query: query}.WithDefaults()
}

func intPtr(v int) *int { return &v }

func TestNew(t *testing.T) {
	t.Run("mailto goes into User-Agent", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "ScholarSearchService/1.0 (mailto:ops@example.org)", r.Header.Get("User-Agent"))
			assert.Equal(t, "ops@example.org", r.URL.Query().Get("mailto"))
			w.Write([]byte(`{"message":{"items":[]}}`))
		}))
		defer server.Close()

		client := New(Config{BaseURL: server.URL, Mailto: "ops@example.org", Enabled: true}, papersources.NewSpacingLimiter(0))
		_, err := client.SearchPapers(context.Background(), testParams("anything"))
		require.NoError(t, err)
	})

	t.Run("defaults", func(t *testing.T) {
		client := New(Config{}, nil)
		assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
		assert.Equal(t, DefaultMinInterval, client.httpClient.RateLimiter().MinInterval())
		assert.Equal(t, domain.ProviderCrossref, client.Name())
	})
}

func TestClient_SearchPapers(t *testing.T) {
	t.Run("maps work items", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/works", r.URL.Path)
			q := r.URL.Query()
			assert.Equal(t, "imagenet", q.Get("query"))
			assert.Equal(t, "5", q.Get("rows"))
			assert.Equal(t, "5", q.Get("offset"))
			assert.Empty(t, q.Get("cursor"))
			w.Write([]byte(sampleWorks))
		}))
		defer server.Close()

		params := testParams("imagenet")
		params.Limit = 5
		params.Page = 2

		page, err := newTestClient(server.URL).SearchPapers(context.Background(), params)
		require.NoError(t, err)
		require.Len(t, page.Papers, 2)

		p := page.Papers[0]
		assert.Equal(t, "crossref:10.1145/3065386", p.ID)
		assert.Equal(t, "ImageNet classification with deep convolutional neural networks", p.Title)
		assert.Equal(t, "Communications of the ACM", p.Venue)
		assert.Equal(t, "We trained a large, deep convolutional neural network.", p.Abstract)
		assert.Equal(t, 2017, p.Year)
		assert.Equal(t, "2017-5-24", p.PublishedAt)
		assert.Equal(t, 75000, p.CitedByCount)
		assert.Equal(t, "10.1145/3065386", p.DOI)
		assert.Equal(t, []string{"journal-article"}, p.SourceTypes)
		assert.Equal(t, []string{"General Computer Science"}, p.Tags)
		assert.Equal(t, []domain.PaperAuthor{
			{Name: "Alex Krizhevsky", ID: "http://orcid.org/0000-0001-0000-0001"},
			{Name: "Google Brain Team"},
			{Name: domain.UnknownAuthor},
		}, p.Authors)

		untitled := page.Papers[1]
		assert.Equal(t, domain.UntitledPaper, untitled.Title)
		assert.Equal(t, 0, untitled.Year)
		assert.Empty(t, untitled.PublishedAt)
		assert.Equal(t, []string{}, untitled.SourceTypes)
	})

	t.Run("year filters", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "from-pub-date:2015,until-pub-date:2018", r.URL.Query().Get("filter"))
			w.Write([]byte(`{"message":{"items":[]}}`))
		}))
		defer server.Close()

		params := testParams("imagenet")
		params.YearFrom = intPtr(2015)
		params.YearTo = intPtr(2018)

		_, err := newTestClient(server.URL).SearchPapers(context.Background(), params)
		require.NoError(t, err)
	})

	t.Run("non-2xx response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Resource not found."))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).SearchPapers(context.Background(), testParams("x y"))

		var pe *domain.ProviderError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, domain.ProviderCrossref, pe.Provider)
		assert.Contains(t, pe.Message, "status 404")
	})
}

func TestStripMarkup(t *testing.T) {
	assert.Empty(t, stripMarkup(""))
	assert.Equal(t, "plain text", stripMarkup("plain   text"))
	assert.Equal(t, "Title Body", stripMarkup("<jats:title>Title</jats:title><jats:p>Body</jats:p>"))
}

func TestIssuedDate(t *testing.T) {
	year, published := issuedDate(nil)
	assert.Equal(t, 0, year)
	assert.Empty(t, published)

	y := 2020
	year, published = issuedDate(&DateInfo{DateParts: [][]*int{{&y}}})
	assert.Equal(t, 2020, year)
	assert.Equal(t, "2020", published)
}
