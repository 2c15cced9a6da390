package main

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/scholar-search-service/internal/domain"
)

// offlineEnv disables every provider so commands never reach the network.
func offlineEnv(t *testing.T) {
	t.Helper()
	for _, env := range os.Environ() {
		key, _, _ := strings.Cut(env, "=")
		if strings.HasPrefix(key, "SCHOLAR_") {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}
	chdir(t, t.TempDir())
	for _, p := range []string{"OPENALEX", "SEMANTIC_SCHOLAR", "ARXIV", "CROSSREF", "ORCID"} {
		t.Setenv("SCHOLAR_PROVIDERS_"+p+"_ENABLED", "false")
	}
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSearchCommand(t *testing.T) {
	offlineEnv(t)

	stdout, _, err := execute(t, "search", "graph", "neural", "networks", "--type", "papers", "--limit", "5", "--year-from", "2020")
	require.NoError(t, err)

	var resp domain.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "graph neural networks", resp.Query.Query)
	assert.Equal(t, domain.ResultTypePapers, resp.Query.Type)
	assert.Equal(t, 5, resp.Query.Limit)
	require.NotNil(t, resp.Query.YearFrom)
	assert.Equal(t, 2020, *resp.Query.YearFrom)
	assert.Nil(t, resp.Query.YearTo)
	assert.Empty(t, resp.Query.ProvidersUsed)
	assert.False(t, resp.Meta.Partial)
}

func TestSearchCommand_ValidationErrors(t *testing.T) {
	offlineEnv(t)

	stdout, stderr, err := execute(t, "search", "x", "--limit", "30", "--providers", "openalex,bing")
	require.Error(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "invalid search parameters:")
	assert.Contains(t, stderr, "q: must be at least 2 characters")
	assert.Contains(t, stderr, "limit: must be at most 25")
	assert.Contains(t, stderr, `providers: unknown provider "bing"`)
}

func TestSearchCommand_RequiresQuery(t *testing.T) {
	offlineEnv(t)

	_, _, err := execute(t, "search")
	assert.Error(t, err)
}

func TestProvidersCommand(t *testing.T) {
	offlineEnv(t)
	t.Setenv("SCHOLAR_PROVIDERS_CROSSREF_ENABLED", "true")

	stdout, _, err := execute(t, "providers")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "PROVIDER")

	var crossrefLine string
	for _, l := range lines[1:] {
		if strings.HasPrefix(l, "crossref") {
			crossrefLine = l
		}
	}
	require.NotEmpty(t, crossrefLine)
	assert.Equal(t, []string{"crossref", "yes", "yes", "no", "200ms", "1", "no"}, strings.Fields(crossrefLine))
}

func TestProvidersCommand_JSON(t *testing.T) {
	offlineEnv(t)

	stdout, _, err := execute(t, "providers", "--json")
	require.NoError(t, err)

	var infos []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &infos))
	require.Len(t, infos, 5)
	for _, info := range infos {
		assert.Equal(t, false, info["enabled"])
	}
}
