package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helixir/scholar-search-service/internal/domain"
	"github.com/helixir/scholar-search-service/internal/search"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search papers and authors across all providers",
		Long: `Search runs one unified search and prints the JSON response envelope.
Providers that fail are listed in meta.errors; the search still succeeds.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().String("type", string(domain.DefaultType), "result type: papers, authors or all")
	cmd.Flags().Int("limit", domain.DefaultLimit, "results per provider (1-25)")
	cmd.Flags().Int("page", domain.DefaultPage, "page number for offset-paginated providers")
	cmd.Flags().String("cursor", "", "OpenAlex cursor from a previous meta.nextCursor")
	cmd.Flags().Int("year-from", 0, "earliest publication year")
	cmd.Flags().Int("year-to", 0, "latest publication year")
	cmd.Flags().String("sort", string(domain.DefaultSortMode), "paper ranking: relevance or recent")
	cmd.Flags().StringSlice("providers", nil, "restrict to these providers (comma-separated)")
	cmd.Flags().Bool("compact", false, "print compact JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	values := searchValues(cmd, args)

	application, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	resp, err := application.Service.UnifiedSearch(cmd.Context(), values)
	if err != nil {
		var verrs domain.ValidationErrors
		if errors.As(err, &verrs) {
			printFieldErrors(cmd, verrs.Fields())
		}
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if compact, _ := cmd.Flags().GetBool("compact"); !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}

// searchValues maps flags onto the query parameters accepted by the HTTP API.
// Flags left unset are omitted so the service defaults apply.
func searchValues(cmd *cobra.Command, args []string) url.Values {
	values := url.Values{}
	values.Set(search.ParamQuery, strings.Join(args, " "))

	flags := cmd.Flags()
	setString := func(flag, param string) {
		if flags.Changed(flag) {
			v, _ := flags.GetString(flag)
			values.Set(param, v)
		}
	}
	setInt := func(flag, param string) {
		if flags.Changed(flag) {
			v, _ := flags.GetInt(flag)
			values.Set(param, strconv.Itoa(v))
		}
	}

	setString("type", search.ParamType)
	setString("cursor", search.ParamCursor)
	setString("sort", search.ParamSort)
	setInt("limit", search.ParamLimit)
	setInt("page", search.ParamPage)
	setInt("year-from", search.ParamYearFrom)
	setInt("year-to", search.ParamYearTo)

	if flags.Changed("providers") {
		providers, _ := flags.GetStringSlice("providers")
		values.Set(search.ParamProviders, strings.Join(providers, ","))
	}
	return values
}

func printFieldErrors(cmd *cobra.Command, fields map[string]string) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	w := cmd.ErrOrStderr()
	fmt.Fprintln(w, "invalid search parameters:")
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %s\n", name, fields[name])
	}
}
