package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newProvidersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List configured providers",
		Long: `Providers lists every provider with its capabilities, request spacing
and whether it takes part in searches.`,
		Args: cobra.NoArgs,
		RunE: runProviders,
	}
	cmd.Flags().Bool("json", false, "output as JSON")
	return cmd
}

func runProviders(cmd *cobra.Command, _ []string) error {
	application, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(application.Providers)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tENABLED\tPAPERS\tAUTHORS\tSPACING\tRETRIES\tAPI KEY")
	for _, p := range application.Providers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			p.Name, yesNo(p.Enabled), yesNo(p.Papers), yesNo(p.Authors),
			p.MinInterval, p.MaxRetries, yesNo(p.HasAPIKey))
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
