package cli

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/alamshoaib134/git-secret-scanner/internal/scan"
)

func (a *app) patternsCmd() *cobra.Command {
	var broken bool
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "List the secret patterns in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return failed(writePatterns(cmd.OutOrStdout(), scan.DefaultCatalog(nil), broken))
		},
	}
	cmd.Flags().BoolVar(&broken, "broken", false, "list only patterns that fail to compile")
	return cmd
}

func writePatterns(w io.Writer, catalog *scan.Catalog, onlyBroken bool) error {
	table := tablewriter.NewWriter(w)
	table.Header("Name", "Severity", "Pattern", "Status")
	var rows [][]string
	for _, r := range catalog.Rules() {
		if onlyBroken && !r.Broken() {
			continue
		}
		status := "ok"
		if r.Broken() {
			status = "invalid: " + r.Err().Error()
		}
		rows = append(rows, []string{r.Name, string(r.Severity), r.Pattern, status})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d patterns\n", len(rows))
	return err
}
