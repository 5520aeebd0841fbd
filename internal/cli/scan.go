package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/alamshoaib134/git-secret-scanner/internal/logger"
	"github.com/alamshoaib134/git-secret-scanner/internal/scan"
	"github.com/alamshoaib134/git-secret-scanner/internal/services"
	"github.com/alamshoaib134/git-secret-scanner/models"
)

// Output formats of the scan command.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

func (a *app) scanCmd() *cobra.Command {
	var (
		format     string
		maxCommits int
	)
	cmd := &cobra.Command{
		Use:   "scan <git-url>",
		Short: "Scan one repository and print the findings",
		Long: `Clone a repository, scan every commit and the current files, and print
the findings. Exits 1 when secrets were found and 4 when the scan failed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != FormatTable && format != FormatJSON {
				return fmt.Errorf("unknown format %q, want %s or %s", format, FormatTable, FormatJSON)
			}
			if err := a.setup(cmd.ErrOrStderr()); err != nil {
				return failed(err)
			}
			defer logger.Sync()
			if maxCommits > 0 {
				a.cfg.MaxCommits = maxCommits
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := buildRuntime(ctx, a.cfg, a.log, false)
			if err != nil {
				return failed(err)
			}
			st, err := rt.orch.Execute(ctx, args[0])
			if errors.Is(err, services.ErrEmptyURL) {
				return err
			}
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "scan failed: %v\n", err)
				a.exitCode = ExitRuntimeError
				return nil
			}
			if st.Status != models.StatusCompleted || st.Results == nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "scan failed: %s\n", st.Message)
				a.exitCode = ExitRuntimeError
				return nil
			}

			switch format {
			case FormatJSON:
				err = writeJSON(cmd.OutOrStdout(), st)
			default:
				err = writeTable(cmd.OutOrStdout(), *st.Results)
			}
			if err != nil {
				return failed(fmt.Errorf("write results: %w", err))
			}
			if st.Results.Summary.TotalFindings > 0 {
				a.exitCode = ExitFindings
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", FormatTable, "output format: table or json")
	cmd.Flags().IntVar(&maxCommits, "max-commits", 0, "override the configured commit cap")
	return cmd
}

func writeJSON(w io.Writer, st models.ScanStatus) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}

// writeTable prints the summary, the findings and a per-type breakdown.
func writeTable(w io.Writer, res models.Result) error {
	s := res.Summary
	fmt.Fprintf(w, "Repository: %s\nCommits scanned: %d of %d\n\n", res.RepoURL, s.CommitsScanned, s.TotalCommits)

	summary := tablewriter.NewWriter(w)
	summary.Header("Severity", "Findings")
	if err := summary.Bulk([][]string{
		{string(models.SeverityCritical), strconv.Itoa(s.Critical)},
		{string(models.SeverityHigh), strconv.Itoa(s.High)},
		{string(models.SeverityMedium), strconv.Itoa(s.Medium)},
		{string(models.SeverityLow), strconv.Itoa(s.Low)},
		{"total", strconv.Itoa(s.TotalFindings)},
	}); err != nil {
		return err
	}
	if err := summary.Render(); err != nil {
		return err
	}
	if len(res.Findings) == 0 {
		fmt.Fprintln(w, "\nNo secrets found.")
		return nil
	}

	fmt.Fprintln(w)
	findings := tablewriter.NewWriter(w)
	findings.Header("Severity", "Type", "File", "Line", "Commit", "Branch", "Preview")
	rows := make([][]string, 0, len(res.Findings))
	for _, f := range res.Findings {
		rows = append(rows, []string{
			string(f.Severity), f.SecretType, f.FilePath, strconv.Itoa(f.LineNumber),
			f.CommitHash, f.Branch, f.SecretPreview,
		})
	}
	if err := findings.Bulk(rows); err != nil {
		return err
	}
	if err := findings.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	counts := scan.CountByType(res.Findings)
	types := tablewriter.NewWriter(w)
	types.Header("Secret type", "Findings")
	typeRows := make([][]string, 0, len(counts))
	for _, name := range slices.Sorted(maps.Keys(counts)) {
		typeRows = append(typeRows, []string{name, strconv.Itoa(counts[name])})
	}
	if err := types.Bulk(typeRows); err != nil {
		return err
	}
	return types.Render()
}
