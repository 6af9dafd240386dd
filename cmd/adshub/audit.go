package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"adshub/internal/app"
	"adshub/internal/audit"
	"adshub/internal/infrastructure"
	"adshub/internal/services"
)

func newAuditCmd(g *globalOptions) *cobra.Command {
	var xlsxPath string
	cmd := &cobra.Command{
		Use:   "audit <name>...|all",
		Short: "Run audit reports against the exports",
		Long: "Run one or more audit reports and print them. \"all\" runs every audit.\n\nAudits: " +
			strings.Join(audit.Names(), ", "),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(args) == 1 && args[0] == "all" {
				names = nil
			}
			for _, n := range names {
				if _, ok := audit.Lookup(n); !ok {
					return fmt.Errorf("unknown audit %q (known: %s)", n, strings.Join(audit.Names(), ", "))
				}
			}

			cfg, err := g.load()
			if err != nil {
				return err
			}
			ctx := infrastructure.EnsureTraceID(cmd.Context())
			a, err := g.newApp(ctx, cfg, app.Options{DisablePublish: true})
			if err != nil {
				return err
			}
			defer a.Stop(ctx)

			var results []*services.AuditResult
			if xlsxPath != "" {
				results, err = a.Services.Audit.ExportXLSX(ctx, xlsxPath, names...)
			} else {
				results, err = a.Services.Audit.RunAll(ctx, names...)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, r := range results {
				if err := audit.Render(out, r.Report); err != nil {
					return err
				}
				fmt.Fprintln(out)
				if r.Verdict == audit.VerdictFail {
					failed++
				}
			}
			if len(results) > 1 {
				fmt.Fprintln(out, renderAuditSummary(results))
			}
			if xlsxPath != "" {
				fmt.Fprintf(out, "Workbook written to %s\n", xlsxPath)
			}
			if failed > 0 {
				return fmt.Errorf("%d audit(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also write the reports to this workbook")
	return cmd
}
