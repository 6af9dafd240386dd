package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"adshub/internal/app"
	"adshub/internal/infrastructure"
)

func newExportCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the cleaned dataset",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "xlsx <out>",
		Short: "Write the estimator dataset to a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if err := a.Services.Estimator.ExportXLSX(ctx, args[0]); err != nil {
				return err
			}
			info, err := a.Services.Estimator.Info(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d campaigns (%s) to %s\n", info.Campaigns, info.Source, args[0])
			return nil
		},
	})
	return cmd
}
