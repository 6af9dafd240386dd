package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"adshub/internal/app"
	"adshub/internal/config"
	"adshub/internal/infrastructure"
	"adshub/internal/operations"
	api "adshub/pkg/contracts/api/v1"
)

func newPipelineCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run the cleaning pipeline",
	}

	var (
		strategy string
		dbPath   string
		publish  bool
	)
	run := &cobra.Command{
		Use:   "run",
		Short: "Run every stage from merge to rolling, then persist and publish when enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Storage.SQLitePath = dbPath
			}
			if publish && !cfg.S3.Enabled() {
				return fmt.Errorf("--publish needs s3.bucket to be configured")
			}
			return runOperation(cmd, g, cfg, app.Options{DisablePublish: !publish}, api.OperationStartRequest{Strategy: strategy})
		},
	}
	run.Flags().StringVar(&strategy, "strategy", "", "Croatia extraction strategy (croatia-spend or croatia-only)")
	run.Flags().StringVar(&dbPath, "db", "", "SQLite database to persist the results into")
	run.Flags().BoolVar(&publish, "publish", false, "Upload the outputs to the configured S3 bucket")

	stages := &cobra.Command{
		Use:   "stages",
		Short: "List the pipeline stages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			a, err := g.newApp(cmd.Context(), cfg, app.Options{})
			if err != nil {
				return err
			}
			defer a.Stop(cmd.Context())

			list, err := a.Services.Operations.Stages()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStages(list))
			return nil
		},
	}

	cmd.AddCommand(run, stages)
	return cmd
}

func newStageCmd(g *globalOptions) *cobra.Command {
	var strategy string
	cmd := &cobra.Command{
		Use:   "stage <id>",
		Short: "Run a single pipeline stage against the files already on disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			opts := app.Options{DisablePublish: args[0] != operations.StageIDPublish}
			return runOperation(cmd, g, cfg, opts, api.OperationStartRequest{Step: args[0], Strategy: strategy})
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "", "Croatia extraction strategy for hr-extract")
	return cmd
}

// runOperation executes req synchronously and prints the stage table. A run
// that does not complete is an error.
func runOperation(cmd *cobra.Command, g *globalOptions, cfg *config.Config, opts app.Options, req api.OperationStartRequest) error {
	ctx := infrastructure.EnsureTraceID(cmd.Context())
	a, err := g.newApp(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer a.Stop(ctx)

	resp, err := a.Services.Operations.Run(ctx, req)
	if resp != nil {
		order, _ := a.Services.Operations.Stages()
		fmt.Fprintln(cmd.OutOrStdout(), renderRun(resp, order))
	}
	if err != nil {
		return err
	}
	if resp.Status != operations.OperationStatusCompleted {
		if resp.Error != "" {
			return fmt.Errorf("pipeline %s: %s", resp.Status, resp.Error)
		}
		return fmt.Errorf("pipeline %s", resp.Status)
	}
	return nil
}
