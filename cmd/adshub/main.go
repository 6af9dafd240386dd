// Command adshub cleans the Google Ads exports, audits them and serves the
// campaign estimator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"adshub/internal/app"
	"adshub/internal/config"
	"adshub/internal/infrastructure"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath string
	dataDir    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "adshub",
		Short:         "Google Ads export cleaning, audits and campaign estimator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config.yaml")
	root.PersistentFlags().StringVarP(&opts.dataDir, "data-dir", "d", "", "Directory holding the exports (overrides paths.data_dir)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newPipelineCmd(opts),
		newStageCmd(opts),
		newAuditCmd(opts),
		newServeCmd(opts),
		newExportCmd(opts),
		newVersionCmd(),
	)
	return root
}

// load reads the configuration and applies the persistent flags
func (o *globalOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.dataDir != "" {
		cfg.Paths.DataDir = o.dataDir
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, nil
}

// newApp wires the application for a one-shot command. Logs go to stderr so
// reports on stdout stay readable.
func (o *globalOptions) newApp(ctx context.Context, cfg *config.Config, opts app.Options) (*app.Application, error) {
	if opts.Logger == nil {
		opts.Logger = infrastructure.NewLogger(os.Stderr, cfg.Logging.Level)
	}
	return app.New(ctx, cfg, opts)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
