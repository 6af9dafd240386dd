package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"adshub/internal/config"
	"adshub/pkg/contracts"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info := contracts.GetVersionInfo()
			fmt.Fprintln(cmd.OutOrStdout(), contracts.GetFullVersionString())
			fmt.Fprintf(cmd.OutOrStdout(), "%s data format %s, api %s\n", config.AppName, info.DataFormat, info.APIVersion)
		},
	}
}
