// Package cmd provides the CLI commands for docgate.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docgate/internal/version"
)

// NewRootCmd creates the root command for the docgate CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docgate",
		Short: "Multi-tenant, rate-limited document search gateway",
		Long: `docgate accepts document mutations per tenant, queues them as commands
and applies them to a search engine through read/write aliases.

Configuration is read from config/<ENV>.yaml (ENV defaults to local).`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("docgate version {{.Version}}\n")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConsumeCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
