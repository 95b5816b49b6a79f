package main

import (
	"os"

	"github.com/spf13/cobra"

	_ "time/tzdata"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "cvrisk-server",
		Short:        "Cardiovascular risk estimation API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(computeCmd())
	rootCmd.AddCommand(migrateCmd())
	return rootCmd
}
