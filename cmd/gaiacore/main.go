// Package main is the entry point for the gaiaCore service.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "gaiacore",
		Short: "Geospatial dataset retrieval and ingestion service",
		Long: `
gaiaCore retrieves externally hosted geospatial datasets described by
registered metadata documents, loads them into PostGIS, and records
ingestion provenance. It exposes the pipeline over a PostgREST-style
RPC facade and as direct subcommands.
`,
		SilenceUsage: true,
	}
	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newRegisterCommand(),
		newIngestCommand(),
		newQuickIngestCommand(),
		newCatalogCommand(),
		newRunsCommand(),
	)
	return root
}
