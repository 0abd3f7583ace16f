package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "graphorm",
		Short:         "Object-graph mapper toolkit for Neo4j, SQLite and PostgreSQL",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigFile, "Project config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log statements at debug level")

	root.AddCommand(initCmd())
	root.AddCommand(versionCmd())
	root.AddCommand(schemaCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(linkCmd())
	root.AddCommand(seedCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(serveCmd())
	return root
}
