package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"graphorm/internal/seed"
)

func seedCmd() *cobra.Command {
	var ensureSchema bool
	cmd := &cobra.Command{
		Use:   "seed [fixture files...]",
		Short: "Load YAML fixtures into the database",
		Long:  "Load YAML fixtures into the database. Without arguments the fixtures listed in the project config are used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			p, err := openProject(ctx)
			if err != nil {
				return err
			}
			defer p.Close(ctx)

			paths := args
			if len(paths) == 0 {
				paths, err = p.cfg.FixturePaths()
				if err != nil {
					return err
				}
			}
			if len(paths) == 0 {
				return fmt.Errorf("no fixture files found")
			}

			result, err := seed.Run(ctx, p.db, p.reg, paths, seed.Options{EnsureSchema: ensureSchema, Logger: p.logger})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			headerColor.Fprintln(out, "Seeding complete.")
			fmt.Fprintf(out, "  Files:         %d\n", len(paths))
			fmt.Fprintf(out, "  Nodes created: %d\n", result.NodesCreated)
			fmt.Fprintf(out, "  Edges created: %d\n", result.EdgesCreated)
			fmt.Fprintf(out, "  Invalid items: %d\n", result.Invalid)

			if len(result.Errors) > 0 {
				errorColor.Fprintf(out, "\nErrors (%d):\n", len(result.Errors))
				for _, item := range result.Errors {
					fmt.Fprintf(out, "  - %v\n", item)
				}
				return fmt.Errorf("seeding completed with errors")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&ensureSchema, "ensure-schema", false, "Create indexes and constraints before loading")
	return cmd
}
