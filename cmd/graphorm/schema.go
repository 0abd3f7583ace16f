package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"graphorm/internal/metadata"
	"graphorm/internal/store"
)

func schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the declared kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, reg, err := loadRegistry()
			if err != nil {
				return err
			}
			printRegistry(cmd.OutOrStdout(), reg)
			return nil
		},
	}
	cmd.AddCommand(schemaApplyCmd())
	return cmd
}

func schemaApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Create indexes and unique constraints for the declared kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			p, err := openProject(ctx)
			if err != nil {
				return err
			}
			defer p.Close(ctx)

			schemer, ok := p.db.(store.Schemer)
			if !ok {
				return fmt.Errorf("backend %s cannot create indexes", p.cfg.Backend)
			}
			if err := schemer.EnsureSchema(ctx, p.reg); err != nil {
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Schema applied (%d indexes).\n", len(store.IndexSpecs(p.reg)))
			return nil
		},
	}
}

func printRegistry(w io.Writer, reg *metadata.Registry) {
	for i, desc := range reg.Entities() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		headerColor.Fprintf(w, "%s", desc.Name)
		dimColor.Fprintf(w, " :%s\n", desc.Label)
		for _, p := range desc.Properties() {
			fmt.Fprintf(w, "  %-16s %-8s", p.Key, p.Kind)
			if flags := propertyFlags(p); flags != "" {
				dimColor.Fprintf(w, " %s", flags)
			}
			fmt.Fprintln(w)
		}
		for _, r := range desc.Relationships() {
			target := "?"
			if t, err := reg.ResolveTarget(r); err == nil {
				target = t.Name
			}
			arity := ""
			if r.Multiple {
				arity = "[]"
			}
			fmt.Fprintf(w, "  %-16s %s%s -[%s]-> %s\n", r.Key, arity, r.Direction, r.RelationType, target)
		}
	}
}

func propertyFlags(p *metadata.PropertyDescriptor) string {
	var flags []string
	if p.Required {
		flags = append(flags, "required")
	}
	if p.Unique {
		flags = append(flags, "unique")
	}
	if p.Indexed {
		flags = append(flags, "indexed")
	}
	if p.Validator != nil {
		flags = append(flags, "validated")
	}
	if p.Transformer != nil {
		flags = append(flags, "transformed")
	}
	return strings.Join(flags, ",")
}
