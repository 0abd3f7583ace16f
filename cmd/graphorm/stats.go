package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"graphorm/internal/metadata"
	"graphorm/internal/ogm"
)

// maxConcurrentCounts bounds the sessions stats holds open at once.
const maxConcurrentCounts = 4

type kindCount struct {
	Kind  string
	Label string
	Count int64
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count stored nodes of every declared kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			p, err := openProject(ctx)
			if err != nil {
				return err
			}
			defer p.Close(ctx)

			counts, err := countKinds(ctx, ogm.NewDocuments(p.db, p.reg), p.reg.Entities())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var total int64
			for _, c := range counts {
				fmt.Fprintf(out, "  %-20s %8d ", c.Kind, c.Count)
				dimColor.Fprintf(out, ":%s\n", c.Label)
				total += c.Count
			}
			headerColor.Fprintf(out, "  %-20s %8d\n", "total", total)
			return nil
		},
	}
}

// countKinds counts each kind in its own session, a few at a time. Results
// keep declaration order.
func countKinds(ctx context.Context, docs *ogm.Documents, descs []*metadata.EntityDescriptor) ([]kindCount, error) {
	counts := make([]kindCount, len(descs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentCounts)
	for i, desc := range descs {
		g.Go(func() error {
			n, err := docs.Count(ctx, desc.Name, nil)
			if err != nil {
				return fmt.Errorf("counting %s: %w", desc.Name, err)
			}
			counts[i] = kindCount{Kind: desc.Name, Label: desc.Label, Count: n}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}
