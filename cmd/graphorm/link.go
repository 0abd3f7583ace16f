package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"graphorm/internal/metadata"
	"graphorm/internal/ogm"
)

func linkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <kind> <id> <relationship> <target-id>",
		Short: "Write the edge a declared relationship describes",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, field := args[0], args[2]
			fromID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[1], err)
			}
			toID, err := strconv.ParseInt(args[3], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid target id %q: %w", args[3], err)
			}

			ctx := context.Background()
			p, err := openProject(ctx)
			if err != nil {
				return err
			}
			defer p.Close(ctx)

			desc, err := p.reg.Lookup(metadata.DocumentKey(kind))
			if err != nil {
				return err
			}
			rel, ok := desc.Relationship(field)
			if !ok {
				return &metadata.UnsupportedKeyError{Kind: kind, Field: field, Reason: "no relationship declared"}
			}
			target, err := p.reg.ResolveTarget(rel)
			if err != nil {
				return err
			}

			docs := ogm.NewDocuments(p.db, p.reg)
			from, err := fetchDocument(ctx, docs, kind, fromID)
			if err != nil {
				return err
			}
			to, err := fetchDocument(ctx, docs, target.Name, toID)
			if err != nil {
				return err
			}
			if err := ogm.Relate(ctx, from, field, to); err != nil {
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Linked %s #%d -[%s]-> %s #%d\n", kind, fromID, rel.RelationType, target.Name, toID)
			return nil
		},
	}
}

func fetchDocument(ctx context.Context, docs *ogm.Documents, kind string, id int64) (*ogm.Document, error) {
	repo, err := docs.Repository(kind)
	if err != nil {
		return nil, err
	}
	d, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, &ogm.NotFoundError{Kind: kind, ID: id}
	}
	return d, nil
}
