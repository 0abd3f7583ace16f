package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"graphorm/internal/ogm"
	"graphorm/internal/query"
	"graphorm/internal/store"
)

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the database from the CLI",
	}
	cmd.AddCommand(queryFindCmd())
	cmd.AddCommand(queryGetCmd())
	cmd.AddCommand(queryCountCmd())
	cmd.AddCommand(queryRawCmd())
	return cmd
}

func queryFindCmd() *cobra.Command {
	var wherePairs []string
	var orderBy string
	var desc bool
	var skip, limit int
	cmd := &cobra.Command{
		Use:   "find <kind>",
		Short: "Find entities of a kind by property equality",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			where, err := parseParams(wherePairs)
			if err != nil {
				return err
			}
			opts := ogm.FindOptions{Where: where, Skip: skip, Limit: limit}
			if orderBy != "" {
				opts.OrderBy = []query.Order{{Field: orderBy, Desc: desc}}
			}

			ctx := context.Background()
			p, err := openProject(ctx)
			if err != nil {
				return err
			}
			defer p.Close(ctx)

			entities, err := ogm.NewDocuments(p.db, p.reg).Find(ctx, args[0], opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entities)
		},
	}
	cmd.Flags().StringArrayVar(&wherePairs, "where", nil, "Filter as key=value (repeatable)")
	cmd.Flags().StringVar(&orderBy, "order-by", "", "Property key to sort by")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	cmd.Flags().IntVar(&skip, "skip", 0, "Number of results to skip")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")
	return cmd
}

func queryGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <kind> <id>",
		Short: "Fetch one entity by identity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[1], err)
			}

			ctx := context.Background()
			p, err := openProject(ctx)
			if err != nil {
				return err
			}
			defer p.Close(ctx)

			entity, err := ogm.NewDocuments(p.db, p.reg).Get(ctx, args[0], id)
			if err != nil {
				return err
			}
			if entity == nil {
				return &ogm.NotFoundError{Kind: args[0], ID: id}
			}
			return printJSON(cmd.OutOrStdout(), entity)
		},
	}
}

func queryCountCmd() *cobra.Command {
	var wherePairs []string
	cmd := &cobra.Command{
		Use:   "count <kind>",
		Short: "Count entities of a kind matching filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			where, err := parseParams(wherePairs)
			if err != nil {
				return err
			}

			ctx := context.Background()
			p, err := openProject(ctx)
			if err != nil {
				return err
			}
			defer p.Close(ctx)

			n, err := ogm.NewDocuments(p.db, p.reg).Count(ctx, args[0], where)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&wherePairs, "where", nil, "Filter as key=value (repeatable)")
	return cmd
}

func queryRawCmd() *cobra.Command {
	var paramPairs []string
	cmd := &cobra.Command{
		Use:   "raw <statement>",
		Short: "Run a statement in the backend's own query language",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			params, err := parseParams(paramPairs)
			if err != nil {
				return err
			}

			ctx := context.Background()
			p, err := openProject(ctx)
			if err != nil {
				return err
			}
			defer p.Close(ctx)

			res, err := runRaw(ctx, p.db, text, params)
			if err != nil {
				return err
			}
			rows := make([]map[string]any, 0, len(res.Records))
			for _, rec := range res.Records {
				rows = append(rows, rec.Map())
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"records": rows, "summary": res.Summary})
		},
	}
	cmd.Flags().StringArrayVar(&paramPairs, "param", nil, "Query parameter as key=value (repeatable)")
	return cmd
}

// runRaw executes text inside a write transaction so multi-statement work
// commits or rolls back as one.
func runRaw(ctx context.Context, db store.Database, text string, params map[string]any) (*store.Result, error) {
	session, err := db.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx store.Transaction) (any, error) {
		return tx.Run(ctx, text, params)
	})
	if err != nil {
		return nil, err
	}
	return out.(*store.Result), nil
}

func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid param %q: expected key=value", pair)
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			return nil, fmt.Errorf("invalid param %q: empty key", pair)
		}
		params[key] = parseValue(strings.TrimSpace(parts[1]))
	}
	return params, nil
}

// parseValue reads integers, floats, booleans and null; anything else,
// or a double-quoted value, is a string.
func parseValue(s string) any {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	if s == "null" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
