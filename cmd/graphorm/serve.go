package main

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"graphorm/internal/mcp"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			p, err := openProject(ctx)
			if err != nil {
				return err
			}
			defer p.Close(ctx)

			p.logger.Info("serving MCP over stdio", "kinds", len(p.reg.Entities()))
			server := mcp.NewServer(p.db, p.reg, version)
			return server.Run(ctx, &sdk.StdioTransport{})
		},
	}
}
