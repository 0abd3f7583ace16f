// Package mcp exposes the document repositories as Model Context Protocol
// tools.
package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"graphorm/internal/metadata"
	"graphorm/internal/ogm"
	"graphorm/internal/store"
)

type Server struct {
	reg  *metadata.Registry
	docs *ogm.Documents
	mcp  *sdk.Server
}

func NewServer(db store.Database, reg *metadata.Registry, version string) *Server {
	s := &Server{
		reg:  reg,
		docs: ogm.NewDocuments(db, reg),
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "graphorm",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
