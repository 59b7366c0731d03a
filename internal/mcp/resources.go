package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SchemaURI is the URI of the schema resource.
const SchemaURI = "searchbridge://schema"

// registerResources registers the schema resource.
func (s *Server) registerResources() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "schema",
			URI:         SchemaURI,
			Description: "Fields of the index with their ids, types and options",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return s.readSchema(ctx)
		},
	)
}

func (s *Server) readSchema(_ context.Context) (*mcp.ReadResourceResult, error) {
	content, err := json.MarshalIndent(s.idx.Schema(), "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      SchemaURI,
				MIMEType: "application/json",
				Text:     string(content),
			},
		},
	}, nil
}
