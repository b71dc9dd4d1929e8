// ABOUTME: GraphViz visualization MCP handlers
// ABOUTME: Provides the generate_graph tool for agents
package handlers

import (
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/crm"
	"github.com/harperreed/dealdesk/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type VizHandlers struct {
	generator *viz.GraphGenerator
}

func NewVizHandlers(svc *crm.Service) *VizHandlers {
	return &VizHandlers{generator: viz.NewGraphGenerator(svc)}
}

type GenerateGraphInput struct {
	Type     string `json:"type" jsonschema:"Graph type: complete, pipeline, or company"`
	EntityID string `json:"entity_id,omitempty" jsonschema:"Company ID (required for company graphs)"`
}

type GenerateGraphOutput struct {
	GraphType string `json:"graph_type"`
	DOTSource string `json:"dot_source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (h *VizHandlers) GenerateGraph(ctx context.Context, _ *mcp.CallToolRequest, input GenerateGraphInput) (*mcp.CallToolResult, GenerateGraphOutput, error) {
	if input.Type == "" {
		return nil, GenerateGraphOutput{}, fmt.Errorf("type is required")
	}
	kind, err := viz.ParseGraphKind(input.Type)
	if err != nil {
		return nil, GenerateGraphOutput{}, err
	}

	companyID := uuid.Nil
	if kind == viz.GraphCompany {
		if input.EntityID == "" {
			return nil, GenerateGraphOutput{}, fmt.Errorf("entity_id required for company graph")
		}
		if companyID, err = parseID("entity_id", input.EntityID); err != nil {
			return nil, GenerateGraphOutput{}, err
		}
	}

	graph, err := h.generator.Generate(ctx, kind, companyID, graphviz.XDOT)
	if err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	return nil, GenerateGraphOutput{
		GraphType: string(kind),
		DOTSource: string(graph.Source),
		NodeCount: graph.Nodes,
		EdgeCount: graph.Edges,
	}, nil
}
