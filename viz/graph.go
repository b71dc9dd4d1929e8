// ABOUTME: GraphViz rendering of companies, contacts, deals and the pipeline
// ABOUTME: Builds graphs from the CRM service and renders DOT, SVG or PNG
package viz

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/crm"
	"github.com/harperreed/dealdesk/models"
)

type GraphKind string

const (
	GraphComplete GraphKind = "complete"
	GraphPipeline GraphKind = "pipeline"
	GraphCompany  GraphKind = "company"
)

func ParseGraphKind(raw string) (GraphKind, error) {
	switch k := GraphKind(strings.ToLower(strings.TrimSpace(raw))); k {
	case GraphComplete, GraphPipeline, GraphCompany:
		return k, nil
	}
	return "", fmt.Errorf("unknown graph type: %s (valid types: complete, pipeline, company)", raw)
}

// ParseFormat maps a user-facing format name to a renderer format.
// "dot" is rendered as xdot.
func ParseFormat(raw string) (graphviz.Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "dot", "xdot":
		return graphviz.XDOT, nil
	case "svg":
		return graphviz.SVG, nil
	case "png":
		return graphviz.PNG, nil
	}
	return "", fmt.Errorf("unknown graph format: %s (valid formats: dot, svg, png)", raw)
}

// Graph is a rendered graph and the number of nodes and edges drawn.
type Graph struct {
	Kind   GraphKind
	Source []byte
	Nodes  int
	Edges  int
}

type GraphGenerator struct {
	svc *crm.Service
}

func NewGraphGenerator(svc *crm.Service) *GraphGenerator {
	return &GraphGenerator{svc: svc}
}

// Generate renders the graph of the given kind. companyID is required for
// GraphCompany and ignored otherwise.
func (g *GraphGenerator) Generate(ctx context.Context, kind GraphKind, companyID uuid.UUID, format graphviz.Format) (*Graph, error) {
	companies, err := g.svc.ListCompanies(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch companies: %w", err)
	}
	contacts, err := g.svc.ListContacts(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contacts: %w", err)
	}
	deals, err := g.svc.ListDeals(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}

	var b *builder
	switch kind {
	case GraphComplete:
		b = newEntityBuilder("Complete CRM Graph", companies, contacts, deals)
	case GraphCompany:
		b, err = companyBuilder(ctx, g.svc, companyID, companies, contacts, deals)
		if err != nil {
			return nil, err
		}
	case GraphPipeline:
		view, err := g.svc.Pipeline(ctx)
		if err != nil {
			return nil, err
		}
		b = &builder{title: "Deal Pipeline", build: pipelineBuild(view)}
	default:
		return nil, fmt.Errorf("unknown graph type: %s", kind)
	}

	var buf bytes.Buffer
	nodes, edges, err := b.render(ctx, format, &buf)
	if err != nil {
		return nil, err
	}
	return &Graph{Kind: kind, Source: buf.Bytes(), Nodes: nodes, Edges: edges}, nil
}

// GenerateCompleteGraph returns DOT source for every company, contact and deal.
func (g *GraphGenerator) GenerateCompleteGraph(ctx context.Context) (string, error) {
	graph, err := g.Generate(ctx, GraphComplete, uuid.Nil, graphviz.XDOT)
	if err != nil {
		return "", err
	}
	return string(graph.Source), nil
}

// GeneratePipelineGraph returns DOT source for the stage board.
func (g *GraphGenerator) GeneratePipelineGraph(ctx context.Context) (string, error) {
	graph, err := g.Generate(ctx, GraphPipeline, uuid.Nil, graphviz.XDOT)
	if err != nil {
		return "", err
	}
	return string(graph.Source), nil
}

type counter struct {
	nodes int
	edges int
}

func (c *counter) node(graph *cgraph.Graph, name, label string, shape cgraph.Shape, fill string) (*cgraph.Node, error) {
	n, err := graph.CreateNodeByName(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create node %s: %w", name, err)
	}
	n.SetLabel(label)
	n.SetShape(shape)
	n.SetStyle("filled")
	n.SetFillColor(fill)
	c.nodes++
	return n, nil
}

func (c *counter) edge(graph *cgraph.Graph, name string, from, to *cgraph.Node, label string) (*cgraph.Edge, error) {
	e, err := graph.CreateEdgeByName(name, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to create edge %s: %w", name, err)
	}
	if label != "" {
		e.SetLabel(label)
	}
	c.edges++
	return e, nil
}

type builder struct {
	title string
	build func(graph *cgraph.Graph, c *counter) error
}

func (b *builder) render(ctx context.Context, format graphviz.Format, w io.Writer) (int, int, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer gv.Close()

	graph, err := gv.Graph()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create graph: %w", err)
	}
	defer graph.Close()

	graph.SetLabel(b.title)
	graph.SetRankDir(cgraph.LRRank)

	var c counter
	if err := b.build(graph, &c); err != nil {
		return 0, 0, err
	}
	if err := gv.Render(ctx, graph, format, w); err != nil {
		return 0, 0, fmt.Errorf("failed to render graph: %w", err)
	}
	return c.nodes, c.edges, nil
}

func shortID(prefix string, id uuid.UUID) string {
	return prefix + "_" + id.String()[:8]
}

var stageColors = map[models.Stage]string{
	models.StageLead:        "lightyellow",
	models.StageNegotiation: "orange",
	models.StageClosedWon:   "palegreen",
	models.StageClosedLost:  "lightgray",
}

func newEntityBuilder(title string, companies []models.Company, contacts []crm.ContactView, deals []crm.DealView) *builder {
	return &builder{title: title, build: func(graph *cgraph.Graph, c *counter) error {
		companyNodes := make(map[uuid.UUID]*cgraph.Node, len(companies))
		for _, company := range companies {
			node, err := c.node(graph, shortID("company", company.ID), company.Name+"\n(Company)", "box", "lightblue")
			if err != nil {
				return err
			}
			companyNodes[company.ID] = node
		}

		contactNodes := make(map[uuid.UUID]*cgraph.Node, len(contacts))
		for _, contact := range contacts {
			label := contact.FullName()
			if contact.Role != "" {
				label += "\n" + contact.Role
			}
			node, err := c.node(graph, shortID("contact", contact.ID), label, "ellipse", "lightgreen")
			if err != nil {
				return err
			}
			contactNodes[contact.ID] = node

			if contact.CompanyID == nil {
				continue
			}
			if companyNode, ok := companyNodes[*contact.CompanyID]; ok {
				edge, err := c.edge(graph, "works_at_"+contact.ID.String()[:8], node, companyNode, "works at")
				if err != nil {
					return err
				}
				edge.SetStyle("dashed")
			}
		}

		for _, deal := range deals {
			label := fmt.Sprintf("%s\n%s\n(%s)", deal.Title, MoneyShort(deal.Value), deal.Stage.Label())
			node, err := c.node(graph, shortID("deal", deal.ID), label, "diamond", stageColors[deal.Stage])
			if err != nil {
				return err
			}

			if deal.CompanyID != nil {
				if companyNode, ok := companyNodes[*deal.CompanyID]; ok {
					if _, err := c.edge(graph, "deal_with_"+deal.ID.String()[:8], companyNode, node, "deal"); err != nil {
						return err
					}
				}
			}
			for _, contactID := range deal.ContactIDs {
				contactNode, ok := contactNodes[contactID]
				if !ok {
					continue
				}
				edge, err := c.edge(graph, "contact_for_"+deal.ID.String()[:8]+"_"+contactID.String()[:8], contactNode, node, "contact")
				if err != nil {
					return err
				}
				edge.SetStyle("dotted")
			}
		}
		return nil
	}}
}

func companyBuilder(ctx context.Context, svc *crm.Service, id uuid.UUID, companies []models.Company, contacts []crm.ContactView, deals []crm.DealView) (*builder, error) {
	company, err := svc.GetCompany(ctx, id)
	if err != nil {
		return nil, err
	}

	var ownDeals []crm.DealView
	onDeal := make(map[uuid.UUID]bool)
	for _, d := range deals {
		if d.CompanyID != nil && *d.CompanyID == id {
			ownDeals = append(ownDeals, d)
			for _, cid := range d.ContactIDs {
				onDeal[cid] = true
			}
		}
	}
	var ownContacts []crm.ContactView
	for _, c := range contacts {
		if (c.CompanyID != nil && *c.CompanyID == id) || onDeal[c.ID] {
			ownContacts = append(ownContacts, c)
		}
	}

	// Contacts from other companies keep their employer out of the picture.
	return newEntityBuilder(company.Name, []models.Company{*company}, ownContacts, ownDeals), nil
}

func pipelineBuild(view *crm.PipelineView) func(*cgraph.Graph, *counter) error {
	return func(graph *cgraph.Graph, c *counter) error {
		stageNodes := make(map[models.Stage]*cgraph.Node, len(view.Stages))
		for _, g := range view.Stages {
			label := fmt.Sprintf("%s\n%d deals\n%s", g.Label, g.Count, Money(g.Value))
			node, err := c.node(graph, "stage_"+string(g.Stage), label, "box", stageColors[g.Stage])
			if err != nil {
				return err
			}
			stageNodes[g.Stage] = node
		}

		flow := [][2]models.Stage{
			{models.StageLead, models.StageNegotiation},
			{models.StageNegotiation, models.StageClosedWon},
			{models.StageNegotiation, models.StageClosedLost},
		}
		for _, f := range flow {
			edge, err := c.edge(graph, "flow_"+string(f[0])+"_"+string(f[1]), stageNodes[f[0]], stageNodes[f[1]], "")
			if err != nil {
				return err
			}
			edge.SetStyle("bold")
		}

		for _, g := range view.Stages {
			for _, deal := range g.Deals {
				label := deal.Title + "\n" + MoneyShort(deal.Value)
				if name := view.CompanyNames[deal.ID]; name != "" && name != crm.NoCompany {
					label += "\n" + name
				}
				node, err := c.node(graph, shortID("deal", deal.ID), label, "note", "white")
				if err != nil {
					return err
				}
				edge, err := c.edge(graph, "in_stage_"+deal.ID.String()[:8], stageNodes[g.Stage], node, "")
				if err != nil {
					return err
				}
				edge.SetDir("none")
			}
		}
		return nil
	}
}
