package txgraph

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"

	"github.com/adesai/topoguard/internal/domain"
)

// Edge aggregates every transaction observed on one ordered account pair.
type Edge struct {
	From   string
	To     string
	Weight float64
	Flow   float64
	Count  int
}

type edgeKey struct {
	from string
	to   string
}

// Graph is a weighted directed transaction graph with accounts as nodes and
// aggregated per-pair flow as edges. It is built fresh from the current
// window on every detection call and discarded afterwards.
//
// Self-edges are kept in the native edge map but omitted from the gonum
// mirrors, which reject self loops; component counts and layouts are
// unaffected by the omission.
type Graph struct {
	accounts []string
	index    map[string]int64
	edges    map[edgeKey]*Edge
	out      map[string]map[string]struct{}
	in       map[string]map[string]struct{}
}

// NewGraph builds a graph over the given account set. Accounts are held in a
// fixed sorted order so node indices and layouts are reproducible.
func NewGraph(accounts []string) *Graph {
	sorted := append([]string(nil), accounts...)
	sort.Strings(sorted)
	index := make(map[string]int64, len(sorted))
	for i, acct := range sorted {
		index[acct] = int64(i)
	}
	return &Graph{
		accounts: sorted,
		index:    index,
		edges:    make(map[edgeKey]*Edge),
		out:      make(map[string]map[string]struct{}),
		in:       make(map[string]map[string]struct{}),
	}
}

func (g *Graph) setEdge(e Edge) {
	stored := e
	g.edges[edgeKey{e.From, e.To}] = &stored
	if g.out[e.From] == nil {
		g.out[e.From] = make(map[string]struct{})
	}
	g.out[e.From][e.To] = struct{}{}
	if g.in[e.To] == nil {
		g.in[e.To] = make(map[string]struct{})
	}
	g.in[e.To][e.From] = struct{}{}
}

// NumNodes reports the number of accounts.
func (g *Graph) NumNodes() int { return len(g.accounts) }

// NumEdges reports the number of aggregated edges, self-edges included.
func (g *Graph) NumEdges() int { return len(g.edges) }

// Accounts returns the fixed node ordering.
func (g *Graph) Accounts() []string { return g.accounts }

// NodeID maps an account to its stable gonum node ID.
func (g *Graph) NodeID(account string) (int64, bool) {
	id, ok := g.index[account]
	return id, ok
}

// Account is the inverse of NodeID.
func (g *Graph) Account(id int64) string { return g.accounts[id] }

// Edges returns the aggregated edges in no particular order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, *e)
	}
	return out
}

// OutDegree counts edges leaving the account, self-edges included.
func (g *Graph) OutDegree(account string) int { return len(g.out[account]) }

// InDegree counts edges entering the account, self-edges included.
func (g *Graph) InDegree(account string) int { return len(g.in[account]) }

// Degree is the total in plus out degree of the account.
func (g *Graph) Degree(account string) int {
	return g.InDegree(account) + g.OutDegree(account)
}

// undirectedNeighbors returns the distinct neighbors of the account in the
// undirected projection, excluding the account itself.
func (g *Graph) undirectedNeighbors(account string) map[string]struct{} {
	neighbors := make(map[string]struct{})
	for to := range g.out[account] {
		if to != account {
			neighbors[to] = struct{}{}
		}
	}
	for from := range g.in[account] {
		if from != account {
			neighbors[from] = struct{}{}
		}
	}
	return neighbors
}

// hasUndirectedEdge reports whether the two accounts are adjacent in the
// undirected projection.
func (g *Graph) hasUndirectedEdge(a, b string) bool {
	if _, ok := g.edges[edgeKey{a, b}]; ok {
		return true
	}
	_, ok := g.edges[edgeKey{b, a}]
	return ok
}

// Directed mirrors the graph into a gonum weighted directed graph for
// component analysis and layout. Self-edges are skipped.
func (g *Graph) Directed() *simple.WeightedDirectedGraph {
	dg := simple.NewWeightedDirectedGraph(0, 0)
	for _, acct := range g.accounts {
		dg.AddNode(simple.Node(g.index[acct]))
	}
	for key, e := range g.edges {
		if key.from == key.to {
			continue
		}
		dg.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(g.index[key.from]),
			T: simple.Node(g.index[key.to]),
			W: e.Weight,
		})
	}
	return dg
}

// Undirected mirrors the undirected projection into a gonum graph.
func (g *Graph) Undirected() *simple.UndirectedGraph {
	ug := simple.NewUndirectedGraph()
	for _, acct := range g.accounts {
		ug.AddNode(simple.Node(g.index[acct]))
	}
	for key := range g.edges {
		if key.from == key.to {
			continue
		}
		f := simple.Node(g.index[key.from])
		t := simple.Node(g.index[key.to])
		if ug.HasEdgeBetween(f.ID(), t.ID()) {
			continue
		}
		ug.SetEdge(simple.Edge{F: f, T: t})
	}
	return ug
}

// Snapshot converts the graph into its exportable form.
func (g *Graph) Snapshot() domain.GraphSnapshot {
	snap := domain.GraphSnapshot{
		Accounts: append([]string(nil), g.accounts...),
		Edges:    make([]domain.GraphEdge, 0, len(g.edges)),
	}
	edges := g.Edges()
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	for _, e := range edges {
		snap.Edges = append(snap.Edges, domain.GraphEdge{
			From:   e.From,
			To:     e.To,
			Weight: e.Weight,
			Flow:   e.Flow,
			Count:  e.Count,
		})
	}
	return snap
}
