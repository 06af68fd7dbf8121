package depgraph

import (
	"reflect"
	"testing"

	"github.com/sabrimoh/erdash/pkg/metadata"
)

func TestGraph_ParentsAndChildren(t *testing.T) {
	g := New()
	g.AddEdge("A", "V1")
	g.AddEdge("V1", "V2")

	if got := g.ChildrenOf("A"); !reflect.DeepEqual(got, []string{"V1"}) {
		t.Errorf("ChildrenOf(A) = %v, want [V1]", got)
	}
	if got := g.ParentsOf("V2"); !reflect.DeepEqual(got, []string{"V1"}) {
		t.Errorf("ParentsOf(V2) = %v, want [V1]", got)
	}
	if got := g.ParentsOf("A"); len(got) != 0 {
		t.Errorf("ParentsOf(A) = %v, want empty", got)
	}
}

func TestGraph_UnknownNamesNeverError(t *testing.T) {
	g := New()
	if got := g.ParentsOf("ghost"); len(got) != 0 {
		t.Errorf("ParentsOf(ghost) = %v, want empty", got)
	}
	if got := g.ChildrenOf("ghost"); len(got) != 0 {
		t.Errorf("ChildrenOf(ghost) = %v, want empty", got)
	}
	if g.HasNode("ghost") {
		t.Error("ghost should not be a node")
	}
}

func TestGraph_DuplicateEdgesDeduplicated(t *testing.T) {
	g := New()
	g.AddEdge("A", "V1")
	g.AddEdge("A", "V1")

	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount = %d, want 1", g.EdgeCount())
	}
	if got := g.ChildrenOf("A"); !reflect.DeepEqual(got, []string{"V1"}) {
		t.Errorf("ChildrenOf(A) = %v, want [V1]", got)
	}
}

func TestGraph_LazyNodeDiscovery(t *testing.T) {
	g := FromEdges([]metadata.Edge{
		{Source: "A", Dependent: "V1"},
		{Source: "V1", Dependent: "V2"},
	})

	want := []string{"A", "V1", "V2"}
	if got := g.Nodes(); !reflect.DeepEqual(got, want) {
		t.Errorf("Nodes = %v, want %v", got, want)
	}
	if g.NodeCount() != 3 {
		t.Errorf("NodeCount = %d, want 3", g.NodeCount())
	}
}

func TestGraph_UpstreamDownstream(t *testing.T) {
	g := New()
	g.AddEdge("A", "V1")
	g.AddEdge("B", "V1")
	g.AddEdge("V1", "V2")

	if got := g.Upstream("V2"); !reflect.DeepEqual(got, []string{"A", "B", "V1"}) {
		t.Errorf("Upstream(V2) = %v", got)
	}
	if got := g.Downstream("A"); !reflect.DeepEqual(got, []string{"V1", "V2"}) {
		t.Errorf("Downstream(A) = %v", got)
	}
}

func TestGraph_TraversalTerminatesOnCycle(t *testing.T) {
	g := New()
	g.AddEdge("V1", "V2")
	g.AddEdge("V2", "V1")

	up := g.Upstream("V1")
	if !reflect.DeepEqual(up, []string{"V1", "V2"}) {
		t.Errorf("Upstream(V1) = %v, want [V1 V2]", up)
	}

	hasCycle, path := g.HasCycle()
	if !hasCycle {
		t.Fatal("expected cycle to be detected")
	}
	if len(path) < 3 {
		t.Errorf("cycle path too short: %v", path)
	}
}

func TestGraph_RootsAndLeaves(t *testing.T) {
	g := New()
	g.AddEdge("A", "V1")
	g.AddEdge("V1", "V2")

	if got := g.Roots(); !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("Roots = %v, want [A]", got)
	}
	if got := g.Leaves(); !reflect.DeepEqual(got, []string{"V2"}) {
		t.Errorf("Leaves = %v, want [V2]", got)
	}
}
