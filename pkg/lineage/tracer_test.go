package lineage

import (
	"reflect"
	"sort"
	"testing"
)

// defMap implements DefinitionSource over a plain map.
type defMap map[string]string

func (m defMap) Definition(name string) (string, bool) {
	def, ok := m[name]
	return def, ok
}

// parentMap implements ParentSource over a plain map, returning sorted
// parents like the real dependency graph does.
type parentMap map[string][]string

func (m parentMap) ParentsOf(name string) []string {
	parents := append([]string(nil), m[name]...)
	sort.Strings(parents)
	return parents
}

func kinds(chain Chain) []StepKind {
	out := make([]StepKind, len(chain))
	for i, s := range chain {
		out[i] = s.Kind
	}
	return out
}

func TestTrace_CalculationTerminatesImmediately(t *testing.T) {
	tracer := NewTracer(
		defMap{"v_orders_calc": "SELECT id, SUM(amount) AS total FROM orders GROUP BY id"},
		parentMap{"v_orders_calc": {"orders"}},
	)

	chain := tracer.Trace("total", "v_orders_calc")
	if len(chain) != 1 {
		t.Fatalf("chain length = %d, want 1: %v", len(chain), chain.Lines())
	}
	if chain[0].Kind != StepCalculation {
		t.Errorf("kind = %v, want StepCalculation", chain[0].Kind)
	}
	if chain[0].Object != "v_orders_calc" {
		t.Errorf("object = %q, want v_orders_calc", chain[0].Object)
	}
}

func TestTrace_PassThroughReachesBaseObject(t *testing.T) {
	tracer := NewTracer(
		defMap{"v_orders_calc": "SELECT id, SUM(amount) AS total FROM orders GROUP BY id"},
		parentMap{"v_orders_calc": {"orders"}},
	)

	chain := tracer.Trace("id", "v_orders_calc")
	want := []StepKind{StepPassThrough, StepParentHop, StepBaseObject}
	if !reflect.DeepEqual(kinds(chain), want) {
		t.Fatalf("kinds = %v, want %v (%v)", kinds(chain), want, chain.Lines())
	}
	if chain[2].Object != "orders" {
		t.Errorf("base object = %q, want orders", chain[2].Object)
	}
}

func TestTrace_NestedViews(t *testing.T) {
	tracer := NewTracer(
		defMap{
			"v1": "SELECT amount AS amt FROM orders",
			"v2": "SELECT amt AS amt FROM v1",
		},
		parentMap{"v1": {"orders"}, "v2": {"v1"}},
	)

	chain := tracer.Trace("amt", "v2")
	want := []StepKind{StepPassThrough, StepParentHop, StepPassThrough, StepParentHop, StepBaseObject}
	if !reflect.DeepEqual(kinds(chain), want) {
		t.Fatalf("kinds = %v, want %v (%v)", kinds(chain), want, chain.Lines())
	}
	if base, ok := chain.lastBaseObject(); !ok || base != "orders" {
		t.Errorf("base = %q, want orders", base)
	}
}

func TestTrace_NotFoundFollowsParents(t *testing.T) {
	// Column absent from v2's SQL but aggregated upstream in v1.
	tracer := NewTracer(
		defMap{
			"v1": "SELECT sum(x) AS score FROM t",
			"v2": "SELECT other FROM v1",
		},
		parentMap{"v1": {"t"}, "v2": {"v1"}},
	)

	chain := tracer.Trace("score", "v2")
	want := []StepKind{StepParentHop, StepCalculation}
	if !reflect.DeepEqual(kinds(chain), want) {
		t.Fatalf("kinds = %v, want %v (%v)", kinds(chain), want, chain.Lines())
	}
}

func TestTrace_MissingEverywhereNoParents(t *testing.T) {
	tracer := NewTracer(
		defMap{"v1": "SELECT a AS b FROM t"},
		parentMap{},
	)

	chain := tracer.Trace("ghost", "v1")
	if len(chain) != 1 || chain[0].Kind != StepNotFound {
		t.Fatalf("chain = %v, want single NotFound step", chain.Lines())
	}
	if chain[0].Object != "v1" {
		t.Errorf("object = %q, want the starting view", chain[0].Object)
	}
}

func TestTrace_UnknownObjectIsBaseObject(t *testing.T) {
	tracer := NewTracer(defMap{}, parentMap{})

	chain := tracer.Trace("col", "mystery")
	if len(chain) != 1 || chain[0].Kind != StepBaseObject {
		t.Fatalf("chain = %v, want single base-object step", chain.Lines())
	}
}

func TestTrace_TerminatesOnCycle(t *testing.T) {
	// v1 and v2 reference each other; neither defines the column, so the
	// walk exhausts the cycle and ends with a no-parent step.
	tracer := NewTracer(
		defMap{
			"v1": "SELECT a AS x FROM v2",
			"v2": "SELECT a AS x FROM v1",
		},
		parentMap{"v1": {"v2"}, "v2": {"v1"}},
	)

	chain := tracer.Trace("ghost", "v1")
	if len(chain) == 0 {
		t.Fatal("chain must never be empty")
	}
	if chain[len(chain)-1].Kind != StepNoParent {
		t.Errorf("terminal kind = %v, want StepNoParent (%v)", chain[len(chain)-1].Kind, chain.Lines())
	}
}

func TestTrace_CycleThroughStartingObject(t *testing.T) {
	tracer := NewTracer(
		defMap{
			"v1": "SELECT x AS x FROM v2",
			"v2": "SELECT x AS x FROM v1",
		},
		parentMap{"v1": {"v2"}, "v2": {"v1"}},
	)

	chain := tracer.Trace("x", "v1")
	if len(chain) == 0 {
		t.Fatal("chain must never be empty on cyclic input")
	}
	// Both hops are pass-throughs; the cycle is silently truncated.
	if chain[0].Kind != StepPassThrough {
		t.Errorf("first kind = %v, want StepPassThrough", chain[0].Kind)
	}
}

func TestTrace_Idempotent(t *testing.T) {
	tracer := NewTracer(
		defMap{
			"v1": "SELECT amount AS amt FROM orders",
			"v2": "SELECT amt AS amt FROM v1",
		},
		parentMap{"v1": {"orders"}, "v2": {"v1"}},
	)

	first := tracer.Trace("amt", "v2")
	second := tracer.Trace("amt", "v2")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated traces differ:\n%v\n%v", first.Lines(), second.Lines())
	}
}

func TestTrace_FirstParentWins(t *testing.T) {
	// Both parents could supply the column; the first in sorted order is
	// followed and the other branch is discarded.
	tracer := NewTracer(
		defMap{
			"pa": "SELECT val AS val FROM base_a",
			"pb": "SELECT sum(val) AS val FROM base_b",
			"v":  "SELECT other FROM pa",
		},
		parentMap{"v": {"pb", "pa"}, "pa": {"base_a"}, "pb": {"base_b"}},
	)

	chain := tracer.Trace("val", "v")
	if len(chain) < 2 {
		t.Fatalf("chain too short: %v", chain.Lines())
	}
	if chain[0].Kind != StepParentHop || chain[0].Object != "pa" {
		t.Errorf("first hop = %+v, want parent 'pa' (sorted order)", chain[0])
	}
}

func TestTraceAll_ReturnsEveryCandidateBranch(t *testing.T) {
	tracer := NewTracer(
		defMap{
			"pa": "SELECT val AS val FROM base_a",
			"pb": "SELECT sum(val) AS val FROM base_b",
			"v":  "SELECT other FROM pa",
		},
		parentMap{"v": {"pa", "pb"}, "pa": {"base_a"}, "pb": {"base_b"}},
	)

	chains := tracer.TraceAll("val", "v")
	if len(chains) != 2 {
		t.Fatalf("got %d chains, want 2", len(chains))
	}

	// Strict mode must not change the default result: branch one matches
	// Trace exactly.
	if !reflect.DeepEqual(chains[0], tracer.Trace("val", "v")) {
		t.Error("first strict-mode chain differs from default trace")
	}

	// The second branch ends in pb's calculation.
	last := chains[1][len(chains[1])-1]
	if last.Kind != StepCalculation || last.Object != "pb" {
		t.Errorf("second branch terminal = %+v, want calculation in pb", last)
	}
}

func TestTraceAll_TerminatesOnCycle(t *testing.T) {
	tracer := NewTracer(
		defMap{
			"v1": "SELECT x AS x FROM v2",
			"v2": "SELECT x AS x FROM v1",
		},
		parentMap{"v1": {"v2"}, "v2": {"v1"}},
	)

	chains := tracer.TraceAll("x", "v1")
	if len(chains) == 0 {
		t.Fatal("TraceAll must return at least one chain")
	}
	for _, chain := range chains {
		if len(chain) == 0 {
			t.Error("empty chain in strict mode result")
		}
	}
}
