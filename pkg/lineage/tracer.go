package lineage

import "strings"

const (
	reasonNoDefinition = "no SQL definition"
	reasonNoParent     = "no parent"
)

// DefinitionSource resolves an object name to its SQL definition. Objects
// with no definition (tables, unknown names) report empty text.
type DefinitionSource interface {
	Definition(name string) (string, bool)
}

// ParentSource resolves an object name to the objects it reads from.
type ParentSource interface {
	ParentsOf(name string) []string
}

// Tracer walks the dependency graph to build provenance chains. It holds only
// read-only collaborators, so a single Tracer is safe for concurrent use;
// each Trace call owns its own visited set.
type Tracer struct {
	defs    DefinitionSource
	parents ParentSource
}

// NewTracer creates a tracer over the given definition and parent sources.
func NewTracer(defs DefinitionSource, parents ParentSource) *Tracer {
	return &Tracer{defs: defs, parents: parents}
}

// visitKey identifies an (object, column) pair, case-insensitively.
type visitKey struct {
	object string
	column string
}

func newVisitKey(object, column string) visitKey {
	return visitKey{
		object: strings.ToLower(object),
		column: strings.ToLower(column),
	}
}

// Trace produces the provenance chain for a column starting at the given
// object. The result is never empty: even malformed input terminates with a
// NotFound or base-object step. When a column could be inherited from several
// parents the first parent (in sorted order) that yields a result wins; use
// TraceAll for every candidate branch.
func (t *Tracer) Trace(column, start string) Chain {
	visited := make(map[visitKey]struct{})
	chain := t.trace(column, start, visited)
	if len(chain) == 0 {
		// Unreachable for a fresh visited set, kept as a terminal guarantee.
		chain = Chain{notFoundStep(column, start)}
	}
	return chain
}

// trace is the single-path recursive walk. The visited set is threaded
// explicitly through every call of one top-level invocation; a revisited
// (object, column) pair returns an empty continuation, which is what keeps
// cyclic and diamond-shaped graphs from looping.
func (t *Tracer) trace(column, object string, visited map[visitKey]struct{}) Chain {
	key := newVisitKey(object, column)
	if _, seen := visited[key]; seen {
		return nil
	}
	visited[key] = struct{}{}

	sqlText, _ := t.defs.Definition(object)
	if strings.TrimSpace(sqlText) == "" {
		return Chain{baseObjectStep(object, reasonNoDefinition)}
	}

	kind, snippet := Classify(sqlText, column)
	switch kind {
	case Calculation:
		// The calculation site is the provenance root; nothing upstream of
		// it changes what the column means.
		return Chain{calculationStep(object, snippet)}

	case PassThrough:
		parents := t.parents.ParentsOf(object)
		if len(parents) == 0 {
			return Chain{passThroughStep(column, object), baseObjectStep(object, reasonNoParent)}
		}
		chain := Chain{passThroughStep(column, object)}
		for _, parent := range parents {
			sub := t.trace(column, parent, visited)
			if len(sub) > 0 {
				chain = append(chain, followParentStep(parent))
				return append(chain, sub...)
			}
		}
		// Every parent was already visited (cycle); the pass-through step
		// alone is the terminal.
		return chain

	default: // NotFound
		parents := t.parents.ParentsOf(object)
		if len(parents) == 0 {
			return Chain{notFoundStep(column, object)}
		}
		for _, parent := range parents {
			sub := t.trace(column, parent, visited)
			if len(sub) > 0 {
				chain := Chain{checkParentStep(column, object, parent)}
				return append(chain, sub...)
			}
		}
		return Chain{noParentStep(column, object)}
	}
}

// TraceAll is the strict-mode variant of Trace: instead of accepting the
// first parent that yields a chain, it returns one chain per candidate
// branch. Each branch explores with its own copy of the visited set, so
// sibling branches do not truncate each other. The first returned chain is
// always identical to what Trace would have produced.
func (t *Tracer) TraceAll(column, start string) []Chain {
	visited := make(map[visitKey]struct{})
	chains := t.traceAll(column, start, visited)
	if len(chains) == 0 {
		chains = []Chain{{notFoundStep(column, start)}}
	}
	return chains
}

func (t *Tracer) traceAll(column, object string, visited map[visitKey]struct{}) []Chain {
	key := newVisitKey(object, column)
	if _, seen := visited[key]; seen {
		return nil
	}
	visited[key] = struct{}{}

	sqlText, _ := t.defs.Definition(object)
	if strings.TrimSpace(sqlText) == "" {
		return []Chain{{baseObjectStep(object, reasonNoDefinition)}}
	}

	kind, snippet := Classify(sqlText, column)
	switch kind {
	case Calculation:
		return []Chain{{calculationStep(object, snippet)}}

	case PassThrough:
		parents := t.parents.ParentsOf(object)
		if len(parents) == 0 {
			return []Chain{{passThroughStep(column, object), baseObjectStep(object, reasonNoParent)}}
		}
		var chains []Chain
		for _, parent := range parents {
			for _, sub := range t.traceAll(column, parent, cloneVisited(visited)) {
				chain := Chain{passThroughStep(column, object), followParentStep(parent)}
				chains = append(chains, append(chain, sub...))
			}
		}
		if len(chains) == 0 {
			chains = []Chain{{passThroughStep(column, object)}}
		}
		return chains

	default: // NotFound
		parents := t.parents.ParentsOf(object)
		if len(parents) == 0 {
			return []Chain{{notFoundStep(column, object)}}
		}
		var chains []Chain
		for _, parent := range parents {
			for _, sub := range t.traceAll(column, parent, cloneVisited(visited)) {
				chain := Chain{checkParentStep(column, object, parent)}
				chains = append(chains, append(chain, sub...))
			}
		}
		if len(chains) == 0 {
			chains = []Chain{{noParentStep(column, object)}}
		}
		return chains
	}
}

func cloneVisited(visited map[visitKey]struct{}) map[visitKey]struct{} {
	clone := make(map[visitKey]struct{}, len(visited))
	for k := range visited {
		clone[k] = struct{}{}
	}
	return clone
}
