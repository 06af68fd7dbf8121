package lineage

import "fmt"

// StepKind tags one line of a provenance chain.
type StepKind int

const (
	// StepCalculation marks the site where the column value is computed.
	StepCalculation StepKind = iota
	// StepPassThrough marks a view that copies the column verbatim.
	StepPassThrough
	// StepBaseObject marks arrival at a terminal object with no SQL
	// definition or no parents.
	StepBaseObject
	// StepNotFound marks a column that could not be located in an object.
	StepNotFound
	// StepNoParent marks exhaustion: no parent branch produced a result.
	StepNoParent
	// StepParentHop notes which parent the trace followed next.
	StepParentHop
)

// Step is one line of human-readable provenance.
type Step struct {
	Kind StepKind `json:"kind"`
	// Object is the database object the step refers to. For StepParentHop
	// it names the parent that was followed.
	Object string `json:"object"`
	Text   string `json:"text"`
}

// Chain is the ordered provenance narrative for one (column, view) pair.
// A chain is never empty and is never mutated after it is produced.
type Chain []Step

// HasCalculation reports whether any step in the chain is a calculation.
func (c Chain) HasCalculation() bool {
	for _, s := range c {
		if s.Kind == StepCalculation {
			return true
		}
	}
	return false
}

// Lines returns the chain's step texts in order.
func (c Chain) Lines() []string {
	lines := make([]string, len(c))
	for i, s := range c {
		lines[i] = s.Text
	}
	return lines
}

// lastBaseObject returns the target of the last StepBaseObject, if any.
func (c Chain) lastBaseObject() (string, bool) {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Kind == StepBaseObject {
			return c[i].Object, true
		}
	}
	return "", false
}

// Condense collapses an all-pass-through chain into a single "identical to
// base object" statement. A chain containing any calculation step is returned
// untouched, as is a chain with no base object step to point at. The input
// chain is never modified; condensation always yields a fresh value.
func Condense(chain Chain, column string) Chain {
	if chain.HasCalculation() {
		return chain
	}
	base, ok := chain.lastBaseObject()
	if !ok {
		return chain
	}
	return Chain{{
		Kind:   StepBaseObject,
		Object: base,
		Text:   fmt.Sprintf("column '%s' is identical to the value in base object '%s'", column, base),
	}}
}

func calculationStep(object, snippet string) Step {
	return Step{
		Kind:   StepCalculation,
		Object: object,
		Text:   fmt.Sprintf("calculation in '%s': %s", object, snippet),
	}
}

func passThroughStep(column, object string) Step {
	return Step{
		Kind:   StepPassThrough,
		Object: object,
		Text:   fmt.Sprintf("column '%s' is a pass-through in '%s'", column, object),
	}
}

func baseObjectStep(object, reason string) Step {
	return Step{
		Kind:   StepBaseObject,
		Object: object,
		Text:   fmt.Sprintf("reached base object '%s' (%s)", object, reason),
	}
}

func notFoundStep(column, object string) Step {
	return Step{
		Kind:   StepNotFound,
		Object: object,
		Text:   fmt.Sprintf("'%s' not found in '%s': likely a base object", column, object),
	}
}

func noParentStep(column, object string) Step {
	return Step{
		Kind:   StepNoParent,
		Object: object,
		Text:   fmt.Sprintf("'%s' not found in '%s' and no parent leads to a calculation or base object", column, object),
	}
}

func checkParentStep(column, object, parent string) Step {
	return Step{
		Kind:   StepParentHop,
		Object: parent,
		Text:   fmt.Sprintf("'%s' not explicitly in '%s', checking parent '%s'", column, object, parent),
	}
}

func followParentStep(parent string) Step {
	return Step{
		Kind:   StepParentHop,
		Object: parent,
		Text:   fmt.Sprintf("following parent '%s'", parent),
	}
}
