// Package metadata defines the flat schema-metadata row shape produced by the
// database fetch layer and the Index built from it. The Index is constructed
// once per run and is read-only afterwards; every other component (dependency
// graph, lineage tracer, renderers) works off it.
package metadata

import (
	"sort"
	"strings"
)

// ObjectType identifies what a metadata row describes.
type ObjectType string

const (
	// ObjectBaseTable marks a column row belonging to a base table.
	ObjectBaseTable ObjectType = "BASE TABLE"
	// ObjectView marks a column row belonging to a view.
	ObjectView ObjectType = "VIEW"
	// ObjectViewDependency marks a view-reads-from-object edge row.
	ObjectViewDependency ObjectType = "VIEW_DEPENDENCY"
	// ObjectPrimaryKey marks a primary key constraint row.
	ObjectPrimaryKey ObjectType = "PRIMARY_KEY"
	// ObjectForeignKey marks a foreign key constraint row.
	ObjectForeignKey ObjectType = "FOREIGN_KEY"
)

// Row is one flattened metadata record. Fields that do not apply to a row's
// ObjectType are empty strings; consumers treat empty as "not present".
type Row struct {
	TableSchema       string     `json:"table_schema,omitempty"`
	TableName         string     `json:"table_name,omitempty"`
	ColumnName        string     `json:"column_name,omitempty"`
	ObjectType        ObjectType `json:"object_type"`
	DependentViewName string     `json:"dependent_view_name,omitempty"`
	SourceTableName   string     `json:"source_table_name,omitempty"`
	ConstraintType    string     `json:"constraint_type,omitempty"`
	TargetTable       string     `json:"target_table,omitempty"`
	TargetColumn      string     `json:"target_column,omitempty"`
	ViewDefinition    string     `json:"view_definition,omitempty"`
}

// ForeignKey is one foreign key relationship extracted from the rows.
type ForeignKey struct {
	Table        string `json:"table"`
	Column       string `json:"column"`
	TargetTable  string `json:"target_table"`
	TargetColumn string `json:"target_column"`
}

// Edge is a directed dependency: Dependent (a view) reads from Source
// (a table or another view).
type Edge struct {
	Source    string `json:"source"`
	Dependent string `json:"dependent"`
}

// Index holds lookup structures built once from the flat metadata rows.
type Index struct {
	definitions  map[string]string
	tableColumns map[string][]string
	viewColumns  map[string][]string
	primaryKeys  map[string][]string
	foreignKeys  []ForeignKey
	edges        []Edge
}

// NewIndex builds an Index from metadata rows. Rows with missing names are
// skipped rather than reported; the fetch layer may legitimately produce
// placeholder values.
func NewIndex(rows []Row) *Index {
	idx := &Index{
		definitions:  make(map[string]string),
		tableColumns: make(map[string][]string),
		viewColumns:  make(map[string][]string),
		primaryKeys:  make(map[string][]string),
	}

	seenEdges := make(map[Edge]struct{})
	seenColumns := make(map[string]map[string]struct{})

	addColumn := func(m map[string][]string, object, column string) {
		if seenColumns[object] == nil {
			seenColumns[object] = make(map[string]struct{})
		}
		if _, dup := seenColumns[object][column]; dup {
			return
		}
		seenColumns[object][column] = struct{}{}
		m[object] = append(m[object], column)
	}

	for _, row := range rows {
		name := strings.TrimSpace(row.TableName)

		switch row.ObjectType {
		case ObjectBaseTable:
			if name == "" {
				continue
			}
			idx.rememberDefinition(name, row.ViewDefinition)
			if col := strings.TrimSpace(row.ColumnName); col != "" {
				addColumn(idx.tableColumns, name, col)
			}

		case ObjectView:
			if name == "" {
				continue
			}
			idx.rememberDefinition(name, row.ViewDefinition)
			if col := strings.TrimSpace(row.ColumnName); col != "" {
				addColumn(idx.viewColumns, name, col)
			}

		case ObjectViewDependency:
			source := strings.TrimSpace(row.SourceTableName)
			dependent := strings.TrimSpace(row.DependentViewName)
			if dependent != "" {
				idx.rememberDefinition(dependent, row.ViewDefinition)
			}
			if source == "" || dependent == "" {
				continue
			}
			edge := Edge{Source: source, Dependent: dependent}
			if _, dup := seenEdges[edge]; !dup {
				seenEdges[edge] = struct{}{}
				idx.edges = append(idx.edges, edge)
			}

		case ObjectPrimaryKey:
			col := strings.TrimSpace(row.ColumnName)
			if name == "" || col == "" {
				continue
			}
			idx.primaryKeys[name] = appendUnique(idx.primaryKeys[name], col)

		case ObjectForeignKey:
			if name == "" || strings.TrimSpace(row.TargetTable) == "" {
				continue
			}
			idx.foreignKeys = append(idx.foreignKeys, ForeignKey{
				Table:        name,
				Column:       strings.TrimSpace(row.ColumnName),
				TargetTable:  strings.TrimSpace(row.TargetTable),
				TargetColumn: strings.TrimSpace(row.TargetColumn),
			})
		}
	}

	return idx
}

// rememberDefinition records a SQL definition for an object. An object with
// no known definition still gets an entry so it is visible as a base object.
func (idx *Index) rememberDefinition(name, definition string) {
	definition = strings.TrimSpace(definition)
	if definition != "" {
		idx.definitions[name] = definition
		return
	}
	if _, exists := idx.definitions[name]; !exists {
		idx.definitions[name] = ""
	}
}

// Definition returns the SQL definition of an object. Tables and unknown
// objects report an empty definition.
func (idx *Index) Definition(name string) (string, bool) {
	def, ok := idx.definitions[name]
	return def, ok
}

// Tables returns the sorted names of all base tables with columns recorded.
func (idx *Index) Tables() []string {
	return sortedKeys(idx.tableColumns)
}

// Views returns the sorted names of all views: objects with view columns
// plus dependents that only appear in dependency rows.
func (idx *Index) Views() []string {
	set := make(map[string]struct{}, len(idx.viewColumns))
	for name := range idx.viewColumns {
		set[name] = struct{}{}
	}
	for _, e := range idx.edges {
		set[e.Dependent] = struct{}{}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsTable reports whether the named object is a known base table.
func (idx *Index) IsTable(name string) bool {
	_, ok := idx.tableColumns[name]
	return ok
}

// TableColumns returns the columns of a base table in discovery order.
func (idx *Index) TableColumns(name string) []string {
	return idx.tableColumns[name]
}

// ViewColumns returns the columns of a view in discovery order.
func (idx *Index) ViewColumns(name string) []string {
	return idx.viewColumns[name]
}

// Columns returns the columns of any object, table or view.
func (idx *Index) Columns(name string) []string {
	if cols, ok := idx.tableColumns[name]; ok {
		return cols
	}
	return idx.viewColumns[name]
}

// PrimaryKeyColumns returns the primary key columns of a table.
func (idx *Index) PrimaryKeyColumns(table string) []string {
	return idx.primaryKeys[table]
}

// ForeignKeys returns all foreign key relationships.
func (idx *Index) ForeignKeys() []ForeignKey {
	return idx.foreignKeys
}

// Edges returns the deduplicated dependency edge list.
func (idx *Index) Edges() []Edge {
	return idx.edges
}

func appendUnique(slice []string, s string) []string {
	for _, existing := range slice {
		if existing == s {
			return slice
		}
	}
	return append(slice, s)
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
