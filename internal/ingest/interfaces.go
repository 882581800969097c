package ingest

import "github.com/agentic-research/classnav/internal/graph"

// RefTarget receives class occurrences. graph.MemoryStore implements it.
type RefTarget interface {
	AddRef(token string, loc graph.Location)
	DeleteFileRefs(file string)
}

// Walker runs a selector against a tree-like value.
type Walker interface {
	// Query executes selector against root and returns the matches.
	Query(root any, selector string) ([]Match, error)
}

// Match is a single query result.
type Match interface {
	// Values returns the matched object's fields, or {"value": v} for a
	// scalar match.
	Values() map[string]any

	// Context returns the matched value itself, usable as the root of a
	// follow-up query.
	Context() any
}
