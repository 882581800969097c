package ingest

import (
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/agentic-research/classnav/internal/classtree"
)

// JsonWalker implements Walker with JSONPath.
type JsonWalker struct{}

func NewJsonWalker() *JsonWalker {
	return &JsonWalker{}
}

// Query implements Walker.
func (w *JsonWalker) Query(root any, selector string) ([]Match, error) {
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}

	results := x.Get(root)
	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = &jsonMatch{value: r}
	}
	return matches, nil
}

type jsonMatch struct {
	value any
}

// Values implements Match.
func (m *jsonMatch) Values() map[string]any {
	switch v := m.value.(type) {
	case map[string]any:
		return v // preserve nesting
	default:
		return map[string]any{"value": v}
	}
}

// Context implements Match.
func (m *jsonMatch) Context() any {
	return m.value
}

// ForestData converts a forest to the generic form JSONPath runs on:
// {"classes": [{"name", "path", "description", "leaf", "depth", "children"}]}.
func ForestData(f classtree.Forest) map[string]any {
	return map[string]any{"classes": nodesData(f, 0)}
}

func nodesData(nodes []*classtree.Node, depth int) []any {
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, map[string]any{
			"name":        n.Name,
			"path":        n.Path,
			"description": n.Description,
			"leaf":        n.IsLeaf(),
			"depth":       int64(depth),
			"children":    nodesData(n.Children, depth+1),
		})
	}
	return out
}

// QueryForest evaluates selector against ForestData(f).
func QueryForest(f classtree.Forest, selector string) ([]Match, error) {
	return NewJsonWalker().Query(ForestData(f), selector)
}

// FormatMatch renders a match as compact JSON with sorted keys.
func FormatMatch(m Match) string {
	return oj.JSON(m.Context(), &oj.Options{Sort: true})
}
