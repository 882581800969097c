package classtree

import (
	"strings"
)

// Node is one entry of the class tree. Path identifies it from the forest
// root; Name is its final segment and the display label.
type Node struct {
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	Description string  `json:"description,omitempty"`
	Children    []*Node `json:"children,omitempty"`

	// Placeholder marks informational nodes ("open an HTML file") that carry
	// no path and accept no mutation.
	Placeholder bool `json:"placeholder,omitempty"`
}

// IsLeaf reports whether no token extends below this node.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Forest is the ordered list of root nodes parsed from one class value.
type Forest []*Node

// Parse builds the sorted class forest for a class attribute value.
func Parse(value string, devices Devices) Forest {
	var roots Forest
	for _, token := range strings.Fields(value) {
		segs := SplitPath(token)
		if len(segs) == 0 {
			continue
		}
		roots = insert(roots, segs, "")
	}
	for _, root := range roots {
		root.Description = devices.Describe(root.Name)
	}
	devices.sortNodes(roots, newCollator())
	return roots
}

// insert walks segs down from nodes, creating whatever is missing.
func insert(nodes []*Node, segs []string, parentPath string) []*Node {
	name := segs[0]
	path := name
	if parentPath != "" {
		path = parentPath + Delimiter + name
	}

	var node *Node
	for _, n := range nodes {
		if n.Name == name {
			node = n
			break
		}
	}
	if node == nil {
		node = &Node{Name: name, Path: path}
		nodes = append(nodes, node)
	}
	if len(segs) > 1 {
		node.Children = insert(node.Children, segs[1:], path)
	}
	return nodes
}

// Find returns the node with the given path, or nil.
func (f Forest) Find(path string) *Node {
	segs := SplitPath(path)
	nodes := []*Node(f)
	var found *Node
	for _, seg := range segs {
		found = nil
		for _, n := range nodes {
			if n.Name == seg {
				found = n
				break
			}
		}
		if found == nil {
			return nil
		}
		nodes = found.Children
	}
	return found
}

// Walk visits every node depth-first in display order. Returning false from
// fn skips the node's children.
func (f Forest) Walk(fn func(n *Node, depth int) bool) {
	var walk func(nodes []*Node, depth int)
	walk = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			if fn(n, depth) {
				walk(n.Children, depth+1)
			}
		}
	}
	walk(f, 0)
}

// Tokens serializes the forest back to class tokens: one per leaf path.
func (f Forest) Tokens() []string {
	var tokens []string
	f.Walk(func(n *Node, _ int) bool {
		if n.IsLeaf() && !n.Placeholder {
			tokens = append(tokens, n.Path)
		}
		return true
	})
	return tokens
}

// Value is the class attribute value that parses back into this forest.
func (f Forest) Value() string {
	return strings.Join(f.Tokens(), " ")
}

// Placeholder returns a single-node forest carrying an informational message.
func Placeholder(message string) Forest {
	return Forest{{Name: message, Placeholder: true}}
}

// IsPlaceholder reports whether the forest only carries a message.
func (f Forest) IsPlaceholder() bool {
	return len(f) == 1 && f[0].Placeholder
}
