package graph

import (
	"io/fs"
	"time"

	"github.com/agentic-research/classnav/internal/classtree"
)

// Snapshot is everything a projection is built from.
type Snapshot struct {
	Forest classtree.Forest
	Value  string // raw class attribute value, "" when there is none
	Status string // "ok" or the placeholder message
}

// Project builds a store exposing the forest as directories, one per class
// node, plus _value and _status at the root and _description inside
// decorated root classes.
func Project(snap Snapshot, modTime time.Time) *MemoryStore {
	s := NewMemoryStore()
	s.AddRoot(&Node{ID: ValueFile, ModTime: modTime, Data: []byte(snap.Value + "\n")})
	s.AddRoot(&Node{ID: StatusFile, ModTime: modTime, Data: []byte(snap.Status + "\n")})

	if snap.Forest.IsPlaceholder() {
		return s
	}
	for _, n := range snap.Forest {
		s.AddRoot(projectNode(s, n, modTime))
	}
	return s
}

func projectNode(s *MemoryStore, n *classtree.Node, modTime time.Time) *Node {
	id := IDForClassPath(n.Path)
	dir := &Node{ID: id, ClassPath: n.Path, Mode: fs.ModeDir, ModTime: modTime}
	if n.Description != "" {
		desc := &Node{ID: id + "/" + DescriptionFile, ModTime: modTime, Data: []byte(n.Description + "\n")}
		s.AddNode(desc)
		dir.Children = append(dir.Children, desc.ID)
	}
	for _, c := range n.Children {
		child := projectNode(s, c, modTime)
		s.AddNode(child)
		dir.Children = append(dir.Children, child.ID)
	}
	return dir
}
