package graph

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring"
)

var ErrNotFound = errors.New("node not found")

// Node is the universal primitive of the projection.
// The Mode field explicitly declares whether this is a file or directory.
type Node struct {
	ID        string
	ClassPath string      // "nav:item" for class directories, "" otherwise
	Mode      fs.FileMode // fs.ModeDir for directories, 0 for regular files
	ModTime   time.Time
	Data      []byte   // file content
	Children  []string // child node IDs (directories only)
}

// ContentSize returns the byte length of this node's content.
func (n *Node) ContentSize() int64 {
	return int64(len(n.Data))
}

// Graph is what the filesystem layers (FUSE and NFS) read from.
type Graph interface {
	GetNode(id string) (*Node, error)
	ListChildren(id string) ([]string, error)
	ReadContent(id string, buf []byte, offset int64) (int, error)
	// Invalidate evicts cached data for a node.
	Invalidate(id string)
}

// Location is one class attribute occurrence.
type Location struct {
	File   string
	Line   int // 1-based
	Column int // 1-based, bytes
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// MemoryStore holds a projected class forest plus a token → location index.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	roots []string

	// Roaring bitmap index over location IDs. tokenLocs answers "where is
	// this class used"; fileLocs lets a re-indexed file drop its entries in
	// O(k).
	locations []Location
	locIDs    map[Location]uint32
	tokenLocs map[string]*roaring.Bitmap
	fileLocs  map[string]*roaring.Bitmap

	refs refsDB
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:     make(map[string]*Node),
		roots:     []string{},
		locIDs:    make(map[Location]uint32),
		tokenLocs: make(map[string]*roaring.Bitmap),
		fileLocs:  make(map[string]*roaring.Bitmap),
	}
}

// AddRoot registers a node as a top-level root and adds it to the store.
func (s *MemoryStore) AddRoot(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.ID] = n
	for _, r := range s.roots {
		if r == n.ID {
			return
		}
	}
	s.roots = append(s.roots, n.ID)
}

// AddNode adds a non-root node to the store.
func (s *MemoryStore) AddNode(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.ID] = n
}

// AddRef records that token occurs at loc.
func (s *MemoryStore) AddRef(token string, loc Location) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.locIDs[loc]
	if !ok {
		id = uint32(len(s.locations))
		s.locations = append(s.locations, loc)
		s.locIDs[loc] = id
	}
	bitmapFor(s.tokenLocs, token).Add(id)
	bitmapFor(s.fileLocs, loc.File).Add(id)
}

// DeleteFileRefs drops every occurrence recorded for file.
func (s *MemoryStore) DeleteFileRefs(file string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gone, ok := s.fileLocs[file]
	if !ok {
		return
	}
	for token, bm := range s.tokenLocs {
		bm.AndNot(gone)
		if bm.IsEmpty() {
			delete(s.tokenLocs, token)
		}
	}
	delete(s.fileLocs, file)
}

// Refs returns the occurrences of token in the order they were recorded.
func (s *MemoryStore) Refs(token string) []Location {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bm, ok := s.tokenLocs[token]
	if !ok {
		return nil
	}
	out := make([]Location, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, s.locations[it.Next()])
	}
	return out
}

// Tokens returns every indexed token, sorted.
func (s *MemoryStore) Tokens() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.tokenLocs))
	for t := range s.tokenLocs {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Files returns the number of files with at least one recorded occurrence.
func (s *MemoryStore) Files() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.fileLocs)
}

// Invalidate is a no-op for MemoryStore: projections are rebuilt and
// swapped, never patched.
func (s *MemoryStore) Invalidate(id string) {}

// GetNode implements Graph.
func (s *MemoryStore) GetNode(id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Normalize path: remove leading slash
	if len(id) > 0 && id[0] == '/' {
		id = id[1:]
	}
	n, ok := s.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

// ListChildren implements Graph.
func (s *MemoryStore) ListChildren(id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id == "" || id == "/" {
		return s.roots, nil
	}
	if id[0] == '/' {
		id = id[1:]
	}
	n, ok := s.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n.Children, nil
}

// ReadContent implements Graph.
func (s *MemoryStore) ReadContent(id string, buf []byte, offset int64) (int, error) {
	node, err := s.GetNode(id)
	if err != nil {
		return 0, err
	}
	data := node.Data
	if offset >= int64(len(data)) {
		return 0, nil
	}
	end := min(offset+int64(len(buf)), int64(len(data)))
	return copy(buf, data[offset:end]), nil
}

func bitmapFor(m map[string]*roaring.Bitmap, key string) *roaring.Bitmap {
	bm, ok := m[key]
	if !ok {
		bm = roaring.New()
		m[key] = bm
	}
	return bm
}
