package graph

import (
	"io"
	"sync"
)

// HotSwapGraph is a thread-safe wrapper that allows swapping the underlying graph instance.
type HotSwapGraph struct {
	mu      sync.RWMutex
	current Graph
}

func NewHotSwapGraph(initial Graph) *HotSwapGraph {
	return &HotSwapGraph{current: initial}
}

// Swap replaces the current graph and closes the old one if it is an
// io.Closer.
func (h *HotSwapGraph) Swap(newGraph Graph) {
	h.mu.Lock()
	old := h.current
	h.current = newGraph
	h.mu.Unlock()

	if closer, ok := old.(io.Closer); ok && old != newGraph {
		_ = closer.Close() // the old projection is unreachable either way
	}
}

// Current returns the graph being served.
func (h *HotSwapGraph) Current() Graph {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// GetNode delegates to current graph.
func (h *HotSwapGraph) GetNode(id string) (*Node, error) {
	return h.Current().GetNode(id)
}

// ListChildren delegates to current graph.
func (h *HotSwapGraph) ListChildren(id string) ([]string, error) {
	return h.Current().ListChildren(id)
}

// ReadContent delegates to current graph.
func (h *HotSwapGraph) ReadContent(id string, buf []byte, offset int64) (int, error) {
	return h.Current().ReadContent(id, buf, offset)
}

// Invalidate delegates to current graph.
func (h *HotSwapGraph) Invalidate(id string) {
	h.Current().Invalidate(id)
}
