// Package projection keeps a graph view of the class forest at the cursor in
// sync with the document and maps directory operations onto class edits.
// Both filesystem backends (NFS and FUSE) sit on top of it.
package projection

import (
	"context"
	"errors"
	"path"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agentic-research/classnav/internal/classtree"
	"github.com/agentic-research/classnav/internal/controller"
	"github.com/agentic-research/classnav/internal/graph"
)

var (
	// ErrRenameAndMove is returned for a rename that changes both the parent
	// and the name of a class.
	ErrRenameAndMove = errors.New("rename and move in one step is not supported")
	ErrNotClass      = errors.New("path does not name a class")
)

// Projector owns the hot-swapped projection of one controller.
type Projector struct {
	ctrl  *controller.Controller
	graph *graph.HotSwapGraph
	log   *logrus.Logger
}

// New builds the first projection and rebuilds it whenever ctrl reports the
// tree invalid.
func New(ctrl *controller.Controller, log *logrus.Logger) *Projector {
	p := &Projector{ctrl: ctrl, log: log}
	p.graph = graph.NewHotSwapGraph(p.build())
	ctrl.OnTreeInvalidated(p.Refresh)
	return p
}

// Graph is the live projection.
func (p *Projector) Graph() graph.Graph { return p.graph }

// Refresh rebuilds the projection from the current document.
func (p *Projector) Refresh() {
	p.graph.Swap(p.build())
	p.log.Debug("projection refreshed")
}

func (p *Projector) build() *graph.MemoryStore {
	snap := graph.Snapshot{}
	attr, err := p.ctrl.Attribute()
	if err != nil {
		snap.Forest = classtree.Placeholder(controller.Message(err))
		snap.Status = controller.Message(err)
	} else {
		snap.Forest = classtree.Parse(attr.Text, p.ctrl.Devices())
		snap.Value = attr.Text
		snap.Status = controller.Message(nil)
	}
	return graph.Project(snap, time.Now())
}

// Mkdir adds a class: "/x" adds a root class, "/nav/x" adds x below nav.
func (p *Projector) Mkdir(ctx context.Context, dir string) error {
	parent, name := split(dir)
	if parent == "/" {
		return p.ctrl.AddRootClass(ctx, name)
	}
	n, err := p.lookup(parent)
	if err != nil {
		return err
	}
	return p.ctrl.AddChildClass(ctx, n, name)
}

// Rmdir removes the class at dir.
func (p *Projector) Rmdir(ctx context.Context, dir string) error {
	n, err := p.lookup(dir)
	if err != nil {
		return err
	}
	return p.ctrl.RemoveClass(ctx, n)
}

// Rename renames a class when only the last element changes, and moves it
// when only the parent changes. Moving to "/" lifts it to the root.
func (p *Projector) Rename(ctx context.Context, oldPath, newPath string) error {
	n, err := p.lookup(oldPath)
	if err != nil {
		return err
	}
	oldParent, oldName := split(oldPath)
	newParent, newName := split(newPath)

	switch {
	case oldParent == newParent:
		return p.ctrl.RenameClass(ctx, n, newName)
	case oldName != newName:
		return ErrRenameAndMove
	case newParent == "/":
		return p.ctrl.MoveToRoot(ctx, n)
	}
	target, err := p.lookup(newParent)
	if err != nil {
		return err
	}
	return p.ctrl.MoveClass(ctx, n, target)
}

// lookup resolves a filesystem path against the current forest.
func (p *Projector) lookup(fsPath string) (*classtree.Node, error) {
	forest, err := p.ctrl.Resolve()
	if err != nil {
		return nil, err
	}
	n := forest.Find(graph.ClassPathForID(fsPath))
	if n == nil {
		return nil, ErrNotClass
	}
	return n, nil
}

func split(fsPath string) (parent, name string) {
	fsPath = path.Clean("/" + fsPath)
	return path.Dir(fsPath), graph.SegmentName(path.Base(fsPath))
}
