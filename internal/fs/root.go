package fs

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/winfsp/cgofuse/fuse"

	"github.com/agentic-research/classnav/internal/classtree"
	"github.com/agentic-research/classnav/internal/controller"
	"github.com/agentic-research/classnav/internal/graph"
	"github.com/agentic-research/classnav/internal/projection"
)

// Tree is the projection served over FUSE.
type Tree interface {
	Graph() graph.Graph
	Mkdir(ctx context.Context, dir string) error
	Rmdir(ctx context.Context, dir string) error
	Rename(ctx context.Context, oldPath, newPath string) error
}

// ClassFS implements the FUSE interface from cgofuse. Class nodes are
// directories; _value, _status and _description are read-only files.
type ClassFS struct {
	fuse.FileSystemBase
	Tree      Tree
	Writable  bool
	log       *logrus.Logger
	mountTime fuse.Timespec
}

func NewClassFS(tree Tree, writable bool, log *logrus.Logger) *ClassFS {
	return &ClassFS{
		Tree:      tree,
		Writable:  writable,
		log:       log,
		mountTime: fuse.NewTimespec(time.Now()),
	}
}

// Open allows read-only opens of virtual files.
func (fs *ClassFS) Open(path string, flags int) (int, uint64) {
	node, err := fs.Tree.Graph().GetNode(path)
	if err != nil {
		return -fuse.ENOENT, 0
	}
	if node.Mode.IsDir() {
		return -fuse.EISDIR, 0
	}
	if flags&fuse.O_ACCMODE != fuse.O_RDONLY {
		return -fuse.EROFS, 0
	}
	return 0, 0
}

// Getattr (Stat)
func (fs *ClassFS) Getattr(path string, stat *fuse.Stat_t, fh uint64) int {
	stat.Atim = fs.mountTime
	stat.Mtim = fs.mountTime
	stat.Ctim = fs.mountTime
	stat.Birthtim = fs.mountTime

	if path == "/" {
		stat.Mode = fuse.S_IFDIR | fs.dirPerm()
		stat.Nlink = 2
		return 0
	}

	node, err := fs.Tree.Graph().GetNode(path)
	if err != nil {
		return -fuse.ENOENT
	}
	if !node.ModTime.IsZero() {
		stat.Mtim = fuse.NewTimespec(node.ModTime)
	}
	if node.Mode.IsDir() {
		stat.Mode = fuse.S_IFDIR | fs.dirPerm()
		stat.Nlink = 2
		return 0
	}
	stat.Mode = fuse.S_IFREG | 0o444
	stat.Nlink = 1
	stat.Size = node.ContentSize()
	return 0
}

// Readdir (List directory)
func (fs *ClassFS) Readdir(path string, fill func(name string, stat *fuse.Stat_t, ofst int64) bool, ofst int64, fh uint64) int {
	g := fs.Tree.Graph()
	if path != "/" {
		node, err := g.GetNode(path)
		if err != nil {
			return -fuse.ENOENT
		}
		if !node.Mode.IsDir() {
			return -fuse.ENOTDIR
		}
	}
	children, err := g.ListChildren(path)
	if err != nil {
		return -fuse.ENOENT
	}
	fill(".", nil, 0)
	fill("..", nil, 0)
	for _, childID := range children {
		if !fill(filepath.Base(childID), nil, 0) {
			break
		}
	}
	return 0
}

// Read (Cat file)
func (fs *ClassFS) Read(path string, buff []byte, ofst int64, fh uint64) int {
	n, err := fs.Tree.Graph().ReadContent(path, buff, ofst)
	if err != nil {
		return -fuse.ENOENT
	}
	return n
}

// Mkdir adds a class.
func (fs *ClassFS) Mkdir(path string, mode uint32) int {
	if !fs.Writable {
		return -fuse.EROFS
	}
	if graph.IsVirtualFile(path) {
		return -fuse.EEXIST
	}
	return fs.errno("mkdir", path, fs.Tree.Mkdir(context.Background(), path))
}

// Rmdir removes a class.
func (fs *ClassFS) Rmdir(path string) int {
	if !fs.Writable {
		return -fuse.EROFS
	}
	return fs.errno("rmdir", path, fs.Tree.Rmdir(context.Background(), path))
}

// Rename renames or moves a class.
func (fs *ClassFS) Rename(oldpath, newpath string) int {
	if !fs.Writable {
		return -fuse.EROFS
	}
	if graph.IsVirtualFile(oldpath) || graph.IsVirtualFile(newpath) {
		return -fuse.EPERM
	}
	return fs.errno("rename", oldpath, fs.Tree.Rename(context.Background(), oldpath, newpath))
}

// errno maps a class edit error to a negative FUSE error number.
func (fs *ClassFS) errno(op, path string, err error) int {
	if err == nil {
		return 0
	}
	fs.log.WithError(err).WithFields(logrus.Fields{"op": op, "path": path}).Debug("fuse request failed")
	switch {
	case errors.Is(err, projection.ErrNotClass), errors.Is(err, classtree.ErrNoMatch):
		return -fuse.ENOENT
	case errors.Is(err, projection.ErrRenameAndMove):
		return -fuse.EXDEV
	case errors.Is(err, controller.ErrEmptyName),
		errors.Is(err, classtree.ErrSelfMove),
		errors.Is(err, classtree.ErrCyclicMove):
		return -fuse.EINVAL
	case errors.Is(err, classtree.ErrNotInClassAttribute),
		errors.Is(err, controller.ErrNoActiveDocument),
		errors.Is(err, controller.ErrNotHTML):
		return -fuse.EACCES
	default:
		return -fuse.EIO
	}
}

func (fs *ClassFS) dirPerm() uint32 {
	if fs.Writable {
		return 0o755
	}
	return 0o555
}
