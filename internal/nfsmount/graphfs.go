// Package nfsmount serves a class projection over NFS. It adapts the
// projection's graph.Graph to billy.Filesystem for willscott/go-nfs, and
// turns MKDIR, RMDIR and RENAME into class edits.
package nfsmount

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/chroot"

	"github.com/agentic-research/classnav/internal/graph"
	"github.com/agentic-research/classnav/internal/projection"
)

var errReadOnly = fmt.Errorf("read-only filesystem")

// Tree is the projection a ClassFS serves. *projection.Projector
// implements it.
type Tree interface {
	Graph() graph.Graph
	Mkdir(ctx context.Context, dir string) error
	Rmdir(ctx context.Context, dir string) error
	Rename(ctx context.Context, oldPath, newPath string) error
}

var _ Tree = (*projection.Projector)(nil)

// ClassFS adapts a class projection to billy.Filesystem. Directories are
// class nodes; the only regular files are the projection's virtual files,
// which are never writable.
type ClassFS struct {
	tree      Tree
	mountTime time.Time
	writable  bool
}

// NewClassFS creates a billy.Filesystem over tree. When writable is false
// every mutation returns a read-only error.
func NewClassFS(tree Tree, writable bool) *ClassFS {
	return &ClassFS{
		tree:      tree,
		mountTime: time.Now(),
		writable:  writable,
	}
}

// --- billy.Basic ---

func (fs *ClassFS) Create(filename string) (billy.File, error) {
	return nil, errReadOnly
}

func (fs *ClassFS) Open(filename string) (billy.File, error) {
	return fs.OpenFile(filename, os.O_RDONLY, 0)
}

func (fs *ClassFS) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	filename = cleanPath(filename)

	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, errReadOnly
	}

	g := fs.tree.Graph()
	node, err := g.GetNode(filename)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: filename, Err: os.ErrNotExist}
	}
	if node.Mode.IsDir() {
		return nil, &os.PathError{Op: "open", Path: filename, Err: fmt.Errorf("is a directory")}
	}

	return &graphFile{
		id:    filename,
		size:  node.ContentSize(),
		graph: g,
	}, nil
}

func (fs *ClassFS) Stat(filename string) (os.FileInfo, error) {
	return fs.Lstat(filename)
}

// Rename renames or moves a class directory.
func (fs *ClassFS) Rename(oldpath, newpath string) error {
	if !fs.writable {
		return errReadOnly
	}
	oldpath, newpath = cleanPath(oldpath), cleanPath(newpath)
	if graph.IsVirtualFile(oldpath) || graph.IsVirtualFile(newpath) {
		return &os.PathError{Op: "rename", Path: oldpath, Err: errReadOnly}
	}
	return pathError("rename", oldpath, fs.tree.Rename(context.Background(), oldpath, newpath))
}

// Remove removes a class directory.
func (fs *ClassFS) Remove(filename string) error {
	if !fs.writable {
		return errReadOnly
	}
	filename = cleanPath(filename)

	node, err := fs.tree.Graph().GetNode(filename)
	if err != nil {
		return &os.PathError{Op: "remove", Path: filename, Err: os.ErrNotExist}
	}
	if !node.Mode.IsDir() {
		return &os.PathError{Op: "remove", Path: filename, Err: errReadOnly}
	}
	return pathError("remove", filename, fs.tree.Rmdir(context.Background(), filename))
}

func (fs *ClassFS) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// --- billy.TempFile ---

func (fs *ClassFS) TempFile(dir, prefix string) (billy.File, error) {
	return nil, billy.ErrNotSupported
}

// --- billy.Dir ---

func (fs *ClassFS) ReadDir(path string) ([]os.FileInfo, error) {
	path = cleanPath(path)
	g := fs.tree.Graph()

	if path != "/" {
		node, err := g.GetNode(path)
		if err != nil {
			return nil, &os.PathError{Op: "readdir", Path: path, Err: os.ErrNotExist}
		}
		if !node.Mode.IsDir() {
			return nil, &os.PathError{Op: "readdir", Path: path, Err: fmt.Errorf("not a directory")}
		}
	}

	children, err := g.ListChildren(path)
	if err != nil {
		return nil, &os.PathError{Op: "readdir", Path: path, Err: os.ErrNotExist}
	}

	infos := make([]os.FileInfo, 0, len(children))
	for _, childID := range children {
		childNode, err := g.GetNode(childID)
		if err != nil {
			continue
		}
		infos = append(infos, fs.nodeToFileInfo(childNode))
	}
	return infos, nil
}

// MkdirAll adds a class. Only the last element may be new; an existing
// directory is left alone.
func (fs *ClassFS) MkdirAll(filename string, perm os.FileMode) error {
	if !fs.writable {
		return errReadOnly
	}
	filename = cleanPath(filename)
	if filename == "/" {
		return nil
	}
	if node, err := fs.tree.Graph().GetNode(filename); err == nil {
		if node.Mode.IsDir() {
			return nil
		}
		return &os.PathError{Op: "mkdir", Path: filename, Err: os.ErrExist}
	}
	if graph.IsVirtualFile(filename) {
		return &os.PathError{Op: "mkdir", Path: filename, Err: errReadOnly}
	}
	return pathError("mkdir", filename, fs.tree.Mkdir(context.Background(), filename))
}

// --- billy.Symlink ---

func (fs *ClassFS) Lstat(filename string) (os.FileInfo, error) {
	filename = cleanPath(filename)

	if filename == "/" {
		return &staticFileInfo{
			name:    "/",
			mode:    os.ModeDir | fs.dirPerm(),
			modTime: fs.mountTime,
		}, nil
	}

	node, err := fs.tree.Graph().GetNode(filename)
	if err != nil {
		return nil, &os.PathError{Op: "lstat", Path: filename, Err: os.ErrNotExist}
	}
	return fs.nodeToFileInfo(node), nil
}

func (fs *ClassFS) Symlink(target, link string) error {
	return billy.ErrNotSupported
}

func (fs *ClassFS) Readlink(link string) (string, error) {
	return "", billy.ErrNotSupported
}

// --- billy.Chroot ---

func (fs *ClassFS) Chroot(path string) (billy.Filesystem, error) {
	return chroot.New(fs, path), nil
}

func (fs *ClassFS) Root() string {
	return "/"
}

// --- billy.Capable ---

func (fs *ClassFS) Capabilities() billy.Capability {
	return billy.ReadCapability | billy.SeekCapability
}

// --- internals ---

// pathError maps class lookup failures to os.ErrNotExist so NFS clients
// see ENOENT.
func pathError(op, path string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, projection.ErrNotClass):
		return &os.PathError{Op: op, Path: path, Err: os.ErrNotExist}
	default:
		return &os.PathError{Op: op, Path: path, Err: err}
	}
}

// cleanPath normalizes a billy path to a clean absolute path.
func cleanPath(path string) string {
	path = filepath.Clean("/" + path)
	if path == "." {
		return "/"
	}
	return path
}

func (fs *ClassFS) dirPerm() os.FileMode {
	if fs.writable {
		return 0o755
	}
	return 0o555
}

func (fs *ClassFS) nodeToFileInfo(n *graph.Node) os.FileInfo {
	mode := os.FileMode(0o444)
	if n.Mode.IsDir() {
		mode = os.ModeDir | fs.dirPerm()
	}

	modTime := n.ModTime
	if modTime.IsZero() {
		modTime = fs.mountTime
	}

	return &staticFileInfo{
		name:    filepath.Base(n.ID),
		size:    n.ContentSize(),
		mode:    mode,
		modTime: modTime,
	}
}

// staticFileInfo implements os.FileInfo with static values.
type staticFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
}

func (fi *staticFileInfo) Name() string       { return fi.name }
func (fi *staticFileInfo) Size() int64        { return fi.size }
func (fi *staticFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *staticFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *staticFileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *staticFileInfo) Sys() interface{}   { return nil }

// Compile-time interface checks.
var (
	_ billy.Filesystem = (*ClassFS)(nil)
	_ billy.Capable    = (*ClassFS)(nil)
	_ billy.File       = (*graphFile)(nil)
)
