package graph

import (
	"strings"

	"github.com/agentic-research/classnav/internal/classtree"
)

// Path helpers shared by FUSE (internal/fs) and NFS (internal/nfsmount).
// A class path "nav:item" lives at the filesystem path "/nav/item". Segments
// may contain '/' (e.g. "w-1/2"), which is stored as %2F. A leading '_' is
// stored as %5F so no class can shadow a virtual file.

// Virtual files of a projection.
const (
	ValueFile       = "_value"
	StatusFile      = "_status"
	DescriptionFile = "_description"
)

var (
	escaper   = strings.NewReplacer("%", "%25", "/", "%2F")
	unescaper = strings.NewReplacer("%2F", "/", "%2f", "/", "%5F", "_", "%5f", "_", "%25", "%")
)

func escapeSegment(seg string) string {
	seg = escaper.Replace(seg)
	if strings.HasPrefix(seg, "_") {
		seg = "%5F" + seg[1:]
	}
	return seg
}

// IDForClassPath converts "nav:item" to the node ID "nav/item".
func IDForClassPath(classPath string) string {
	segs := classtree.SplitPath(classPath)
	for i, s := range segs {
		segs[i] = escapeSegment(s)
	}
	return strings.Join(segs, "/")
}

// ClassPathForID converts a node ID or filesystem path to a class path.
func ClassPathForID(id string) string {
	var segs []string
	for _, s := range strings.Split(id, "/") {
		if s != "" {
			segs = append(segs, unescaper.Replace(s))
		}
	}
	return classtree.JoinPath(segs...)
}

// SegmentName is the class segment a single path element stands for.
func SegmentName(elem string) string {
	return unescaper.Replace(elem)
}

// IsVirtualFile reports whether the final element of path is one of the
// projection's read-only files.
func IsVirtualFile(path string) bool {
	name := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		name = path[i+1:]
	}
	switch name {
	case ValueFile, StatusFile, DescriptionFile:
		return true
	}
	return false
}
