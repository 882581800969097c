package classtree

import (
	"errors"
	"strings"
)

// Delimiter separates the segments of a class path ("nav:item:active").
const Delimiter = ":"

var (
	ErrNotInClassAttribute = errors.New("cursor is not inside a class attribute")
	ErrNoMatch             = errors.New("no matching class token")
	ErrSelfMove            = errors.New("cannot move a class onto itself")
	ErrCyclicMove          = errors.New("cannot move a class into its own descendant")
)

// SplitPath splits a class path into its segments. Empty segments are
// dropped, so "a::b" yields ["a", "b"].
func SplitPath(path string) []string {
	parts := strings.Split(path, Delimiter)
	segs := parts[:0]
	for _, p := range parts {
		if p != "" {
			segs = append(segs, p)
		}
	}
	return segs
}

// JoinPath joins segments with the delimiter.
func JoinPath(segs ...string) string {
	return strings.Join(segs, Delimiter)
}

// PathName returns the final segment of path.
func PathName(path string) string {
	if i := strings.LastIndex(path, Delimiter); i >= 0 {
		return path[i+len(Delimiter):]
	}
	return path
}

// ParentPath returns path without its final segment, or "" for a root.
func ParentPath(path string) string {
	if i := strings.LastIndex(path, Delimiter); i >= 0 {
		return path[:i]
	}
	return ""
}

// HasPathPrefix reports whether token is prefix itself or lies below it.
// The check respects segment boundaries: "navigation" is not below "nav".
func HasPathPrefix(token, prefix string) bool {
	if prefix == "" {
		return false
	}
	if token == prefix {
		return true
	}
	return strings.HasPrefix(token, prefix+Delimiter)
}

// RenamedPath replaces the final segment of path with name.
func RenamedPath(path, name string) string {
	parent := ParentPath(path)
	if parent == "" {
		return name
	}
	return parent + Delimiter + name
}

// MovedPath is the path a class at source takes when dropped on target.
// An empty target is the conceptual root.
func MovedPath(source, target string) string {
	name := PathName(source)
	if target == "" {
		return name
	}
	return target + Delimiter + name
}

// ValidateMove rejects moves of a class onto itself or into its own subtree.
func ValidateMove(source, target string) error {
	if source == target {
		return ErrSelfMove
	}
	if HasPathPrefix(target, source) {
		return ErrCyclicMove
	}
	return nil
}
