package host

import (
	"context"
	"os"
	"sync"

	"github.com/agentic-research/classnav/internal/classtree"
	"github.com/agentic-research/classnav/internal/writeback"
)

// File hosts a document on disk. Every read goes back to the file, so edits
// made by other programs are picked up; patches are spliced in atomically.
type File struct {
	path     string
	language string

	mu     sync.Mutex
	cursor int
}

var _ Host = (*File)(nil)

// NewFile returns a host for path with the cursor at offset.
func NewFile(path string, cursor int, extensions []string) *File {
	return &File{
		path:     path,
		language: LanguageForPath(path, extensions),
		cursor:   cursor,
	}
}

// OpenFileAt reads path once to resolve cursor (see ParseCursor) and
// returns a host positioned there.
func OpenFileAt(path, cursor string, extensions []string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	off, err := ParseCursor(string(data), cursor)
	if err != nil {
		return nil, err
	}
	return NewFile(path, off, extensions), nil
}

// Path returns the file the host reads and writes.
func (f *File) Path() string { return f.path }

func (f *File) ActiveText() (string, bool) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (f *File) CursorOffset() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursor, true
}

func (f *File) Language() string { return f.language }

// Apply splices patch into the file and shifts the cursor with it.
func (f *File) Apply(ctx context.Context, patch classtree.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := writeback.SpliceEdits(f.path, patch); err != nil {
		return err
	}
	f.cursor = patch.Shift(f.cursor)
	return nil
}
