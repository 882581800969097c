package host

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/agentic-research/classnav/internal/classtree"
	"github.com/agentic-research/classnav/internal/writeback"
)

// editOp records one applied patch and its inverse for undo/redo support.
type editOp struct {
	patch   classtree.Patch
	inverse classtree.Patch
}

// Buffer is an in-memory document host with a cursor and undo history.
// It is safe for concurrent use.
type Buffer struct {
	mu        sync.RWMutex
	path      string // absolute path, or "" if untitled
	language  string
	text      string
	savedText string // text at last save/open (for dirty comparison)
	cursor    int
	undoStack []editOp
	redoStack []editOp
}

var _ Host = (*Buffer)(nil)

// NewBuffer creates an untitled buffer holding text.
func NewBuffer(text, language string) *Buffer {
	return &Buffer{text: text, savedText: text, language: language}
}

// OpenBuffer reads the file at path into a new buffer. The language is
// derived from the extension.
func OpenBuffer(path string, extensions []string) (*Buffer, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	b := NewBuffer(string(data), LanguageForPath(absPath, extensions))
	b.path = absPath
	return b, nil
}

// Save replaces the file at the stored path with the current text, keeping
// its permissions.
func (b *Buffer) Save() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.path == "" {
		return errors.New("buffer has no path")
	}
	if err := writeback.WriteAtomic(b.path, []byte(b.text)); err != nil {
		return err
	}
	b.savedText = b.text
	return nil
}

// Path returns the absolute file path, or "" if the buffer is untitled.
func (b *Buffer) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// Text returns the current text content of the buffer.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

// Dirty reports whether the text differs from the last saved/opened text.
func (b *Buffer) Dirty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text != b.savedText
}

// SetCursor moves the cursor, clamped to the document.
func (b *Buffer) SetCursor(offset int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursor = min(max(offset, 0), len(b.text))
}

func (b *Buffer) ActiveText() (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text, true
}

func (b *Buffer) CursorOffset() (int, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cursor, true
}

func (b *Buffer) Language() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.language
}

// Apply applies patch as a single undo step and clears the redo stack. The
// cursor follows the text it was sitting in.
func (b *Buffer) Apply(ctx context.Context, patch classtree.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.undoStack = append(b.undoStack, editOp{patch: patch, inverse: invert(b.text, patch)})
	b.redoStack = nil
	b.apply(patch)
	return nil
}

// Undo reverses the last patch. Returns false if the undo stack is empty.
func (b *Buffer) Undo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.undoStack) == 0 {
		return false
	}
	op := b.undoStack[len(b.undoStack)-1]
	b.undoStack = b.undoStack[:len(b.undoStack)-1]
	b.apply(op.inverse)
	b.redoStack = append(b.redoStack, op)
	return true
}

// Redo reapplies the last undone patch. Returns false if the redo stack is
// empty.
func (b *Buffer) Redo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.redoStack) == 0 {
		return false
	}
	op := b.redoStack[len(b.redoStack)-1]
	b.redoStack = b.redoStack[:len(b.redoStack)-1]
	b.apply(op.patch)
	b.undoStack = append(b.undoStack, op)
	return true
}

func (b *Buffer) apply(patch classtree.Patch) {
	b.cursor = patch.Shift(b.cursor)
	b.text = patch.Apply(b.text)
}

// invert returns the patch that turns patch.Apply(text) back into text.
func invert(text string, patch classtree.Patch) classtree.Patch {
	inv := make(classtree.Patch, 0, len(patch))
	delta := 0
	for _, e := range patch {
		start := e.Start + delta
		inv = append(inv, classtree.Edit{
			Start: start,
			End:   start + len(e.Text),
			Text:  text[e.Start:e.End],
		})
		delta += len(e.Text) - (e.End - e.Start)
	}
	return inv
}
