// Package host defines the editor boundary the class tree controller talks
// to, plus two document hosts: an in-memory Buffer and an on-disk File.
package host

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/agentic-research/classnav/internal/classtree"
)

// LanguageHTML is the only language the controller acts on.
const LanguageHTML = "html"

// ErrCancelled is returned by a Prompter when the user dismisses a prompt.
var ErrCancelled = errors.New("prompt cancelled")

// Host is the active document as the editor sees it.
type Host interface {
	// ActiveText returns the current document text, or false when no
	// document is open.
	ActiveText() (string, bool)
	// CursorOffset returns the cursor as a byte offset into ActiveText.
	CursorOffset() (int, bool)
	Language() string
	// Apply replaces text ranges in one transaction.
	Apply(ctx context.Context, patch classtree.Patch) error
}

// Prompter asks the user for input.
type Prompter interface {
	// PromptText asks for a line of text. validate returns a message to
	// show while the input is unacceptable, or "" when it is fine.
	PromptText(ctx context.Context, label, initial string, validate func(string) string) (string, error)
	Confirm(ctx context.Context, label string) (bool, error)
}

// DefaultExtensions are the file extensions treated as HTML.
var DefaultExtensions = []string{".html", ".htm", ".xhtml"}

// LanguageForPath returns "html" when path has one of extensions, otherwise
// the bare extension (or "plaintext").
func LanguageForPath(path string, extensions []string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	for _, e := range extensions {
		if strings.EqualFold(e, ext) {
			return LanguageHTML
		}
	}
	if ext == "" {
		return "plaintext"
	}
	return ext[1:]
}

// ParseCursor resolves a cursor argument against text. It accepts a byte
// offset ("42") or a 1-based "line:col" pair where col counts bytes.
func ParseCursor(text, arg string) (int, error) {
	line, col, ok := strings.Cut(arg, ":")
	if !ok {
		off, err := strconv.Atoi(arg)
		if err != nil {
			return 0, fmt.Errorf("invalid cursor %q: %w", arg, err)
		}
		if off < 0 || off > len(text) {
			return 0, fmt.Errorf("cursor %d outside document of length %d", off, len(text))
		}
		return off, nil
	}

	ln, err := strconv.Atoi(line)
	if err != nil || ln < 1 {
		return 0, fmt.Errorf("invalid cursor line %q", line)
	}
	cn, err := strconv.Atoi(col)
	if err != nil || cn < 1 {
		return 0, fmt.Errorf("invalid cursor column %q", col)
	}

	start := 0
	for i := 1; i < ln; i++ {
		nl := strings.IndexByte(text[start:], '\n')
		if nl < 0 {
			return 0, fmt.Errorf("cursor line %d past end of document", ln)
		}
		start += nl + 1
	}
	end := len(text)
	if nl := strings.IndexByte(text[start:], '\n'); nl >= 0 {
		end = start + nl
	}
	if start+cn-1 > end {
		return 0, fmt.Errorf("cursor column %d past end of line %d", cn, ln)
	}
	return start + cn - 1, nil
}

// LineCol converts a byte offset back to a 1-based line and column.
func LineCol(text string, offset int) (line, col int) {
	offset = min(max(offset, 0), len(text))
	line = 1 + strings.Count(text[:offset], "\n")
	col = offset - strings.LastIndexByte(text[:offset], '\n')
	return line, col
}
