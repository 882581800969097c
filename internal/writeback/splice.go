package writeback

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentic-research/classnav/internal/classtree"
)

// SpliceEdits applies patch to the file at filePath. Edits are checked
// against the current file length before anything is written. The write is
// atomic: content is written to a temp file first, then renamed.
func SpliceEdits(filePath string, patch classtree.Patch) error {
	src, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read source %s: %w", filePath, err)
	}

	last := 0
	for _, e := range patch {
		if e.Start < last || e.End < e.Start || e.End > len(src) {
			return fmt.Errorf("invalid byte range [%d:%d] for file of length %d", e.Start, e.End, len(src))
		}
		last = e.End
	}

	return WriteAtomic(filePath, []byte(patch.Apply(string(src))))
}

// WriteAtomic replaces filePath with content via a temp file in the same
// directory, keeping the original permissions.
func WriteAtomic(filePath string, content []byte) error {
	dir := filepath.Dir(filePath)
	tmp, err := os.CreateTemp(dir, ".classnav-splice-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("close temp: %w", err)
	}

	// Preserve original file permissions
	if info, err := os.Stat(filePath); err == nil {
		_ = os.Chmod(tmpName, info.Mode()) // best-effort permission sync
	}

	if err := os.Rename(tmpName, filePath); err != nil {
		_ = os.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("rename temp to %s: %w", filePath, err)
	}
	return nil
}
