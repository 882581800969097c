package classtree

import (
	"fmt"
	"io"
	"strings"
)

// WriteOutline prints the forest one node per line, indented two spaces per
// level, with root descriptions in parentheses.
func WriteOutline(w io.Writer, f Forest) error {
	var err error
	f.Walk(func(n *Node, depth int) bool {
		if err != nil {
			return false
		}
		line := strings.Repeat("  ", depth) + n.Name
		if n.Description != "" {
			line += " (" + n.Description + ")"
		}
		_, err = fmt.Fprintln(w, line)
		return true
	})
	return err
}

// Outline is WriteOutline into a string.
func Outline(f Forest) string {
	var b strings.Builder
	_ = WriteOutline(&b, f) // strings.Builder never fails
	return b.String()
}
