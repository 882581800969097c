package writeback

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/html"
)

// ValidationError contains structured information about a syntax error.
type ValidationError struct {
	FilePath string
	Line     uint32 // 0-indexed
	Column   uint32 // 0-indexed
	Message  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.FilePath, e.Line+1, e.Column+1, e.Message)
}

// Validate parses the document before and after an edit and rejects the
// edit when it introduced syntax errors. Documents that were already broken
// stay editable as long as the error count does not grow.
func Validate(before, after []byte, filePath string) error {
	afterErrs, err := parseErrors(after, filePath)
	if err != nil {
		return err
	}
	if len(afterErrs) == 0 {
		return nil
	}
	beforeErrs, err := parseErrors(before, filePath)
	if err != nil {
		return err
	}
	if len(afterErrs) <= len(beforeErrs) {
		return nil
	}

	// Report the first error that sits somewhere new.
	seen := make(map[[2]uint32]bool, len(beforeErrs))
	for _, e := range beforeErrs {
		seen[[2]uint32{e.Line, e.Column}] = true
	}
	for i := range afterErrs {
		e := afterErrs[i]
		if !seen[[2]uint32{e.Line, e.Column}] {
			e.Message = "edit introduces a syntax error"
			return &e
		}
	}
	e := afterErrs[0]
	e.Message = "edit introduces a syntax error"
	return &e
}

// ASTErrors returns all ERROR node locations in the content for diagnostic reporting.
// Returns nil if there are none.
func ASTErrors(content []byte, filePath string) []ValidationError {
	errs, err := parseErrors(content, filePath)
	if err != nil {
		return nil
	}
	return errs
}

func parseErrors(content []byte, filePath string) ([]ValidationError, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(html.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed for %s: %w", filePath, err)
	}

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("tree-sitter returned nil root for %s", filePath)
	}
	if !root.HasError() {
		return nil, nil
	}

	var errs []ValidationError
	collectErrors(root, filePath, &errs)
	return errs, nil
}

// collectErrors gathers all ERROR/MISSING nodes in the tree.
func collectErrors(node *sitter.Node, filePath string, errs *[]ValidationError) {
	if node.IsError() || node.IsMissing() {
		msg := "syntax error in AST"
		if node.IsMissing() {
			msg = fmt.Sprintf("missing %s", node.Type())
		}
		*errs = append(*errs, ValidationError{
			FilePath: filePath,
			Line:     uint32(node.StartPoint().Row),
			Column:   uint32(node.StartPoint().Column),
			Message:  msg,
		})
		return // don't recurse into error children
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.HasError() || child.IsError() || child.IsMissing() {
			collectErrors(child, filePath, errs)
		}
	}
}
