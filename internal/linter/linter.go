// Package linter reports class attribute tokens that classnav would parse
// differently from how they read.
package linter

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/html"

	"github.com/agentic-research/classnav/internal/classtree"
)

// Rule names.
const (
	RuleEmptySegment     = "empty-segment"
	RuleLeadingDelimiter = "leading-delimiter"
	RuleTrailingDelim    = "trailing-delimiter"
	RuleDuplicate        = "duplicate-token"
	RuleUnquoted         = "unquoted-class"
)

type Diagnostic struct {
	Rule    string
	Message string
	Token   string
	Offset  int    // byte offset of the token
	Line    uint32 // 0-indexed
	Column  uint32 // 0-indexed
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d:%d: %s [%s]", d.Line+1, d.Column+1, d.Message, d.Rule)
}

// Lint checks every class attribute in content.
func Lint(content []byte) ([]Diagnostic, error) {
	text := string(content)
	var diags []Diagnostic
	for _, attr := range classtree.Attributes(text) {
		diags = append(diags, lintAttribute(text, attr)...)
	}

	unquoted, err := unquotedClasses(content)
	if err != nil {
		return nil, err
	}
	diags = append(diags, unquoted...)

	sort.SliceStable(diags, func(i, j int) bool { return diags[i].Offset < diags[j].Offset })
	return diags, nil
}

func lintAttribute(text string, attr classtree.Attribute) []Diagnostic {
	var diags []Diagnostic
	add := func(offset int, token, rule, msg string) {
		line, col := position(text, offset)
		diags = append(diags, Diagnostic{Rule: rule, Message: msg, Token: token, Offset: offset, Line: line, Column: col})
	}

	seen := make(map[string]bool)
	value := attr.Text
	for i := 0; i < len(value); {
		// token boundaries match strings.Fields for ASCII whitespace
		for i < len(value) && isSpace(value[i]) {
			i++
		}
		start := i
		for i < len(value) && !isSpace(value[i]) {
			i++
		}
		if start == i {
			break
		}
		token := value[start:i]
		offset := attr.Value.Start + start

		switch {
		case strings.HasPrefix(token, classtree.Delimiter):
			add(offset, token, RuleLeadingDelimiter, fmt.Sprintf("%q starts with %q", token, classtree.Delimiter))
		case strings.HasSuffix(token, classtree.Delimiter):
			add(offset, token, RuleTrailingDelim, fmt.Sprintf("%q ends with %q", token, classtree.Delimiter))
		case strings.Contains(token, classtree.Delimiter+classtree.Delimiter):
			add(offset, token, RuleEmptySegment, fmt.Sprintf("%q has an empty segment; it reads as %q", token, classtree.JoinPath(classtree.SplitPath(token)...)))
		}
		if seen[token] {
			add(offset, token, RuleDuplicate, fmt.Sprintf("%q repeats earlier in the attribute", token))
		}
		seen[token] = true
	}
	return diags
}

// unquotedClasses finds class=value attributes without quotes, which the
// pattern-based locator does not see.
func unquotedClasses(content []byte) ([]Diagnostic, error) {
	lang := html.GetLanguage()
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}

	q, err := sitter.NewQuery([]byte(`(attribute (attribute_name) @name (attribute_value) @value)`), lang)
	if err != nil {
		return nil, err
	}
	qc := sitter.NewQueryCursor()
	qc.Exec(q, tree.RootNode())

	var diags []Diagnostic
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		var name, value *sitter.Node
		for _, c := range m.Captures {
			switch q.CaptureNameForId(c.Index) {
			case "name":
				name = c.Node
			case "value":
				value = c.Node
			}
		}
		if name == nil || value == nil || !strings.EqualFold(name.Content(content), "class") {
			continue
		}
		diags = append(diags, Diagnostic{
			Rule:    RuleUnquoted,
			Message: fmt.Sprintf("unquoted class attribute %q is not editable; quote it", value.Content(content)),
			Token:   value.Content(content),
			Offset:  int(value.StartByte()),
			Line:    value.StartPoint().Row,
			Column:  value.StartPoint().Column,
		})
	}
	return diags, nil
}

func position(text string, offset int) (line, col uint32) {
	before := text[:offset]
	line = uint32(strings.Count(before, "\n"))
	col = uint32(offset - (strings.LastIndexByte(before, '\n') + 1))
	return line, col
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}
