package classtree

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// RewritePath replaces the oldPath prefix of every matching token in every
// class attribute of text with newPath. Deeper segments are kept, so
// rewriting "nav" to "top" turns "nav:item" into "top:item" and leaves
// "navigation" alone.
func RewritePath(text, oldPath, newPath string) (Patch, error) {
	var p Patch
	for _, attr := range Attributes(text) {
		p = append(p, replaceTokens(attr, func(tok string) (string, bool) {
			if !HasPathPrefix(tok, oldPath) {
				return "", false
			}
			return newPath + tok[len(oldPath):], true
		})...)
	}
	if len(p) == 0 {
		return nil, ErrNoMatch
	}
	return p, nil
}

// InsertToken appends name to the class attribute at cursor.
func InsertToken(text string, cursor int, name string) (Patch, error) {
	attr, ok := Locate(text, cursor)
	if !ok {
		return nil, ErrNotInClassAttribute
	}
	v := attr.Value
	switch {
	case strings.TrimSpace(attr.Text) == "":
		return Patch{{Start: v.Start, End: v.End, Text: name}}, nil
	case endsInSpace(attr.Text):
		return Patch{{Start: v.End, End: v.End, Text: name}}, nil
	default:
		return Patch{{Start: v.End, End: v.End, Text: " " + name}}, nil
	}
}

// InsertSubToken adds sub below parent in the class attribute at cursor. A
// bare parent token becomes parent:sub; every token already below parent
// keeps itself and gains a parent:sub sibling right after it.
func InsertSubToken(text string, cursor int, parent, sub string) (Patch, error) {
	attr, ok := Locate(text, cursor)
	if !ok {
		return nil, ErrNotInClassAttribute
	}
	child := parent + Delimiter + sub
	p := replaceTokens(attr, func(tok string) (string, bool) {
		switch {
		case tok == parent:
			return child, true
		case HasPathPrefix(tok, parent):
			return tok + " " + child, true
		}
		return "", false
	})
	if len(p) == 0 {
		return nil, ErrNoMatch
	}
	return p, nil
}

// RemoveToken drops every token of the class attribute at cursor whose final
// segment is leaf. The attribute may end up empty.
func RemoveToken(text string, cursor int, leaf string) (Patch, error) {
	attr, ok := Locate(text, cursor)
	if !ok {
		return nil, ErrNotInClassAttribute
	}
	p := dropTokens(attr, func(tok string) bool {
		return PathName(tok) == leaf
	})
	if len(p) == 0 {
		return nil, ErrNoMatch
	}
	return p, nil
}

func endsInSpace(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsSpace(r)
}
