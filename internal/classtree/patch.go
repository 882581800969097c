package classtree

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Edit replaces the bytes [Start, End) of a document with Text.
type Edit struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// Patch is a sorted list of non-overlapping edits against one document.
type Patch []Edit

// Apply returns text with every edit applied.
func (p Patch) Apply(text string) string {
	if len(p) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, e := range p {
		b.WriteString(text[last:e.Start])
		b.WriteString(e.Text)
		last = e.End
	}
	b.WriteString(text[last:])
	return b.String()
}

// Shift maps an offset in the original text to the matching offset after
// the patch. Offsets inside a replaced range are clamped into the new text.
func (p Patch) Shift(offset int) int {
	delta := 0
	for _, e := range p {
		switch {
		case offset >= e.End:
			delta += len(e.Text) - (e.End - e.Start)
		case offset > e.Start:
			return e.Start + delta + min(offset-e.Start, len(e.Text))
		default:
			return offset + delta
		}
	}
	return offset + delta
}

// token is one whitespace-delimited entry of a class value, with its byte
// span relative to the document.
type token struct {
	Span
	Text string
}

// tokens splits attr's value on runs of whitespace.
func tokens(attr Attribute) []token {
	var out []token
	v := attr.Text
	start := -1
	for i := 0; i < len(v); {
		r, size := utf8.DecodeRuneInString(v[i:])
		if unicode.IsSpace(r) {
			if start >= 0 {
				out = append(out, token{Span{attr.Value.Start + start, attr.Value.Start + i}, v[start:i]})
				start = -1
			}
		} else if start < 0 {
			start = i
		}
		i += size
	}
	if start >= 0 {
		out = append(out, token{Span{attr.Value.Start + start, attr.Value.End}, v[start:]})
	}
	return out
}

// replaceTokens rewrites the tokens of attr for which fn reports a change.
func replaceTokens(attr Attribute, fn func(tok string) (string, bool)) Patch {
	var p Patch
	for _, t := range tokens(attr) {
		if repl, ok := fn(t.Text); ok {
			p = append(p, Edit{Start: t.Start, End: t.End, Text: repl})
		}
	}
	return p
}

// dropTokens deletes the tokens of attr for which drop returns true, along
// with one neighbouring whitespace run so kept tokens stay single-spaced.
func dropTokens(attr Attribute, drop func(tok string) bool) Patch {
	toks := tokens(attr)
	var p Patch
	kept := false
	for i, t := range toks {
		if !drop(t.Text) {
			kept = true
			continue
		}
		switch {
		case kept:
			// preceding gap + token
			p = append(p, Edit{Start: toks[i-1].End, End: t.End})
		case i+1 < len(toks):
			// token + following gap
			p = append(p, Edit{Start: t.Start, End: toks[i+1].Start})
		default:
			p = append(p, Edit{Start: t.Start, End: t.End})
		}
	}
	return p
}
