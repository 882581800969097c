package classtree

import "regexp"

// classAttr matches class="…" or class='…'. The value runs to the first
// matching quote; escapes are not recognised.
var classAttr = regexp.MustCompile(`\bclass\s*=\s*(?:"([^"]*)"|'([^']*)')`)

// Span is a byte range [Start, End) within a document.
type Span struct {
	Start, End int
}

// Contains reports whether offset lies within the span, both ends inclusive.
// A cursor sitting just after the closing quote still belongs to the match.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset <= s.End
}

// Attribute is one class attribute occurrence in a document.
type Attribute struct {
	Match Span   // class="…" as a whole
	Value Span   // the bytes between the quotes
	Text  string // the value itself
	Quote byte
}

// Attributes returns every class attribute in text, in document order.
func Attributes(text string) []Attribute {
	locs := classAttr.FindAllStringSubmatchIndex(text, -1)
	attrs := make([]Attribute, 0, len(locs))
	for _, loc := range locs {
		attrs = append(attrs, attributeAt(text, loc))
	}
	return attrs
}

// Locate returns the first class attribute whose match contains cursor.
func Locate(text string, cursor int) (Attribute, bool) {
	if cursor < 0 || cursor > len(text) {
		return Attribute{}, false
	}
	for _, loc := range classAttr.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > cursor {
			break
		}
		if loc[1] >= cursor {
			return attributeAt(text, loc), true
		}
	}
	return Attribute{}, false
}

func attributeAt(text string, loc []int) Attribute {
	a := Attribute{Match: Span{Start: loc[0], End: loc[1]}}
	if loc[2] >= 0 {
		a.Value = Span{Start: loc[2], End: loc[3]}
		a.Quote = '"'
	} else {
		a.Value = Span{Start: loc[4], End: loc[5]}
		a.Quote = '\''
	}
	a.Text = text[a.Value.Start:a.Value.End]
	return a
}
