package classtree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocate_DoubleQuotes(t *testing.T) {
	text := `<div id="x" class="nav nav:item">hi</div>`
	cursor := strings.Index(text, "item")
	attr, ok := Locate(text, cursor)
	require.True(t, ok)
	assert.Equal(t, "nav nav:item", attr.Text)
	assert.Equal(t, byte('"'), attr.Quote)
	assert.Equal(t, attr.Text, text[attr.Value.Start:attr.Value.End])
	assert.Equal(t, `class="nav nav:item"`, text[attr.Match.Start:attr.Match.End])
}

func TestLocate_SingleQuotesAndSpacing(t *testing.T) {
	text := `<p class = 'a b'></p>`
	attr, ok := Locate(text, strings.Index(text, "a b"))
	require.True(t, ok)
	assert.Equal(t, "a b", attr.Text)
	assert.Equal(t, byte('\''), attr.Quote)
}

func TestLocate_SpanEndsInclusive(t *testing.T) {
	text := `<p class="a">`
	start := strings.Index(text, "class")
	end := start + len(`class="a"`)

	_, ok := Locate(text, start)
	assert.True(t, ok, "cursor on the attribute name")
	_, ok = Locate(text, end)
	assert.True(t, ok, "cursor right after the closing quote")
	_, ok = Locate(text, end+1)
	assert.False(t, ok)
	_, ok = Locate(text, start-1)
	assert.False(t, ok)
}

func TestLocate_PicksAttributeUnderCursor(t *testing.T) {
	text := `<a class="one"></a><b class="two"></b>`
	attr, ok := Locate(text, strings.Index(text, "two"))
	require.True(t, ok)
	assert.Equal(t, "two", attr.Text)
}

func TestLocate_OutOfRange(t *testing.T) {
	_, ok := Locate(`<p class="a">`, -1)
	assert.False(t, ok)
	_, ok = Locate(`<p class="a">`, 100)
	assert.False(t, ok)
	_, ok = Locate(`<p>no classes</p>`, 3)
	assert.False(t, ok)
}

// Attribute names that merely end in "class" are not class attributes. A
// hyphen is a word boundary, so data-class still matches.
func TestLocate_WordBoundary(t *testing.T) {
	for _, text := range []string{`<p subclass="x">`, `<p myclass="x">`} {
		_, ok := Locate(text, strings.Index(text, "x"))
		assert.False(t, ok, text)
	}

	text := `<p data-class="x">`
	_, ok := Locate(text, strings.Index(text, "x"))
	assert.True(t, ok)
}

func TestAttributes_DocumentOrder(t *testing.T) {
	text := `<a class="one"></a><b class='two three'></b><c class=""></c>`
	attrs := Attributes(text)
	require.Len(t, attrs, 3)
	assert.Equal(t, "one", attrs[0].Text)
	assert.Equal(t, "two three", attrs[1].Text)
	assert.Equal(t, "", attrs[2].Text)
}
