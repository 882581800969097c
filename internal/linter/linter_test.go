package linter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rules(diags []Diagnostic) []string {
	var out []string
	for _, d := range diags {
		out = append(out, d.Rule)
	}
	return out
}

func TestLint_Clean(t *testing.T) {
	diags, err := Lint([]byte(`<div class="nav nav:item ph-hide"></div>`))
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestLint_MalformedTokens(t *testing.T) {
	src := `<div class="a::b :c d: e e"></div>`
	diags, err := Lint([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{RuleEmptySegment, RuleLeadingDelimiter, RuleTrailingDelim, RuleDuplicate}, rules(diags))

	assert.Equal(t, "a::b", diags[0].Token)
	assert.Equal(t, 12, diags[0].Offset)
	assert.Contains(t, diags[0].Message, `"a:b"`)
	assert.Equal(t, "e", diags[3].Token)
	assert.Equal(t, src[diags[3].Offset:diags[3].Offset+1], "e")
}

func TestLint_DuplicatesArePerAttribute(t *testing.T) {
	diags, err := Lint([]byte(`<a class="x"></a><b class="x"></b>`))
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestLint_Positions(t *testing.T) {
	diags, err := Lint([]byte("<ul>\n  <li class=\"ok :bad\"></li>\n</ul>"))
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, uint32(1), diags[0].Line)
	assert.Equal(t, uint32(16), diags[0].Column)
	assert.Equal(t, "line 2:17: \":bad\" starts with \":\" [leading-delimiter]", diags[0].String())
}

func TestLint_Unquoted(t *testing.T) {
	diags, err := Lint([]byte(`<p class=nav>hi</p>`))
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, RuleUnquoted, diags[0].Rule)
	assert.Equal(t, "nav", diags[0].Token)
}
