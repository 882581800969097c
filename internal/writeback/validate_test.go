package writeback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!DOCTYPE html>
<html>
<body>
  <div class="nav nav:item">hello</div>
</body>
</html>
`

func TestValidate_ValidEdit(t *testing.T) {
	after := []byte(`<!DOCTYPE html>
<html>
<body>
  <div class="top top:item">hello</div>
</body>
</html>
`)
	assert.NoError(t, Validate([]byte(page), after, "index.html"))
}

func TestValidate_BrokenEdit(t *testing.T) {
	after := []byte("<div class=\"a\">hello</div\n")
	err := Validate([]byte("<div class=\"a\">hello</div>\n"), after, "index.html")
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "index.html", ve.FilePath)
	assert.Contains(t, ve.Message, "syntax error")
}

func TestValidate_AlreadyBrokenDocument(t *testing.T) {
	// the same damage before and after the edit is not the edit's fault
	before := []byte("<div class=\"a\">hello</div\n")
	after := []byte("<div class=\"a b\">hello</div\n")
	assert.NoError(t, Validate(before, after, "index.html"))
}

func TestValidate_EmptyContent(t *testing.T) {
	assert.NoError(t, Validate(nil, []byte{}, "index.html"))
}

func TestASTErrors_Broken(t *testing.T) {
	errs := ASTErrors([]byte("<div class=\"a\">hello</div\n"), "index.html")
	require.NotEmpty(t, errs)
	assert.Equal(t, "index.html", errs[0].FilePath)
}

func TestASTErrors_Valid_ReturnsNil(t *testing.T) {
	assert.Nil(t, ASTErrors([]byte(page), "index.html"))
}

func TestValidationError_Format(t *testing.T) {
	e := &ValidationError{FilePath: "a.html", Line: 2, Column: 4, Message: "boom"}
	assert.Equal(t, "a.html:3:5: boom", e.Error())
}
