package tests

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	billy "github.com/go-git/go-billy/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/classnav/internal/config"
	"github.com/agentic-research/classnav/internal/controller"
	"github.com/agentic-research/classnav/internal/graph"
	"github.com/agentic-research/classnav/internal/host"
	"github.com/agentic-research/classnav/internal/ingest"
	"github.com/agentic-research/classnav/internal/linter"
	"github.com/agentic-research/classnav/internal/nfsmount"
	"github.com/agentic-research/classnav/internal/projection"
)

// testFixture is an HTML file on disk with the full edit stack on top:
// file host, controller with validation, projection and the NFS filesystem.
type testFixture struct {
	srcFile string
	ctrl    *controller.Controller
	fs      billy.Filesystem
}

const testPage = `<!doctype html>
<html>
<body>
  <nav class="menu:item ph-hide">
    <a class="menu:link">home</a>
  </nav>
</body>
</html>
`

func setup(t *testing.T) *testFixture {
	t.Helper()

	srcFile := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(srcFile, []byte(testPage), 0o644))

	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := config.Default()

	f, err := host.OpenFileAt(srcFile, "4:16", cfg.Extensions)
	require.NoError(t, err)
	ctrl := controller.New(f, cfg.ControllerOptions(log)...)
	proj := projection.New(ctrl, log)

	return &testFixture{
		srcFile: srcFile,
		ctrl:    ctrl,
		fs:      nfsmount.NewClassFS(proj, true),
	}
}

func (fx *testFixture) source(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(fx.srcFile)
	require.NoError(t, err)
	return string(data)
}

func readNode(t *testing.T, fs billy.Filesystem, path string) string {
	t.Helper()
	f, err := fs.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	return string(data)
}

func dirNames(t *testing.T, fs billy.Filesystem, path string) []string {
	t.Helper()
	infos, err := fs.ReadDir(path)
	require.NoError(t, err)
	var out []string
	for _, info := range infos {
		out = append(out, info.Name())
	}
	return out
}

func TestIntegration_Projection(t *testing.T) {
	fx := setup(t)

	assert.Equal(t, []string{"_value", "_status", "menu", "ph-hide"}, dirNames(t, fx.fs, "/"))
	assert.Equal(t, []string{"item"}, dirNames(t, fx.fs, "/menu"))
	assert.Equal(t, "menu:item ph-hide\n", readNode(t, fx.fs, "/_value"))
	assert.Equal(t, "Phone\n", readNode(t, fx.fs, "/ph-hide/_description"))
}

func TestIntegration_DirectoryEdits(t *testing.T) {
	fx := setup(t)

	require.NoError(t, fx.fs.MkdirAll("/card", 0o755))
	assert.Contains(t, fx.source(t), `<nav class="menu:item ph-hide card">`)

	require.NoError(t, fx.fs.Rename("/card", "/menu/card"))
	assert.Contains(t, fx.source(t), `<nav class="menu:item ph-hide menu:card">`)
	assert.Equal(t, []string{"card", "item"}, dirNames(t, fx.fs, "/menu"))

	// renaming rewrites every attribute in the file
	require.NoError(t, fx.fs.Rename("/menu", "/nav"))
	src := fx.source(t)
	assert.Contains(t, src, `<nav class="nav:item ph-hide nav:card">`)
	assert.Contains(t, src, `<a class="nav:link">`)

	require.NoError(t, fx.fs.Remove("/nav/card"))
	assert.Contains(t, fx.source(t), `<nav class="nav:item ph-hide">`)
	assert.Equal(t, "nav:item ph-hide\n", readNode(t, fx.fs, "/_value"))

	// untouched markup
	assert.True(t, strings.HasPrefix(fx.source(t), "<!doctype html>\n<html>\n<body>\n"))
}

func TestIntegration_RejectedEditsLeaveFileAlone(t *testing.T) {
	fx := setup(t)

	err := fx.fs.Rename("/menu", "/menu/item/menu")
	assert.Error(t, err)

	err = fx.fs.Rename("/menu/item", "/ph-hide/thing")
	assert.ErrorIs(t, err, projection.ErrRenameAndMove)

	err = fx.fs.Remove("/_value")
	assert.Error(t, err)

	assert.Equal(t, testPage, fx.source(t))
}

func TestIntegration_ExternalEdit(t *testing.T) {
	fx := setup(t)

	edited := strings.Replace(testPage, `class="menu:item ph-hide"`, `class="footer"`, 1)
	require.NoError(t, os.WriteFile(fx.srcFile, []byte(edited), 0o644))

	// the projection only changes once the controller is told
	assert.Equal(t, []string{"_value", "_status", "menu", "ph-hide"}, dirNames(t, fx.fs, "/"))
	fx.ctrl.DocumentChanged()
	assert.Equal(t, []string{"_value", "_status", "footer"}, dirNames(t, fx.fs, "/"))
}

func TestIntegration_RefsAndLintAfterEdits(t *testing.T) {
	fx := setup(t)
	require.NoError(t, fx.fs.MkdirAll("/menu/active", 0o755))

	store := graph.NewMemoryStore()
	defer func() { _ = store.Close() }()
	log := logrus.New()
	log.SetOutput(io.Discard)
	require.NoError(t, ingest.NewEngine(store, nil, log).Ingest(filepath.Dir(fx.srcFile)))

	assert.Len(t, store.Refs("menu"), 2)
	assert.Len(t, store.Refs("menu:active"), 1)
	assert.Empty(t, store.Refs("active"))

	diags, err := linter.Lint([]byte(fx.source(t)))
	require.NoError(t, err)
	assert.Empty(t, diags)
}
