package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/classnav/internal/classtree"
	"github.com/agentic-research/classnav/internal/controller"
	"github.com/agentic-research/classnav/internal/host"
)

const page = `<nav class="menu:item ph-hide">x</nav>
<p class="lead">y</p>
`

func writePage(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

// run executes the CLI with args and returns what it printed to stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func readPage(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestTreeCmd(t *testing.T) {
	path := writePage(t, page)

	out, err := run(t, "", "tree", "-f", path)
	require.NoError(t, err)
	assert.Equal(t, "menu\n  item\nph-hide (Phone)\n", out)

	// second attribute by line:col
	out, err = run(t, "", "tree", "-f", path, "-c", "2:12")
	require.NoError(t, err)
	assert.Equal(t, "lead\n", out)

	out, err = run(t, "", "tree", "-f", path, "-c", "0")
	require.NoError(t, err)
	assert.Equal(t, controller.MsgPlaceCursor+"\n", out)
}

func TestTreeCmd_JSON(t *testing.T) {
	path := writePage(t, `<i class="ph-hide"></i>`)
	out, err := run(t, "", "tree", "--json", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"description": "Phone"`)
	assert.Contains(t, out, `"classes": [`)
}

func TestTreeCmd_RequiresFile(t *testing.T) {
	_, err := run(t, "", "tree")
	assert.ErrorContains(t, err, "--file")
}

func TestEditCmds(t *testing.T) {
	path := writePage(t, page)

	steps := []struct {
		args []string
		want string // class attribute of the first element afterwards
		tree string
	}{
		{[]string{"add", "card"}, "menu:item ph-hide card", "card\nmenu\n  item\nph-hide (Phone)\n"},
		{[]string{"add-child", "card", "body"}, "menu:item ph-hide card:body", "card\n  body\nmenu\n  item\nph-hide (Phone)\n"},
		{[]string{"rename", "card", "panel"}, "menu:item ph-hide panel:body", "menu\n  item\npanel\n  body\nph-hide (Phone)\n"},
		{[]string{"mv", "panel:body", "menu"}, "menu:item ph-hide menu:body", "menu\n  body\n  item\nph-hide (Phone)\n"},
		{[]string{"mv-root", "menu:body"}, "menu:item ph-hide body", "body\nmenu\n  item\nph-hide (Phone)\n"},
		{[]string{"rm", "--yes", "body"}, "menu:item ph-hide", "menu\n  item\nph-hide (Phone)\n"},
	}
	for _, s := range steps {
		out, err := run(t, "", append(s.args, "-f", path)...)
		require.NoError(t, err, s.args)
		assert.Equal(t, s.tree, out, s.args)
		assert.Contains(t, readPage(t, path), `class="`+s.want+`"`, s.args)
	}
	// untouched
	assert.Contains(t, readPage(t, path), `<p class="lead">`)
}

func TestEditCmds_Errors(t *testing.T) {
	path := writePage(t, page)

	_, err := run(t, "", "mv", "menu", "menu:item", "-f", path)
	assert.ErrorIs(t, err, classtree.ErrCyclicMove)

	_, err = run(t, "", "rename", "nope", "x", "-f", path)
	assert.ErrorIs(t, err, classtree.ErrNoMatch)

	_, err = run(t, "", "add", "  ", "-f", path)
	assert.ErrorIs(t, err, controller.ErrEmptyName)

	_, err = run(t, "", "add", "x", "-f", path, "-c", "0")
	assert.ErrorIs(t, err, classtree.ErrNotInClassAttribute)
	assert.ErrorContains(t, err, controller.MsgPlaceCursor)

	assert.Equal(t, page, readPage(t, path))
}

func TestRemoveCmd_Declined(t *testing.T) {
	path := writePage(t, page)
	_, err := run(t, "n", "rm", "menu:item", "-f", path)
	assert.ErrorIs(t, err, host.ErrCancelled)
	assert.Equal(t, page, readPage(t, path))
}

func TestQueryCmd(t *testing.T) {
	path := writePage(t, page)
	out, err := run(t, "", "query", "$.classes[?(@.description == 'Phone')].name", "-f", path)
	require.NoError(t, err)
	assert.Equal(t, "\"ph-hide\"\n", out)

	_, err = run(t, "", "query", "$[[[", "-f", path)
	assert.Error(t, err)
}

func TestLintCmd(t *testing.T) {
	clean := writePage(t, page)
	out, err := run(t, "", "lint", clean)
	require.NoError(t, err)
	assert.Empty(t, out)

	bad := writePage(t, `<p class="a::b"></p>`)
	out, err = run(t, "", "lint", "-f", bad)
	assert.ErrorContains(t, err, "1 problem(s) found")
	assert.Contains(t, out, bad+": line 1:")
	assert.Contains(t, out, "[empty-segment]")
}

func TestRefsCmd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.html"), []byte(page), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.html"), []byte(`<b class="menu"></b>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`class="menu"`), 0o644))

	out, err := run(t, "", "refs", "menu", dir)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, out, filepath.Join(dir, "a.html")+":1:")
	assert.Contains(t, out, filepath.Join(dir, "b.html")+":1:")

	out, err = run(t, "", "refs", "--like", "menu%", filepath.Join(dir, "a.html"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2) // menu, menu:item

	out, err = run(t, "", "refs", "nope", dir)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMountMetadata(t *testing.T) {
	dir := t.TempDir()
	meta := &MountMetadata{
		PID:        os.Getpid(),
		Source:     "/srv/site/index.html",
		Cursor:     12,
		MountPoint: filepath.Join(dir, generateMountName("/srv/site/index.html")),
		Backend:    "nfs",
		Timestamp:  time.Now().Truncate(time.Second),
	}
	assert.True(t, strings.HasPrefix(filepath.Base(meta.MountPoint), "index.html-"))
	require.NoError(t, saveMountMetadata(meta))

	got, err := loadMountMetadata(meta.MountPoint)
	require.NoError(t, err)
	assert.Equal(t, meta.Source, got.Source)
	assert.Equal(t, 12, got.Cursor)
	assert.True(t, meta.Timestamp.Equal(got.Timestamp))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.meta.json"), []byte("{"), 0o644))
	mounts, err := listActiveMounts(dir)
	require.NoError(t, err)
	require.Len(t, mounts, 1)
	assert.Equal(t, meta.MountPoint, mounts[0].MountPoint)

	mounts, err = listActiveMounts(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, mounts)
}

func TestIsProcessRunning(t *testing.T) {
	assert.True(t, isProcessRunning(os.Getpid()))
	assert.False(t, isProcessRunning(0))
}

func TestWatchFile(t *testing.T) {
	path := writePage(t, page)
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	c := controller.New(host.NewFile(path, 12, nil))

	var changed atomic.Int32
	c.OnTreeInvalidated(func() { changed.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchFile(ctx, path, 5*time.Millisecond, c, log)

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, changed.Load())

	require.NoError(t, os.WriteFile(path, []byte(page+"<br>\n"), 0o644))
	assert.Eventually(t, func() bool { return changed.Load() > 0 }, 2*time.Second, 5*time.Millisecond)
}
