package nfsmount

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/classnav/internal/controller"
	"github.com/agentic-research/classnav/internal/host"
	"github.com/agentic-research/classnav/internal/projection"
)

const testDoc = `<nav class="menu:item menu:link ph-hide">x</nav>`

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestFS(t *testing.T, writable bool) (*ClassFS, *host.Buffer) {
	t.Helper()
	b := host.NewBuffer(testDoc, host.LanguageHTML)
	b.SetCursor(strings.Index(testDoc, "class="))
	log := quietLogger()
	p := projection.New(controller.New(b, controller.WithLogger(log)), log)
	return NewClassFS(p, writable), b
}

func names(infos []os.FileInfo) []string {
	out := make([]string, len(infos))
	for i, e := range infos {
		out[i] = e.Name()
	}
	return out
}

func TestStatRoot(t *testing.T) {
	cfs, _ := newTestFS(t, false)

	info, err := cfs.Stat("/")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "/", info.Name())
	assert.Equal(t, os.FileMode(0o555), info.Mode().Perm())
}

func TestStatValueFile(t *testing.T) {
	cfs, _ := newTestFS(t, false)

	info, err := cfs.Stat("/_value")
	require.NoError(t, err)
	assert.False(t, info.IsDir())
	assert.Equal(t, "_value", info.Name())
	assert.Equal(t, int64(len("menu:item menu:link ph-hide\n")), info.Size())
	assert.Equal(t, os.FileMode(0o444), info.Mode().Perm())
}

func TestStatDir(t *testing.T) {
	cfs, _ := newTestFS(t, true)

	info, err := cfs.Stat("/menu/item")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "item", info.Name())
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestStatNotFound(t *testing.T) {
	cfs, _ := newTestFS(t, false)

	_, err := cfs.Stat("/nonexistent")
	assert.True(t, os.IsNotExist(err))
}

func TestReadDirRoot(t *testing.T) {
	cfs, _ := newTestFS(t, false)

	entries, err := cfs.ReadDir("/")
	require.NoError(t, err)
	assert.Equal(t, []string{"_value", "_status", "menu", "ph-hide"}, names(entries))
}

func TestReadDirSubdir(t *testing.T) {
	cfs, _ := newTestFS(t, false)

	entries, err := cfs.ReadDir("/menu")
	require.NoError(t, err)
	assert.Equal(t, []string{"item", "link"}, names(entries))

	entries, err = cfs.ReadDir("/ph-hide")
	require.NoError(t, err)
	assert.Equal(t, []string{"_description"}, names(entries))
}

func TestReadDirOnFile(t *testing.T) {
	cfs, _ := newTestFS(t, false)

	_, err := cfs.ReadDir("/_value")
	assert.Error(t, err)
}

func TestOpenAndRead(t *testing.T) {
	cfs, _ := newTestFS(t, false)

	f, err := cfs.Open("/ph-hide/_description")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	buf := make([]byte, 64)
	n, _ := f.Read(buf)
	// Read may return io.EOF with n > 0, that's fine
	assert.Equal(t, "Phone\n", string(buf[:n]))
}

func TestReadAt(t *testing.T) {
	cfs, _ := newTestFS(t, false)

	f, err := cfs.Open("/_value")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	buf := make([]byte, 4)
	n, _ := f.ReadAt(buf, 5)
	require.Equal(t, 4, n)
	assert.Equal(t, "item", string(buf[:n]))
}

func TestSeek(t *testing.T) {
	cfs, _ := newTestFS(t, false)

	f, err := cfs.Open("/_value")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	pos, err := f.Seek(10, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(10), pos)

	buf := make([]byte, 4)
	n, _ := f.Read(buf)
	assert.Equal(t, "menu", string(buf[:n]))
}

func TestOpenDirFails(t *testing.T) {
	cfs, _ := newTestFS(t, false)

	_, err := cfs.Open("/menu")
	assert.Error(t, err)
	_, err = cfs.Open("/nonexistent")
	assert.True(t, os.IsNotExist(err))
}

func TestReadOnly(t *testing.T) {
	cfs, b := newTestFS(t, false)

	_, err := cfs.Create("newfile.txt")
	assert.Equal(t, errReadOnly, err)

	_, err = cfs.OpenFile("/_value", os.O_WRONLY, 0)
	assert.Equal(t, errReadOnly, err)

	assert.Equal(t, errReadOnly, cfs.MkdirAll("/card", 0o755))
	assert.Equal(t, errReadOnly, cfs.Remove("/menu"))
	assert.Equal(t, errReadOnly, cfs.Rename("/menu", "/nav"))

	assert.Equal(t, testDoc, b.Text())
}

func TestMkdirAddsClass(t *testing.T) {
	cfs, b := newTestFS(t, true)

	require.NoError(t, cfs.MkdirAll("/card", 0o755))
	assert.Equal(t, `<nav class="menu:item menu:link ph-hide card">x</nav>`, b.Text())

	require.NoError(t, cfs.MkdirAll("/card/title", 0o755))
	assert.Equal(t, `<nav class="menu:item menu:link ph-hide card:title">x</nav>`, b.Text())

	info, err := cfs.Stat("/card/title")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// existing directory is a no-op
	require.NoError(t, cfs.MkdirAll("/menu", 0o755))
	assert.Equal(t, `<nav class="menu:item menu:link ph-hide card:title">x</nav>`, b.Text())

	assert.True(t, os.IsNotExist(cfs.MkdirAll("/nope/x", 0o755)))
	assert.Error(t, cfs.MkdirAll("/_value", 0o755))
}

func TestRemoveDropsClass(t *testing.T) {
	cfs, b := newTestFS(t, true)

	require.NoError(t, cfs.Remove("/menu/link"))
	assert.Equal(t, `<nav class="menu:item ph-hide">x</nav>`, b.Text())

	assert.Error(t, cfs.Remove("/_value"))
	assert.True(t, os.IsNotExist(cfs.Remove("/menu/link")))
}

func TestRenameAndMove(t *testing.T) {
	cfs, b := newTestFS(t, true)

	require.NoError(t, cfs.Rename("/menu", "/nav"))
	assert.Equal(t, `<nav class="nav:item nav:link ph-hide">x</nav>`, b.Text())

	require.NoError(t, cfs.Rename("/nav/link", "/link"))
	assert.Equal(t, `<nav class="nav:item link ph-hide">x</nav>`, b.Text())

	assert.Error(t, cfs.Rename("/_value", "/x"))
	assert.ErrorIs(t, cfs.Rename("/link", "/nav/other"), projection.ErrRenameAndMove)
}

func TestCapabilities(t *testing.T) {
	cfs, _ := newTestFS(t, true)

	caps := cfs.Capabilities()
	assert.NotZero(t, caps&2) // ReadCapability (1 << 1)
	assert.NotZero(t, caps&8) // SeekCapability (1 << 3)
	assert.Zero(t, caps&1)    // WriteCapability (1 << 0) should NOT be set
}

func TestRootAndJoin(t *testing.T) {
	cfs, _ := newTestFS(t, false)
	assert.Equal(t, "/", cfs.Root())
	assert.Equal(t, "a/b/c", cfs.Join("a", "b", "c"))
}
