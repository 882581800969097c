package fs

import (
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/winfsp/cgofuse/fuse"

	"github.com/agentic-research/classnav/internal/controller"
	"github.com/agentic-research/classnav/internal/host"
	"github.com/agentic-research/classnav/internal/projection"
)

const testDoc = `<li class="menu:item menu:link ph-hide">x</li>`

// newTestFS mounts a projection of testDoc with the cursor on its class
// attribute.
func newTestFS(writable bool) (*ClassFS, *host.Buffer) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	b := host.NewBuffer(testDoc, host.LanguageHTML)
	b.SetCursor(strings.Index(testDoc, "class="))
	p := projection.New(controller.New(b, controller.WithLogger(log)), log)
	return NewClassFS(p, writable, log), b
}

func readdir(cfs *ClassFS, path string) ([]string, int) {
	var entries []string
	fill := func(name string, stat *fuse.Stat_t, ofst int64) bool {
		entries = append(entries, name)
		return true
	}
	errCode := cfs.Readdir(path, fill, 0, 0)
	return entries, errCode
}

func TestClassFS_Open(t *testing.T) {
	cfs, _ := newTestFS(false)

	tests := []struct {
		name    string
		path    string
		flags   int
		wantErr int
	}{
		{name: "open value file", path: "/_value", flags: fuse.O_RDONLY},
		{name: "open description", path: "/ph-hide/_description", flags: fuse.O_RDONLY},
		{name: "open non-existent path", path: "/does-not-exist", wantErr: -fuse.ENOENT},
		{name: "open directory returns EISDIR", path: "/menu", wantErr: -fuse.EISDIR},
		{name: "open for write returns EROFS", path: "/_value", flags: fuse.O_WRONLY, wantErr: -fuse.EROFS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errCode, fh := cfs.Open(tt.path, tt.flags)
			if errCode != tt.wantErr {
				t.Errorf("Open() errCode = %v, want %v", errCode, tt.wantErr)
			}
			if fh != 0 {
				t.Errorf("Open() fh = %v, want 0", fh)
			}
		})
	}
}

func TestClassFS_Getattr(t *testing.T) {
	cfs, _ := newTestFS(false)

	tests := []struct {
		name      string
		path      string
		wantErr   int
		checkStat func(*testing.T, *fuse.Stat_t)
	}{
		{
			name: "stat root directory",
			path: "/",
			checkStat: func(t *testing.T, stat *fuse.Stat_t) {
				if stat.Mode&fuse.S_IFDIR == 0 {
					t.Error("Root should be a directory")
				}
				if stat.Nlink != 2 {
					t.Errorf("Root nlink = %v, want 2", stat.Nlink)
				}
			},
		},
		{
			name: "stat class directory",
			path: "/menu/item",
			checkStat: func(t *testing.T, stat *fuse.Stat_t) {
				if stat.Mode&fuse.S_IFDIR == 0 {
					t.Error("menu/item should be a directory")
				}
				if stat.Mode&0o777 != 0o555 {
					t.Errorf("perm = %o, want 555", stat.Mode&0o777)
				}
			},
		},
		{
			name: "stat value file",
			path: "/_value",
			checkStat: func(t *testing.T, stat *fuse.Stat_t) {
				if stat.Mode&fuse.S_IFREG == 0 {
					t.Error("_value should be a regular file")
				}
				want := int64(len("menu:item menu:link ph-hide\n"))
				if stat.Size != want {
					t.Errorf("_value size = %v, want %v", stat.Size, want)
				}
			},
		},
		{
			name:    "stat non-existent path",
			path:    "/does-not-exist",
			wantErr: -fuse.ENOENT,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stat fuse.Stat_t
			errCode := cfs.Getattr(tt.path, &stat, 0)
			if errCode != tt.wantErr {
				t.Errorf("Getattr() errCode = %v, want %v", errCode, tt.wantErr)
			}
			if errCode == 0 && tt.checkStat != nil {
				tt.checkStat(t, &stat)
			}
		})
	}
}

func TestClassFS_Readdir(t *testing.T) {
	cfs, _ := newTestFS(false)

	tests := []struct {
		name        string
		path        string
		wantErr     int
		wantEntries []string
	}{
		{
			name:        "readdir root lists virtual files then roots",
			path:        "/",
			wantEntries: []string{".", "..", "_value", "_status", "menu", "ph-hide"},
		},
		{
			name:        "readdir lists child classes",
			path:        "/menu",
			wantEntries: []string{".", "..", "item", "link"},
		},
		{
			name:        "readdir decorated root",
			path:        "/ph-hide",
			wantEntries: []string{".", "..", "_description"},
		},
		{
			name:    "readdir non-existent path",
			path:    "/does-not-exist",
			wantErr: -fuse.ENOENT,
		},
		{
			name:    "readdir on a file",
			path:    "/_status",
			wantErr: -fuse.ENOTDIR,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, errCode := readdir(cfs, tt.path)
			if errCode != tt.wantErr {
				t.Errorf("Readdir() errCode = %v, want %v", errCode, tt.wantErr)
			}
			if errCode != 0 {
				return
			}
			if strings.Join(entries, ",") != strings.Join(tt.wantEntries, ",") {
				t.Errorf("Readdir() = %v, want %v", entries, tt.wantEntries)
			}
		})
	}
}

func TestClassFS_Read(t *testing.T) {
	cfs, _ := newTestFS(false)

	buf := make([]byte, 64)
	n := cfs.Read("/_status", buf, 0, 0)
	if got := string(buf[:n]); got != "ok\n" {
		t.Errorf("Read(_status) = %q, want %q", got, "ok\n")
	}

	n = cfs.Read("/_value", buf[:4], 5, 0)
	if got := string(buf[:n]); got != "item" {
		t.Errorf("Read(_value, 5) = %q, want %q", got, "item")
	}

	if n := cfs.Read("/_value", buf, 1000, 0); n != 0 {
		t.Errorf("Read past end = %d, want 0", n)
	}
	if n := cfs.Read("/missing", buf, 0, 0); n != -fuse.ENOENT {
		t.Errorf("Read(missing) = %d, want ENOENT", n)
	}
}

func TestClassFS_ReadOnly(t *testing.T) {
	cfs, b := newTestFS(false)

	if errCode := cfs.Mkdir("/card", 0o755); errCode != -fuse.EROFS {
		t.Errorf("Mkdir() = %v, want EROFS", errCode)
	}
	if errCode := cfs.Rmdir("/menu"); errCode != -fuse.EROFS {
		t.Errorf("Rmdir() = %v, want EROFS", errCode)
	}
	if errCode := cfs.Rename("/menu", "/nav"); errCode != -fuse.EROFS {
		t.Errorf("Rename() = %v, want EROFS", errCode)
	}
	if b.Text() != testDoc {
		t.Errorf("document changed: %q", b.Text())
	}
}

func TestClassFS_Mutations(t *testing.T) {
	cfs, b := newTestFS(true)

	steps := []struct {
		name    string
		run     func() int
		wantErr int
		want    string
	}{
		{
			name: "mkdir root class",
			run:  func() int { return cfs.Mkdir("/card", 0o755) },
			want: `<li class="menu:item menu:link ph-hide card">x</li>`,
		},
		{
			name: "mkdir child class",
			run:  func() int { return cfs.Mkdir("/card/title", 0o755) },
			want: `<li class="menu:item menu:link ph-hide card:title">x</li>`,
		},
		{
			name: "rename class",
			run:  func() int { return cfs.Rename("/menu", "/nav") },
			want: `<li class="nav:item nav:link ph-hide card:title">x</li>`,
		},
		{
			name: "move class to root",
			run:  func() int { return cfs.Rename("/nav/link", "/link") },
			want: `<li class="nav:item link ph-hide card:title">x</li>`,
		},
		{
			name:    "rename and move at once",
			run:     func() int { return cfs.Rename("/link", "/nav/other") },
			wantErr: -fuse.EXDEV,
			want:    `<li class="nav:item link ph-hide card:title">x</li>`,
		},
		{
			name:    "move into own descendant",
			run:     func() int { return cfs.Rename("/card", "/card/title/card") },
			wantErr: -fuse.EINVAL,
			want:    `<li class="nav:item link ph-hide card:title">x</li>`,
		},
		{
			name: "rmdir class",
			run:  func() int { return cfs.Rmdir("/link") },
			want: `<li class="nav:item ph-hide card:title">x</li>`,
		},
		{
			name:    "rmdir missing class",
			run:     func() int { return cfs.Rmdir("/link") },
			wantErr: -fuse.ENOENT,
			want:    `<li class="nav:item ph-hide card:title">x</li>`,
		},
		{
			name:    "mkdir over virtual file",
			run:     func() int { return cfs.Mkdir("/_value", 0o755) },
			wantErr: -fuse.EEXIST,
			want:    `<li class="nav:item ph-hide card:title">x</li>`,
		},
	}

	for _, tt := range steps {
		if errCode := tt.run(); errCode != tt.wantErr {
			t.Errorf("%s: errCode = %v, want %v", tt.name, errCode, tt.wantErr)
		}
		if got := b.Text(); got != tt.want {
			t.Errorf("%s: text = %q, want %q", tt.name, got, tt.want)
		}
	}

	var stat fuse.Stat_t
	if errCode := cfs.Getattr("/card/title", &stat, 0); errCode != 0 {
		t.Errorf("Getattr(/card/title) = %v after mkdir", errCode)
	}
	if stat.Mode&0o777 != 0o755 {
		t.Errorf("perm = %o, want 755", stat.Mode&0o777)
	}
}
