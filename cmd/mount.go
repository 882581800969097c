package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/winfsp/cgofuse/fuse"

	"github.com/agentic-research/classnav/internal/controller"
	classfs "github.com/agentic-research/classnav/internal/fs"
	"github.com/agentic-research/classnav/internal/nfsmount"
	"github.com/agentic-research/classnav/internal/projection"
)

func newMountCmd(g *globals) *cobra.Command {
	var (
		useFuse  bool
		writable bool
		poll     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "mount [mountpoint]",
		Short: "Mount the class tree at the cursor as a directory tree",
		Long: `mount exposes the class attribute at the cursor as directories: one
directory per class, nested by hierarchy, plus read-only _value and _status
files. With --writable, mkdir adds a class, rmdir removes one and mv renames
or moves one; every change is written back to the HTML file.

The default backend is a local NFS server (needs sudo for mount). --fuse
uses FUSE instead. Without a mountpoint one is created under the temp dir.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, f, err := g.open()
			if err != nil {
				return err
			}
			source, err := filepath.Abs(f.Path())
			if err != nil {
				return fmt.Errorf("failed to resolve source path: %w", err)
			}

			var mountPoint string
			if len(args) == 1 {
				mountPoint = args[0]
			} else {
				dir, err := getMountsDir()
				if err != nil {
					return err
				}
				mountPoint = filepath.Join(dir, generateMountName(source))
			}
			if err := os.MkdirAll(mountPoint, 0o755); err != nil {
				return fmt.Errorf("create mount point: %w", err)
			}

			proj := projection.New(c, g.log)
			cursor, _ := f.CursorOffset()
			meta := &MountMetadata{
				PID:        os.Getpid(),
				Source:     source,
				Cursor:     cursor,
				MountPoint: mountPoint,
				Backend:    "nfs",
				Timestamp:  time.Now(),
				Writable:   writable,
			}
			if useFuse {
				meta.Backend = "fuse"
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if poll > 0 {
				go watchFile(ctx, source, poll, c, g.log)
			}

			log := g.log.WithFields(logrus.Fields{"mount": mountPoint, "backend": meta.Backend, "writable": writable})
			if useFuse {
				return mountFuse(ctx, proj, meta, log)
			}
			return mountNFS(ctx, proj, meta, log)
		},
	}
	cmd.Flags().BoolVar(&useFuse, "fuse", false, "mount with FUSE instead of NFS")
	cmd.Flags().BoolVarP(&writable, "writable", "w", false, "allow mkdir, rmdir and mv to edit classes")
	cmd.Flags().DurationVar(&poll, "poll", time.Second, "how often to check the file for outside edits (0 disables)")
	return cmd
}

func mountNFS(ctx context.Context, proj *projection.Projector, meta *MountMetadata, log *logrus.Entry) error {
	srv, err := nfsmount.Serve(nfsmount.NewClassFS(proj, meta.Writable), log.Logger)
	if err != nil {
		return err
	}
	if err := srv.Mount(meta.MountPoint, meta.Writable); err != nil {
		_ = srv.Close()
		return err
	}
	if err := saveMountMetadata(meta); err != nil {
		log.WithError(err).Warn("failed to write mount metadata")
	}
	defer func() { _ = os.Remove(sidecarPath(meta.MountPoint)) }()
	log.WithField("port", srv.Port()).Info("mounted")

	<-ctx.Done()
	if err := srv.Close(); err != nil {
		return fmt.Errorf("unmount %s: %w", meta.MountPoint, err)
	}
	log.Info("unmounted")
	return nil
}

func mountFuse(ctx context.Context, proj *projection.Projector, meta *MountMetadata, log *logrus.Entry) error {
	host := fuse.NewFileSystemHost(classfs.NewClassFS(proj, meta.Writable, log.Logger))

	// uid/gid make the mount ours under fuse-t/NFS.
	opts := []string{
		"-o", fmt.Sprintf("uid=%d", os.Getuid()),
		"-o", fmt.Sprintf("gid=%d", os.Getgid()),
	}
	if !meta.Writable {
		opts = append(opts, "-o", "ro")
	}

	if err := saveMountMetadata(meta); err != nil {
		log.WithError(err).Warn("failed to write mount metadata")
	}
	defer func() { _ = os.Remove(sidecarPath(meta.MountPoint)) }()

	go func() {
		<-ctx.Done()
		host.Unmount()
	}()

	log.Info("mounting")
	if !host.Mount(meta.MountPoint, opts) {
		return fmt.Errorf("mount failed")
	}
	return nil
}

// watchFile tells c the document changed whenever path's modification time
// or size changes, until ctx is done.
func watchFile(ctx context.Context, path string, every time.Duration, c *controller.Controller, log *logrus.Logger) {
	last, _ := os.Stat(path)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		info, err := os.Stat(path)
		if err != nil {
			log.WithError(err).Debug("stat watched file")
			continue
		}
		if last == nil || !info.ModTime().Equal(last.ModTime()) || info.Size() != last.Size() {
			last = info
			log.WithField("file", path).Debug("file changed on disk")
			c.DocumentChanged()
		}
	}
}
