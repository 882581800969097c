package cmd

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

// MountMetadata describes a running mount. It is written beside the mount
// point so "classnav mounts" can find it.
type MountMetadata struct {
	PID        int       `json:"pid"`
	Source     string    `json:"source"`
	Cursor     int       `json:"cursor"`
	MountPoint string    `json:"mount_point"`
	Backend    string    `json:"backend"` // nfs or fuse
	Timestamp  time.Time `json:"timestamp"`
	Writable   bool      `json:"writable"`
}

// generateMountName returns basename-hash, e.g. "index.html-a1b2c3".
func generateMountName(sourcePath string) string {
	hash := sha256.Sum256([]byte(sourcePath))
	return fmt.Sprintf("%s-%s", filepath.Base(sourcePath), hex.EncodeToString(hash[:3]))
}

// getMountsDir returns the directory default mount points are created in.
func getMountsDir() (string, error) {
	dir := filepath.Join(os.TempDir(), "classnav")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// sidecarPath is beside the mount dir, not inside it.
func sidecarPath(mountPoint string) string {
	return mountPoint + ".meta.json"
}

func saveMountMetadata(meta *MountMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(sidecarPath(meta.MountPoint), data, 0o644)
}

func loadMountMetadata(mountPoint string) (*MountMetadata, error) {
	data, err := os.ReadFile(sidecarPath(mountPoint))
	if err != nil {
		return nil, err
	}
	var meta MountMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// listActiveMounts scans dir for sidecar files. Unreadable sidecars are
// skipped.
func listActiveMounts(dir string) ([]*MountMetadata, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var mounts []*MountMetadata
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".meta.json") {
			continue
		}
		meta, err := loadMountMetadata(filepath.Join(dir, strings.TrimSuffix(name, ".meta.json")))
		if err != nil {
			continue
		}
		mounts = append(mounts, meta)
	}
	return mounts, nil
}

// isProcessRunning sends signal 0 to pid. EPERM means the process exists
// but belongs to someone else.
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

func newMountsCmd(g *globals) *cobra.Command {
	var prune bool
	cmd := &cobra.Command{
		Use:   "mounts",
		Short: "List running classnav mounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := getMountsDir()
			if err != nil {
				return err
			}
			mounts, err := listActiveMounts(dir)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MOUNT\tSOURCE\tBACKEND\tWRITABLE\tPID\tSTARTED")
			for _, m := range mounts {
				if !isProcessRunning(m.PID) {
					if prune {
						g.log.WithField("mount", m.MountPoint).Debug("removing stale sidecar")
						_ = os.Remove(sidecarPath(m.MountPoint))
					}
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%d\t%s\n",
					m.MountPoint, m.Source, m.Backend, m.Writable, m.PID, m.Timestamp.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&prune, "prune", false, "delete metadata of mounts whose process has exited")
	return cmd
}
