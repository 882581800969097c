package nfsmount

import (
	"errors"
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/sirupsen/logrus"
	nfs "github.com/willscott/go-nfs"
	nfshelper "github.com/willscott/go-nfs/helpers"
)

// handleCacheSize bounds the NFS file handle cache.
const handleCacheSize = 4096

// Server serves a filesystem over NFSv3 and owns the system mount made on
// top of it.
type Server struct {
	listener   net.Listener
	log        *logrus.Logger
	mountPoint string
	closed     bool
}

// Serve starts an NFS server for fs on an ephemeral port.
func Serve(fs billy.Filesystem, log *logrus.Logger) (*Server, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return nil, fmt.Errorf("nfs listen: %w", err)
	}
	s := &Server{listener: l, log: log}

	handler := nfshelper.NewCachingHandler(nfshelper.NewNullAuthHandler(fs), handleCacheSize)
	go func() {
		if err := nfs.Serve(l, handler); err != nil && !errors.Is(err, net.ErrClosed) {
			log.WithError(err).Warn("nfs server stopped")
		}
	}()
	log.WithField("port", s.Port()).Debug("nfs server listening")
	return s, nil
}

// Port is the TCP port the server listens on.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Mount attaches the server at mountPoint with the system mount command
// (through sudo). Close undoes it.
func (s *Server) Mount(mountPoint string, writable bool) error {
	args, err := mountArgs(runtime.GOOS, s.Port(), mountPoint, writable)
	if err != nil {
		return err
	}
	if out, err := exec.Command("sudo", args...).CombinedOutput(); err != nil {
		return fmt.Errorf("mount %s: %w\n%s", mountPoint, err, out)
	}
	s.mountPoint = mountPoint
	s.log.WithField("mount", mountPoint).Debug("nfs mounted")
	return nil
}

// Close unmounts (when mounted) and stops the server. Calling it again is
// a no-op.
func (s *Server) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var unmountErr error
	if s.mountPoint != "" {
		unmountErr = unmount(unmountCommands(runtime.GOOS, s.mountPoint))
		s.mountPoint = ""
	}
	return errors.Join(unmountErr, s.listener.Close())
}

// mountArgs builds the arguments of the mount command for goos.
func mountArgs(goos string, port int, mountPoint string, writable bool) ([]string, error) {
	opts := []string{fmt.Sprintf("port=%d", port), fmt.Sprintf("mountport=%d", port), "vers=3", "tcp"}
	switch goos {
	case "darwin":
		opts = append(opts, "locallocks", "noresvport")
		if !writable {
			opts = append(opts, "rdonly")
		}
	case "linux":
		opts = append(opts, "local_lock=all", "nolock")
		if !writable {
			opts = append(opts, "ro")
		}
	default:
		return nil, fmt.Errorf("nfs mount: unsupported OS %s", goos)
	}
	return []string{"mount", "-t", "nfs", "-o", strings.Join(opts, ","), "localhost:/", mountPoint}, nil
}

// unmountCommands lists the commands to try in order. diskutil needs no
// sudo for user NFS mounts on macOS.
func unmountCommands(goos, mountPoint string) [][]string {
	cmds := [][]string{{"sudo", "umount", mountPoint}}
	if goos == "darwin" {
		cmds = append([][]string{{"diskutil", "unmount", mountPoint}}, cmds...)
	}
	return cmds
}

// unmount runs cmds until one succeeds.
func unmount(cmds [][]string) error {
	var err error
	for _, c := range cmds {
		out, runErr := exec.Command(c[0], c[1:]...).CombinedOutput()
		if runErr == nil {
			return nil
		}
		err = fmt.Errorf("%s: %w\n%s", strings.Join(c, " "), runErr, out)
	}
	return err
}
