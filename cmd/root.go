package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/agentic-research/classnav/internal/classtree"
	"github.com/agentic-research/classnav/internal/config"
	"github.com/agentic-research/classnav/internal/controller"
	"github.com/agentic-research/classnav/internal/host"
)

// Version is set by build flags.
var Version = "dev"

// globals are the persistent flags plus what PersistentPreRunE derives from
// them.
type globals struct {
	cfgFile string
	verbose bool
	file    string
	cursor  string

	cfg config.Config
	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "classnav",
		Short: "Navigate and edit hierarchical HTML class attributes",
		Long: `classnav reads the class attribute under a cursor in an HTML file,
shows its tokens as a tree (nav:item:active is item below nav), and rewrites
the attribute when classes are added, removed, renamed or moved.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			g.log = logrus.New()
			g.log.SetOutput(cmd.ErrOrStderr())
			if g.verbose {
				g.log.SetLevel(logrus.DebugLevel)
			} else {
				g.log.SetLevel(logrus.WarnLevel)
			}

			cfg, err := config.Load(g.cfgFile)
			if err != nil {
				return err
			}
			g.cfg = cfg
			g.log.WithField("extensions", cfg.Extensions).Debug("config loaded")
			return nil
		},
	}

	root.PersistentFlags().StringVar(&g.cfgFile, "config", "", "config file (default: "+config.DefaultFile+" if present)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().StringVarP(&g.file, "file", "f", "", "HTML file to operate on")
	root.PersistentFlags().StringVarP(&g.cursor, "cursor", "c", "", `cursor as a byte offset or 1-based "line:col" (default: first class attribute)`)

	root.AddCommand(
		newTreeCmd(g),
		newAddCmd(g),
		newAddChildCmd(g),
		newRemoveCmd(g),
		newRenameCmd(g),
		newMoveCmd(g),
		newMoveRootCmd(g),
		newQueryCmd(g),
		newLintCmd(g),
		newRefsCmd(g),
		newMountCmd(g),
		newMountsCmd(g),
		newMCPCmd(g),
		newBrowseCmd(g),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// open returns a controller over --file at --cursor. Without --cursor the
// cursor sits on the first class attribute of the file.
func (g *globals) open() (*controller.Controller, *host.File, error) {
	if g.file == "" {
		return nil, nil, fmt.Errorf("--file is required")
	}
	cursor := g.cursor
	if cursor == "" {
		data, err := os.ReadFile(g.file)
		if err != nil {
			return nil, nil, err
		}
		cursor = defaultCursor(string(data))
	}
	f, err := host.OpenFileAt(g.file, cursor, g.cfg.Extensions)
	if err != nil {
		return nil, nil, err
	}
	return controller.New(f, g.cfg.ControllerOptions(g.log)...), f, nil
}

// defaultCursor points at the first class attribute, or the start of the
// document when there is none.
func defaultCursor(text string) string {
	if attrs := classtree.Attributes(text); len(attrs) > 0 {
		return fmt.Sprint(attrs[0].Value.Start)
	}
	return "0"
}

func printTree(w io.Writer, c *controller.Controller) error {
	return classtree.WriteOutline(w, c.RootNodes())
}
