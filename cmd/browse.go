package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/agentic-research/classnav/internal/browse"
	"github.com/agentic-research/classnav/internal/controller"
	"github.com/agentic-research/classnav/internal/host"
)

func newBrowseCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Edit class attributes interactively",
		Long: `browse opens an interactive class navigator on --file. Edits stay in
memory until saved with "w"; tab jumps between class attributes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.file == "" {
				return fmt.Errorf("--file is required")
			}
			buf, err := host.OpenBuffer(g.file, g.cfg.Extensions)
			if err != nil {
				return err
			}
			cursor := g.cursor
			if cursor == "" {
				cursor = defaultCursor(buf.Text())
			}
			off, err := host.ParseCursor(buf.Text(), cursor)
			if err != nil {
				return err
			}
			buf.SetCursor(off)

			ctrl := controller.New(buf, g.cfg.ControllerOptions(g.log)...)
			m := browse.New(cmd.Context(), ctrl, buf, g.log)
			prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))
			if _, err := prog.Run(); err != nil {
				return err
			}
			if buf.Dirty() {
				g.log.WithField("file", g.file).Warn("quit with unsaved changes")
			}
			return nil
		},
	}
}
