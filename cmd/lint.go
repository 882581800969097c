package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-research/classnav/internal/linter"
)

func newLintCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "lint [files...]",
		Short: "Report class tokens with empty segments, stray delimiters or duplicates",
		RunE: func(cmd *cobra.Command, args []string) error {
			files := args
			if len(files) == 0 {
				if g.file == "" {
					return fmt.Errorf("no files given")
				}
				files = []string{g.file}
			}

			problems := 0
			for _, path := range files {
				content, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				diags, err := linter.Lint(content)
				if err != nil {
					return fmt.Errorf("lint %s: %w", path, err)
				}
				for _, d := range diags {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, d)
				}
				problems += len(diags)
			}
			if problems > 0 {
				return fmt.Errorf("%d problem(s) found", problems)
			}
			return nil
		},
	}
}
