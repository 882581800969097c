package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/agentic-research/classnav/internal/graph"
	"github.com/agentic-research/classnav/internal/ingest"
)

func newRefsCmd(g *globals) *cobra.Command {
	var like bool
	cmd := &cobra.Command{
		Use:   "refs <class> [paths...]",
		Short: "List where a class path is used across HTML files",
		Long: `refs indexes the class attributes of every HTML file under the given
paths (default: the current directory) and prints the line:column of each
attribute using the class. "nav" matches "nav:item" too, since every prefix
of a token is indexed. With --like the class is a SQL LIKE pattern.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args[1:]
			if len(paths) == 0 {
				paths = []string{"."}
			}

			store := graph.NewMemoryStore()
			defer func() { _ = store.Close() }()

			engine := ingest.NewEngine(store, g.cfg.Extensions, g.log)
			for _, p := range paths {
				if err := engine.Ingest(p); err != nil {
					return fmt.Errorf("ingest %s: %w", p, err)
				}
			}
			st := engine.Stats()
			g.log.WithFields(logrus.Fields{"files": st.Files, "attributes": st.Attributes, "refs": st.Refs}).Debug("ingest complete")

			if err := store.InitRefsDB(); err != nil {
				return err
			}
			if err := store.FlushRefs(); err != nil {
				return err
			}

			op := "="
			if like {
				op = "LIKE"
			}
			rows, err := store.QueryRefs("SELECT token, location FROM class_refs WHERE token "+op+" ? ORDER BY location", args[0])
			if err != nil {
				return err
			}
			defer func() { _ = rows.Close() }()

			for rows.Next() {
				var token, loc string
				if err := rows.Scan(&token, &loc); err != nil {
					return err
				}
				if like {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", loc, token)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), loc)
				}
			}
			return rows.Err()
		},
	}
	cmd.Flags().BoolVar(&like, "like", false, "treat the class as a SQL LIKE pattern")
	return cmd
}
