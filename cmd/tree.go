package cmd

import (
	"fmt"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/agentic-research/classnav/internal/ingest"
)

func newTreeCmd(g *globals) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the class tree of the attribute at the cursor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := g.open()
			if err != nil {
				return err
			}
			if !asJSON {
				return printTree(cmd.OutOrStdout(), c)
			}
			forest, err := c.Resolve()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), oj.JSON(ingest.ForestData(forest), &oj.Options{Indent: 2, Sort: true}))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the tree as JSON")
	return cmd
}

func newQueryCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "query <jsonpath>",
		Short: "Select class nodes with a JSONPath expression",
		Long: `query evaluates a JSONPath expression against the class tree at the
cursor, shaped as {"classes": [{"name", "path", "description", "leaf",
"depth", "children"}]}. Each match is printed as one line of JSON.

  classnav query -f index.html '$..classes[?(@.leaf == true)]'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := g.open()
			if err != nil {
				return err
			}
			forest, err := c.Resolve()
			if err != nil {
				return err
			}
			matches, err := ingest.QueryForest(forest, args[0])
			if err != nil {
				return err
			}
			for _, m := range matches {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), ingest.FormatMatch(m)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
