package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/classnav/internal/browse"
	"github.com/agentic-research/classnav/internal/classtree"
	"github.com/agentic-research/classnav/internal/controller"
	"github.com/agentic-research/classnav/internal/host"
)

func prompter(cmd *cobra.Command) host.Prompter {
	return &browse.Prompter{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()}
}

// nameArg returns args[i], or asks for it when absent.
func nameArg(cmd *cobra.Command, args []string, i int, label, initial string) (string, error) {
	if len(args) > i {
		return args[i], nil
	}
	return prompter(cmd).PromptText(cmd.Context(), label, initial, controller.NameHint)
}

// findNode resolves a class path in the forest at the cursor.
func findNode(c *controller.Controller, path string) (*classtree.Node, error) {
	forest, err := c.Resolve()
	if err != nil {
		return nil, err
	}
	n := forest.Find(path)
	if n == nil {
		return nil, fmt.Errorf("class %q: %w", path, classtree.ErrNoMatch)
	}
	return n, nil
}

// edit opens the document, runs fn and prints the resulting tree.
func (g *globals) edit(cmd *cobra.Command, fn func(c *controller.Controller) error) error {
	c, _, err := g.open()
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		if msg := controller.Message(err); msg != err.Error() {
			return fmt.Errorf("%s: %w", msg, err)
		}
		return err
	}
	return printTree(cmd.OutOrStdout(), c)
}

func newAddCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "add [name]",
		Short: "Add a root class to the attribute at the cursor",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.edit(cmd, func(c *controller.Controller) error {
				name, err := nameArg(cmd, args, 0, "New class", "")
				if err != nil {
					return err
				}
				return c.AddRootClass(cmd.Context(), name)
			})
		},
	}
}

func newAddChildCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "add-child <parent> [name]",
		Short: "Add a class below an existing class",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.edit(cmd, func(c *controller.Controller) error {
				parent, err := findNode(c, args[0])
				if err != nil {
					return err
				}
				name, err := nameArg(cmd, args, 1, "Child of "+parent.Path, "")
				if err != nil {
					return err
				}
				return c.AddChildClass(cmd.Context(), parent, name)
			})
		},
	}
}

func newRemoveCmd(g *globals) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Remove every token at the cursor whose last segment matches the class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.edit(cmd, func(c *controller.Controller) error {
				n, err := findNode(c, args[0])
				if err != nil {
					return err
				}
				if !yes {
					ok, err := prompter(cmd).Confirm(cmd.Context(), fmt.Sprintf("Remove %q?", n.Name))
					if err != nil {
						return err
					}
					if !ok {
						return host.ErrCancelled
					}
				}
				return c.RemoveClass(cmd.Context(), n)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newRenameCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <path> [new-name]",
		Short: "Rename a class segment throughout the document",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.edit(cmd, func(c *controller.Controller) error {
				n, err := findNode(c, args[0])
				if err != nil {
					return err
				}
				name, err := nameArg(cmd, args, 1, "Rename "+n.Path, n.Name)
				if err != nil {
					return err
				}
				return c.RenameClass(cmd.Context(), n, name)
			})
		},
	}
}

func newMoveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <path> <new-parent>",
		Short: "Move a class and its subtree below another class",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.edit(cmd, func(c *controller.Controller) error {
				n, err := findNode(c, args[0])
				if err != nil {
					return err
				}
				parent, err := findNode(c, args[1])
				if err != nil {
					return err
				}
				return c.MoveClass(cmd.Context(), n, parent)
			})
		},
	}
}

func newMoveRootCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "mv-root <path>",
		Short: "Move a class and its subtree to the root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.edit(cmd, func(c *controller.Controller) error {
				n, err := findNode(c, args[0])
				if err != nil {
					return err
				}
				return c.MoveToRoot(cmd.Context(), n)
			})
		},
	}
}
