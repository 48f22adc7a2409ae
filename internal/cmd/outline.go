package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"vespers/internal/app"
	"vespers/internal/service"
)

func newOutlineCommand(e *env) *cobra.Command {
	outlineCmd := &cobra.Command{
		Use:   "outline",
		Short: "Manage the document outline",
	}

	var parentID uint
	addCmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Append a node to the outline",
		Args:  cobra.MinimumNArgs(1),
		RunE: e.withWorkspace(false, func(ctx context.Context, cmd *cobra.Command, ws *app.Workspace, args []string) error {
			var parent *uint
			if cmd.Flags().Changed("parent") {
				parent = &parentID
			}
			node, err := ws.Outline.AddNode(ctx, parent, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added node #%d %s\n", node.ID, node.Title)
			return nil
		}),
	}
	addCmd.Flags().UintVarP(&parentID, "parent", "p", 0, "parent node id (top level when omitted)")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the outline tree",
		Args:  cobra.NoArgs,
		RunE: e.withWorkspace(false, func(ctx context.Context, cmd *cobra.Command, ws *app.Workspace, _ []string) error {
			tree, err := ws.Outline.Tree(ctx)
			if err != nil {
				return err
			}
			if len(tree) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "The outline is empty.")
				return nil
			}
			printTree(cmd.OutOrStdout(), tree, 0)
			return nil
		}),
	}

	var undo bool
	doneCmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark an outline node complete",
		Args:  cobra.ExactArgs(1),
		RunE: e.withWorkspace(false, func(ctx context.Context, cmd *cobra.Command, ws *app.Workspace, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			node, err := ws.Outline.SetCompleted(ctx, id, !undo)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), nodeLine(node.ID, node.Title, node.Completed))
			return nil
		}),
	}
	doneCmd.Flags().BoolVar(&undo, "undo", false, "mark the node incomplete instead")

	renameCmd := &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Change an outline node's title",
		Args:  cobra.MinimumNArgs(2),
		RunE: e.withWorkspace(false, func(ctx context.Context, cmd *cobra.Command, ws *app.Workspace, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			node, err := ws.Outline.Rename(ctx, id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), nodeLine(node.ID, node.Title, node.Completed))
			return nil
		}),
	}

	outlineCmd.AddCommand(addCmd, showCmd, doneCmd, renameCmd)
	return outlineCmd
}

func printTree(out io.Writer, nodes []*service.OutlineTree, depth int) {
	for _, node := range nodes {
		fmt.Fprintf(out, "%s%s\n", strings.Repeat("  ", depth), nodeLine(node.Node.ID, node.Node.Title, node.Node.Completed))
		printTree(out, node.Children, depth+1)
	}
}

func nodeLine(id uint, title string, completed bool) string {
	mark := "[ ]"
	if completed {
		mark = "[x]"
	}
	return fmt.Sprintf("%s #%d %s", mark, id, title)
}
