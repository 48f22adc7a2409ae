package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vespers/internal/app"
	"vespers/internal/apperr"
	"vespers/internal/metrics"
)

func newWordsCommand(e *env) *cobra.Command {
	var nodeID uint
	wordsCmd := &cobra.Command{
		Use:   "words <n>",
		Short: "Log words written",
		Args:  cobra.ExactArgs(1),
		RunE: e.withWorkspace(false, func(ctx context.Context, cmd *cobra.Command, ws *app.Workspace, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return apperr.MalformedInput("cmd.words", "%q is not a number", args[0])
			}
			var node *uint
			if cmd.Flags().Changed("node") {
				node = &nodeID
			}
			if _, err := ws.Words.Log(ctx, n, node); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged %s words\n", metrics.Thousands(n))
			return nil
		}),
	}
	wordsCmd.Flags().UintVar(&nodeID, "node", 0, "outline node the words belong to")
	return wordsCmd
}
