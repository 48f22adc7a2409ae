package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"vespers/internal/app"
)

func newDataCommand(e *env) *cobra.Command {
	dataCmd := &cobra.Command{
		Use:   "data",
		Short: "Import or export tasks as YAML or JSON",
	}

	var overwrite bool
	importCmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Load tasks from a data file",
		Long: `Load tasks from a YAML or JSON data file. Records whose id is already stored
are skipped unless --overwrite is set. Nothing is written if any record is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: e.withWorkspace(false, func(ctx context.Context, cmd *cobra.Command, ws *app.Workspace, args []string) error {
			n, err := ws.ImportFile(ctx, args[0], overwrite)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d task(s) from %s\n", n, args[0])
			return nil
		}),
	}
	importCmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace stored tasks with the same id")

	exportCmd := &cobra.Command{
		Use:   "export <path>",
		Short: "Write every task to a data file",
		Long:  `Write every task to path. A .json extension selects JSON; anything else is YAML.`,
		Args:  cobra.ExactArgs(1),
		RunE: e.withWorkspace(false, func(ctx context.Context, cmd *cobra.Command, ws *app.Workspace, args []string) error {
			n, err := ws.ExportFile(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d task(s) to %s\n", n, args[0])
			return nil
		}),
	}

	dataCmd.AddCommand(importCmd, exportCmd)
	return dataCmd
}
