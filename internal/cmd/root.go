// Package cmd implements the vespers command line.
package cmd

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"

	"vespers/internal/app"
	"vespers/internal/config"
	"vespers/internal/logging"
	"vespers/internal/tui"
)

// env carries what every subcommand needs. Tests swap the clock and tick.
type env struct {
	configPath string
	openOpts   []app.Option
	tick       time.Duration

	logger *logging.Logger
	ws     *app.Workspace
}

type runFunc func(ctx context.Context, cmd *cobra.Command, ws *app.Workspace, args []string) error

// Execute runs the vespers command tree.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&env{tick: time.Second})
}

func newRootCommand(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "vespers",
		Short: "Pomodoro timer, task list and writing dashboard",
		Long: `Vespers keeps a task list, a pomodoro timer, a document outline and a word
log in one local database. Without a subcommand it opens the terminal UI.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: e.withWorkspace(true, func(ctx context.Context, _ *cobra.Command, ws *app.Workspace, _ []string) error {
			return tui.Run(ctx, ws)
		}),
	}
	root.PersistentFlags().StringVarP(&e.configPath, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/vespers/vespers.yaml or ./vespers.yaml)")

	root.AddCommand(
		newTaskCommand(e),
		newOutlineCommand(e),
		newWordsCommand(e),
		newStatsCommand(e),
		newDataCommand(e),
		newBotCommand(e),
	)
	return root
}

// withWorkspace opens the workspace around fn and closes it afterwards. Quiet
// commands own the terminal, so their logs go to the configured file or nowhere.
func (e *env) withWorkspace(quiet bool, fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		var logOut io.Writer = cmd.ErrOrStderr()
		if quiet {
			logOut = io.Discard
		}
		ws, err := e.open(ctx, logOut)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := e.close(context.WithoutCancel(ctx)); closeErr != nil {
				err = errors.Join(err, closeErr)
			}
		}()
		return fn(ctx, cmd, ws, args)
	}
}

func (e *env) open(ctx context.Context, logOut io.Writer) (*app.Workspace, error) {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File, logOut)
	if err != nil {
		return nil, err
	}
	ws, err := app.Open(ctx, cfg, logger, e.openOpts...)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	e.logger, e.ws = logger, ws
	return ws, nil
}

func (e *env) close(ctx context.Context) error {
	if e.ws == nil {
		return nil
	}
	err := e.ws.Close(ctx)
	if closeErr := e.logger.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	e.ws, e.logger = nil, nil
	return err
}
