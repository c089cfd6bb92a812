// Package app wires the controller for a single CLI invocation: it reads the configuration, restores the saved
// investigation and saves it again when the command is done.
package app

import (
	"context"
	"fmt"
	"github.com/myrjola/blackwood/internal/errors"
	"github.com/myrjola/blackwood/internal/investigation"
	"github.com/myrjola/blackwood/internal/launcher"
	"github.com/myrjola/blackwood/internal/logging"
	"github.com/myrjola/blackwood/internal/models"
	"github.com/myrjola/blackwood/internal/widget"
	"github.com/spf13/cobra"
	"io"
	"log/slog"
	"os"
)

var ErrActionFailed = errors.NewSentinel("action failed")

// App is what every subcommand works with.
type App struct {
	Ctx        context.Context
	Config     widget.Config
	Controller *investigation.Controller
	Logger     *slog.Logger
	StatePath  string
	out        io.Writer
}

// Opener builds the App for a command. Logs go to logSink.
type Opener func(cmd *cobra.Command, logSink io.Writer) (*App, error)

// Open builds the controller with the system launcher and restores the saved investigation.
func Open(cmd *cobra.Command, logSink io.Writer) (*App, error) {
	return open(cmd, logSink, os.LookupEnv, nil)
}

// OpenerWith returns an Opener with the environment and the launcher replaced.
func OpenerWith(lookupEnv func(string) (string, bool), l investigation.Launcher) Opener {
	return func(cmd *cobra.Command, logSink io.Writer) (*App, error) {
		return open(cmd, logSink, lookupEnv, l)
	}
}

func open(
	cmd *cobra.Command,
	logSink io.Writer,
	lookupEnv func(string) (string, bool),
	l investigation.Launcher,
) (*App, error) {
	cfg, err := widget.LoadConfig(lookupEnv)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource:   false,
		Level:       level,
		ReplaceAttr: nil,
	})))

	statePath := cfg.StateFile
	if flag := cmd.Flags().Lookup("state"); flag != nil && flag.Changed {
		statePath = flag.Value.String()
	}

	if l == nil {
		l = launcher.NewSystem(logger, cfg.MaxRetries, cfg.RetryDelay)
	}
	controller := investigation.NewController(models.BlackwoodManor(), cfg, l, logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.WithAttrs(ctx, slog.String("state_file", statePath))

	a := &App{
		Ctx:        ctx,
		Config:     cfg,
		Controller: controller,
		Logger:     logger,
		StatePath:  statePath,
		out:        cmd.OutOrStdout(),
	}

	// A missing save simply starts a new investigation. A save that cannot be read is left alone.
	if _, err = os.Stat(statePath); err == nil && !controller.LoadState(ctx, statePath) {
		return nil, errors.Wrap(ErrActionFailed, "load state", slog.String("path", statePath))
	}

	return a, nil
}

// Announce prints the investigation events to the command output.
func (a *App) Announce() {
	a.Controller.Subscribe(investigation.ObserverFuncs{
		OnCharacterSelected: func(_ context.Context, id models.CharacterID) {
			_, _ = fmt.Fprintf(a.out, "Character selected: %s\n", a.Controller.Catalog().CharacterName(id))
		},
		OnEvidenceFound: func(_ context.Context, label string) {
			_, _ = fmt.Fprintf(a.out, "Evidence found: %s\n", label)
		},
		OnProgressChanged: func(_ context.Context, progress int) {
			_, _ = fmt.Fprintf(a.out, "Investigation progress: %d%%\n", progress)
		},
	})
}

// Save persists the investigation to the state file.
func (a *App) Save() error {
	if !a.Controller.SaveState(a.Ctx, a.StatePath) {
		return errors.Wrap(ErrActionFailed, "save state", slog.String("path", a.StatePath))
	}
	return nil
}

// Finish saves the investigation and turns a failed action into an error.
func (a *App) Finish(ok bool, action string, attrs ...slog.Attr) error {
	if err := a.Save(); err != nil {
		return err
	}
	if !ok {
		return errors.Wrap(ErrActionFailed, action, attrs...)
	}
	return nil
}
