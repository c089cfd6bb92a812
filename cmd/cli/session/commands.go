// Package session holds the commands that inspect, reset and play through a whole investigation.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/myrjola/blackwood/cmd/cli/app"
	"github.com/myrjola/blackwood/internal/errors"
	"github.com/myrjola/blackwood/internal/models"
	"github.com/myrjola/blackwood/internal/statefile"
	"github.com/myrjola/blackwood/internal/tui"
	"github.com/spf13/cobra"
	"io"
	"log/slog"
	"os"
)

var Group = &cobra.Group{
	ID:    "session",
	Title: "Session",
}

// NewCommands returns the session commands.
func NewCommands(open app.Opener) []*cobra.Command {
	return []*cobra.Command{
		newSummary(open),
		newReset(open),
		newRooms(open),
		newSuspects(open),
		newTUI(open),
		newDemo(open),
	}
}

func newSummary(open app.Opener) *cobra.Command {
	return &cobra.Command{
		Use:     "summary",
		GroupID: Group.ID,
		Short:   "Print the investigation as JSON",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), a.Controller.Summary())
		},
	}
}

func printSummary(w io.Writer, s models.InvestigationState) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(statefile.FromModel(s)); err != nil {
		return errors.Wrap(err, "encode summary")
	}
	return nil
}

func newReset(open app.Opener) *cobra.Command {
	return &cobra.Command{
		Use:     "reset",
		GroupID: Group.ID,
		Short:   "Start a new investigation",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.Controller.Reset(a.Ctx)
			return a.Finish(true, "reset")
		},
	}
}

func newRooms(open app.Opener) *cobra.Command {
	return &cobra.Command{
		Use:     "rooms",
		GroupID: Group.ID,
		Short:   "List the rooms and who is found in them",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			catalog, summary := a.Controller.Catalog(), a.Controller.Summary()
			for _, room := range catalog.Rooms() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %-16s %s\n",
					marker(summary.HasInvestigated(room.ID)), room.ID, catalog.CharacterName(room.Character))
			}
			return nil
		},
	}
}

func newSuspects(open app.Opener) *cobra.Command {
	return &cobra.Command{
		Use:     "suspects",
		GroupID: Group.ID,
		Short:   "List the suspects",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			summary := a.Controller.Summary()
			for _, character := range a.Controller.Catalog().Characters() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %-16s %s\n",
					marker(summary.HasInterviewed(character.ID)), character.ID, character.Name)
			}
			return nil
		},
	}
}

func marker(done bool) string {
	if done {
		return "✓"
	}
	return " "
}

func newTUI(open app.Opener) *cobra.Command {
	var logFile string
	cmd := &cobra.Command{
		Use:     "tui",
		GroupID: Group.ID,
		Short:   "Investigate from the terminal",
		Long: `Runs an interactive terminal UI. Logs go to --log-file since the UI owns the terminal. Changes other
blackwood commands make to the state file show up while the UI runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:mnd // owner only
			if err != nil {
				return errors.Wrap(err, "open log file", slog.String("path", logFile))
			}
			defer func() {
				_ = f.Close()
			}()

			a, err := open(cmd, f)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(a.Ctx)
			defer cancel()
			reloaded := make(chan struct{}, 1)
			watched := make(chan struct{})
			go func() {
				defer close(watched)
				watchErr := statefile.Watch(ctx, a.StatePath, func() {
					if a.Controller.LoadState(ctx, a.StatePath) {
						select {
						case reloaded <- struct{}{}:
						default:
						}
					}
				})
				if watchErr != nil {
					a.Logger.LogAttrs(ctx, slog.LevelWarn, "stopped watching state file", errors.SlogError(watchErr))
				}
			}()

			err = tui.Run(ctx, a.Controller, reloaded)
			cancel()
			<-watched
			if err != nil {
				return err
			}
			return a.Save()
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "blackwood.log", "file the TUI logs to")
	return cmd
}

func newDemo(open app.Opener) *cobra.Command {
	return &cobra.Command{
		Use:     "demo",
		GroupID: Group.ID,
		Short:   "Walk through a short investigation",
		Long: `Enters the study, records the mysterious letter, prints the summary and round-trips it through the
state file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.Announce()
			out := cmd.OutOrStdout()

			if !a.Controller.EnterRoom(a.Ctx, "study", true) {
				_, _ = fmt.Fprintln(out, "Could not open the widget for the study")
			}
			a.Controller.AddEvidence(a.Ctx, "Mysterious letter")

			_, _ = fmt.Fprintln(out, "Investigation summary:")
			if err = printSummary(out, a.Controller.Summary()); err != nil {
				return err
			}

			if err = a.Save(); err != nil {
				return err
			}
			if !a.Controller.LoadState(a.Ctx, a.StatePath) {
				return errors.Wrap(app.ErrActionFailed, "load state", slog.String("path", a.StatePath))
			}
			_, _ = fmt.Fprintf(out, "State saved to and loaded from %s\n", a.StatePath)
			return nil
		},
	}
}
