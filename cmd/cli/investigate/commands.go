// Package investigate holds the commands a game script calls while the player explores the manor.
package investigate

import (
	"github.com/myrjola/blackwood/cmd/cli/app"
	"github.com/myrjola/blackwood/internal/models"
	"github.com/spf13/cobra"
	"log/slog"
	"strings"
)

var Group = &cobra.Group{
	ID:    "investigate",
	Title: "Investigation",
}

// NewCommands returns the investigation commands. Each one loads the saved investigation, acts and saves it again.
func NewCommands(open app.Opener) []*cobra.Command {
	return []*cobra.Command{
		newShow(open),
		newHide(open),
		newRoom(open),
		newSuspect(open),
		newEvidence(open),
	}
}

func newShow(open app.Opener) *cobra.Command {
	var (
		character     string
		room          string
		interrogation bool
	)
	cmd := &cobra.Command{
		Use:     "show",
		GroupID: Group.ID,
		Short:   "Open the chat widget",
		Long: `Opens the chat widget in the browser. --room takes precedence over --character and opens the character
found in that room. Without either the widget opens on its character selector.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.Announce()
			ok := a.Controller.OpenWidget(a.Ctx, models.CharacterID(character), models.RoomID(room), interrogation)
			return a.Finish(ok, "show widget", slog.String("character", character), slog.String("room", room))
		},
	}
	cmd.Flags().StringVar(&character, "character", "", "character id")
	cmd.Flags().StringVar(&room, "room", "", "room id")
	cmd.Flags().BoolVar(&interrogation, "interrogation", true, "open in interrogation mode")
	return cmd
}

func newHide(open app.Opener) *cobra.Command {
	return &cobra.Command{
		Use:     "hide",
		GroupID: Group.ID,
		Short:   "Mark the chat widget closed",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.Controller.HideWidget(a.Ctx)
			return a.Finish(true, "hide widget")
		},
	}
}

func newRoom(open app.Opener) *cobra.Command {
	var interrogation bool
	cmd := &cobra.Command{
		Use:     "room <id>",
		GroupID: Group.ID,
		Short:   "Enter a room and interview the character found there",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.Announce()
			ok := a.Controller.EnterRoom(a.Ctx, models.RoomID(args[0]), interrogation)
			return a.Finish(ok, "enter room", slog.String("room", args[0]))
		},
	}
	cmd.Flags().BoolVar(&interrogation, "interrogation", true, "open in interrogation mode")
	return cmd
}

func newSuspect(open app.Opener) *cobra.Command {
	var interrogation bool
	cmd := &cobra.Command{
		Use:     "suspect <id>",
		GroupID: Group.ID,
		Short:   "Interview a suspect",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.Announce()
			ok := a.Controller.SelectSuspect(a.Ctx, models.CharacterID(args[0]), interrogation)
			return a.Finish(ok, "select suspect", slog.String("character", args[0]))
		},
	}
	cmd.Flags().BoolVar(&interrogation, "interrogation", true, "open in interrogation mode")
	return cmd
}

func newEvidence(open app.Opener) *cobra.Command {
	return &cobra.Command{
		Use:     "evidence <label...>",
		GroupID: Group.ID,
		Short:   "Record a piece of evidence",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.Announce()
			label := strings.Join(args, " ")
			ok := a.Controller.AddEvidence(a.Ctx, label)
			return a.Finish(ok, "add evidence", slog.String("label", label))
		},
	}
}
