package main

import (
	"context"
	"fmt"
	"github.com/joho/godotenv"
	"github.com/myrjola/blackwood/cmd/cli/app"
	"github.com/myrjola/blackwood/cmd/cli/investigate"
	"github.com/myrjola/blackwood/cmd/cli/session"
	"github.com/myrjola/blackwood/internal/errors"
	"github.com/myrjola/blackwood/internal/widget"
	"github.com/spf13/cobra"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
)

func newRootCmd(open app.Opener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "blackwood",
		Short:         "Blackwood Manor investigation helper",
		Long:          `Tracks a Blackwood Manor investigation and opens the character chat widget in the browser.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("state", widget.DefaultConfig().StateFile, "state file, overrides BLACKWOOD_STATE_FILE")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug messages")

	rootCmd.AddGroup(investigate.Group)
	rootCmd.AddCommand(investigate.NewCommands(open)...)
	rootCmd.AddGroup(session.Group)
	rootCmd.AddCommand(session.NewCommands(open)...)
	return rootCmd
}

func run(ctx context.Context, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "load .env")
	}
	rootCmd := newRootCmd(app.Open)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
