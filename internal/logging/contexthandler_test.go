package logging_test

import (
	"bytes"
	"context"
	"github.com/myrjola/blackwood/internal/logging"
	"github.com/stretchr/testify/require"
	"log/slog"
	"testing"
)

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(&buf, nil)))

	ctx := logging.WithAttrs(context.Background(), slog.String("state_file", "save.json"))
	ctx = logging.WithAttrs(ctx, slog.String("op", "EnterRoom"))

	// Deriving a logger must not drop the context attributes.
	logger.With("source", "Controller").InfoContext(ctx, "room entered")

	out := buf.String()
	require.Contains(t, out, "state_file=save.json")
	require.Contains(t, out, "op=EnterRoom")
	require.Contains(t, out, "source=Controller")
}

func TestWithAttrs_SiblingsDoNotShareAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(&buf, nil)))

	parent := logging.WithAttrs(context.Background(), slog.String("a", "1"))
	first := logging.WithAttrs(parent, slog.String("b", "2"))
	_ = logging.WithAttrs(parent, slog.String("c", "3"))

	logger.InfoContext(first, "hello")
	require.Contains(t, buf.String(), "b=2")
	require.NotContains(t, buf.String(), "c=3")
}
