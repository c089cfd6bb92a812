package launcher

import (
	"github.com/myrjola/blackwood/internal/errors"
	"github.com/pkg/browser"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

func init() {
	// The terminal belongs to the CLI and the TUI, not to whatever the browser prints.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// DefaultBrowser opens the URL with github.com/pkg/browser.
func DefaultBrowser() Strategy {
	return NewStrategy("default-browser", browser.OpenURL)
}

// PlatformCommand opens the URL with the URL handler of the operating system goos.
func PlatformCommand(goos string) Strategy {
	var name string
	var args []string
	switch goos {
	case "windows":
		name, args = "rundll32", []string{"url.dll,FileProtocolHandler"}
	case "darwin":
		name = "open"
	default:
		name = "xdg-open"
	}
	return NewStrategy(name, func(url string) error {
		return startDetached(name, append(args, url)...)
	})
}

// EnvBrowser opens the URL with the first command listed in the BROWSER environment variable.
func EnvBrowser(lookupEnv func(string) (string, bool)) Strategy {
	return NewStrategy("$BROWSER", func(url string) error {
		value, ok := lookupEnv("BROWSER")
		if !ok || strings.TrimSpace(value) == "" {
			return errors.Wrap(ErrUnavailable, "BROWSER not set")
		}
		fields := strings.Fields(strings.Split(value, string(os.PathListSeparator))[0])
		if len(fields) == 0 {
			return errors.Wrap(ErrUnavailable, "BROWSER is empty")
		}
		return startDetached(fields[0], append(fields[1:], url)...)
	})
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "start command", slog.String("command", name))
	}
	// Reap the process without blocking the caller.
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

// IsHeadless reports whether goos is a Linux session without an X11 or Wayland display.
func IsHeadless(goos string, lookupEnv func(string) (string, bool)) bool {
	if goos != "linux" {
		return false
	}
	for _, key := range []string{"DISPLAY", "WAYLAND_DISPLAY"} {
		if v, ok := lookupEnv(key); ok && v != "" {
			return false
		}
	}
	return true
}

// NewSystem builds the chain used outside tests: the default browser first, then the platform URL handler and
// finally $BROWSER.
func NewSystem(logger *slog.Logger, maxRetries int, retryDelay time.Duration) *Chain {
	return NewChain(logger,
		[]Strategy{
			DefaultBrowser(),
			PlatformCommand(runtime.GOOS),
			EnvBrowser(os.LookupEnv),
		},
		WithRetries(maxRetries, retryDelay),
		WithHeadlessCheck(func() bool { return IsHeadless(runtime.GOOS, os.LookupEnv) }),
	)
}
