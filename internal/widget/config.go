package widget

import (
	"github.com/myrjola/blackwood/internal/envstruct"
	"github.com/myrjola/blackwood/internal/errors"
	"github.com/myrjola/blackwood/internal/models"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidConfig = errors.NewSentinel("invalid widget config")

type Theme string

const (
	ThemeSepia   Theme = "sepia"
	ThemeAged    Theme = "aged"
	ThemeClassic Theme = "classic"
)

type Position string

const (
	PositionBottomRight Position = "bottom-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionTopRight    Position = "top-right"
	PositionTopLeft     Position = "top-left"
)

var (
	themes    = []Theme{ThemeSepia, ThemeAged, ThemeClassic}
	positions = []Position{PositionBottomRight, PositionBottomLeft, PositionTopRight, PositionTopLeft}
)

// widgetPath is where the hosted chat app serves the embeddable widget.
const widgetPath = "/widget-demo"

// Config describes how the hosted chat widget is opened.
type Config struct {
	APIURL     string        `env:"BLACKWOOD_API_URL" envDefault:"https://blackwood-chat-app.vercel.app"`
	Theme      string        `env:"BLACKWOOD_THEME" envDefault:"sepia"`
	Position   string        `env:"BLACKWOOD_POSITION" envDefault:"bottom-right"`
	Width      string        `env:"BLACKWOOD_WIDTH" envDefault:"400px"`
	Height     string        `env:"BLACKWOOD_HEIGHT" envDefault:"600px"`
	MaxRetries int           `env:"BLACKWOOD_MAX_RETRIES" envDefault:"3"`
	RetryDelay time.Duration `env:"BLACKWOOD_RETRY_DELAY" envDefault:"1s"`
	StateFile  string        `env:"BLACKWOOD_STATE_FILE" envDefault:"investigation_state.json"`
}

// LoadConfig reads the configuration from the environment and validates it.
func LoadConfig(lookupEnv func(string) (string, bool)) (Config, error) {
	var cfg Config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return Config{}, errors.Wrap(err, "populate config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultConfig returns the configuration used when the environment sets nothing.
func DefaultConfig() Config {
	cfg, err := LoadConfig(func(string) (string, bool) { return "", false })
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c Config) Validate() error {
	var errorList []error
	if u, err := url.Parse(c.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errorList = append(errorList, errors.Wrap(ErrInvalidConfig, "API URL must be an absolute http(s) URL",
			slog.String("apiURL", c.APIURL)))
	}
	if !slices.Contains(themes, Theme(c.Theme)) {
		errorList = append(errorList, errors.Wrap(ErrInvalidConfig, "unknown theme", slog.String("theme", c.Theme)))
	}
	if !slices.Contains(positions, Position(c.Position)) {
		errorList = append(errorList, errors.Wrap(ErrInvalidConfig, "unknown position",
			slog.String("position", c.Position)))
	}
	if c.MaxRetries < 0 {
		errorList = append(errorList, errors.Wrap(ErrInvalidConfig, "negative max retries",
			slog.Int("maxRetries", c.MaxRetries)))
	}
	if c.RetryDelay < 0 {
		errorList = append(errorList, errors.Wrap(ErrInvalidConfig, "negative retry delay",
			slog.Duration("retryDelay", c.RetryDelay)))
	}
	return errors.Join(errorList...)
}

// Context is the game context passed to the widget with every launch.
type Context struct {
	// Character pins the widget to a suspect. Empty opens the character selector.
	Character     models.CharacterID
	Interrogation bool
	Progress      int
	EvidenceCount int
	SuspectsCount int
}

// URL builds the widget address with the query parameters the hosted widget understands.
func (c Config) URL(wc Context) string {
	params := url.Values{}
	params.Set("embed", "true")
	params.Set("theme", c.Theme)
	params.Set("position", c.Position)
	params.Set("interrogation", strconv.FormatBool(wc.Interrogation))
	params.Set("width", c.Width)
	params.Set("height", c.Height)
	if wc.Character != "" {
		params.Set("character", string(wc.Character))
	}
	params.Set("progress", strconv.Itoa(wc.Progress))
	params.Set("evidence_count", strconv.Itoa(wc.EvidenceCount))
	params.Set("suspects_count", strconv.Itoa(wc.SuspectsCount))

	base, err := url.JoinPath(c.APIURL, widgetPath)
	if err != nil {
		// Validate rejects such URLs. Keep the path for configs built without it.
		base = strings.TrimRight(c.APIURL, "/") + widgetPath
	}
	return base + "?" + params.Encode()
}
