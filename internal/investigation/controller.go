// Package investigation tracks a Blackwood Manor investigation and opens the hosted chat widget for interviews.
package investigation

import (
	"context"
	"fmt"
	"github.com/myrjola/blackwood/internal/errors"
	"github.com/myrjola/blackwood/internal/launcher"
	"github.com/myrjola/blackwood/internal/logging"
	"github.com/myrjola/blackwood/internal/models"
	"github.com/myrjola/blackwood/internal/statefile"
	"github.com/myrjola/blackwood/internal/widget"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// StaleAfter is how old a saved investigation may be before loading it starts a new one instead.
const StaleAfter = time.Hour

// Launcher opens URLs outside the game, usually in the default browser.
type Launcher interface {
	Open(ctx context.Context, url string) (launcher.Result, error)
}

// Status holds the widget flags kept next to the investigation state.
type Status struct {
	// IsOpen is best effort. We cannot tell when the player closes the browser window.
	IsOpen              bool
	InvestigationActive bool
	CurrentCharacter    models.CharacterID
	// RetryCount is the number of retries the last failed launch spent.
	RetryCount int
}

// Controller records investigation actions and keeps the progress up to date.
//
// Public methods report success as a boolean and log the reason of a failure. They are safe for concurrent use but
// calls are serialised, including the blocking browser launch.
type Controller struct {
	catalog  *models.Catalog
	config   widget.Config
	launcher Launcher
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	observers []Observer
	state     models.InvestigationState
	status    Status
}

type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func NewController(
	catalog *models.Catalog,
	config widget.Config,
	l Launcher,
	logger *slog.Logger,
	opts ...Option,
) *Controller {
	c := &Controller{
		catalog:   catalog,
		config:    config,
		launcher:  l,
		logger:    logger.With("source", "Controller"),
		now:       time.Now,
		mu:        sync.Mutex{},
		observers: nil,
		state:     models.NewInvestigationState(),
		status:    Status{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger.Debug("controller initialised")
	return c
}

// Catalog returns the lookup tables the controller was built with.
func (c *Controller) Catalog() *models.Catalog {
	return c.catalog
}

// Subscribe registers o for all future notifications.
func (c *Controller) Subscribe(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// unlockAndNotify releases the lock and then delivers the queued notifications.
func (c *Controller) unlockAndNotify(ctx context.Context, queued []notification) {
	observers := append([]Observer(nil), c.observers...)
	c.mu.Unlock()
	for _, n := range queued {
		for _, o := range observers {
			c.deliver(ctx, n, o)
		}
	}
}

// deliver turns a panicking observer into a log record so the operation still reports its own outcome.
func (c *Controller) deliver(ctx context.Context, n notification, o Observer) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.New(fmt.Sprintf("observer panicked: %v", r))
			c.logger.LogAttrs(ctx, slog.LevelError, "observer failed", errors.SlogError(err))
		}
	}()
	n(ctx, o)
}

// OpenWidget opens the chat widget. Both identifiers must be known when given. A room then takes precedence over
// the character and is resolved to the character found in it. With neither, the widget opens on its character selector.
func (c *Controller) OpenWidget(
	ctx context.Context,
	characterID models.CharacterID,
	roomID models.RoomID,
	interrogation bool,
) bool {
	ctx = logging.WithAttrs(ctx, slog.String("op", "OpenWidget"))
	c.mu.Lock()
	ok, queued := c.openWidget(ctx, characterID, roomID, interrogation)
	c.unlockAndNotify(ctx, queued)
	return ok
}

func (c *Controller) openWidget(
	ctx context.Context,
	characterID models.CharacterID,
	roomID models.RoomID,
	interrogation bool,
) (bool, []notification) {
	c.logger.LogAttrs(ctx, slog.LevelInfo, "showing widget",
		slog.String("character", string(characterID)), slog.String("room", string(roomID)))

	if characterID != "" {
		if _, ok := c.catalog.Character(characterID); !ok {
			c.logger.LogAttrs(ctx, slog.LevelError, "unknown character", slog.String("character", string(characterID)))
			return false, nil
		}
	}
	if roomID != "" {
		room, ok := c.catalog.Room(roomID)
		if !ok {
			c.logger.LogAttrs(ctx, slog.LevelError, "no character found for room", slog.String("room", string(roomID)))
			return false, nil
		}
		characterID = room.Character
	}

	url := c.config.URL(widget.Context{
		Character:     characterID,
		Interrogation: interrogation,
		Progress:      c.state.Progress,
		EvidenceCount: len(c.state.EvidenceCollected),
		SuspectsCount: len(c.state.SuspectsInterviewed),
	})
	result, err := c.launcher.Open(ctx, url)
	if err != nil {
		c.status.RetryCount = result.Retries
		err = errors.Wrap(err, "launch widget", slog.String("character", string(characterID)))
		c.logger.LogAttrs(ctx, slog.LevelError, "failed to open widget", errors.SlogError(err))
		return false, nil
	}

	c.status.IsOpen = true
	c.status.InvestigationActive = true
	c.status.RetryCount = 0
	c.state.WidgetOpen = true

	var queued []notification
	if characterID != "" {
		c.status.CurrentCharacter = characterID
		c.state.CurrentCharacter = characterID
		queued = append(queued, characterSelected(characterID))
	}

	c.logger.LogAttrs(ctx, slog.LevelInfo, "widget opened",
		slog.String("interviewing", c.catalog.CharacterName(c.status.CurrentCharacter)),
		slog.String("strategy", result.Strategy))
	return true, queued
}

// HideWidget marks the widget closed. The browser window itself cannot be closed from here.
func (c *Controller) HideWidget(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.IsOpen = false
	c.status.InvestigationActive = false
	c.state.WidgetOpen = false
	c.logger.LogAttrs(ctx, slog.LevelInfo, "widget hidden")
}

// EnterRoom interviews the character found in the room. Returns false for unknown or already investigated rooms.
func (c *Controller) EnterRoom(ctx context.Context, roomID models.RoomID, interrogation bool) bool {
	ctx = logging.WithAttrs(ctx, slog.String("op", "EnterRoom"), slog.String("room", string(roomID)))
	c.mu.Lock()
	ok, queued := c.enterRoom(ctx, roomID, interrogation)
	c.unlockAndNotify(ctx, queued)
	return ok
}

func (c *Controller) enterRoom(ctx context.Context, roomID models.RoomID, interrogation bool) (bool, []notification) {
	room, ok := c.catalog.Room(roomID)
	if !ok {
		c.logger.LogAttrs(ctx, slog.LevelError, "unknown room")
		return false, nil
	}
	if c.state.HasInvestigated(roomID) {
		c.logger.LogAttrs(ctx, slog.LevelInfo, "room already investigated")
		return false, nil
	}

	opened, queued := c.openWidget(ctx, room.Character, "", interrogation)
	if !opened {
		return false, nil
	}
	c.state.RoomsInvestigated = append(c.state.RoomsInvestigated, roomID)
	queued = append(queued, c.recomputeProgress(ctx)...)
	c.logger.LogAttrs(ctx, slog.LevelInfo, "room investigation started")
	return true, queued
}

// SelectSuspect interviews the suspect. Returns false for unknown or already interviewed suspects.
func (c *Controller) SelectSuspect(ctx context.Context, characterID models.CharacterID, interrogation bool) bool {
	ctx = logging.WithAttrs(ctx, slog.String("op", "SelectSuspect"), slog.String("character", string(characterID)))
	c.mu.Lock()
	ok, queued := c.selectSuspect(ctx, characterID, interrogation)
	c.unlockAndNotify(ctx, queued)
	return ok
}

func (c *Controller) selectSuspect(
	ctx context.Context,
	characterID models.CharacterID,
	interrogation bool,
) (bool, []notification) {
	if _, ok := c.catalog.Character(characterID); !ok {
		c.logger.LogAttrs(ctx, slog.LevelError, "unknown suspect")
		return false, nil
	}
	if c.state.HasInterviewed(characterID) {
		c.logger.LogAttrs(ctx, slog.LevelInfo, "suspect already interviewed")
		return false, nil
	}

	opened, queued := c.openWidget(ctx, characterID, "", interrogation)
	if !opened {
		return false, nil
	}
	c.state.SuspectsInterviewed = append(c.state.SuspectsInterviewed, characterID)
	queued = append(queued, c.recomputeProgress(ctx)...)
	c.logger.LogAttrs(ctx, slog.LevelInfo, "suspect selected",
		slog.String("name", c.catalog.CharacterName(characterID)))
	return true, queued
}

// AddEvidence records a piece of evidence. Surrounding whitespace is dropped from the label. Returns false for blank
// or already collected labels.
func (c *Controller) AddEvidence(ctx context.Context, label string) bool {
	label = strings.TrimSpace(label)
	ctx = logging.WithAttrs(ctx, slog.String("op", "AddEvidence"), slog.String("evidence", label))
	c.mu.Lock()

	if label == "" {
		c.mu.Unlock()
		c.logger.LogAttrs(ctx, slog.LevelError, "blank evidence label")
		return false
	}
	if c.state.HasEvidence(label) {
		c.mu.Unlock()
		c.logger.LogAttrs(ctx, slog.LevelDebug, "evidence already collected")
		return false
	}

	c.state.EvidenceCollected = append(c.state.EvidenceCollected, label)
	queued := c.recomputeProgress(ctx)
	queued = append(queued, evidenceFound(label))
	c.logger.LogAttrs(ctx, slog.LevelInfo, "evidence added")
	c.unlockAndNotify(ctx, queued)
	return true
}

// recomputeProgress applies the progress formula. A notification is queued only when the value changed.
func (c *Controller) recomputeProgress(ctx context.Context) []notification {
	previous := c.state.Progress
	c.state.Progress = c.state.ComputeProgress()
	if c.state.Progress >= models.MaxProgress {
		c.logger.LogAttrs(ctx, slog.LevelInfo, "investigation complete")
	}
	if c.state.Progress == previous {
		return nil
	}
	return []notification{progressChanged(c.state.Progress)}
}

// Summary returns a deep copy of the investigation state.
func (c *Controller) Summary() models.InvestigationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Status returns the widget flags.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Reset discards the investigation and the widget flags.
func (c *Controller) Reset(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset(ctx)
}

func (c *Controller) reset(ctx context.Context) {
	c.state = models.NewInvestigationState()
	c.status = Status{}
	c.logger.LogAttrs(ctx, slog.LevelInfo, "investigation reset")
}

// SaveState writes the investigation, the widget flags and the current time to path.
func (c *Controller) SaveState(ctx context.Context, path string) bool {
	ctx = logging.WithAttrs(ctx, slog.String("op", "SaveState"), slog.String("path", path))
	c.mu.Lock()
	defer c.mu.Unlock()

	doc := statefile.Document{
		InvestigationState: statefile.FromModel(c.state),
		WidgetState: statefile.WidgetState{
			IsOpen:              c.status.IsOpen,
			CurrentCharacter:    optional(c.status.CurrentCharacter),
			InvestigationActive: c.status.InvestigationActive,
			RetryCount:          c.status.RetryCount,
		},
		Timestamp: 0,
	}
	doc.SetTime(c.now())

	if err := statefile.Save(path, doc); err != nil {
		c.logger.LogAttrs(ctx, slog.LevelError, "failed to save state", errors.SlogError(err))
		return false
	}
	c.logger.LogAttrs(ctx, slog.LevelInfo, "state saved")
	return true
}

// LoadState replaces the investigation with the one saved at path. A save older than StaleAfter is discarded and
// the investigation reset. On failure the current state is left untouched.
func (c *Controller) LoadState(ctx context.Context, path string) bool {
	ctx = logging.WithAttrs(ctx, slog.String("op", "LoadState"), slog.String("path", path))
	doc, err := statefile.Load(path)
	if err != nil {
		if errors.Is(err, statefile.ErrNotFound) {
			c.logger.LogAttrs(ctx, slog.LevelWarn, "state file not found")
		} else {
			c.logger.LogAttrs(ctx, slog.LevelError, "failed to load state", errors.SlogError(err))
		}
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = doc.InvestigationState.Model()
	c.status = Status{
		IsOpen:              doc.WidgetState.IsOpen,
		InvestigationActive: doc.WidgetState.InvestigationActive,
		CurrentCharacter:    models.CharacterID(deref(doc.WidgetState.CurrentCharacter)),
		RetryCount:          doc.WidgetState.RetryCount,
	}

	if age := c.now().Sub(doc.Time()); age > StaleAfter {
		c.logger.LogAttrs(ctx, slog.LevelInfo, "state is stale, resetting", slog.Duration("age", age))
		c.reset(ctx)
	}
	c.logger.LogAttrs(ctx, slog.LevelInfo, "state loaded")
	return true
}

func optional(id models.CharacterID) *string {
	if id == "" {
		return nil
	}
	s := string(id)
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
