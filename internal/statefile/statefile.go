// Package statefile reads and writes the flat JSON document that stores an investigation between game sessions.
package statefile

import (
	"encoding/json"
	"github.com/myrjola/blackwood/internal/errors"
	"github.com/myrjola/blackwood/internal/models"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"
)

var (
	ErrNotFound  = errors.NewSentinel("state file not found")
	ErrMalformed = errors.NewSentinel("malformed state file")
)

// Document is the on-disk layout. Every key is optional when reading.
type Document struct {
	InvestigationState InvestigationState `json:"investigation_state"`
	WidgetState        WidgetState        `json:"widget_state"`
	// Timestamp is seconds since the Unix epoch.
	Timestamp float64 `json:"timestamp"`
}

type InvestigationState struct {
	Progress            int      `json:"progress"`
	SuspectsInterviewed []string `json:"suspects_interviewed"`
	RoomsInvestigated   []string `json:"rooms_investigated"`
	EvidenceCollected   []string `json:"evidence_collected"`
	CurrentCharacter    *string  `json:"current_character"`
	WidgetOpen          bool     `json:"widget_open"`
}

// WidgetState holds the controller flags that live next to the investigation.
type WidgetState struct {
	IsOpen              bool    `json:"is_open"`
	CurrentCharacter    *string `json:"current_character"`
	InvestigationActive bool    `json:"investigation_active"`
	RetryCount          int     `json:"retry_count"`
}

// Time converts the timestamp. Zero when the document has none.
func (d Document) Time() time.Time {
	sec, frac := math.Modf(d.Timestamp)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}

// SetTime stores t as fractional seconds.
func (d *Document) SetTime(t time.Time) {
	d.Timestamp = float64(t.UnixNano()) / float64(time.Second)
}

// FromModel converts the investigation state for writing.
func FromModel(s models.InvestigationState) InvestigationState {
	return InvestigationState{
		Progress:            s.Progress,
		SuspectsInterviewed: toStrings(s.SuspectsInterviewed),
		RoomsInvestigated:   toStrings(s.RoomsInvestigated),
		EvidenceCollected:   toStrings(s.EvidenceCollected),
		CurrentCharacter:    optional(string(s.CurrentCharacter)),
		WidgetOpen:          s.WidgetOpen,
	}
}

// Model converts the stored state back. Repeated entries are dropped and progress is clamped to 0..100.
func (s InvestigationState) Model() models.InvestigationState {
	return models.InvestigationState{
		Progress:            min(max(s.Progress, 0), models.MaxProgress),
		SuspectsInterviewed: models.Dedupe(fromStrings[models.CharacterID](s.SuspectsInterviewed)),
		RoomsInvestigated:   models.Dedupe(fromStrings[models.RoomID](s.RoomsInvestigated)),
		EvidenceCollected:   models.Dedupe(fromStrings[string](s.EvidenceCollected)),
		CurrentCharacter:    models.CharacterID(deref(s.CurrentCharacter)),
		WidgetOpen:          s.WidgetOpen,
	}
}

// Save writes doc to path atomically. The directory is created when missing.
func Save(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal state")
	}

	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd // rwxr-xr-x
		return errors.Wrap(err, "create state directory", slog.String("dir", dir))
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp state file", slog.String("dir", dir))
	}
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmp.Name())
	}()
	if _, err = tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write state", slog.String("path", tmp.Name()))
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "close state", slog.String("path", tmp.Name()))
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "replace state", slog.String("path", path))
	}
	return nil
}

// Load reads the document at path. Missing keys keep their zero values.
func Load(path string) (Document, error) {
	var doc Document
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, errors.Wrap(ErrNotFound, "read state", slog.String("path", path))
		}
		return doc, errors.Wrap(err, "read state", slog.String("path", path))
	}
	if err = json.Unmarshal(data, &doc); err != nil {
		return Document{}, errors.Wrap(errors.Join(ErrMalformed, err), "decode state", slog.String("path", path))
	}
	return doc, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toStrings[T ~string](items []T) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = string(item)
	}
	return out
}

func fromStrings[T ~string](items []string) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = T(item)
	}
	return out
}
