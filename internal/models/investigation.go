package models

import (
	"slices"
)

// Points awarded per distinct investigation action.
const (
	PointsPerSuspect  = 15
	PointsPerRoom     = 10
	PointsPerEvidence = 5
	MaxProgress       = 100
)

// CharacterID identifies a suspect, e.g. "james-blackwood".
type CharacterID string

// RoomID identifies a room of the manor, e.g. "study".
type RoomID string

// InvestigationState holds the progress of an ongoing investigation.
//
// The collections behave as sets. They keep insertion order so that the persisted document and summaries read in
// the order the player discovered things.
type InvestigationState struct {
	Progress            int
	SuspectsInterviewed []CharacterID
	RoomsInvestigated   []RoomID
	EvidenceCollected   []string
	// CurrentCharacter is empty when no character has been selected.
	CurrentCharacter CharacterID
	// WidgetOpen is best effort. The browser window can be closed without us knowing.
	WidgetOpen bool
}

// NewInvestigationState returns an empty state with non-nil collections.
func NewInvestigationState() InvestigationState {
	return InvestigationState{
		Progress:            0,
		SuspectsInterviewed: []CharacterID{},
		RoomsInvestigated:   []RoomID{},
		EvidenceCollected:   []string{},
		CurrentCharacter:    "",
		WidgetOpen:          false,
	}
}

// Clone returns a deep copy that shares no memory with s.
func (s InvestigationState) Clone() InvestigationState {
	c := s
	c.SuspectsInterviewed = append(make([]CharacterID, 0, len(s.SuspectsInterviewed)), s.SuspectsInterviewed...)
	c.RoomsInvestigated = append(make([]RoomID, 0, len(s.RoomsInvestigated)), s.RoomsInvestigated...)
	c.EvidenceCollected = append(make([]string, 0, len(s.EvidenceCollected)), s.EvidenceCollected...)
	return c
}

// ComputeProgress applies the weighted sum capped at MaxProgress.
func (s InvestigationState) ComputeProgress() int {
	progress := PointsPerSuspect*len(s.SuspectsInterviewed) +
		PointsPerRoom*len(s.RoomsInvestigated) +
		PointsPerEvidence*len(s.EvidenceCollected)
	return min(progress, MaxProgress)
}

func (s InvestigationState) HasInterviewed(id CharacterID) bool {
	return slices.Contains(s.SuspectsInterviewed, id)
}

func (s InvestigationState) HasInvestigated(id RoomID) bool {
	return slices.Contains(s.RoomsInvestigated, id)
}

func (s InvestigationState) HasEvidence(label string) bool {
	return slices.Contains(s.EvidenceCollected, label)
}

// Dedupe drops repeated entries from the collections keeping the first occurrence.
func Dedupe[T comparable](items []T) []T {
	out := make([]T, 0, len(items))
	seen := make(map[T]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
