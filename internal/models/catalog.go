package models

import (
	"cmp"
	"github.com/myrjola/blackwood/internal/errors"
	"log/slog"
	"maps"
	"slices"
)

var ErrInvalidCatalog = errors.NewSentinel("invalid catalog")

// Character is a suspect that can be interviewed through the chat widget.
type Character struct {
	ID   CharacterID
	Name string
}

// Room is a scene of the manor. Entering it starts an interview with the character found there.
type Room struct {
	ID        RoomID
	Character CharacterID
}

// Catalog holds the fixed lookup tables of the game. It is immutable after construction.
type Catalog struct {
	characters map[CharacterID]Character
	rooms      map[RoomID]Room
}

// NewCatalog validates that every room points to a known character and that identifiers are unique.
func NewCatalog(characters []Character, rooms []Room) (*Catalog, error) {
	c := Catalog{
		characters: make(map[CharacterID]Character, len(characters)),
		rooms:      make(map[RoomID]Room, len(rooms)),
	}
	for _, character := range characters {
		if character.ID == "" {
			return nil, errors.Wrap(ErrInvalidCatalog, "empty character id")
		}
		if _, ok := c.characters[character.ID]; ok {
			return nil, errors.Wrap(ErrInvalidCatalog, "duplicate character",
				slog.String("character", string(character.ID)))
		}
		c.characters[character.ID] = character
	}
	for _, room := range rooms {
		if room.ID == "" {
			return nil, errors.Wrap(ErrInvalidCatalog, "empty room id")
		}
		if _, ok := c.rooms[room.ID]; ok {
			return nil, errors.Wrap(ErrInvalidCatalog, "duplicate room", slog.String("room", string(room.ID)))
		}
		if _, ok := c.characters[room.Character]; !ok {
			return nil, errors.Wrap(ErrInvalidCatalog, "room refers to unknown character",
				slog.String("room", string(room.ID)), slog.String("character", string(room.Character)))
		}
		c.rooms[room.ID] = room
	}
	return &c, nil
}

// BlackwoodManor returns the catalog of the Blackwood Manor mystery.
func BlackwoodManor() *Catalog {
	catalog, err := NewCatalog(
		[]Character{
			{ID: "james-blackwood", Name: "James Blackwood"},
			{ID: "marcus-reynolds", Name: "Marcus Reynolds"},
			{ID: "elena-rodriguez", Name: "Dr. Elena Rodriguez"},
			{ID: "lily-chen", Name: "Lily Chen"},
			{ID: "thompson-butler", Name: "Mr. Thompson"},
		},
		[]Room{
			{ID: "study", Character: "james-blackwood"},
			{ID: "office", Character: "marcus-reynolds"},
			{ID: "library", Character: "elena-rodriguez"},
			{ID: "art_studio", Character: "lily-chen"},
			{ID: "kitchen", Character: "thompson-butler"},
			{ID: "mansion_entrance", Character: "thompson-butler"},
			{ID: "dining_room", Character: "thompson-butler"},
			{ID: "bedroom", Character: "james-blackwood"},
			{ID: "basement", Character: "marcus-reynolds"},
		},
	)
	if err != nil {
		panic(err)
	}
	return catalog
}

func (c *Catalog) Character(id CharacterID) (Character, bool) {
	character, ok := c.characters[id]
	return character, ok
}

func (c *Catalog) Room(id RoomID) (Room, bool) {
	room, ok := c.rooms[id]
	return room, ok
}

// CharacterName returns the display name or "Unknown".
func (c *Catalog) CharacterName(id CharacterID) string {
	if character, ok := c.characters[id]; ok {
		return character.Name
	}
	return "Unknown"
}

// Characters lists the characters ordered by ID.
func (c *Catalog) Characters() []Character {
	return slices.SortedFunc(maps.Values(c.characters), func(a, b Character) int {
		return cmp.Compare(a.ID, b.ID)
	})
}

// Rooms lists the rooms ordered by ID.
func (c *Catalog) Rooms() []Room {
	return slices.SortedFunc(maps.Values(c.rooms), func(a, b Room) int {
		return cmp.Compare(a.ID, b.ID)
	})
}
