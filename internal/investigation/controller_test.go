package investigation_test

import (
	"context"
	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/blackwood/internal/errors"
	"github.com/myrjola/blackwood/internal/investigation"
	"github.com/myrjola/blackwood/internal/models"
	"github.com/myrjola/blackwood/internal/testhelpers"
	"github.com/myrjola/blackwood/internal/widget"
	"github.com/stretchr/testify/require"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

var errNoBrowser = errors.NewSentinel("no browser")

// events collects notifications in the order they arrive.
type events struct {
	characters []models.CharacterID
	evidence   []string
	progress   []int
}

func (e *events) observer() investigation.ObserverFuncs {
	return investigation.ObserverFuncs{
		OnCharacterSelected: func(_ context.Context, id models.CharacterID) { e.characters = append(e.characters, id) },
		OnEvidenceFound:     func(_ context.Context, label string) { e.evidence = append(e.evidence, label) },
		OnProgressChanged:   func(_ context.Context, progress int) { e.progress = append(e.progress, progress) },
	}
}

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func newTestController(t *testing.T, l investigation.Launcher) (*investigation.Controller, *events) {
	t.Helper()
	c := investigation.NewController(
		models.BlackwoodManor(),
		widget.DefaultConfig(),
		l,
		testhelpers.NewLogger(io.Discard),
		investigation.WithClock(func() time.Time { return testNow }),
	)
	ev := &events{}
	c.Subscribe(ev.observer())
	return c, ev
}

func requireProgressInvariant(t *testing.T, s models.InvestigationState) {
	t.Helper()
	want := min(100, 15*len(s.SuspectsInterviewed)+10*len(s.RoomsInvestigated)+5*len(s.EvidenceCollected))
	require.Equal(t, want, s.Progress)
}

func TestController_Scenario(t *testing.T) {
	ctx := context.Background()
	l := &testhelpers.Launcher{}
	c, ev := newTestController(t, l)

	require.True(t, c.EnterRoom(ctx, "study", true))
	require.Equal(t, 10, c.Summary().Progress)
	require.Equal(t, "james-blackwood", l.LastQuery(t).Get("character"))
	require.Equal(t, "true", l.LastQuery(t).Get("interrogation"))

	require.True(t, c.AddEvidence(ctx, "letter"))
	require.Equal(t, 15, c.Summary().Progress)

	// Already the current character but not interviewed yet.
	require.True(t, c.SelectSuspect(ctx, "james-blackwood", true))
	require.Equal(t, 30, c.Summary().Progress)
	query := l.LastQuery(t)
	require.Equal(t, "15", query.Get("progress"))
	require.Equal(t, "1", query.Get("evidence_count"))
	require.Equal(t, "0", query.Get("suspects_count"))

	require.Equal(t, []models.CharacterID{"james-blackwood", "james-blackwood"}, ev.characters)
	require.Equal(t, []string{"letter"}, ev.evidence)
	require.Equal(t, []int{10, 15, 30}, ev.progress)

	summary := c.Summary()
	requireProgressInvariant(t, summary)
	require.Equal(t, models.CharacterID("james-blackwood"), summary.CurrentCharacter)
	require.True(t, summary.WidgetOpen)
}

func TestController_ProgressInvariant(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestController(t, &testhelpers.Launcher{})

	actions := []func() bool{
		func() bool { return c.EnterRoom(ctx, "study", false) },
		func() bool { return c.AddEvidence(ctx, "letter") },
		func() bool { return c.SelectSuspect(ctx, "lily-chen", false) },
		func() bool { return c.EnterRoom(ctx, "study", false) },
		func() bool { return c.EnterRoom(ctx, "kitchen", false) },
		func() bool { return c.SelectSuspect(ctx, "ghost", false) },
		func() bool { return c.SelectSuspect(ctx, "marcus-reynolds", false) },
		func() bool { return c.SelectSuspect(ctx, "thompson-butler", false) },
		func() bool { return c.SelectSuspect(ctx, "elena-rodriguez", false) },
		func() bool { return c.EnterRoom(ctx, "library", false) },
		func() bool { return c.AddEvidence(ctx, "knife") },
		func() bool { return c.AddEvidence(ctx, "muddy boots") },
		func() bool { return c.EnterRoom(ctx, "basement", false) },
	}
	previous := 0
	for _, action := range actions {
		action()
		summary := c.Summary()
		requireProgressInvariant(t, summary)
		require.GreaterOrEqual(t, summary.Progress, previous)
		previous = summary.Progress
	}
	require.Equal(t, 100, previous)
}

func TestController_AddEvidenceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c, ev := newTestController(t, &testhelpers.Launcher{})

	require.True(t, c.AddEvidence(ctx, "X"))
	require.False(t, c.AddEvidence(ctx, "X"))

	require.Equal(t, []string{"X"}, c.Summary().EvidenceCollected)
	require.Equal(t, []string{"X"}, ev.evidence)
	require.Equal(t, []int{5}, ev.progress)
}

func TestController_AddEvidenceRejectsBlankLabels(t *testing.T) {
	c, ev := newTestController(t, &testhelpers.Launcher{})

	require.False(t, c.AddEvidence(context.Background(), "  "))
	require.Empty(t, c.Summary().EvidenceCollected)
	require.Empty(t, ev.evidence)
}

func TestController_AddEvidenceTrimsLabels(t *testing.T) {
	ctx := context.Background()
	c, ev := newTestController(t, &testhelpers.Launcher{})

	require.True(t, c.AddEvidence(ctx, " letter "))
	require.False(t, c.AddEvidence(ctx, "letter"))
	require.False(t, c.AddEvidence(ctx, "letter\t"))

	require.Equal(t, []string{"letter"}, c.Summary().EvidenceCollected)
	require.Equal(t, []string{"letter"}, ev.evidence)
	require.Equal(t, 5, c.Summary().Progress)
}

func TestController_EnterRoomTwice(t *testing.T) {
	ctx := context.Background()
	l := &testhelpers.Launcher{}
	c, _ := newTestController(t, l)

	require.True(t, c.EnterRoom(ctx, "study", true))
	require.False(t, c.EnterRoom(ctx, "study", true))

	require.Equal(t, []models.RoomID{"study"}, c.Summary().RoomsInvestigated)
	require.Len(t, l.URLs(), 1, "second visit must not launch the widget")
}

func TestController_UnknownIdentifiers(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		action func(c *investigation.Controller) bool
	}{
		{
			name:   "select unknown suspect",
			action: func(c *investigation.Controller) bool { return c.SelectSuspect(ctx, "ghost", true) },
		},
		{
			name:   "enter unknown room",
			action: func(c *investigation.Controller) bool { return c.EnterRoom(ctx, "attic", true) },
		},
		{
			name:   "open widget for unknown character",
			action: func(c *investigation.Controller) bool { return c.OpenWidget(ctx, "ghost", "", false) },
		},
		{
			name:   "open widget for unknown room",
			action: func(c *investigation.Controller) bool { return c.OpenWidget(ctx, "", "attic", false) },
		},
		{
			name:   "open widget for unknown character in a known room",
			action: func(c *investigation.Controller) bool { return c.OpenWidget(ctx, "ghost", "office", false) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &testhelpers.Launcher{}
			c, ev := newTestController(t, l)
			before := c.Summary()

			require.False(t, tt.action(c))

			require.Equal(t, before, c.Summary())
			require.Equal(t, investigation.Status{}, c.Status())
			require.Empty(t, l.URLs())
			require.Empty(t, ev.characters)
		})
	}
}

func TestController_OpenWidget(t *testing.T) {
	ctx := context.Background()

	t.Run("room takes precedence over character", func(t *testing.T) {
		l := &testhelpers.Launcher{}
		c, ev := newTestController(t, l)

		require.True(t, c.OpenWidget(ctx, "lily-chen", "office", false))
		require.Equal(t, "marcus-reynolds", l.LastQuery(t).Get("character"))
		require.Equal(t, []models.CharacterID{"marcus-reynolds"}, ev.characters)
	})

	t.Run("without character opens the selector", func(t *testing.T) {
		l := &testhelpers.Launcher{}
		c, ev := newTestController(t, l)

		require.True(t, c.OpenWidget(ctx, "", "", false))
		require.False(t, l.LastQuery(t).Has("character"))
		require.Empty(t, ev.characters)
		require.True(t, c.Status().IsOpen)
		require.Empty(t, c.Summary().CurrentCharacter)
	})

	t.Run("launch failure", func(t *testing.T) {
		l := &testhelpers.Launcher{Err: errNoBrowser, Retries: 3}
		c, ev := newTestController(t, l)

		require.False(t, c.OpenWidget(ctx, "lily-chen", "", false))
		require.Equal(t, investigation.Status{RetryCount: 3}, c.Status())
		require.Empty(t, c.Summary().CurrentCharacter)
		require.Empty(t, ev.characters)
	})

	t.Run("hide", func(t *testing.T) {
		c, _ := newTestController(t, &testhelpers.Launcher{})

		require.True(t, c.OpenWidget(ctx, "lily-chen", "", false))
		c.HideWidget(ctx)
		require.False(t, c.Status().IsOpen)
		require.False(t, c.Status().InvestigationActive)
		require.False(t, c.Summary().WidgetOpen)
		require.Equal(t, models.CharacterID("lily-chen"), c.Summary().CurrentCharacter)
	})
}

func TestController_LaunchFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	c, ev := newTestController(t, &testhelpers.Launcher{Err: errNoBrowser})

	require.False(t, c.EnterRoom(ctx, "study", true))
	require.False(t, c.SelectSuspect(ctx, "lily-chen", true))

	summary := c.Summary()
	require.Empty(t, summary.RoomsInvestigated)
	require.Empty(t, summary.SuspectsInterviewed)
	require.Zero(t, summary.Progress)
	require.Empty(t, ev.progress)
}

func TestController_SummaryIsACopy(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestController(t, &testhelpers.Launcher{})
	require.True(t, c.EnterRoom(ctx, "study", false))
	require.True(t, c.AddEvidence(ctx, "letter"))

	summary := c.Summary()
	summary.EvidenceCollected[0] = "tampered"
	summary.RoomsInvestigated = append(summary.RoomsInvestigated, "office")
	summary.Progress = 99

	fresh := c.Summary()
	require.Equal(t, []string{"letter"}, fresh.EvidenceCollected)
	require.Equal(t, []models.RoomID{"study"}, fresh.RoomsInvestigated)
	require.Equal(t, 15, fresh.Progress)
}

func TestController_Reset(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestController(t, &testhelpers.Launcher{})
	require.True(t, c.EnterRoom(ctx, "study", false))
	require.True(t, c.AddEvidence(ctx, "letter"))

	c.Reset(ctx)

	require.Equal(t, models.NewInvestigationState(), c.Summary())
	require.Equal(t, investigation.Status{}, c.Status())

	// Rooms can be visited again after a reset.
	require.True(t, c.EnterRoom(ctx, "study", false))
}

func TestController_ObserverMayCallBack(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestController(t, &testhelpers.Launcher{})

	var seen []int
	c.Subscribe(investigation.ObserverFuncs{
		OnProgressChanged: func(ctx context.Context, _ int) {
			// Would deadlock if notifications were delivered under the lock.
			seen = append(seen, c.Summary().Progress)
		},
	})

	require.True(t, c.AddEvidence(ctx, "letter"))
	require.Equal(t, []int{5}, seen)
}

func TestController_PanickingObserver(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		action func(c *investigation.Controller) bool
	}{
		{
			name:   "add evidence",
			action: func(c *investigation.Controller) bool { return c.AddEvidence(ctx, "letter") },
		},
		{
			name:   "enter room",
			action: func(c *investigation.Controller) bool { return c.EnterRoom(ctx, "study", true) },
		},
		{
			name:   "select suspect",
			action: func(c *investigation.Controller) bool { return c.SelectSuspect(ctx, "lily-chen", true) },
		},
		{
			name:   "open widget",
			action: func(c *investigation.Controller) bool { return c.OpenWidget(ctx, "lily-chen", "", true) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ev := newTestController(t, &testhelpers.Launcher{})
			c.Subscribe(investigation.ObserverFuncs{
				OnCharacterSelected: func(context.Context, models.CharacterID) { panic("observer boom") },
				OnEvidenceFound:     func(context.Context, string) { panic("observer boom") },
				OnProgressChanged:   func(context.Context, int) { panic("observer boom") },
			})

			var ok bool
			require.NotPanics(t, func() { ok = tt.action(c) })
			require.True(t, ok)

			// Observers subscribed before the panicking one still hear about the change.
			require.Positive(t, len(ev.evidence)+len(ev.characters))
			requireProgressInvariant(t, c.Summary())
		})
	}
}

func TestController_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "investigation_state.json")

	c, _ := newTestController(t, &testhelpers.Launcher{})
	require.True(t, c.EnterRoom(ctx, "study", true))
	require.True(t, c.AddEvidence(ctx, "letter"))
	require.True(t, c.SelectSuspect(ctx, "lily-chen", true))
	require.True(t, c.SaveState(ctx, path))

	restored, ev := newTestController(t, &testhelpers.Launcher{})
	require.True(t, restored.LoadState(ctx, path))

	if diff := cmp.Diff(c.Summary(), restored.Summary()); diff != "" {
		t.Errorf("summary mismatch after load (-want +got):\n%s", diff)
	}
	require.Equal(t, c.Status(), restored.Status())
	require.Empty(t, ev.progress, "loading must not notify")

	// The restored investigation continues where it left off.
	require.False(t, restored.EnterRoom(ctx, "study", true))
}

func TestController_LoadState(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		content   *string
		wantOK    bool
		wantState func(t *testing.T, s models.InvestigationState)
	}{
		{
			name:    "missing file leaves state untouched",
			content: nil,
			wantOK:  false,
			wantState: func(t *testing.T, s models.InvestigationState) {
				require.Equal(t, []string{"existing"}, s.EvidenceCollected)
			},
		},
		{
			name:    "malformed file leaves state untouched",
			content: ptr(`{"investigation_state": [}`),
			wantOK:  false,
			wantState: func(t *testing.T, s models.InvestigationState) {
				require.Equal(t, []string{"existing"}, s.EvidenceCollected)
			},
		},
		{
			name: "stale state is reset",
			content: ptr(`{
				"investigation_state": {"progress": 20, "rooms_investigated": ["study", "office"]},
				"timestamp": ` + timestamp(testNow.Add(-staleAge())) + `
			}`),
			wantOK: true,
			wantState: func(t *testing.T, s models.InvestigationState) {
				require.Equal(t, models.NewInvestigationState(), s)
			},
		},
		{
			name:    "missing timestamp counts as stale",
			content: ptr(`{"investigation_state": {"progress": 5, "evidence_collected": ["letter"]}}`),
			wantOK:  true,
			wantState: func(t *testing.T, s models.InvestigationState) {
				require.Equal(t, models.NewInvestigationState(), s)
			},
		},
		{
			name: "partial recent document",
			content: ptr(`{
				"investigation_state": {"progress": 10, "rooms_investigated": ["study"], "current_character": null},
				"timestamp": ` + timestamp(testNow.Add(-time.Minute)) + `
			}`),
			wantOK: true,
			wantState: func(t *testing.T, s models.InvestigationState) {
				require.Equal(t, 10, s.Progress)
				require.Equal(t, []models.RoomID{"study"}, s.RoomsInvestigated)
				require.Empty(t, s.SuspectsInterviewed)
				require.Empty(t, s.EvidenceCollected)
				require.Empty(t, s.CurrentCharacter)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state.json")
			if tt.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0o600))
			}
			c, _ := newTestController(t, &testhelpers.Launcher{})
			require.True(t, c.AddEvidence(ctx, "existing"))

			require.Equal(t, tt.wantOK, c.LoadState(ctx, path))
			tt.wantState(t, c.Summary())
		})
	}
}

func TestController_SaveStateFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	// A regular file where a directory is expected.
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	c, _ := newTestController(t, &testhelpers.Launcher{})
	require.False(t, c.SaveState(ctx, filepath.Join(blocker, "state.json")))
}

// staleAge is just past the staleness limit.
func staleAge() time.Duration {
	return investigation.StaleAfter + time.Second
}

// timestamp formats t the way the state file stores it.
func timestamp(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixNano())/float64(time.Second), 'f', -1, 64)
}

func ptr(s string) *string {
	return &s
}
