// Package tui is a terminal front end for the investigation. It does what any game adapter does: it asks the
// controller to show the widget, reads the progress and updates a status label.
package tui

import (
	"context"
	"fmt"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/myrjola/blackwood/internal/errors"
	"github.com/myrjola/blackwood/internal/models"
	"strings"
)

// Investigation is the part of the controller the TUI drives.
type Investigation interface {
	EnterRoom(ctx context.Context, roomID models.RoomID, interrogation bool) bool
	SelectSuspect(ctx context.Context, characterID models.CharacterID, interrogation bool) bool
	AddEvidence(ctx context.Context, label string) bool
	Reset(ctx context.Context)
	Summary() models.InvestigationState
	Catalog() *models.Catalog
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C9A66B"))
	headerStyle = lipgloss.NewStyle().Underline(true)
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F2E3C6"))
	doneStyle   = lipgloss.NewStyle().Faint(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8FB573"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C0625A"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

const (
	maxBarWidth   = 60
	barPadding    = 4
	evidenceLimit = 80
)

type itemKind int

const (
	roomItem itemKind = iota
	suspectItem
)

type item struct {
	kind  itemKind
	id    string
	label string
}

// actionDoneMsg reports the outcome of an action run as a command.
type actionDoneMsg struct {
	ok     bool
	status string
}

// StateReloadedMsg tells the model that the investigation was replaced from outside, e.g. by a reloaded state file.
type StateReloadedMsg struct{}

type Model struct {
	ctx           context.Context
	investigation Investigation
	items         []item
	cursor        int
	interrogation bool
	busy          bool
	entering      bool
	evidence      textinput.Model
	progress      progress.Model
	summary       models.InvestigationState
	status        string
	statusOK      bool
}

func New(ctx context.Context, investigation Investigation) Model {
	catalog := investigation.Catalog()
	var items []item
	for _, room := range catalog.Rooms() {
		items = append(items, item{
			kind:  roomItem,
			id:    string(room.ID),
			label: fmt.Sprintf("%s (%s)", room.ID, catalog.CharacterName(room.Character)),
		})
	}
	for _, character := range catalog.Characters() {
		items = append(items, item{kind: suspectItem, id: string(character.ID), label: character.Name})
	}

	input := textinput.New()
	input.Placeholder = "mysterious letter"
	input.CharLimit = evidenceLimit

	return Model{
		ctx:           ctx,
		investigation: investigation,
		items:         items,
		cursor:        0,
		interrogation: true,
		busy:          false,
		entering:      false,
		evidence:      input,
		progress:      progress.New(progress.WithDefaultGradient()),
		summary:       investigation.Summary(),
		status:        "Ready to investigate",
		statusOK:      true,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.progress.Width = min(msg.Width-barPadding, maxBarWidth)
		return m, nil
	case actionDoneMsg:
		m.busy = false
		m.status = msg.status
		m.statusOK = msg.ok
		m.summary = m.investigation.Summary()
		return m, nil
	case StateReloadedMsg:
		m.summary = m.investigation.Summary()
		m.status = "Investigation reloaded"
		m.statusOK = true
		return m, nil
	case tea.KeyMsg:
		if m.entering {
			return m.updateEvidenceInput(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "i":
		m.interrogation = !m.interrogation
	case "e":
		if m.busy {
			return m, nil
		}
		m.entering = true
		return m, m.evidence.Focus()
	case "x":
		if m.busy {
			return m, nil
		}
		m.investigation.Reset(m.ctx)
		m.summary = m.investigation.Summary()
		m.status = "Investigation reset"
		m.statusOK = true
	case "enter", " ":
		if m.busy || len(m.items) == 0 {
			return m, nil
		}
		m.busy = true
		m.status = "Opening widget..."
		m.statusOK = true
		return m, m.investigate(m.items[m.cursor])
	}
	return m, nil
}

func (m Model) updateEvidenceInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type { //nolint:exhaustive // other keys go to the text input.
	case tea.KeyEnter:
		label := strings.TrimSpace(m.evidence.Value())
		m.evidence.Reset()
		m.evidence.Blur()
		m.entering = false
		if label == "" {
			return m, nil
		}
		m.busy = true
		return m, m.addEvidence(label)
	case tea.KeyEsc:
		m.evidence.Reset()
		m.evidence.Blur()
		m.entering = false
		return m, nil
	default:
		var cmd tea.Cmd
		m.evidence, cmd = m.evidence.Update(msg)
		return m, cmd
	}
}

// investigate runs the blocking launch outside the update loop.
func (m Model) investigate(it item) tea.Cmd {
	ctx, investigation, interrogation := m.ctx, m.investigation, m.interrogation
	return func() tea.Msg {
		if it.kind == roomItem {
			if investigation.EnterRoom(ctx, models.RoomID(it.id), interrogation) {
				return actionDoneMsg{ok: true, status: fmt.Sprintf("Investigating %s", it.id)}
			}
			return actionDoneMsg{ok: false, status: fmt.Sprintf("Failed to investigate %s", it.id)}
		}
		if investigation.SelectSuspect(ctx, models.CharacterID(it.id), interrogation) {
			return actionDoneMsg{ok: true, status: fmt.Sprintf("Interviewing %s", it.label)}
		}
		return actionDoneMsg{ok: false, status: fmt.Sprintf("Failed to interview %s", it.label)}
	}
}

func (m Model) addEvidence(label string) tea.Cmd {
	ctx, investigation := m.ctx, m.investigation
	return func() tea.Msg {
		if investigation.AddEvidence(ctx, label) {
			return actionDoneMsg{ok: true, status: fmt.Sprintf("Evidence found: %s", label)}
		}
		return actionDoneMsg{ok: false, status: fmt.Sprintf("Already collected: %s", label)}
	}
}

func (m Model) done(it item) bool {
	if it.kind == roomItem {
		return m.summary.HasInvestigated(models.RoomID(it.id))
	}
	return m.summary.HasInterviewed(models.CharacterID(it.id))
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Blackwood Manor Investigation"))
	b.WriteString("\n\n")
	b.WriteString(m.progress.ViewAs(float64(m.summary.Progress) / float64(models.MaxProgress)))
	b.WriteString("\n\n")

	for i, it := range m.items {
		if i == 0 || m.items[i-1].kind != it.kind {
			header := "Rooms"
			if it.kind == suspectItem {
				header = "Suspects"
			}
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(headerStyle.Render(header))
			b.WriteString("\n")
		}

		marker := "  "
		if m.done(it) {
			marker = "✓ "
		}
		line := marker + it.label
		switch {
		case i == m.cursor:
			line = cursorStyle.Render("> " + line)
		case m.done(it):
			line = doneStyle.Render("  " + line)
		default:
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if len(m.summary.EvidenceCollected) > 0 {
		b.WriteString("Evidence: " + strings.Join(m.summary.EvidenceCollected, ", ") + "\n")
	}
	if m.entering {
		b.WriteString("New evidence: " + m.evidence.View() + "\n")
	}

	style := okStyle
	if !m.statusOK {
		style = failStyle
	}
	b.WriteString(style.Render(m.status))
	b.WriteString("\n\n")

	mode := "off"
	if m.interrogation {
		mode = "on"
	}
	b.WriteString(helpStyle.Render(fmt.Sprintf(
		"↑/↓ move • enter investigate • e evidence • i interrogation (%s) • x reset • q quit", mode)))
	b.WriteString("\n")
	return b.String()
}

// Run shows the TUI until the player quits. Every value received from reloaded refreshes the view.
func Run(ctx context.Context, investigation Investigation, reloaded <-chan struct{}) error {
	p := tea.NewProgram(New(ctx, investigation), tea.WithContext(ctx))

	stop := make(chan struct{})
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for {
			select {
			case <-stop:
				return
			case _, ok := <-reloaded:
				if !ok {
					return
				}
				p.Send(StateReloadedMsg{})
			}
		}
	}()

	_, err := p.Run()
	close(stop)
	<-forwarded
	if err != nil {
		return errors.Wrap(err, "run tui")
	}
	return nil
}
