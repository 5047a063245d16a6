package board

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/notify"
	"github.com/gistapp/gist/internal/printer"
	"github.com/gistapp/gist/internal/sortable"
)

// KeyMap are the board key bindings.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Pick   key.Binding
	Cancel key.Binding
	Quit   key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Pick, k.Cancel, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// DefaultKeyMap returns the default board key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Pick: key.NewBinding(
			key.WithKeys("enter", " ", "space"),
			key.WithHelp("enter/space", "pick/drop"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	pickedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("205"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	priorityStyle = map[model.Priority]lipgloss.Style{
		model.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		model.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		model.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}
)

// Config is the board configuration.
type Config struct {
	Controller *sortable.Controller
	// Notifications are shown at the bottom of the board as they arrive.
	Notifications <-chan notify.Notification
	Title         string
	NoColor       bool
	KeyMap        *KeyMap
}

func (c *Config) defaults() error {
	if c.Controller == nil {
		return fmt.Errorf("controller is required")
	}

	if c.Title == "" {
		c.Title = "Tasks"
	}

	if c.KeyMap == nil {
		km := DefaultKeyMap()
		c.KeyMap = &km
	}

	return nil
}

type notificationMsg notify.Notification

// Model is the interactive task board, a keyboard driven sortable list.
type Model struct {
	ctx           context.Context
	ctrl          *sortable.Controller
	sensor        *sortable.KeyboardSensor
	notifications <-chan notify.Notification
	keys          KeyMap
	help          help.Model
	title         string
	noColor       bool

	cursor   int
	notice   string
	quitting bool
}

// New returns a new board model. The context is used for the moves persistence.
func New(ctx context.Context, cfg Config) (Model, error) {
	if err := cfg.defaults(); err != nil {
		return Model{}, fmt.Errorf("invalid config: %w", err)
	}

	return Model{
		ctx:           ctx,
		ctrl:          cfg.Controller,
		sensor:        sortable.NewKeyboardSensor(cfg.Controller, cfg.Controller),
		notifications: cfg.Notifications,
		keys:          *cfg.KeyMap,
		help:          help.New(),
		title:         cfg.Title,
		noColor:       cfg.NoColor,
	}, nil
}

func (m Model) Init() tea.Cmd {
	return listen(m.notifications)
}

func listen(ch <-chan notify.Notification) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return notificationMsg(n)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case notificationMsg:
		m.notice = notify.Format(notify.Notification(msg), m.noColor)
		return m, listen(m.notifications)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ids := m.ctrl.TaskIDs()
	picked := m.sensor.Picked() != ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.sensor.Cancel()
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if picked {
			m.sensor.MoveUp()
			m.cursor = m.sensor.TargetIndex()
		} else if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if picked {
			m.sensor.MoveDown()
			m.cursor = m.sensor.TargetIndex()
		} else if m.cursor < len(ids)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Pick):
		if len(ids) == 0 {
			return m, nil
		}
		if !picked {
			if err := m.sensor.Pick(ids[m.cursor]); err != nil {
				m.notice = m.errorNotice(err)
			}
			return m, nil
		}

		id := m.sensor.Picked()
		if _, err := m.sensor.Drop(m.ctx); err != nil {
			m.notice = m.errorNotice(err)
		}
		m.cursor = indexOf(m.ctrl.TaskIDs(), id)

	case key.Matches(msg, m.keys.Cancel):
		if !picked {
			return m, nil
		}
		id := m.sensor.Picked()
		m.sensor.Cancel()
		m.cursor = indexOf(ids, id)
	}

	return m, nil
}

func (m Model) errorNotice(err error) string {
	title := "Could not move the task"
	if errors.Is(err, model.ErrNotFound) {
		title = "Task not found"
	}
	return notify.Format(notify.Notification{Level: notify.LevelError, Title: title, Message: err.Error()}, m.noColor)
}

// Rows returns the task IDs as they are shown, with the picked task at its drop position.
func (m Model) Rows() []string {
	ids := m.ctrl.TaskIDs()
	picked := m.sensor.Picked()
	if picked == "" {
		return ids
	}

	from := indexOf(ids, picked)
	to := m.sensor.TargetIndex()
	if from < 0 || to < 0 || to >= len(ids) {
		return ids
	}
	return sortable.ArrayMove(ids, from, to)
}

// Cursor returns the highlighted row.
func (m Model) Cursor() int { return m.cursor }

// Picked returns the task being moved, empty when none.
func (m Model) Picked() string { return m.sensor.Picked() }

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.style(titleStyle, m.title))
	b.WriteString("\n\n")

	if m.ctrl.Empty() {
		es := m.ctrl.EmptyState()
		b.WriteString(es.Title)
		b.WriteString("\n")
		if es.Description != "" {
			b.WriteString(m.style(dimStyle, es.Description))
			b.WriteString("\n")
		}
	} else {
		byID := map[string]model.Task{}
		for _, t := range m.ctrl.Tasks() {
			byID[t.ID] = t
		}

		picked := m.sensor.Picked()
		for i, id := range m.Rows() {
			b.WriteString(m.renderRow(byID[id], i == m.cursor, id == picked))
			b.WriteString("\n")
		}
	}

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(m.notice)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderRow(t model.Task, selected, picked bool) string {
	pointer := "  "
	if selected {
		pointer = m.style(cursorStyle, "> ")
	}

	prio := fmt.Sprintf("%-6s", t.Priority)
	if st, ok := priorityStyle[t.Priority]; ok {
		prio = m.style(st, prio)
	}

	text := printer.Truncate(t.Text, 60)
	if picked {
		text = m.style(pickedStyle, text)
	}

	meta := m.style(dimStyle, fmt.Sprintf("%s %s", printer.FormatScore(t.RelevanceScore), t.Classification))
	return fmt.Sprintf("%s%s %s  %s", pointer, prio, text, meta)
}

func (m Model) style(s lipgloss.Style, text string) string {
	if m.noColor {
		return text
	}
	return s.Render(text)
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return 0
}
