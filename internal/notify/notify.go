package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/gistapp/gist/internal/log"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a short user facing message.
type Notification struct {
	Level   Level
	Title   string
	Message string
}

// Notifier shows notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Noop is a notifier that drops every notification.
const Noop = noop(0)

type noop int

func (noop) Notify(context.Context, Notification) {}

// NewLogNotifier returns a notifier that writes the notifications on the logger.
func NewLogNotifier(logger log.Logger) Notifier {
	if logger == nil {
		logger = log.Noop
	}
	return logNotifier{logger: logger.WithValues(log.Kv{"svc": "notify.Log"})}
}

type logNotifier struct {
	logger log.Logger
}

func (l logNotifier) Notify(ctx context.Context, n Notification) {
	logger := l.logger.WithCtxValues(ctx)
	switch n.Level {
	case LevelError:
		logger.Errorf("%s: %s", n.Title, n.Message)
	default:
		logger.Infof("%s: %s", n.Title, n.Message)
	}
}

var (
	titleStyles = map[Level]lipgloss.Style{
		LevelInfo:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		LevelSuccess: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		LevelError:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

var levelIcons = map[Level]string{
	LevelInfo:    "•",
	LevelSuccess: "✓",
	LevelError:   "✗",
}

// WriterNotifier prints the notifications as single lines on a writer.
type WriterNotifier struct {
	out     io.Writer
	noColor bool
	mu      sync.Mutex
}

// NewWriterNotifier returns a new writer notifier.
func NewWriterNotifier(out io.Writer, noColor bool) *WriterNotifier {
	return &WriterNotifier{out: out, noColor: noColor}
}

func (w *WriterNotifier) Notify(_ context.Context, n Notification) {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, _ = fmt.Fprintln(w.out, Format(n, w.noColor))
}

// Format renders a notification as a single line.
func Format(n Notification, noColor bool) string {
	icon, ok := levelIcons[n.Level]
	if !ok {
		icon = levelIcons[LevelInfo]
	}

	title := icon + " " + n.Title
	msg := n.Message
	if !noColor {
		style, ok := titleStyles[n.Level]
		if !ok {
			style = titleStyles[LevelInfo]
		}
		title = style.Render(title)
		msg = messageStyle.Render(msg)
	}

	if n.Message == "" {
		return title
	}
	return title + " " + msg
}

// Multi fans out the notifications to all the notifiers.
func Multi(notifiers ...Notifier) Notifier { return multi(notifiers) }

type multi []Notifier

func (m multi) Notify(ctx context.Context, n Notification) {
	for _, nt := range m {
		nt.Notify(ctx, n)
	}
}
