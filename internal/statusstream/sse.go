package statusstream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gistapp/gist/internal/log"
	"github.com/gistapp/gist/internal/model"
)

// Message is a server sent events message.
type Message struct {
	Event string
	Data  string
	ID    string
	// Retry is the reconnection time the server asked for, zero if not set.
	Retry time.Duration
}

// EventReader reads server sent events messages.
type EventReader struct {
	sc *bufio.Scanner
}

// NewEventReader returns a reader of the server sent events in r.
func NewEventReader(r io.Reader) *EventReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1024*1024)
	return &EventReader{sc: sc}
}

// Next returns the next dispatched message, io.EOF when the stream ends.
func (r *EventReader) Next() (Message, error) {
	var (
		msg     Message
		data    []string
		pending bool
	)

	for r.sc.Scan() {
		line := strings.TrimSuffix(r.sc.Text(), "\r")

		if line == "" {
			if !pending {
				continue
			}
			msg.Data = strings.Join(data, "\n")
			if msg.Event == "" {
				msg.Event = "message"
			}
			return msg, nil
		}

		// Comment, used as keep alive.
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		pending = true

		switch field {
		case "event":
			msg.Event = value
		case "data":
			data = append(data, value)
		case "id":
			msg.ID = value
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil {
				msg.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := r.sc.Err(); err != nil {
		return Message{}, err
	}
	return Message{}, io.EOF
}

type statusJSON struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	Timestamp json.RawMessage `json:"timestamp"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// DecodeStatus decodes the data of a status message.
func DecodeStatus(data string) (model.StatusEvent, error) {
	var s statusJSON
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return model.StatusEvent{}, fmt.Errorf("could not decode status %q: %w", data, err)
	}

	kind, err := statusKind(s.Status)
	if err != nil {
		return model.StatusEvent{}, err
	}

	return model.StatusEvent{
		Kind:      kind,
		Message:   s.Message,
		Timestamp: decodeTimestamp(s.Timestamp),
	}, nil
}

func statusKind(s string) (model.StatusKind, error) {
	switch strings.ToLower(s) {
	case "connected":
		return model.StatusKindConnected, nil
	case "processing", "inprogress", "in_progress":
		return model.StatusKindProcessing, nil
	case "completed", "complete", "done":
		return model.StatusKindCompleted, nil
	case "error", "failed":
		return model.StatusKindError, nil
	}
	return "", fmt.Errorf("unknown status %q: %w", s, model.ErrNotValid)
}

func decodeTimestamp(raw json.RawMessage) time.Time {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		sec := int64(n)
		return time.Unix(sec, int64((n-float64(sec))*1e9)).UTC()
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// StreamOpener opens the raw status stream.
type StreamOpener interface {
	OpenStatusStream(ctx context.Context) (io.ReadCloser, error)
}

// SSETransportConfig is the configuration of the server sent events transport.
type SSETransportConfig struct {
	Opener StreamOpener
	Logger log.Logger
}

func (c *SSETransportConfig) defaults() error {
	if c.Opener == nil {
		return fmt.Errorf("stream opener is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "statusstream.SSETransport"})

	return nil
}

// SSETransport reads status events from the server sent events endpoint.
type SSETransport struct {
	opener StreamOpener
	logger log.Logger
}

var _ Transport = &SSETransport{}

// NewSSETransport returns a new server sent events transport.
func NewSSETransport(cfg SSETransportConfig) (*SSETransport, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &SSETransport{opener: cfg.Opener, logger: cfg.Logger}, nil
}

func (t *SSETransport) Stream(ctx context.Context, events chan<- model.StatusEvent) error {
	body, err := t.opener.OpenStatusStream(ctx)
	if err != nil {
		return err
	}
	defer body.Close()

	// Unblock the pending read when the connection is cancelled.
	stop := context.AfterFunc(ctx, func() { _ = body.Close() })
	defer stop()

	r := NewEventReader(body)
	for {
		msg, err := r.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return ErrStreamEnded
			}
			return fmt.Errorf("reading status stream: %w", err)
		}

		if msg.Event != "status" && msg.Event != "message" {
			continue
		}

		ev, err := DecodeStatus(msg.Data)
		if err != nil {
			t.logger.Warningf("Ignoring status message: %s", err)
			continue
		}

		select {
		case events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
