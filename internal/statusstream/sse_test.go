package statusstream_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gistapp/gist/internal/backend"
	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/statusstream"
)

func TestEventReader(t *testing.T) {
	raw := strings.Join([]string{
		": keep alive",
		"event: status",
		"id: connection_id",
		"retry: 15000",
		`data: {"status": "connected"}`,
		"",
		"",
		"data: first",
		"data: second",
		"",
		"event: status\r",
		`data: {"status": "completed"}` + "\r",
		"\r",
		"event: trailing",
	}, "\n")

	r := statusstream.NewEventReader(strings.NewReader(raw))

	msg, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, statusstream.Message{Event: "status", ID: "connection_id", Retry: 15 * time.Second, Data: `{"status": "connected"}`}, msg)

	msg, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, statusstream.Message{Event: "message", Data: "first\nsecond"}, msg)

	msg, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, statusstream.Message{Event: "status", Data: `{"status": "completed"}`}, msg)

	// Not dispatched messages are dropped.
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecodeStatus(t *testing.T) {
	tests := map[string]struct {
		data     string
		expEvent model.StatusEvent
		expErr   bool
	}{
		"a connected status with a naive iso timestamp should decode": {
			data:     `{"status": "connected", "timestamp": "2025-03-01T12:00:00.123456"}`,
			expEvent: model.StatusEvent{Kind: model.StatusKindConnected, Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 123456000, time.UTC)},
		},

		"the server in progress status should be processing": {
			data:     `{"status": "inprogress", "message": "extracting"}`,
			expEvent: model.StatusEvent{Kind: model.StatusKindProcessing, Message: "extracting"},
		},

		"a completed status with an RFC3339 timestamp should decode": {
			data:     `{"status": "completed", "timestamp": "2025-03-01T12:00:00Z"}`,
			expEvent: model.StatusEvent{Kind: model.StatusKindCompleted, Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		},

		"a unix timestamp should decode": {
			data:     `{"status": "failed", "timestamp": 1740830400}`,
			expEvent: model.StatusEvent{Kind: model.StatusKindError, Timestamp: time.Unix(1740830400, 0).UTC()},
		},

		"an unknown status should fail": {
			data:   `{"status": "sleeping"}`,
			expErr: true,
		},

		"invalid JSON should fail": {
			data:   `{"status": `,
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ev, err := statusstream.DecodeStatus(test.data)
			if test.expErr {
				assert.Error(t, err)
			} else if assert.NoError(t, err) {
				assert.Equal(t, test.expEvent, ev)
			}
		})
	}
}

type openerFunc func(ctx context.Context) (io.ReadCloser, error)

func (f openerFunc) OpenStatusStream(ctx context.Context) (io.ReadCloser, error) { return f(ctx) }

func TestSSETransportStream(t *testing.T) {
	require := require.New(t)

	body := "event: status\ndata: {\"status\":\"connected\"}\n\n" +
		"event: ping\ndata: {}\n\n" +
		"event: status\ndata: not json\n\n" +
		"event: status\ndata: {\"status\":\"inprogress\"}\n\n"

	tr, err := statusstream.NewSSETransport(statusstream.SSETransportConfig{
		Opener: openerFunc(func(context.Context) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		}),
	})
	require.NoError(err)

	events := make(chan model.StatusEvent, 10)
	err = tr.Stream(context.Background(), events)
	require.ErrorIs(err, statusstream.ErrStreamEnded)
	close(events)

	var kinds []model.StatusKind
	for ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []model.StatusKind{model.StatusKindConnected, model.StatusKindProcessing}, kinds)
}

func TestSSETransportOpenError(t *testing.T) {
	tr, err := statusstream.NewSSETransport(statusstream.SSETransportConfig{
		Opener: openerFunc(func(context.Context) (io.ReadCloser, error) { return nil, fmt.Errorf("refused") }),
	})
	require.NoError(t, err)

	err = tr.Stream(context.Background(), make(chan model.StatusEvent))
	assert.EqualError(t, err, "refused")
}

func TestSSEStatusStreamEndToEnd(t *testing.T) {
	require := require.New(t)

	var connections atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agent/onboarding-status" || r.URL.Query().Get("token") != "tkn" {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		// First connection drops before completing.
		if connections.Add(1) == 1 {
			fmt.Fprint(w, "event: status\nretry: 15000\ndata: {\"status\":\"connected\"}\n\n")
			flusher.Flush()
			return
		}

		fmt.Fprint(w, "event: status\ndata: {\"status\":\"inprogress\"}\n\n")
		flusher.Flush()
		fmt.Fprint(w, "event: status\ndata: {\"status\":\"completed\"}\n\n")
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	bc, err := backend.NewClient(backend.ClientConfig{BaseURL: srv.URL, Token: "tkn"})
	require.NoError(err)
	tr, err := statusstream.NewSSETransport(statusstream.SSETransportConfig{Opener: bc})
	require.NoError(err)
	c, err := statusstream.NewClient(statusstream.ClientConfig{Transport: tr, Checker: bc, RetryBackoff: time.Millisecond})
	require.NoError(err)

	rec := &recorder{}
	h, err := c.Open(context.Background(), rec.onEvent, rec.onError)
	require.NoError(err)
	waitDone(t, h)
	h.Close()

	assert.Equal(t, []model.StatusKind{model.StatusKindConnected, model.StatusKindProcessing, model.StatusKindCompleted}, rec.Kinds())
	assert.Empty(t, rec.Errors())
	assert.Equal(t, int32(2), connections.Load())
}
