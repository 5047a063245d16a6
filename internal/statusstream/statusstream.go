package statusstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gistapp/gist/internal/conventions"
	"github.com/gistapp/gist/internal/log"
	"github.com/gistapp/gist/internal/model"
)

var (
	// ErrConnectionLost is reported when the stream could not be recovered and the job is not completed.
	ErrConnectionLost = errors.New("status connection lost")
	// ErrTimeout is reported when the stream was silent for too long and the job is not completed.
	ErrTimeout = errors.New("status stream timed out")
	// ErrStreamEnded is returned by transports when the server ended the stream.
	ErrStreamEnded = errors.New("status stream ended by server")
)

// Transport carries status events from the backend. Stream blocks sending events
// until the context is cancelled or the connection fails.
type Transport interface {
	Stream(ctx context.Context, events chan<- model.StatusEvent) error
}

// StatusChecker checks the job status once.
type StatusChecker interface {
	CheckOnboarding(ctx context.Context) (*model.JobStatus, error)
}

// EventFunc receives status events.
type EventFunc func(ev model.StatusEvent)

// ErrorFunc receives the terminal stream error.
type ErrorFunc func(err error)

// ClientConfig is the configuration of the status stream client.
type ClientConfig struct {
	Transport Transport
	// Checker is used as a fallback before reporting a failure, optional. Status
	// connections are only opened for a requested job.
	Checker StatusChecker
	// Timeout is the allowed silence between events.
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.Transport == nil {
		return fmt.Errorf("transport is required")
	}

	if c.Timeout <= 0 {
		c.Timeout = conventions.DefaultStreamTimeout
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries can't be negative")
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = conventions.DefaultStreamMaxRetries
	}

	if c.RetryBackoff <= 0 {
		c.RetryBackoff = conventions.DefaultStreamRetryBackoff
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "statusstream.Client"})

	return nil
}

// Client opens status stream connections.
type Client struct {
	transport    Transport
	checker      StatusChecker
	timeout      time.Duration
	maxRetries   int
	retryBackoff time.Duration
	logger       log.Logger
}

// NewClient returns a new status stream client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		transport:    cfg.Transport,
		checker:      cfg.Checker,
		timeout:      cfg.Timeout,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		logger:       cfg.Logger,
	}, nil
}

// Open opens a status connection. Callbacks run on the connection goroutine,
// onError is called at most once and only when the job is not completed.
func (c *Client) Open(ctx context.Context, onEvent EventFunc, onError ErrorFunc) (*Handle, error) {
	if onEvent == nil {
		return nil, fmt.Errorf("event callback is required: %w", model.ErrNotValid)
	}
	if onError == nil {
		onError = func(error) {}
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		id:      ulid.Make().String(),
		cancel:  cancel,
		done:    make(chan struct{}),
		onEvent: onEvent,
		onError: onError,
	}
	logger := c.logger.WithValues(log.Kv{"connection-id": h.id})

	go func() {
		defer close(h.done)
		defer cancel()
		c.run(ctx, h, logger)
	}()

	return h, nil
}

func (c *Client) run(ctx context.Context, h *Handle, logger log.Logger) {
	silence := time.NewTimer(c.timeout)
	defer silence.Stop()

	failures := 0
	for {
		result := c.connect(ctx, h, silence, logger)
		switch result {
		case resultStopped, resultCompleted:
			return
		case resultTimeout:
			c.fallback(ctx, h, ErrTimeout, logger)
			return
		}

		failures++
		if failures > c.maxRetries {
			c.fallback(ctx, h, ErrConnectionLost, logger)
			return
		}
		logger.Debugf("Reconnecting status stream (%d/%d)", failures, c.maxRetries)

		backoff := time.NewTimer(c.retryBackoff)
		select {
		case <-ctx.Done():
			backoff.Stop()
			return
		case <-silence.C:
			backoff.Stop()
			c.fallback(ctx, h, ErrTimeout, logger)
			return
		case <-backoff.C:
		}
	}
}

type connResult int

const (
	resultStopped connResult = iota
	resultCompleted
	resultFailed
	resultTimeout
)

// connect runs a single transport connection until it ends.
func (c *Client) connect(ctx context.Context, h *Handle, silence *time.Timer, logger log.Logger) connResult {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan model.StatusEvent)
	errc := make(chan error, 1)
	go func() { errc <- c.transport.Stream(connCtx, events) }()

	// Always wait for the transport so it never outlives the connection.
	stop := func(r connResult) connResult {
		cancel()
		<-errc
		return r
	}

	for {
		select {
		case <-ctx.Done():
			return stop(resultStopped)

		case <-silence.C:
			logger.Warningf("Status stream silent for %s", c.timeout)
			return stop(resultTimeout)

		case err := <-errc:
			if ctx.Err() != nil {
				return resultStopped
			}
			logger.Warningf("Status stream transport failed: %v", err)
			return resultFailed

		case ev := <-events:
			resetTimer(silence, c.timeout)

			if ev.Kind == model.StatusKindError {
				logger.Warningf("Status stream error event: %s", ev.Message)
				return stop(resultFailed)
			}

			if !h.deliver(func() { h.onEvent(ev) }) {
				return stop(resultStopped)
			}

			if ev.Kind == model.StatusKindCompleted {
				logger.Infof("Task generation completed")
				return stop(resultCompleted)
			}
		}
	}
}

// fallback checks the job once before reporting a failure, a lost final
// event must not make a completed job look failed.
func (c *Client) fallback(ctx context.Context, h *Handle, cause error, logger log.Logger) {
	if ctx.Err() != nil {
		return
	}

	if c.checker != nil {
		status, err := c.checker.CheckOnboarding(ctx)
		switch {
		case err != nil:
			logger.Warningf("Could not check job status: %s", err)
		case status.Completed(true):
			logger.Infof("Job completed while the stream was down")
			h.deliver(func() {
				h.onEvent(model.StatusEvent{Kind: model.StatusKindCompleted, Timestamp: time.Now().UTC()})
			})
			return
		}
	}

	h.deliver(func() { h.onError(cause) })
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// Handle is an open status connection.
type Handle struct {
	id      string
	cancel  context.CancelFunc
	done    chan struct{}
	onEvent EventFunc
	onError ErrorFunc

	mu         sync.Mutex
	closed     bool
	inCallback bool
}

// ID returns the connection ID.
func (h *Handle) ID() string { return h.id }

// Done is closed when the connection goroutine finished.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Close closes the connection, it can be called any number of times and from
// the callbacks. Once it returns no callback will start.
func (h *Handle) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	inCallback := h.inCallback
	h.mu.Unlock()

	h.cancel()
	if !inCallback {
		<-h.done
	}
}

func (h *Handle) deliver(f func()) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.inCallback = true
	h.mu.Unlock()

	f()

	h.mu.Lock()
	h.inCallback = false
	closed := h.closed
	h.mu.Unlock()

	return !closed
}
