package statusstream

import (
	"context"
	"fmt"
	"time"

	"github.com/gistapp/gist/internal/conventions"
	"github.com/gistapp/gist/internal/log"
	"github.com/gistapp/gist/internal/model"
)

// PollingTransportConfig is the configuration of the polling transport.
type PollingTransportConfig struct {
	Checker  StatusChecker
	Interval time.Duration
	Logger   log.Logger
}

func (c *PollingTransportConfig) defaults() error {
	if c.Checker == nil {
		return fmt.Errorf("status checker is required")
	}

	if c.Interval <= 0 {
		c.Interval = conventions.DefaultPollInterval
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "statusstream.PollingTransport"})

	return nil
}

// PollingTransport emulates the status stream by checking the job periodically,
// for environments where long lived connections are cut.
type PollingTransport struct {
	checker  StatusChecker
	interval time.Duration
	logger   log.Logger
}

var _ Transport = &PollingTransport{}

// NewPollingTransport returns a new polling transport.
func NewPollingTransport(cfg PollingTransportConfig) (*PollingTransport, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &PollingTransport{checker: cfg.Checker, interval: cfg.Interval, logger: cfg.Logger}, nil
}

func (t *PollingTransport) Stream(ctx context.Context, events chan<- model.StatusEvent) error {
	send := func(kind model.StatusKind) error {
		select {
		case events <- model.StatusEvent{Kind: kind, Timestamp: time.Now().UTC()}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := send(model.StatusKindConnected); err != nil {
		return err
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		status, err := t.checker.CheckOnboarding(ctx)
		if err != nil {
			return fmt.Errorf("checking job status: %w", err)
		}

		if status.Completed(true) {
			return send(model.StatusKindCompleted)
		}

		if err := send(model.StatusKindProcessing); err != nil {
			return err
		}
	}
}
