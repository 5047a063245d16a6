package model

import (
	"fmt"
	"time"
)

// ClientConfig is the configuration used to reach the backend on behalf of a user.
type ClientConfig struct {
	APIURL       string
	Token        string
	UserID       string
	EmailAddress string
	// StreamTransport is the status stream transport: "sse" or "poll".
	StreamTransport string
	StreamTimeout   time.Duration
	EmailLimit      int
	EmailFolder     string
}

// Validate validates the client configuration.
func (c ClientConfig) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api url is required: %w", ErrNotValid)
	}

	switch c.StreamTransport {
	case "", "sse", "poll":
	default:
		return fmt.Errorf("stream transport %q is invalid (must be sse or poll): %w", c.StreamTransport, ErrNotValid)
	}

	if c.StreamTimeout < 0 {
		return fmt.Errorf("stream timeout can't be negative: %w", ErrNotValid)
	}

	if c.EmailLimit < 0 || c.EmailLimit > 100 {
		return fmt.Errorf("email limit must be between 1 and 100: %w", ErrNotValid)
	}

	return nil
}
