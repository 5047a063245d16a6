package lib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gistapp/gist/internal/auth"
	"github.com/gistapp/gist/internal/backend"
	"github.com/gistapp/gist/internal/conventions"
	"github.com/gistapp/gist/internal/log"
	"github.com/gistapp/gist/internal/notify"
	"github.com/gistapp/gist/internal/reorder"
	"github.com/gistapp/gist/internal/statusstream"
	"github.com/gistapp/gist/internal/storage/sqlite"
	"github.com/gistapp/gist/internal/taskstore"
)

// StreamTransport is how the task generation status is followed.
type StreamTransport string

const (
	// StreamTransportSSE uses the backend server sent events stream.
	StreamTransportSSE StreamTransport = "sse"
	// StreamTransportPoll polls the backend onboarding check.
	StreamTransportPoll StreamTransport = "poll"
)

// Config configures the SDK client.
//
// Only the token (or the user ID) is required, the rest have sensible defaults.
type Config struct {
	// APIURL is the backend API base URL.
	// Default: http://localhost:8000/api.
	APIURL string

	// Token is the bearer token of the user.
	Token string

	// UserID is the user the client acts on behalf of.
	// Default: the subject of the token.
	UserID string

	// DataDir is the base directory for gist data.
	// Default: ~/.gist.
	DataDir string

	// DBPath is the SQLite database path.
	// Default: <DataDir>/gist.db.
	DBPath string

	// StreamTransport selects how the task generation is followed.
	// Default: [StreamTransportSSE].
	StreamTransport StreamTransport

	// StreamTimeout is the allowed silence of the task generation status.
	// Default: 2m.
	StreamTimeout time.Duration

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DataDir = filepath.Join(home, conventions.DefaultDataDir)
	}

	if c.DBPath == "" {
		c.DBPath = conventions.DBPath(c.DataDir)
	}

	if c.APIURL == "" {
		c.APIURL = conventions.DefaultAPIURL
	}

	switch c.StreamTransport {
	case "":
		c.StreamTransport = StreamTransportSSE
	case StreamTransportSSE, StreamTransportPoll:
	default:
		return fmt.Errorf("unknown stream transport %q: %w", c.StreamTransport, ErrNotValid)
	}

	if c.StreamTimeout == 0 {
		c.StreamTimeout = conventions.DefaultStreamTimeout
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	if c.UserID == "" {
		if c.Token == "" {
			return fmt.Errorf("token or user id is required: %w", ErrNotValid)
		}
		id, err := auth.IdentityFromToken(c.Token)
		if err != nil {
			return mapError(err)
		}
		c.UserID = id.UserID
	}

	return nil
}

// Client is the main SDK entry point.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	userID  string
	repo    *sqlite.Repository
	backend *backend.Client
	store   *taskstore.Store
	engine  *reorder.Engine
	status  *statusstream.Client
	logger  log.Logger
	closeFn func() error
}

// New creates a new SDK client backed by a SQLite database.
//
// The caller must call [Client.Close] when done to release the database
// connection.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	c, err := newClient(cfg, repo)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	return c, nil
}

func newClient(cfg Config, repo *sqlite.Repository) (*Client, error) {
	cli, err := backend.NewClient(backend.ClientConfig{
		BaseURL:   cfg.APIURL,
		Token:     cfg.Token,
		UserAgent: "gist-sdk",
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create backend client: %w", err)
	}

	store, err := taskstore.NewStore(taskstore.StoreConfig{
		Fetcher: cli,
		Cache:   repo,
		Logger:  cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create task store: %w", err)
	}

	engine, err := reorder.NewEngine(reorder.EngineConfig{
		Sender:   cli,
		Store:    store,
		Notifier: notify.NewLogNotifier(cfg.Logger),
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create reorder engine: %w", err)
	}

	var transport statusstream.Transport
	switch cfg.StreamTransport {
	case StreamTransportPoll:
		transport, err = statusstream.NewPollingTransport(statusstream.PollingTransportConfig{Checker: cli, Logger: cfg.Logger})
	default:
		transport, err = statusstream.NewSSETransport(statusstream.SSETransportConfig{Opener: cli, Logger: cfg.Logger})
	}
	if err != nil {
		return nil, fmt.Errorf("could not create status transport: %w", err)
	}

	status, err := statusstream.NewClient(statusstream.ClientConfig{
		Transport: transport,
		Checker:   cli,
		Timeout:   cfg.StreamTimeout,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create status client: %w", err)
	}

	return &Client{
		userID:  cfg.UserID,
		repo:    repo,
		backend: cli,
		store:   store,
		engine:  engine,
		status:  status,
		logger:  cfg.Logger,
		closeFn: repo.Close,
	}, nil
}

// UserID returns the user the client acts on behalf of.
func (c *Client) UserID() string { return c.userID }

// Close releases resources held by the client, including the database connection.
// After Close returns, the client must not be used.
func (c *Client) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

// Compile time checks of the backend capabilities the SDK relies on.
var (
	_ taskstore.TaskFetcher      = &backend.Client{}
	_ reorder.FeedbackSender     = &backend.Client{}
	_ statusstream.StatusChecker = &backend.Client{}
	_ statusstream.StreamOpener  = &backend.Client{}
)
