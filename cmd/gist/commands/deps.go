package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gistapp/gist/internal/auth"
	"github.com/gistapp/gist/internal/backend"
	"github.com/gistapp/gist/internal/conventions"
	"github.com/gistapp/gist/internal/log"
	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/notify"
	"github.com/gistapp/gist/internal/printer"
	"github.com/gistapp/gist/internal/reorder"
	"github.com/gistapp/gist/internal/statusstream"
	"github.com/gistapp/gist/internal/storage/io"
	"github.com/gistapp/gist/internal/storage/sqlite"
	"github.com/gistapp/gist/internal/taskstore"
)

// userContext is the resolved configuration and identity every command works with.
type userContext struct {
	Config       model.ClientConfig
	UserID       string
	EmailAddress string
}

// loadConfig loads the configuration file (if any) and applies the flags on top.
func (r RootCommand) loadConfig(ctx context.Context) (model.ClientConfig, error) {
	path := r.ConfigPath
	explicit := path != ""
	if !explicit {
		path = conventions.ConfigPath(r.DataDir)
	}

	repo := io.NewConfigYAMLRepository(os.DirFS(filepath.Dir(path)))
	fileCfg, err := repo.GetConfig(ctx, filepath.Base(path))
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return model.ClientConfig{}, fmt.Errorf("could not load config %s: %w", path, err)
		}
		r.Logger.Debugf("No config file at %s", path)
	}

	cfg := mergeConfig(fileCfg, r)
	if err := cfg.Validate(); err != nil {
		return model.ClientConfig{}, err
	}

	return cfg, nil
}

// mergeConfig sets the flag values over the file ones, flags win.
func mergeConfig(cfg model.ClientConfig, r RootCommand) model.ClientConfig {
	if r.APIURL != "" {
		cfg.APIURL = r.APIURL
	}
	if r.Token != "" {
		cfg.Token = r.Token
	}
	if r.UserID != "" {
		cfg.UserID = r.UserID
	}
	if r.Email != "" {
		cfg.EmailAddress = r.Email
	}
	if r.StreamTransport != "" {
		cfg.StreamTransport = r.StreamTransport
	}

	if cfg.APIURL == "" {
		cfg.APIURL = conventions.DefaultAPIURL
	}
	if cfg.StreamTransport == "" {
		cfg.StreamTransport = "sse"
	}
	if cfg.StreamTimeout == 0 {
		cfg.StreamTimeout = conventions.DefaultStreamTimeout
	}
	if cfg.EmailLimit == 0 {
		cfg.EmailLimit = conventions.DefaultEmailLimit
	}

	return cfg
}

// resolveUser returns the user the commands act on behalf of.
func resolveUser(cfg model.ClientConfig, now time.Time, logger log.Logger) (*userContext, error) {
	uc := &userContext{Config: cfg, UserID: cfg.UserID, EmailAddress: cfg.EmailAddress}

	if cfg.Token != "" {
		id, err := auth.IdentityFromToken(cfg.Token)
		if err != nil {
			return nil, fmt.Errorf("invalid token: %w", err)
		}
		if id.Expired(now) {
			logger.Warningf("The token expired at %s, the backend will reject the requests", printer.FormatTimestamp(*id.ExpiresAt))
		}
		if uc.UserID == "" {
			uc.UserID = id.UserID
		}
		if uc.EmailAddress == "" {
			uc.EmailAddress = id.EmailAddress
		}
	}

	if uc.UserID == "" {
		return nil, fmt.Errorf("unknown user, set a token or a user id: %w", model.ErrNotValid)
	}

	return uc, nil
}

func (r RootCommand) user(ctx context.Context) (*userContext, error) {
	cfg, err := r.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return resolveUser(cfg, time.Now(), r.Logger)
}

func (r RootCommand) repository(ctx context.Context) (*sqlite.Repository, error) {
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: conventions.DBPath(r.DataDir),
		Logger: r.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}
	return repo, nil
}

func (r RootCommand) backendClient(uc *userContext) (*backend.Client, error) {
	cli, err := backend.NewClient(backend.ClientConfig{
		BaseURL: uc.Config.APIURL,
		Token:   uc.Config.Token,
		Logger:  r.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create backend client: %w", err)
	}
	return cli, nil
}

func (r RootCommand) taskStore(repo *sqlite.Repository, cli *backend.Client) (*taskstore.Store, error) {
	store, err := taskstore.NewStore(taskstore.StoreConfig{
		Fetcher: cli,
		Cache:   repo,
		Logger:  r.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create task store: %w", err)
	}
	return store, nil
}

func (r RootCommand) reorderEngine(store *taskstore.Store, cli *backend.Client, notifier notify.Notifier) (*reorder.Engine, error) {
	engine, err := reorder.NewEngine(reorder.EngineConfig{
		Sender:   cli,
		Store:    store,
		Notifier: notify.Multi(notify.NewLogNotifier(r.Logger), notifier),
		Logger:   r.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create reorder engine: %w", err)
	}
	return engine, nil
}

func (r RootCommand) statusClient(uc *userContext, cli *backend.Client) (*statusstream.Client, error) {
	var (
		transport statusstream.Transport
		err       error
	)
	switch uc.Config.StreamTransport {
	case "poll":
		transport, err = statusstream.NewPollingTransport(statusstream.PollingTransportConfig{
			Checker: cli,
			Logger:  r.Logger,
		})
	default:
		transport, err = statusstream.NewSSETransport(statusstream.SSETransportConfig{
			Opener: cli,
			Logger: r.Logger,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("could not create status transport: %w", err)
	}

	sc, err := statusstream.NewClient(statusstream.ClientConfig{
		Transport: transport,
		Checker:   cli,
		Timeout:   uc.Config.StreamTimeout,
		Logger:    r.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create status client: %w", err)
	}
	return sc, nil
}

func (r RootCommand) newPrinter(format string) printer.Printer {
	if format == formatJSON {
		return printer.NewJSONPrinter(r.Stdout)
	}
	return printer.NewTablePrinter(r.Stdout)
}
