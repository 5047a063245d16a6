package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gistapp/gist/internal/log"
	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/storage"
	"github.com/gistapp/gist/internal/storage/sqlite/migrations"
)

var _ storage.Repository = &Repository{}

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
	// Now is used to set the update timestamps, defaults to time.Now.
	Now func() time.Time
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})

	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}

// Repository is a SQLite implementation of storage.Repository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
	now    func() time.Time
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger, now: cfg.Now}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// GetTaskCache retrieves the task cache of a user.
func (r *Repository) GetTaskCache(ctx context.Context, userID string) (*model.TaskCache, error) {
	var (
		tasksJSON string
		expiresAt int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT tasks_json, expires_at FROM task_caches WHERE user_id = ?`, userID).Scan(&tasksJSON, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task cache for user %s: %w", userID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query task cache: %w", err)
	}

	tasks, err := decodeTasks([]byte(tasksJSON))
	if err != nil {
		return nil, fmt.Errorf("could not decode task cache: %w", err)
	}

	return &model.TaskCache{
		UserID:    userID,
		Tasks:     tasks,
		ExpiresAt: time.UnixMilli(expiresAt).UTC(),
	}, nil
}

// SaveTaskCache creates or replaces the task cache of a user.
func (r *Repository) SaveTaskCache(ctx context.Context, c model.TaskCache) error {
	if c.UserID == "" {
		return fmt.Errorf("user id is required: %w", model.ErrNotValid)
	}

	data, err := encodeTasks(c.Tasks)
	if err != nil {
		return fmt.Errorf("could not encode tasks: %w", err)
	}

	query := `
		INSERT INTO task_caches (user_id, tasks_json, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			tasks_json = excluded.tasks_json,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query, c.UserID, string(data), c.ExpiresAt.UnixMilli(), r.now().Unix())
	if err != nil {
		return fmt.Errorf("could not save task cache: %w", err)
	}

	r.logger.Debugf("Saved task cache in repository: %s", c.UserID)
	return nil
}

// DeleteTaskCache deletes the task cache of a user.
func (r *Repository) DeleteTaskCache(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM task_caches WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("could not delete task cache: %w", err)
	}

	r.logger.Debugf("Deleted task cache from repository: %s", userID)
	return nil
}

// GetOnboardingSession retrieves the onboarding session of a user.
func (r *Repository) GetOnboardingSession(ctx context.Context, userID string) (*model.OnboardingSession, error) {
	var (
		stateJSON string
		updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT state_json, updated_at FROM onboarding_sessions WHERE user_id = ?`, userID).Scan(&stateJSON, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("onboarding session for user %s: %w", userID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query onboarding session: %w", err)
	}

	s, err := decodeSession([]byte(stateJSON))
	if err != nil {
		return nil, fmt.Errorf("could not decode onboarding session: %w", err)
	}
	s.UserID = userID
	s.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return &s, nil
}

// SaveOnboardingSession creates or replaces the onboarding session of a user.
func (r *Repository) SaveOnboardingSession(ctx context.Context, s model.OnboardingSession) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid onboarding session: %w", err)
	}

	data, err := encodeSession(s)
	if err != nil {
		return fmt.Errorf("could not encode onboarding session: %w", err)
	}

	query := `
		INSERT INTO onboarding_sessions (user_id, state_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			state_json = excluded.state_json,
			updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query, s.UserID, string(data), r.now().Unix())
	if err != nil {
		return fmt.Errorf("could not save onboarding session: %w", err)
	}

	r.logger.Debugf("Saved onboarding session in repository: %s (%s)", s.UserID, s.Step)
	return nil
}

// DeleteOnboardingSession deletes the onboarding session of a user.
func (r *Repository) DeleteOnboardingSession(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM onboarding_sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("could not delete onboarding session: %w", err)
	}

	r.logger.Debugf("Deleted onboarding session from repository: %s", userID)
	return nil
}
