package taskstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gistapp/gist/internal/conventions"
	"github.com/gistapp/gist/internal/log"
	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/storage"
)

// TaskFetcher knows how to fetch the tasks of a user from the backend.
type TaskFetcher interface {
	ListUserTasks(ctx context.Context, userID string) ([]model.Task, error)
}

// LoadStatus is the outcome of a load.
type LoadStatus string

const (
	// LoadStatusCache means the tasks were installed from the local cache.
	LoadStatusCache LoadStatus = "cache"
	// LoadStatusFetched means the tasks were fetched from the backend.
	LoadStatusFetched LoadStatus = "fetched"
	// LoadStatusFailed means the fetch failed and the collection was left untouched.
	LoadStatusFailed LoadStatus = "failed"
	// LoadStatusSuperseded means a newer load started while fetching and the result was discarded.
	LoadStatusSuperseded LoadStatus = "superseded"
)

// StoreConfig is the configuration of the task store.
type StoreConfig struct {
	Fetcher  TaskFetcher
	Cache    storage.TaskCacheRepository
	CacheTTL time.Duration
	Logger   log.Logger
	Now      func() time.Time
}

func (c *StoreConfig) defaults() error {
	if c.Fetcher == nil {
		return fmt.Errorf("fetcher is required")
	}

	if c.Cache == nil {
		return fmt.Errorf("cache repository is required")
	}

	if c.CacheTTL == 0 {
		c.CacheTTL = conventions.TaskCacheTTL
	}

	if c.Now == nil {
		c.Now = time.Now
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "taskstore.Store"})

	return nil
}

// Store holds the ordered task collection of the current user, backed by a
// per user cache that expires after the configured TTL.
type Store struct {
	fetcher  TaskFetcher
	cache    storage.TaskCacheRepository
	cacheTTL time.Duration
	logger   log.Logger
	now      func() time.Time

	mu     sync.Mutex
	userID string
	tasks  []model.Task
	// gen is incremented on every load start, a fetch only installs if no newer load started.
	gen uint64
}

// NewStore returns a new task store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Store{
		fetcher:  cfg.Fetcher,
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}, nil
}

// Load installs the tasks of a user, from the cache if it's fresh and forceRefresh
// is not set, from the backend otherwise. Load failures are not fatal, the collection
// is left as it was.
func (s *Store) Load(ctx context.Context, userID string, forceRefresh bool) LoadStatus {
	logger := s.logger.WithValues(log.Kv{"user-id": userID})

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	if !forceRefresh {
		tasks, ok := s.cachedTasks(ctx, logger, userID)
		if ok {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.gen != gen {
				return LoadStatusSuperseded
			}
			s.userID = userID
			s.tasks = tasks
			logger.Debugf("Loaded %d tasks from cache", len(tasks))
			return LoadStatusCache
		}
	}

	tasks, err := s.fetcher.ListUserTasks(ctx, userID)
	if err != nil {
		logger.Warningf("Could not fetch tasks: %s", err)
		return LoadStatusFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		logger.Debugf("Discarding tasks fetch, a newer load started")
		return LoadStatusSuperseded
	}

	s.userID = userID
	s.tasks = model.CopyTasks(tasks)
	s.persist(ctx)
	logger.Debugf("Fetched %d tasks", len(tasks))

	return LoadStatusFetched
}

func (s *Store) cachedTasks(ctx context.Context, logger log.Logger, userID string) ([]model.Task, bool) {
	c, err := s.cache.GetTaskCache(ctx, userID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			logger.Warningf("Could not read task cache: %s", err)
		}
		return nil, false
	}

	if c.Expired(s.now()) {
		logger.Debugf("Task cache expired at %s", c.ExpiresAt)
		if err := s.cache.DeleteTaskCache(ctx, userID); err != nil {
			logger.Warningf("Could not delete expired task cache: %s", err)
		}
		return nil, false
	}

	return c.Tasks, true
}

// Replace replaces the whole collection.
func (s *Store) Replace(ctx context.Context, tasks []model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = model.CopyTasks(tasks)
	s.persist(ctx)
}

// Add appends a task to the collection, replacing it in place if the ID is already present.
func (s *Store) Add(ctx context.Context, task model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task = model.CopyTasks([]model.Task{task})[0]
	for i, t := range s.tasks {
		if t.ID == task.ID {
			s.tasks[i] = task
			s.persist(ctx)
			return
		}
	}

	s.tasks = append(s.tasks, task)
	s.persist(ctx)
}

// Remove removes a task from the collection.
func (s *Store) Remove(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.tasks {
		if t.ID == taskID {
			s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
			s.persist(ctx)
			return nil
		}
	}

	return fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
}

// ApplyOrder reorders the collection so the listed IDs come first in the given
// order and the rest keep their previous relative order. Unknown IDs are ignored.
func (s *Store) ApplyOrder(ctx context.Context, ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = applyOrder(s.tasks, ids)
	s.persist(ctx)
}

func applyOrder(tasks []model.Task, ids []string) []model.Task {
	byID := make(map[string]int, len(tasks))
	for i, t := range tasks {
		byID[t.ID] = i
	}

	placed := make(map[int]bool, len(ids))
	res := make([]model.Task, 0, len(tasks))
	for _, id := range ids {
		i, ok := byID[id]
		if !ok || placed[i] {
			continue
		}
		placed[i] = true
		res = append(res, tasks[i])
	}

	for i, t := range tasks {
		if !placed[i] {
			res = append(res, t)
		}
	}

	return res
}

// PatchScores updates the scores of a task without changing the order.
func (s *Store) PatchScores(ctx context.Context, taskID string, scores model.Scores) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.tasks {
		if t.ID != taskID {
			continue
		}
		s.tasks[i] = scores.Apply(t)
		s.persist(ctx)
		return nil
	}

	return fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
}

// Tasks returns a copy of the current collection.
func (s *Store) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	return model.CopyTasks(s.tasks)
}

// UserID returns the user of the current collection.
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.userID
}

// persist must be called with the lock held. Cache failures are only logged.
func (s *Store) persist(ctx context.Context) {
	if s.userID == "" {
		return
	}

	err := s.cache.SaveTaskCache(ctx, model.TaskCache{
		UserID:    s.userID,
		Tasks:     model.CopyTasks(s.tasks),
		ExpiresAt: s.now().Add(s.cacheTTL),
	})
	if err != nil {
		s.logger.Warningf("Could not save task cache: %s", err)
	}
}
