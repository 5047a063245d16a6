package taskstore_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gistapp/gist/internal/log"
	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/storage/memory"
	"github.com/gistapp/gist/internal/storage/storagemock"
	"github.com/gistapp/gist/internal/taskstore"
)

func f64(f float64) *float64 { return &f }

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fetcherFunc func(ctx context.Context, userID string) ([]model.Task, error)

func (f fetcherFunc) ListUserTasks(ctx context.Context, userID string) ([]model.Task, error) {
	return f(ctx, userID)
}

func staticFetcher(calls *int, tasks []model.Task, err error) fetcherFunc {
	return func(ctx context.Context, userID string) ([]model.Task, error) {
		*calls++
		return tasks, err
	}
}

func tasksByID(ids ...string) []model.Task {
	res := make([]model.Task, 0, len(ids))
	for _, id := range ids {
		res = append(res, model.Task{ID: id})
	}
	return res
}

func ids(tasks []model.Task) []string {
	res := make([]string, 0, len(tasks))
	for _, t := range tasks {
		res = append(res, t.ID)
	}
	return res
}

func newMemoryCache(t *testing.T) *memory.Repository {
	t.Helper()
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)
	return repo
}

func TestNewStore(t *testing.T) {
	tests := map[string]struct {
		config taskstore.StoreConfig
		expErr bool
	}{
		"valid config should create the store": {
			config: taskstore.StoreConfig{
				Fetcher: fetcherFunc(nil),
				Cache:   &storagemock.MockRepository{},
			},
		},

		"missing fetcher should fail": {
			config: taskstore.StoreConfig{Cache: &storagemock.MockRepository{}},
			expErr: true,
		},

		"missing cache should fail": {
			config: taskstore.StoreConfig{Fetcher: fetcherFunc(nil)},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			s, err := taskstore.NewStore(test.config)
			if test.expErr {
				require.Error(err)
				require.Nil(s)
			} else {
				require.NoError(err)
				require.NotNil(s)
			}
		})
	}
}

func TestStoreLoad(t *testing.T) {
	tests := map[string]struct {
		cache        *model.TaskCache
		fetchTasks   []model.Task
		fetchErr     error
		forceRefresh bool
		expStatus    taskstore.LoadStatus
		expFetches   int
		expTasks     []string
		expCache     *model.TaskCache
	}{
		"without cache the tasks should be fetched and cached": {
			fetchTasks: tasksByID("a", "b"),
			expStatus:  taskstore.LoadStatusFetched,
			expFetches: 1,
			expTasks:   []string{"a", "b"},
			expCache:   &model.TaskCache{UserID: "u1", Tasks: tasksByID("a", "b"), ExpiresAt: now.Add(60 * time.Second)},
		},

		"a fresh cache should be used without fetching": {
			cache:      &model.TaskCache{UserID: "u1", Tasks: tasksByID("c"), ExpiresAt: now.Add(time.Second)},
			fetchTasks: tasksByID("a", "b"),
			expStatus:  taskstore.LoadStatusCache,
			expFetches: 0,
			expTasks:   []string{"c"},
			expCache:   &model.TaskCache{UserID: "u1", Tasks: tasksByID("c"), ExpiresAt: now.Add(time.Second)},
		},

		"an expired cache should be deleted and the tasks fetched": {
			cache:      &model.TaskCache{UserID: "u1", Tasks: tasksByID("c"), ExpiresAt: now},
			fetchTasks: tasksByID("a"),
			expStatus:  taskstore.LoadStatusFetched,
			expFetches: 1,
			expTasks:   []string{"a"},
			expCache:   &model.TaskCache{UserID: "u1", Tasks: tasksByID("a"), ExpiresAt: now.Add(60 * time.Second)},
		},

		"forcing the refresh should ignore a fresh cache": {
			cache:        &model.TaskCache{UserID: "u1", Tasks: tasksByID("c"), ExpiresAt: now.Add(time.Minute)},
			fetchTasks:   tasksByID("a"),
			forceRefresh: true,
			expStatus:    taskstore.LoadStatusFetched,
			expFetches:   1,
			expTasks:     []string{"a"},
			expCache:     &model.TaskCache{UserID: "u1", Tasks: tasksByID("a"), ExpiresAt: now.Add(60 * time.Second)},
		},

		"a failed fetch should leave the collection and cache untouched": {
			fetchErr:   fmt.Errorf("connection refused"),
			expStatus:  taskstore.LoadStatusFailed,
			expFetches: 1,
			expTasks:   []string{},
		},

		"an expired cache with a failed fetch should end without cache": {
			cache:      &model.TaskCache{UserID: "u1", Tasks: tasksByID("c"), ExpiresAt: now.Add(-time.Second)},
			fetchErr:   fmt.Errorf("connection refused"),
			expStatus:  taskstore.LoadStatusFailed,
			expFetches: 1,
			expTasks:   []string{},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			assert := assert.New(t)
			ctx := context.Background()

			cache := newMemoryCache(t)
			if test.cache != nil {
				require.NoError(cache.SaveTaskCache(ctx, *test.cache))
			}

			fetches := 0
			s, err := taskstore.NewStore(taskstore.StoreConfig{
				Fetcher: staticFetcher(&fetches, test.fetchTasks, test.fetchErr),
				Cache:   cache,
				Logger:  log.Noop,
				Now:     func() time.Time { return now },
			})
			require.NoError(err)

			status := s.Load(ctx, "u1", test.forceRefresh)

			assert.Equal(test.expStatus, status)
			assert.Equal(test.expFetches, fetches)
			assert.Equal(test.expTasks, ids(s.Tasks()))

			gotCache, err := cache.GetTaskCache(ctx, "u1")
			if test.expCache == nil {
				assert.True(errors.Is(err, model.ErrNotFound))
			} else {
				require.NoError(err)
				assert.Equal(test.expCache, gotCache)
			}
		})
	}
}

func TestStoreLoadCacheExpiresAfterTTL(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	clock := now
	fetches := 0
	s, err := taskstore.NewStore(taskstore.StoreConfig{
		Fetcher: staticFetcher(&fetches, tasksByID("a"), nil),
		Cache:   newMemoryCache(t),
		Now:     func() time.Time { return clock },
	})
	require.NoError(err)

	require.Equal(taskstore.LoadStatusFetched, s.Load(ctx, "u1", false))

	clock = now.Add(59 * time.Second)
	require.Equal(taskstore.LoadStatusCache, s.Load(ctx, "u1", false))

	clock = now.Add(60 * time.Second)
	require.Equal(taskstore.LoadStatusFetched, s.Load(ctx, "u1", false))
	require.Equal(2, fetches)
}

func TestStoreLoadDiscardsStaleFetch(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})
	var calls int
	var mu sync.Mutex

	fetcher := fetcherFunc(func(ctx context.Context, userID string) ([]model.Task, error) {
		mu.Lock()
		calls++
		call := calls
		mu.Unlock()

		if call == 1 {
			close(started)
			<-release
			return tasksByID("old"), nil
		}
		return tasksByID("new"), nil
	})

	s, err := taskstore.NewStore(taskstore.StoreConfig{
		Fetcher: fetcher,
		Cache:   newMemoryCache(t),
		Now:     func() time.Time { return now },
	})
	require.NoError(err)

	firstStatus := make(chan taskstore.LoadStatus)
	go func() { firstStatus <- s.Load(ctx, "u1", true) }()

	<-started
	require.Equal(taskstore.LoadStatusFetched, s.Load(ctx, "u1", true))
	close(release)

	require.Equal(taskstore.LoadStatusSuperseded, <-firstStatus)
	require.Equal([]string{"new"}, ids(s.Tasks()))
}

func TestStoreApplyOrder(t *testing.T) {
	tests := map[string]struct {
		tasks    []string
		order    []string
		expOrder []string
	}{
		"a full order should be applied as is": {
			tasks:    []string{"a", "b", "c"},
			order:    []string{"c", "a", "b"},
			expOrder: []string{"c", "a", "b"},
		},

		"a partial order should keep the rest in their previous relative order": {
			tasks:    []string{"a", "b", "c", "d", "e"},
			order:    []string{"d", "b"},
			expOrder: []string{"d", "b", "a", "c", "e"},
		},

		"unknown ids should be ignored": {
			tasks:    []string{"a", "b", "c"},
			order:    []string{"x", "c", "y"},
			expOrder: []string{"c", "a", "b"},
		},

		"duplicated ids should only be placed once": {
			tasks:    []string{"a", "b", "c"},
			order:    []string{"b", "b", "a"},
			expOrder: []string{"b", "a", "c"},
		},

		"an empty order should keep the collection": {
			tasks:    []string{"a", "b"},
			order:    nil,
			expOrder: []string{"a", "b"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			ctx := context.Background()

			cache := newMemoryCache(t)
			fetches := 0
			s, err := taskstore.NewStore(taskstore.StoreConfig{
				Fetcher: staticFetcher(&fetches, tasksByID(test.tasks...), nil),
				Cache:   cache,
				Now:     func() time.Time { return now },
			})
			require.NoError(err)
			require.Equal(taskstore.LoadStatusFetched, s.Load(ctx, "u1", false))

			s.ApplyOrder(ctx, test.order)

			assert.Equal(t, test.expOrder, ids(s.Tasks()))

			// The cache follows the collection.
			c, err := cache.GetTaskCache(ctx, "u1")
			require.NoError(err)
			assert.Equal(t, test.expOrder, ids(c.Tasks))
		})
	}
}

func TestStorePatchScores(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	clock := now
	cache := newMemoryCache(t)
	fetches := 0
	s, err := taskstore.NewStore(taskstore.StoreConfig{
		Fetcher: staticFetcher(&fetches, []model.Task{{ID: "a", RelevanceScore: f64(1)}, {ID: "b", RelevanceScore: f64(5), CostScore: f64(2)}}, nil),
		Cache:   cache,
		Now:     func() time.Time { return clock },
	})
	require.NoError(err)
	s.Load(ctx, "u1", false)

	clock = now.Add(30 * time.Second)
	require.NoError(s.PatchScores(ctx, "a", model.Scores{Relevance: f64(9), Utility: f64(3)}))

	tasks := s.Tasks()
	assert.Equal([]string{"a", "b"}, ids(tasks))
	assert.Equal(model.Task{ID: "a", RelevanceScore: f64(9), UtilityScore: f64(3)}, tasks[0])

	c, err := cache.GetTaskCache(ctx, "u1")
	require.NoError(err)
	assert.Equal(tasks, c.Tasks)
	assert.Equal(clock.Add(60*time.Second), c.ExpiresAt)

	err = s.PatchScores(ctx, "missing", model.Scores{Relevance: f64(1)})
	assert.True(errors.Is(err, model.ErrNotFound))
}

func TestStoreCacheFailuresAreNotFatal(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	m := &storagemock.MockRepository{}
	m.On("GetTaskCache", mock.Anything, "u1").Once().Return(nil, fmt.Errorf("disk I/O error"))
	m.On("SaveTaskCache", mock.Anything, mock.Anything).Return(fmt.Errorf("disk I/O error"))

	fetches := 0
	s, err := taskstore.NewStore(taskstore.StoreConfig{
		Fetcher: staticFetcher(&fetches, tasksByID("a", "b"), nil),
		Cache:   m,
		Now:     func() time.Time { return now },
	})
	require.NoError(err)

	require.Equal(taskstore.LoadStatusFetched, s.Load(ctx, "u1", false))
	s.ApplyOrder(ctx, []string{"b"})
	require.Equal([]string{"b", "a"}, ids(s.Tasks()))
	require.Equal("u1", s.UserID())

	m.AssertExpectations(t)
}

func TestStoreReplace(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	cache := newMemoryCache(t)
	fetches := 0
	s, err := taskstore.NewStore(taskstore.StoreConfig{
		Fetcher: staticFetcher(&fetches, tasksByID("a"), nil),
		Cache:   cache,
		Now:     func() time.Time { return now },
	})
	require.NoError(err)

	// Without a loaded user the collection is not cached.
	s.Replace(ctx, tasksByID("x"))
	require.Equal([]string{"x"}, ids(s.Tasks()))

	s.Load(ctx, "u1", false)
	s.Replace(ctx, tasksByID("y", "z"))

	c, err := cache.GetTaskCache(ctx, "u1")
	require.NoError(err)
	require.Equal([]string{"y", "z"}, ids(c.Tasks))
}

func TestStoreAddRemove(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	cache := newMemoryCache(t)
	fetches := 0
	s, err := taskstore.NewStore(taskstore.StoreConfig{
		Fetcher: staticFetcher(&fetches, tasksByID("a", "b"), nil),
		Cache:   cache,
		Now:     func() time.Time { return now },
	})
	require.NoError(err)
	s.Load(ctx, "u1", false)

	s.Add(ctx, model.Task{ID: "c"})
	s.Add(ctx, model.Task{ID: "a", Text: "updated"})
	require.Equal([]string{"a", "b", "c"}, ids(s.Tasks()))
	require.Equal("updated", s.Tasks()[0].Text)

	require.NoError(s.Remove(ctx, "b"))
	require.True(errors.Is(s.Remove(ctx, "b"), model.ErrNotFound))
	require.Equal([]string{"a", "c"}, ids(s.Tasks()))

	c, err := cache.GetTaskCache(ctx, "u1")
	require.NoError(err)
	require.Equal([]string{"a", "c"}, ids(c.Tasks))
}
