package conventions

import (
	"path/filepath"
	"time"
)

const (
	// DefaultDataDir is the default gist data directory name (relative to home).
	DefaultDataDir = ".gist"
	// DBFile is the SQLite database filename inside the data directory.
	DBFile = "gist.db"
	// ConfigFile is the YAML configuration filename inside the data directory.
	ConfigFile = "config.yaml"

	// DefaultAPIURL is the backend base URL used when none is configured.
	DefaultAPIURL = "http://localhost:8000/api"

	// TaskCacheTTL is how long a fetched task list is served from the local cache.
	TaskCacheTTL = 60 * time.Second

	// DefaultStreamTimeout is the status stream silence timeout.
	DefaultStreamTimeout = 120 * time.Second
	// DefaultStreamMaxRetries is the number of status stream reconnections before falling back to a status check.
	DefaultStreamMaxRetries = 3
	// DefaultStreamRetryBackoff is the wait between status stream reconnections.
	DefaultStreamRetryBackoff = 3 * time.Second
	// DefaultPollInterval is the interval of the polling status transport.
	DefaultPollInterval = 2 * time.Second

	// DefaultEmailLimit is the number of emails fetched for onboarding rating.
	DefaultEmailLimit = 10

	// DragActivationDistance is the pointer distance a press has to travel to start a drag.
	DragActivationDistance = 8
)

// DBPath returns the path of the SQLite database inside a data directory.
func DBPath(dataDir string) string { return filepath.Join(dataDir, DBFile) }

// ConfigPath returns the path of the configuration file inside a data directory.
func ConfigPath(dataDir string) string { return filepath.Join(dataDir, ConfigFile) }
