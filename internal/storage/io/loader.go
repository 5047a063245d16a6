package io

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gistapp/gist/internal/model"
)

// ConfigYAMLRepository loads the client configuration from YAML files.
type ConfigYAMLRepository struct {
	fs fs.FS
}

// NewConfigYAMLRepository creates a new YAML config repository.
func NewConfigYAMLRepository(filesystem fs.FS) *ConfigYAMLRepository {
	return &ConfigYAMLRepository{fs: filesystem}
}

// GetConfig loads a client configuration from a YAML file and returns a validated domain model.
// Missing files are returned as errors wrapping fs.ErrNotExist.
func (r *ConfigYAMLRepository) GetConfig(ctx context.Context, path string) (model.ClientConfig, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.ClientConfig{}, fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return model.ClientConfig{}, ctx.Err()
	}

	var cfg ClientConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return model.ClientConfig{}, fmt.Errorf("parsing YAML: %w", err)
	}

	mcfg, err := cfg.toModel()
	if err != nil {
		return model.ClientConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return mcfg, nil
}

// ClientConfig represents the YAML structure of the client configuration.
type ClientConfig struct {
	APIURL     string           `yaml:"api_url"`
	Token      string           `yaml:"token"`
	UserID     string           `yaml:"user_id"`
	Email      string           `yaml:"email"`
	Stream     StreamConfig     `yaml:"stream"`
	Onboarding OnboardingConfig `yaml:"onboarding"`
}

// StreamConfig represents the YAML structure of the status stream configuration.
type StreamConfig struct {
	Transport string `yaml:"transport"`
	Timeout   string `yaml:"timeout"`
}

// OnboardingConfig represents the YAML structure of the onboarding configuration.
type OnboardingConfig struct {
	EmailLimit  int    `yaml:"email_limit"`
	EmailFolder string `yaml:"email_folder"`
}

func (c ClientConfig) toModel() (model.ClientConfig, error) {
	var timeout time.Duration
	if c.Stream.Timeout != "" {
		d, err := time.ParseDuration(c.Stream.Timeout)
		if err != nil {
			return model.ClientConfig{}, fmt.Errorf("stream timeout: %w", err)
		}
		timeout = d
	}

	cfg := model.ClientConfig{
		APIURL:          c.APIURL,
		Token:           c.Token,
		UserID:          c.UserID,
		EmailAddress:    c.Email,
		StreamTransport: c.Stream.Transport,
		StreamTimeout:   timeout,
		EmailLimit:      c.Onboarding.EmailLimit,
		EmailFolder:     c.Onboarding.EmailFolder,
	}

	// The API URL can come from flags, the rest of the validation still applies.
	check := cfg
	if check.APIURL == "" {
		check.APIURL = "unset"
	}
	if err := check.Validate(); err != nil {
		return model.ClientConfig{}, err
	}

	return cfg, nil
}
