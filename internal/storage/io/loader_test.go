package io

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gistapp/gist/internal/model"
)

func TestConfigYAMLRepository_GetConfig(t *testing.T) {
	tests := map[string]struct {
		fs     fstest.MapFS
		path   string
		expCfg model.ClientConfig
		expErr bool
		errMsg string
	}{
		"Valid full config should load successfully": {
			fs: fstest.MapFS{
				"config.yaml": &fstest.MapFile{
					Data: []byte(`api_url: https://gist.example.com/api
token: tkn
user_id: u1
email: me@acme.com
stream:
  transport: poll
  timeout: 2m
onboarding:
  email_limit: 20
  email_folder: INBOX
`),
				},
			},
			path: "config.yaml",
			expCfg: model.ClientConfig{
				APIURL:          "https://gist.example.com/api",
				Token:           "tkn",
				UserID:          "u1",
				EmailAddress:    "me@acme.com",
				StreamTransport: "poll",
				StreamTimeout:   2 * time.Minute,
				EmailLimit:      20,
				EmailFolder:     "INBOX",
			},
		},

		"Empty config should load successfully": {
			fs: fstest.MapFS{
				"empty.yaml": &fstest.MapFile{Data: []byte("---\n")},
			},
			path:   "empty.yaml",
			expCfg: model.ClientConfig{},
		},

		"Missing file should return error": {
			fs:     fstest.MapFS{},
			path:   "nonexistent.yaml",
			expErr: true,
			errMsg: "reading config file",
		},

		"Invalid YAML should return error": {
			fs: fstest.MapFS{
				"invalid.yaml": &fstest.MapFile{Data: []byte(`invalid: yaml: content: {}`)},
			},
			path:   "invalid.yaml",
			expErr: true,
			errMsg: "parsing YAML",
		},

		"Invalid timeout should return error": {
			fs: fstest.MapFS{
				"config.yaml": &fstest.MapFile{Data: []byte("stream:\n  timeout: soon\n")},
			},
			path:   "config.yaml",
			expErr: true,
			errMsg: "stream timeout",
		},

		"Unknown transport should return error": {
			fs: fstest.MapFS{
				"config.yaml": &fstest.MapFile{Data: []byte("stream:\n  transport: websocket\n")},
			},
			path:   "config.yaml",
			expErr: true,
			errMsg: "invalid configuration",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			repo := NewConfigYAMLRepository(tc.fs)
			cfg, err := repo.GetConfig(context.Background(), tc.path)

			if tc.expErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expCfg, cfg)
		})
	}
}

func TestConfigYAMLRepository_GetConfig_MissingFile(t *testing.T) {
	repo := NewConfigYAMLRepository(fstest.MapFS{})
	_, err := repo.GetConfig(context.Background(), "config.yaml")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestConfigYAMLRepository_GetConfig_ContextCancellation(t *testing.T) {
	fs := fstest.MapFS{
		"config.yaml": &fstest.MapFile{Data: []byte("api_url: http://localhost:8000/api\n")},
	}

	repo := NewConfigYAMLRepository(fs)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.GetConfig(ctx, "config.yaml")
	require.Error(t, err)
	assert.Equal(t, context.Canceled, err)
}
