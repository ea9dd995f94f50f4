package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cfpicker.dev/cli/internal/application/ports"
	"cfpicker.dev/cli/internal/core/block"
)

// isolate points HOME at a temp dir and clears CFPICKER_* variables
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range configKeys {
		t.Setenv(EnvPrefix+"_"+strings.ToUpper(key), "")
		os.Unsetenv(EnvPrefix + "_" + strings.ToUpper(key))
	}
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestCompositeConfigRepository_Defaults(t *testing.T) {
	home := isolate(t)
	repo := NewCompositeConfigRepository("")

	assert.Equal(t, filepath.Join(home, ".config", "cfpicker", "config.json"), repo.GetConfigPath())

	cfg, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, repo.LoadDefault(), cfg)
	assert.Equal(t, block.KeyIdentifier, cfg.Block)
	assert.Equal(t, 30, cfg.RequestTimeout)
}

func TestCompositeConfigRepository_ConfigFileFromEnvironment(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "custom.json")
	t.Setenv("CFPICKER_CONFIG_FILE", path)

	assert.Equal(t, path, NewCompositeConfigRepository("").GetConfigPath())
	assert.Equal(t, "/explicit.json", NewCompositeConfigRepository("/explicit.json").GetConfigPath())
}

func TestCompositeConfigRepository_SourcePrecedence(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		env      map[string]string
		validate func(t *testing.T, cfg *ports.Configuration)
	}{
		{
			name:    "json_file_overrides_defaults",
			file:    "config.json",
			content: `{"config_url": "https://site.test/configs.json", "block": "product-carousel", "retry_attempts": 5}`,
			validate: func(t *testing.T, cfg *ports.Configuration) {
				assert.Equal(t, "https://site.test/configs.json", cfg.ConfigURL)
				assert.Equal(t, block.KeyProductCarousel, cfg.Block)
				assert.Equal(t, 5, cfg.RetryAttempts)
				assert.Equal(t, 30, cfg.RequestTimeout)
			},
		},
		{
			name:    "yaml_file",
			file:    "config.yaml",
			content: "config_url: https://site.test/configs.json\nprofile: stage\nfragment_field: teaser\n",
			validate: func(t *testing.T, cfg *ports.Configuration) {
				assert.Equal(t, "stage", cfg.Profile)
				assert.Equal(t, "teaser", cfg.FragmentField)
			},
		},
		{
			name:    "environment_overrides_file",
			file:    "config.json",
			content: `{"profile": "prod", "request_timeout": 10}`,
			env: map[string]string{
				"CFPICKER_PROFILE":         "stage",
				"CFPICKER_REQUEST_TIMEOUT": "45",
			},
			validate: func(t *testing.T, cfg *ports.Configuration) {
				assert.Equal(t, "stage", cfg.Profile)
				assert.Equal(t, 45, cfg.RequestTimeout)
			},
		},
		{
			name:    "debug_is_sticky",
			file:    "config.json",
			content: `{"debug": true}`,
			validate: func(t *testing.T, cfg *ports.Configuration) {
				assert.True(t, cfg.Debug)
			},
		},
		{
			name: "debug_from_environment",
			env:  map[string]string{"CFPICKER_DEBUG": "true"},
			validate: func(t *testing.T, cfg *ports.Configuration) {
				assert.True(t, cfg.Debug)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := isolate(t)
			path := filepath.Join(home, "missing.json")
			if tt.file != "" {
				path = filepath.Join(home, tt.file)
				writeFile(t, path, tt.content)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := NewCompositeConfigRepository(path).Load()
			require.NoError(t, err)
			tt.validate(t, cfg)
		})
	}
}

func TestCompositeConfigRepository_LoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		errMsg  string
	}{
		{
			name:    "malformed_file",
			content: `{"config_url": `,
			errMsg:  "failed to load file configuration",
		},
		{
			name:    "unknown_block",
			content: `{"block": "category-carousel"}`,
			errMsg:  "unknown block",
		},
		{
			name:    "bad_config_url",
			content: `{"config_url": "ftp://site.test/configs.json"}`,
			errMsg:  "unsupported URL scheme",
		},
		{
			name:    "bad_environment_number",
			content: `{}`,
			env:     map[string]string{"CFPICKER_RETRY_ATTEMPTS": "many"},
			errMsg:  "failed to load environment configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := isolate(t)
			path := filepath.Join(home, "config.json")
			writeFile(t, path, tt.content)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := NewCompositeConfigRepository(path).Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestCompositeConfigRepository_Cache(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "config.json")
	writeFile(t, path, `{"profile": "prod"}`)

	repo := NewCompositeConfigRepository(path)
	cfg, err := repo.Load()
	require.NoError(t, err)
	cfg.Profile = "mutated"

	writeFile(t, path, `{"profile": "stage"}`)
	cached, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, "prod", cached.Profile)

	repo.AddSource(NewFileConfigSource(path))
	fresh, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, "stage", fresh.Profile)
}

func TestCompositeConfigRepository_SaveBackupRestore(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "nested", "config.json")
	repo := NewCompositeConfigRepository(path)

	cfg := repo.LoadDefault()
	cfg.ConfigURL = "https://site.test/configs.json"
	cfg.Block = block.KeyProductTeaser
	require.NoError(t, repo.Save(cfg))

	loaded, err := NewCompositeConfigRepository(path).Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	require.NoError(t, repo.BackupConfig())

	cfg.Block = block.KeyProductCarousel
	require.NoError(t, repo.Save(cfg))
	require.NoError(t, repo.RestoreConfig())

	restored, err := NewCompositeConfigRepository(path).Load()
	require.NoError(t, err)
	assert.Equal(t, block.KeyProductTeaser, restored.Block)
}

func TestCompositeConfigRepository_SaveRejectsInvalid(t *testing.T) {
	isolate(t)
	repo := NewCompositeConfigRepository(filepath.Join(t.TempDir(), "config.json"))

	cfg := repo.LoadDefault()
	cfg.RetryAttempts = -1
	assert.Error(t, repo.Save(cfg))
	assert.Error(t, repo.Save(nil))
}

func TestCompositeConfigRepository_RestoreWithoutBackup(t *testing.T) {
	isolate(t)
	repo := NewCompositeConfigRepository(filepath.Join(t.TempDir(), "config.json"))

	assert.NoError(t, repo.BackupConfig())
	assert.EqualError(t, repo.RestoreConfig(), "no backup files found")
}
