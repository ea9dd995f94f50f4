package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cfpicker.dev/cli/internal/application/commands"
	"cfpicker.dev/cli/internal/application/ports"
	"cfpicker.dev/cli/internal/infrastructure/logging"
)

// memRepo is an in-memory ConfigurationRepository
type memRepo struct {
	path     string
	saved    *ports.Configuration
	backups  int
	loadErr  error
	validate func(*ports.Configuration) error
}

func (r *memRepo) Load() (*ports.Configuration, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	if r.saved != nil {
		return r.saved, nil
	}
	return r.LoadDefault(), nil
}

func (r *memRepo) Save(config *ports.Configuration) error {
	r.saved = config
	return os.WriteFile(r.path, []byte("{}"), 0600)
}

func (r *memRepo) LoadDefault() *ports.Configuration {
	return &ports.Configuration{Block: "identifier", FragmentField: "product", LogLevel: "info"}
}

func (r *memRepo) Validate(config *ports.Configuration) error {
	if r.validate != nil {
		return r.validate(config)
	}
	return nil
}

func (r *memRepo) GetConfigPath() string { return r.path }
func (r *memRepo) BackupConfig() error   { r.backups++; return nil }
func (r *memRepo) RestoreConfig() error  { return errors.New("no backups") }

func newConfigService(t *testing.T) (*ConfigurationService, *memRepo) {
	t.Helper()
	repo := &memRepo{path: filepath.Join(t.TempDir(), "config.json")}
	return NewConfigurationService(repo, logging.NewNopLogger()), repo
}

func TestConfigurationService_LoadConfiguration(t *testing.T) {
	s, repo := newConfigService(t)

	cfg, err := s.LoadConfiguration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "identifier", cfg.Block)

	repo.validate = func(*ports.Configuration) error { return errors.New("bad block") }
	_, err = s.LoadConfiguration(context.Background())
	assert.ErrorContains(t, err, "bad block")

	repo.loadErr = errors.New("unreadable")
	_, err = s.LoadConfiguration(context.Background())
	assert.ErrorContains(t, err, "unreadable")
}

func TestConfigurationService_InitializeConfiguration(t *testing.T) {
	s, repo := newConfigService(t)
	ctx := context.Background()

	cmd := commands.NewInitializeConfigurationCommand()
	result, err := s.InitializeConfiguration(ctx, cmd)
	require.NoError(t, err)
	assert.False(t, result.Success, "config URL is required")

	cmd.ConfigURL = "https://configs.test/configs.json"
	cmd.Block = "product-teaser"
	result, err = s.InitializeConfiguration(ctx, cmd)
	require.NoError(t, err)
	require.True(t, result.Success, result.Errors)
	assert.Equal(t, repo.path, result.Metadata["config_path"])
	assert.Equal(t, "https://configs.test/configs.json", repo.saved.ConfigURL)
	assert.Equal(t, "product-teaser", repo.saved.Block)
	assert.Equal(t, "product", repo.saved.FragmentField)
	assert.Equal(t, 1, repo.backups)

	result, err = s.InitializeConfiguration(ctx, cmd)
	require.NoError(t, err)
	assert.False(t, result.Success, "existing file must not be overwritten")

	cmd.Force = true
	result, err = s.InitializeConfiguration(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.Warnings)
}

func TestConfigurationService_RestoreConfiguration(t *testing.T) {
	s, _ := newConfigService(t)
	assert.ErrorContains(t, s.RestoreConfiguration(context.Background()), "no backups")
}
