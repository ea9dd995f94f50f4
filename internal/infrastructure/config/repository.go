package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/viper"

	"cfpicker.dev/cli/internal/application/ports"
	"cfpicker.dev/cli/internal/core/block"
)

// EnvPrefix prefixes every environment override, e.g. CFPICKER_CONFIG_URL
const EnvPrefix = "CFPICKER"

// configKeys are the keys shared by file and environment sources
var configKeys = []string{
	"config_url",
	"profile",
	"block",
	"fragment_path",
	"fragment_field",
	"request_timeout",
	"retry_attempts",
	"retry_delay",
	"log_level",
	"debug",
}

// CompositeConfigRepository implements the ConfigurationRepository interface
type CompositeConfigRepository struct {
	sources    []ConfigSource
	cache      *ConfigCache
	validator  *ConfigValidator
	configPath string
	mutex      sync.Mutex
}

// ConfigSource defines the interface for configuration sources
type ConfigSource interface {
	Load() (*ports.Configuration, error)
	Priority() int
	Name() string
}

// ConfigCache provides caching for configuration
type ConfigCache struct {
	config    *ports.Configuration
	timestamp time.Time
	ttl       time.Duration
}

// NewCompositeConfigRepository creates a new configuration repository.
// An empty configPath falls back to CFPICKER_CONFIG_FILE, then the default path.
func NewCompositeConfigRepository(configPath string) *CompositeConfigRepository {
	if configPath == "" {
		configPath = os.Getenv(EnvPrefix + "_CONFIG_FILE")
	}
	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	repo := &CompositeConfigRepository{
		sources: make([]ConfigSource, 0),
		cache: &ConfigCache{
			ttl: 5 * time.Minute,
		},
		validator:  NewConfigValidator(block.DefaultRegistry()),
		configPath: ExpandPath(configPath),
	}

	repo.AddSource(NewEnvironmentConfigSource())
	repo.AddSource(NewFileConfigSource(repo.configPath))

	return repo
}

// AddSource adds a configuration source
func (r *CompositeConfigRepository) AddSource(source ConfigSource) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.sources = append(r.sources, source)
	r.cache.config = nil
}

// Load retrieves the current configuration
func (r *CompositeConfigRepository) Load() (*ports.Configuration, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.cache.config != nil && time.Since(r.cache.timestamp) < r.cache.ttl {
		cached := *r.cache.config
		return &cached, nil
	}

	config := r.LoadDefault()

	// Lower number = higher priority, so apply the highest numbers first
	sortedSources := make([]ConfigSource, len(r.sources))
	copy(sortedSources, r.sources)
	sort.SliceStable(sortedSources, func(i, j int) bool {
		return sortedSources[i].Priority() > sortedSources[j].Priority()
	})

	for _, source := range sortedSources {
		sourceConfig, err := source.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load %s configuration: %w", source.Name(), err)
		}
		config = r.mergeConfigurations(config, sourceConfig)
	}

	if err := r.Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	cached := *config
	r.cache.config = &cached
	r.cache.timestamp = time.Now()

	return config, nil
}

// Save persists the configuration in the format given by the file extension
func (r *CompositeConfigRepository) Save(config *ports.Configuration) error {
	if err := r.Validate(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.Set("config_url", config.ConfigURL)
	v.Set("profile", config.Profile)
	v.Set("block", config.Block)
	v.Set("fragment_path", config.FragmentPath)
	v.Set("fragment_field", config.FragmentField)
	v.Set("request_timeout", config.RequestTimeout)
	v.Set("retry_attempts", config.RetryAttempts)
	v.Set("retry_delay", config.RetryDelay)
	v.Set("log_level", config.LogLevel)
	v.Set("debug", config.Debug)

	if err := v.WriteConfigAs(r.configPath); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	r.mutex.Lock()
	r.cache.config = nil
	r.mutex.Unlock()

	return nil
}

// LoadDefault returns the default configuration
func (r *CompositeConfigRepository) LoadDefault() *ports.Configuration {
	return &ports.Configuration{
		ConfigURL:      "",
		Profile:        "",
		Block:          block.KeyIdentifier,
		FragmentPath:   defaultFragmentPath(),
		FragmentField:  "product",
		RequestTimeout: 30,
		RetryAttempts:  3,
		RetryDelay:     1000,
		LogLevel:       "info",
		Debug:          false,
	}
}

// Validate validates the configuration. The config URL is optional here and
// required only by commands that reach the catalog.
func (r *CompositeConfigRepository) Validate(config *ports.Configuration) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if config.ConfigURL != "" {
		if err := r.validator.ValidateConfigURL(config.ConfigURL); err != nil {
			return err
		}
	}

	if err := r.validator.ValidateBlock(config.Block); err != nil {
		return err
	}

	if err := r.validator.ValidateFragmentPath(config.FragmentPath); err != nil {
		return err
	}

	if config.FragmentField == "" {
		return fmt.Errorf("fragment field cannot be empty")
	}

	if err := r.validator.ValidateTimeout(config.RequestTimeout); err != nil {
		return err
	}

	if config.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts cannot be negative")
	}

	if config.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}

	return r.validator.ValidateLogLevel(config.LogLevel)
}

// GetConfigPath returns the path to the configuration file
func (r *CompositeConfigRepository) GetConfigPath() string {
	return r.configPath
}

// BackupConfig creates a backup of the current configuration
func (r *CompositeConfigRepository) BackupConfig() error {
	if _, err := os.Stat(r.configPath); os.IsNotExist(err) {
		return nil // No config file to backup
	}

	backupPath := r.configPath + ".backup." + time.Now().Format("20060102-150405")

	data, err := os.ReadFile(r.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file for backup: %w", err)
	}

	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}

	return nil
}

// RestoreConfig restores configuration from the most recent backup
func (r *CompositeConfigRepository) RestoreConfig() error {
	matches, err := filepath.Glob(r.configPath + ".backup.*")
	if err != nil {
		return fmt.Errorf("failed to find backup files: %w", err)
	}

	if len(matches) == 0 {
		return fmt.Errorf("no backup files found")
	}

	sort.Strings(matches)
	latestBackup := matches[len(matches)-1]

	data, err := os.ReadFile(latestBackup)
	if err != nil {
		return fmt.Errorf("failed to read backup file: %w", err)
	}

	if err := os.WriteFile(r.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to restore config file: %w", err)
	}

	r.mutex.Lock()
	r.cache.config = nil
	r.mutex.Unlock()

	return nil
}

// mergeConfigurations merges two configurations (source overwrites target)
func (r *CompositeConfigRepository) mergeConfigurations(target, source *ports.Configuration) *ports.Configuration {
	if source == nil {
		return target
	}
	if target == nil {
		return source
	}

	result := *target

	if source.ConfigURL != "" {
		result.ConfigURL = source.ConfigURL
	}
	if source.Profile != "" {
		result.Profile = source.Profile
	}
	if source.Block != "" {
		result.Block = source.Block
	}
	if source.FragmentPath != "" {
		result.FragmentPath = source.FragmentPath
	}
	if source.FragmentField != "" {
		result.FragmentField = source.FragmentField
	}
	if source.LogLevel != "" {
		result.LogLevel = source.LogLevel
	}

	if source.RequestTimeout != 0 {
		result.RequestTimeout = source.RequestTimeout
	}
	if source.RetryAttempts != 0 {
		result.RetryAttempts = source.RetryAttempts
	}
	if source.RetryDelay != 0 {
		result.RetryDelay = source.RetryDelay
	}

	// Debug is sticky: any source can turn it on
	result.Debug = result.Debug || source.Debug

	return &result
}

// FileConfigSource loads configuration from a JSON, YAML or TOML file
type FileConfigSource struct {
	filePath string
}

// NewFileConfigSource creates a new file configuration source
func NewFileConfigSource(filePath string) *FileConfigSource {
	return &FileConfigSource{
		filePath: filePath,
	}
}

// Load loads configuration from file
func (f *FileConfigSource) Load() (*ports.Configuration, error) {
	if _, err := os.Stat(f.filePath); os.IsNotExist(err) {
		return nil, nil // File doesn't exist, return nil config
	}

	v := viper.New()
	v.SetConfigFile(f.filePath)
	if filepath.Ext(f.filePath) == "" {
		v.SetConfigType("json")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	var config ports.Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &config, nil
}

// Priority returns the priority of this source (lower number = higher priority)
func (f *FileConfigSource) Priority() int {
	return 100
}

// Name returns the name of this source
func (f *FileConfigSource) Name() string {
	return "file"
}

// EnvironmentConfigSource loads configuration from CFPICKER_* variables
type EnvironmentConfigSource struct{}

// NewEnvironmentConfigSource creates a new environment configuration source
func NewEnvironmentConfigSource() *EnvironmentConfigSource {
	return &EnvironmentConfigSource{}
}

// Load loads configuration from environment variables
func (e *EnvironmentConfigSource) Load() (*ports.Configuration, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var config ports.Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("invalid environment configuration: %w", err)
	}

	return &config, nil
}

// Priority returns the priority of this source (lower number = higher priority)
func (e *EnvironmentConfigSource) Priority() int {
	return 10
}

// Name returns the name of this source
func (e *EnvironmentConfigSource) Name() string {
	return "environment"
}

// getDefaultConfigPath returns the default configuration file path
func getDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".cfpicker-config.json"
	}

	return filepath.Join(homeDir, ".config", "cfpicker", "config.json")
}

func defaultFragmentPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "fragment.json"
	}

	return filepath.Join(homeDir, ".config", "cfpicker", "fragment.json")
}
