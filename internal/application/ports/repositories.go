package ports

// ConfigurationRepository defines the interface for configuration persistence
type ConfigurationRepository interface {
	// Load retrieves the current configuration
	Load() (*Configuration, error)

	// Save persists the configuration
	Save(config *Configuration) error

	// LoadDefault returns the default configuration
	LoadDefault() *Configuration

	// Validate validates the configuration
	Validate(config *Configuration) error

	// GetConfigPath returns the path to the configuration file
	GetConfigPath() string

	// BackupConfig creates a backup of the current configuration
	BackupConfig() error

	// RestoreConfig restores configuration from backup
	RestoreConfig() error
}

// Configuration represents the application configuration
type Configuration struct {
	// ConfigURL locates the published commerce configs file
	ConfigURL string `json:"config_url" mapstructure:"config_url"`
	// Profile names the config selected on startup, empty selects the first
	Profile string `json:"profile,omitempty" mapstructure:"profile"`
	// Block is the output block used when confirming a selection
	Block string `json:"block" mapstructure:"block"`

	FragmentPath  string `json:"fragment_path" mapstructure:"fragment_path"`
	FragmentField string `json:"fragment_field" mapstructure:"fragment_field"`

	RequestTimeout int `json:"request_timeout" mapstructure:"request_timeout"` // seconds
	RetryAttempts  int `json:"retry_attempts" mapstructure:"retry_attempts"`
	RetryDelay     int `json:"retry_delay" mapstructure:"retry_delay"` // milliseconds

	LogLevel string `json:"log_level" mapstructure:"log_level"`
	Debug    bool   `json:"debug" mapstructure:"debug"`
}
