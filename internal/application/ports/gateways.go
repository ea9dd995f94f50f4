package ports

import (
	"context"
	"time"

	"cfpicker.dev/cli/internal/core/browse"
)

// CatalogGateway defines the interface for reaching the commerce catalog
type CatalogGateway interface {
	browse.Catalog

	// TestConnection fetches the configs file and reports whether it parsed
	TestConnection(ctx context.Context, configURL string) error

	// GetConnectionStatus returns the current connection status
	GetConnectionStatus() ConnectionStatus

	// GetUsageStats returns API usage statistics
	GetUsageStats() (*APIUsageStats, error)
}

// ConnectionStatus represents the status of the catalog connection
type ConnectionStatus struct {
	IsConnected   bool          `json:"is_connected"`
	LastConnected time.Time     `json:"last_connected"`
	LastError     string        `json:"last_error,omitempty"`
	Latency       time.Duration `json:"latency"`
	RetryCount    int           `json:"retry_count"`
}

// APIUsageStats contains API usage statistics
type APIUsageStats struct {
	TotalRequests      int64         `json:"total_requests"`
	SuccessfulRequests int64         `json:"successful_requests"`
	FailedRequests     int64         `json:"failed_requests"`
	TotalItems         int64         `json:"total_items"`
	AverageLatency     time.Duration `json:"average_latency"`
	LastRequestTime    time.Time     `json:"last_request_time"`
}

// FieldStore defines the interface for the content fragment that receives picks
type FieldStore interface {
	// Value returns the stored value of a field
	Value(field string) (string, error)

	// Path returns the location of the fragment document
	Path() string
}

// LoggingGateway defines the interface for logging operations
type LoggingGateway interface {
	// Log logs a message with the specified level
	Log(level LogLevel, message string, fields map[string]interface{})

	// LogError logs an error
	LogError(err error, message string, fields map[string]interface{})

	// SetLogLevel sets the logging level
	SetLogLevel(level LogLevel)

	// GetLogLevel returns the current logging level
	GetLogLevel() LogLevel

	// ConfigureLogging configures logging settings
	ConfigureLogging(config *LoggingConfig) error

	// Sync flushes buffered log entries
	Sync() error
}

// LogLevel defines the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelFatal LogLevel = "fatal"
)

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	Level  LogLevel `json:"level"`
	Format string   `json:"format"` // "json" or "console"
	Output string   `json:"output"` // "stdout", "stderr", or file path
}
