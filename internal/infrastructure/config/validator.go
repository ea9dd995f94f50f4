package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cfpicker.dev/cli/internal/core/block"
)

// ConfigValidator validates configuration values
type ConfigValidator struct {
	blocks *block.Registry
}

// NewConfigValidator creates a new configuration validator
func NewConfigValidator(blocks *block.Registry) *ConfigValidator {
	return &ConfigValidator{blocks: blocks}
}

// ValidateConfigURL validates the location of the commerce configs file
func (v *ConfigValidator) ValidateConfigURL(configURL string) error {
	if configURL == "" {
		return fmt.Errorf("config URL cannot be empty")
	}

	u, err := url.Parse(configURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %q (must be http or https)", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("URL must include host")
	}

	return nil
}

// ValidateBlock validates that key names a registered output block
func (v *ConfigValidator) ValidateBlock(key string) error {
	if key == "" {
		return fmt.Errorf("block cannot be empty")
	}
	if _, err := v.blocks.Get(key); err != nil {
		keys := make([]string, 0)
		for _, b := range v.blocks.All() {
			keys = append(keys, b.Key)
		}
		return fmt.Errorf("unknown block: %s (valid blocks: %s)", key, strings.Join(keys, ", "))
	}
	return nil
}

// ValidateLogLevel validates log level value
func (v *ConfigValidator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error", "fatal"}

	normalizedLevel := strings.ToLower(strings.TrimSpace(level))

	for _, valid := range validLevels {
		if normalizedLevel == valid {
			return nil
		}
	}

	return fmt.Errorf("invalid log level: %s (valid levels: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateFragmentPath validates the content fragment document path
func (v *ConfigValidator) ValidateFragmentPath(path string) error {
	if path == "" {
		return fmt.Errorf("fragment path cannot be empty")
	}

	expandedPath := ExpandPath(path)

	info, err := os.Stat(expandedPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Created on first write
			return nil
		}
		return fmt.Errorf("failed to check fragment path: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("fragment path is a directory: %s", filepath.Clean(path))
	}

	return nil
}

// ValidateTimeout validates a request timeout in seconds
func (v *ConfigValidator) ValidateTimeout(seconds int) error {
	duration := time.Duration(seconds) * time.Second

	minTimeout := 1 * time.Second
	maxTimeout := 5 * time.Minute

	if duration < minTimeout {
		return fmt.Errorf("timeout too short (minimum 1s)")
	}

	if duration > maxTimeout {
		return fmt.Errorf("timeout too long (maximum 5m)")
	}

	return nil
}

// ExpandPath expands ~ and environment variables in paths
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		if homeDir, err := os.UserHomeDir(); err == nil {
			path = strings.Replace(path, "~", homeDir, 1)
		}
	}

	return os.ExpandEnv(path)
}
