package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"cfpicker.dev/cli/internal/core/block"
)

func TestConfigValidator_ValidateConfigURL(t *testing.T) {
	validator := NewConfigValidator(block.DefaultRegistry())

	tests := []struct {
		name      string
		configURL string
		wantErr   bool
		errMsg    string
	}{
		{
			name:      "valid_https_url",
			configURL: "https://main--site--org.aem.page/configs.json",
			wantErr:   false,
		},
		{
			name:      "valid_http_localhost",
			configURL: "http://localhost:3000/configs.json",
			wantErr:   false,
		},
		{
			name:      "empty_url",
			configURL: "",
			wantErr:   true,
			errMsg:    "config URL cannot be empty",
		},
		{
			name:      "invalid_scheme",
			configURL: "ftp://configs.example.com/configs.json",
			wantErr:   true,
			errMsg:    "unsupported URL scheme",
		},
		{
			name:      "missing_scheme",
			configURL: "configs.example.com/configs.json",
			wantErr:   true,
			errMsg:    "unsupported URL scheme",
		},
		{
			name:      "missing_host",
			configURL: "https://",
			wantErr:   true,
			errMsg:    "URL must include host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateConfigURL(tt.configURL)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigValidator_ValidateBlock(t *testing.T) {
	validator := NewConfigValidator(block.DefaultRegistry())

	assert.NoError(t, validator.ValidateBlock(block.KeyProductCarousel))
	assert.EqualError(t, validator.ValidateBlock(""), "block cannot be empty")

	err := validator.ValidateBlock("category-carousel")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "identifier, product-list-page")
}

func TestConfigValidator_ValidateLogLevel(t *testing.T) {
	validator := NewConfigValidator(block.DefaultRegistry())

	for _, level := range []string{"debug", "INFO", " warn ", "error", "fatal"} {
		assert.NoError(t, validator.ValidateLogLevel(level), level)
	}
	for _, level := range []string{"", "verbose", "trace"} {
		assert.Error(t, validator.ValidateLogLevel(level), level)
	}
}

func TestConfigValidator_ValidateFragmentPath(t *testing.T) {
	validator := NewConfigValidator(block.DefaultRegistry())
	dir := t.TempDir()

	existing := filepath.Join(dir, "fragment.json")
	assert.NoError(t, os.WriteFile(existing, []byte("{}"), 0644))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "existing_file", path: existing},
		{name: "missing_file", path: filepath.Join(dir, "new.json")},
		{name: "directory", path: dir, wantErr: true},
		{name: "empty", path: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateFragmentPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigValidator_ValidateTimeout(t *testing.T) {
	validator := NewConfigValidator(block.DefaultRegistry())

	tests := []struct {
		name    string
		seconds int
		wantErr bool
		errMsg  string
	}{
		{name: "minimum", seconds: 1},
		{name: "typical", seconds: 30},
		{name: "maximum", seconds: 300},
		{name: "zero", seconds: 0, wantErr: true, errMsg: "timeout too short"},
		{name: "too_long", seconds: 301, wantErr: true, errMsg: "timeout too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateTimeout(tt.seconds)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/author")
	t.Setenv("FRAGMENTS", "/srv/fragments")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, "/home/author/fragment.json", ExpandPath("~/fragment.json"))
	assert.Equal(t, "/srv/fragments/a.json", ExpandPath("$FRAGMENTS/a.json"))
}
