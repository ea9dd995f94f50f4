package commands

import (
	"strings"
)

// InitializeConfigurationCommand writes a fresh configuration file
type InitializeConfigurationCommand struct {
	BaseCommand

	ConfigURL     string `json:"config_url"`
	Profile       string `json:"profile,omitempty"`
	Block         string `json:"block"`
	FragmentPath  string `json:"fragment_path"`
	FragmentField string `json:"fragment_field"`
	LogLevel      string `json:"log_level"`
	Debug         bool   `json:"debug"`
	Force         bool   `json:"force"`
}

// NewInitializeConfigurationCommand creates a new initialize configuration command
func NewInitializeConfigurationCommand() *InitializeConfigurationCommand {
	return &InitializeConfigurationCommand{
		BaseCommand: NewBaseCommand("initialize_configuration"),
	}
}

// Validate validates the initialize configuration command
func (c *InitializeConfigurationCommand) Validate() error {
	if err := c.BaseCommand.Validate(); err != nil {
		return err
	}

	if strings.TrimSpace(c.ConfigURL) == "" {
		return NewValidationError("config URL is required")
	}

	if c.FragmentField != "" && strings.TrimSpace(c.FragmentField) == "" {
		return NewValidationError("fragment field cannot be blank")
	}

	return nil
}
