package services

import (
	"context"
	"fmt"
	"os"

	"cfpicker.dev/cli/internal/application/commands"
	"cfpicker.dev/cli/internal/application/ports"
)

// ConfigurationService handles configuration management
type ConfigurationService struct {
	configRepo ports.ConfigurationRepository
	logger     ports.LoggingGateway
}

// NewConfigurationService creates a new configuration service
func NewConfigurationService(configRepo ports.ConfigurationRepository, logger ports.LoggingGateway) *ConfigurationService {
	return &ConfigurationService{
		configRepo: configRepo,
		logger:     logger,
	}
}

// LoadConfiguration loads and validates the current configuration
func (s *ConfigurationService) LoadConfiguration(ctx context.Context) (*ports.Configuration, error) {
	config, err := s.configRepo.Load()
	if err != nil {
		s.logger.LogError(err, "Failed to load configuration", nil)
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := s.configRepo.Validate(config); err != nil {
		s.logger.LogError(err, "Configuration validation failed", nil)
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// SaveConfiguration saves the configuration
func (s *ConfigurationService) SaveConfiguration(ctx context.Context, config *ports.Configuration) error {
	if err := s.configRepo.Validate(config); err != nil {
		s.logger.LogError(err, "Configuration validation failed", nil)
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	// A failed backup does not block the save
	if err := s.configRepo.BackupConfig(); err != nil {
		s.logger.LogError(err, "Failed to create configuration backup", nil)
	}

	if err := s.configRepo.Save(config); err != nil {
		s.logger.LogError(err, "Failed to save configuration", nil)
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	s.logger.Log(ports.LogLevelInfo, "Configuration saved successfully", map[string]interface{}{
		"config_path": s.configRepo.GetConfigPath(),
	})

	return nil
}

// RestoreConfiguration restores configuration from the latest backup
func (s *ConfigurationService) RestoreConfiguration(ctx context.Context) error {
	if err := s.configRepo.RestoreConfig(); err != nil {
		s.logger.LogError(err, "Failed to restore configuration", nil)
		return fmt.Errorf("failed to restore configuration: %w", err)
	}

	s.logger.Log(ports.LogLevelInfo, "Configuration restored successfully", nil)
	return nil
}

// GetConfigurationPath returns the path to the configuration file
func (s *ConfigurationService) GetConfigurationPath(ctx context.Context) string {
	return s.configRepo.GetConfigPath()
}

// InitializeConfiguration writes a configuration built from the defaults and the command
func (s *ConfigurationService) InitializeConfiguration(ctx context.Context, cmd *commands.InitializeConfigurationCommand) (*commands.CommandResult, error) {
	if err := cmd.Validate(); err != nil {
		return commands.NewErrorResult("Validation failed", []string{err.Error()}), nil
	}

	path := s.configRepo.GetConfigPath()
	if _, err := os.Stat(path); err == nil && !cmd.Force {
		return commands.NewErrorResult("Configuration already exists", []string{
			fmt.Sprintf("%s exists, use --force to overwrite", path),
		}), nil
	}

	config := s.configRepo.LoadDefault()
	config.ConfigURL = cmd.ConfigURL
	config.Profile = cmd.Profile
	config.Debug = cmd.Debug
	if cmd.Block != "" {
		config.Block = cmd.Block
	}
	if cmd.FragmentPath != "" {
		config.FragmentPath = cmd.FragmentPath
	}
	if cmd.FragmentField != "" {
		config.FragmentField = cmd.FragmentField
	}
	if cmd.LogLevel != "" {
		config.LogLevel = cmd.LogLevel
	}

	if err := s.SaveConfiguration(ctx, config); err != nil {
		return commands.NewErrorResult("Failed to save configuration", []string{err.Error()}), nil
	}

	result := commands.NewSuccessResult("Configuration initialized successfully", config)
	result.SetMetadata("config_path", path)
	if cmd.Force {
		result.AddWarning("existing configuration was overwritten")
	}
	return result, nil
}
