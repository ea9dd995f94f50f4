package di

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cfpicker.dev/cli/internal/application/ports"
	"cfpicker.dev/cli/internal/application/services"
	"cfpicker.dev/cli/internal/core/block"
	"cfpicker.dev/cli/internal/core/handoff"
	"cfpicker.dev/cli/internal/infrastructure/commerce"
	"cfpicker.dev/cli/internal/infrastructure/config"
	"cfpicker.dev/cli/internal/infrastructure/fragment"
	"cfpicker.dev/cli/internal/infrastructure/logging"
	"cfpicker.dev/cli/internal/interfaces/cli"
)

// Container holds all application dependencies
type Container struct {
	// Configuration
	ConfigRepo    *config.CompositeConfigRepository
	ConfigService *services.ConfigurationService
	Config        *ports.Configuration

	// Core services
	Blocks        *block.Registry
	PickerService *services.PickerService

	// Infrastructure
	Catalog  *commerce.Client
	Handoff  *handoff.Channel
	Fragment *fragment.Writer

	// CLI
	CLIContainer *cli.CLIContainer

	// Logger
	Logger *logging.ZapLogger

	mutex        sync.Mutex
	stopWriter   context.CancelFunc
	writerDone   chan error
	shutdownOnce sync.Once
}

// NewContainer creates the container with the default configuration source.
// Services are wired by ApplyOverrides once the flags are parsed.
func NewContainer() (*Container, error) {
	logger, err := logging.NewZapLogger(&ports.LoggingConfig{
		Level:  ports.LogLevelWarn,
		Format: "console",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	c := &Container{
		Logger: logger,
		Blocks: block.DefaultRegistry(),
	}
	c.setConfigRepository(config.NewCompositeConfigRepository(""))
	c.CLIContainer = &cli.CLIContainer{
		ConfigService: c.ConfigService,
		ConfigRepo:    c.ConfigRepo,
		Logger:        c.Logger,
		MainContainer: c,
	}

	return c, nil
}

func (c *Container) setConfigRepository(repo *config.CompositeConfigRepository) {
	c.ConfigRepo = repo
	c.ConfigService = services.NewConfigurationService(repo, c.Logger)
}

// ApplyOverrides loads the configuration, applies the command-line overrides
// and wires the catalog client, the fragment writer and the picker service.
func (c *Container) ApplyOverrides(o *cli.ConfigOverrides) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if o.ConfigFile != "" {
		c.setConfigRepository(config.NewCompositeConfigRepository(o.ConfigFile))
	}

	appConfig, err := c.ConfigRepo.Load()
	if err != nil {
		return err
	}
	applyOverrides(appConfig, o)
	if err := c.ConfigRepo.Validate(appConfig); err != nil {
		return fmt.Errorf("invalid override: %w", err)
	}
	c.Config = appConfig

	level := ports.LogLevel(appConfig.LogLevel)
	if appConfig.Debug {
		level = ports.LogLevelDebug
	}
	c.Logger.SetLogLevel(level)

	c.Catalog = commerce.NewClient(
		time.Duration(appConfig.RequestTimeout)*time.Second,
		&commerce.RetryPolicy{
			MaxAttempts: appConfig.RetryAttempts,
			BaseDelay:   time.Duration(appConfig.RetryDelay) * time.Millisecond,
			MaxDelay:    30 * time.Second,
			Multiplier:  2.0,
		},
		c.Logger,
	)

	c.stopWriterLocked()
	c.Handoff = handoff.NewChannel()
	c.Fragment = fragment.NewWriter(config.ExpandPath(appConfig.FragmentPath), c.Logger)
	c.startWriterLocked()

	c.PickerService = services.NewPickerService(c.Catalog, c.Blocks, c.Handoff, c.Logger)

	c.CLIContainer.ConfigService = c.ConfigService
	c.CLIContainer.ConfigRepo = c.ConfigRepo
	c.CLIContainer.PickerService = c.PickerService
	c.CLIContainer.Catalog = c.Catalog
	c.CLIContainer.Fragment = c.Fragment
	c.CLIContainer.Config = appConfig

	c.Logger.Log(ports.LogLevelDebug, "Container wired", map[string]interface{}{
		"config_path": c.ConfigRepo.GetConfigPath(),
		"config_url":  appConfig.ConfigURL,
		"block":       appConfig.Block,
		"fragment":    c.Fragment.Path(),
	})
	return nil
}

func applyOverrides(cfg *ports.Configuration, o *cli.ConfigOverrides) {
	if o.ConfigURL != "" {
		cfg.ConfigURL = o.ConfigURL
	}
	if o.Profile != "" {
		cfg.Profile = o.Profile
	}
	if o.Block != "" {
		cfg.Block = o.Block
	}
	if o.Field != "" {
		cfg.FragmentField = o.Field
	}
	cfg.Debug = cfg.Debug || o.Debug
}

func (c *Container) startWriterLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	writer, channel := c.Fragment, c.Handoff
	go func() {
		done <- writer.Run(ctx, channel)
	}()
	c.stopWriter = cancel
	c.writerDone = done
}

func (c *Container) stopWriterLocked() {
	if c.stopWriter == nil {
		return
	}
	c.Handoff.Close()
	<-c.writerDone
	c.stopWriter()
	c.stopWriter = nil
}

// GetCLIContainer returns the CLI container for command execution
func (c *Container) GetCLIContainer() *cli.CLIContainer {
	return c.CLIContainer
}

// Shutdown stops the fragment writer and flushes the logger
func (c *Container) Shutdown(ctx context.Context) error {
	var err error
	c.shutdownOnce.Do(func() {
		c.mutex.Lock()
		defer c.mutex.Unlock()

		if c.stopWriter != nil {
			c.Handoff.Close()
			select {
			case werr := <-c.writerDone:
				if werr != nil && !errors.Is(werr, context.Canceled) {
					err = fmt.Errorf("fragment writer failed: %w", werr)
				}
			case <-ctx.Done():
				err = fmt.Errorf("fragment writer did not stop: %w", ctx.Err())
			}
			c.stopWriter()
			c.stopWriter = nil
		}

		// Syncing stderr fails on some terminals, ignore it
		_ = c.Logger.Sync()
	})
	return err
}

// HealthCheck performs a health check of all components
func (c *Container) HealthCheck(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.ConfigRepo == nil {
		return fmt.Errorf("configuration repository not initialized")
	}
	if _, err := c.ConfigRepo.Load(); err != nil {
		return fmt.Errorf("configuration load failed: %w", err)
	}

	if c.Catalog == nil || c.PickerService == nil {
		return fmt.Errorf("services not wired, apply overrides first")
	}
	if c.Config.ConfigURL == "" {
		return services.ErrNoConfigURL
	}
	if err := c.Catalog.TestConnection(ctx, c.Config.ConfigURL); err != nil {
		return fmt.Errorf("catalog connectivity test failed: %w", err)
	}

	return nil
}

// GetVersion returns version information
func (c *Container) GetVersion() map[string]string {
	return map[string]string{
		"version":    cli.Version,
		"build_time": cli.BuildTime,
	}
}
