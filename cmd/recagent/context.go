package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"recagent/internal/capture"
	"recagent/internal/catalog"
	"recagent/internal/config"
	"recagent/internal/logging"
	"recagent/internal/recorder"
	"recagent/internal/remote"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger builds a stderr logger for one-shot commands.
func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg, "")
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// openCatalog opens the session history. History is optional for capture
// commands, so callers decide whether a failure is fatal.
func (c *commandContext) openCatalog() (*catalog.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := catalog.Open(cfg.CatalogPath())
	if err != nil {
		return nil, fmt.Errorf("open session catalog: %w", err)
	}
	return store, nil
}

func (c *commandContext) remoteClient() (*remote.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return remote.New(cfg.Remote.BaseURL, remote.Endpoints{
		Command: cfg.Remote.CommandPath,
		Status:  cfg.Remote.StatusPath,
		Upload:  cfg.Remote.UploadPath,
	}, cfg.RequestTimeout())
}

func newSupervisor(cfg *config.Config, logger *slog.Logger, store *catalog.Store) *recorder.Supervisor {
	opts := []recorder.Option{
		recorder.WithLogger(logger),
		recorder.WithStopGrace(cfg.StopGrace()),
		recorder.WithKillWait(cfg.KillWait()),
		recorder.WithKeepIntermediate(cfg.Recorder.KeepIntermediate),
	}
	if store != nil {
		opts = append(opts, recorder.WithJournal(store))
	}
	return recorder.New(cfg.Encoder.Binary, backendFromConfig(cfg), cfg.Paths.OutputDir, opts...)
}

func backendFromConfig(cfg *config.Config) capture.Backend {
	return capture.Backend{
		ScreenFormat:     cfg.Encoder.ScreenFormat,
		ScreenInput:      cfg.Encoder.ScreenInput,
		AudioFormat:      cfg.Encoder.AudioFormat,
		AudioInputPrefix: cfg.Encoder.AudioInputPrefix,
		Framerate:        cfg.Encoder.Framerate,
		Preset:           cfg.Encoder.Preset,
	}
}

// captureSession bundles what a one-shot capture command needs.
type captureSession struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *catalog.Store
	supervisor *recorder.Supervisor
}

func (c *commandContext) captureSession() (*captureSession, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.logger()
	if err != nil {
		return nil, err
	}
	store, err := c.openCatalog()
	if err != nil {
		logging.WarnWithContext(logger, "session history unavailable", "catalog_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this capture will not appear in recagent history"),
		)
		store = nil
	}
	return &captureSession{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		supervisor: newSupervisor(cfg, logger, store),
	}, nil
}

func (s *captureSession) Close() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
