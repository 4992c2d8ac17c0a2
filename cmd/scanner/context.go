package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ecospectre-be/internal/config"
	"ecospectre-be/internal/pkg/logger"
	"ecospectre-be/pkg/localstore"
	"ecospectre-be/pkg/syncclient"
)

// commandContext lazily builds the pieces a command needs and closes them after it runs.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.DeviceConfig
	configErr  error

	log   logger.ILogger
	queue localstore.Queue
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.DeviceConfig, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.LoadDevice(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger writes to the log file only so tables stay readable.
func (c *commandContext) logger() logger.ILogger {
	if c.log == nil {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.log = logger.NewNopLogger()
		} else {
			c.log = logger.NewIsolatedLogger(cfg.LogFilePath)
		}
	}
	return c.log
}

func (c *commandContext) openQueue() (localstore.Queue, error) {
	if c.queue != nil {
		return c.queue, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	q, err := localstore.Open(localstore.Options{
		Backend: cfg.Queue.Backend,
		Path:    cfg.Queue.Path,
		Logger:  c.logger(),
	})
	if err != nil {
		return nil, err
	}
	c.queue = q
	return q, nil
}

func (c *commandContext) credentialsPath() string {
	cfg, err := c.ensureConfig()
	if err != nil {
		return filepath.Join(config.DefaultDataDir(), credentialsFile)
	}
	return filepath.Join(cfg.DataDir, credentialsFile)
}

func (c *commandContext) apiClient() (*syncclient.APIClient, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	path := c.credentialsPath()
	return syncclient.NewAPIClient(syncclient.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout(),
		Tokens: syncclient.TokenFunc(func() (string, error) {
			session, err := loadCredentials(path)
			if err != nil || session == nil {
				return "", err
			}
			return session.Token, nil
		}),
	}), nil
}

// currentUserID is the signed-in user, else the configured user, else "" (stored as local).
func (c *commandContext) currentUserID() string {
	if session, err := loadCredentials(c.credentialsPath()); err == nil && session != nil {
		return session.User.ID
	}
	if cfg, err := c.ensureConfig(); err == nil {
		return cfg.UserID
	}
	return ""
}

func (c *commandContext) drainerConfig() syncclient.DrainerConfig {
	cfg, err := c.ensureConfig()
	if err != nil {
		return syncclient.DrainerConfig{}
	}
	return syncclient.DrainerConfig{
		Interval:   time.Duration(cfg.Sync.DrainIntervalSeconds) * time.Second,
		MaxBackoff: time.Duration(cfg.Sync.MaxBackoffSeconds) * time.Second,
	}
}

func (c *commandContext) close() error {
	var errs []error
	if c.queue != nil {
		errs = append(errs, c.queue.Close())
		c.queue = nil
	}
	if c.log != nil {
		_ = c.log.Sync()
	}
	return errors.Join(errs...)
}
