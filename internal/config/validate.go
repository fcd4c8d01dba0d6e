package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateJobs(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageBackendS3:
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket must be set when storage.backend is \"s3\"")
		}
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = "~/.config/quickscribe/config.toml"
			}
			return fmt.Errorf("storage credentials are required. Set AWS_ACCESS_KEY/AWS_SECRET_KEY env vars or edit %s (create with 'quickscribe config init')", defaultPath)
		}
	case StorageBackendLocal:
		if c.Storage.LocalDir == "" {
			return errors.New("storage.local_dir must be set when storage.backend is \"local\"")
		}
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (expected \"s3\" or \"local\")", c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateWorker() error {
	if c.Worker.URL == "" {
		return errors.New("worker.url must be set")
	}
	parsed, err := url.Parse(c.Worker.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("worker.url: %q is not an absolute URL", c.Worker.URL)
	}
	if c.Worker.DispatchAttempts > 10 {
		return errors.New("worker.dispatch_attempts must be 10 or fewer")
	}
	return nil
}

func (c *Config) validateJobs() error {
	if c.Jobs.RetentionHours > 24*365 {
		return errors.New("jobs.retention_hours must be one year or less")
	}
	return nil
}
