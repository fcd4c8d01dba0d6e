package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeWorker()
	c.normalizeJobs()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("QUICKSCRIBE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeStorage() error {
	var err error
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.Region = strings.TrimSpace(c.Storage.Region)
	if c.Storage.Region == "" {
		c.Storage.Region = defaultStorageRegion
	}
	c.Storage.AccessKey = strings.TrimSpace(c.Storage.AccessKey)
	if c.Storage.AccessKey == "" {
		if value, ok := os.LookupEnv("AWS_ACCESS_KEY"); ok {
			c.Storage.AccessKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("AWS_ACCESS_KEY_ID"); ok {
			c.Storage.AccessKey = strings.TrimSpace(value)
		}
	}
	c.Storage.SecretKey = strings.TrimSpace(c.Storage.SecretKey)
	if c.Storage.SecretKey == "" {
		if value, ok := os.LookupEnv("AWS_SECRET_KEY"); ok {
			c.Storage.SecretKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("AWS_SECRET_ACCESS_KEY"); ok {
			c.Storage.SecretKey = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Storage.LocalDir) == "" {
		c.Storage.LocalDir = defaultStorageLocalDir
	}
	if c.Storage.LocalDir, err = expandPath(c.Storage.LocalDir); err != nil {
		return fmt.Errorf("storage.local_dir: %w", err)
	}
	if c.Storage.PresignExpiryMinutes <= 0 {
		c.Storage.PresignExpiryMinutes = defaultPresignExpiryMinutes
	}
	if c.Storage.MaxUploadMiB <= 0 {
		c.Storage.MaxUploadMiB = defaultMaxUploadMiB
	}
	return nil
}

func (c *Config) normalizeWorker() {
	c.Worker.URL = strings.TrimRight(strings.TrimSpace(c.Worker.URL), "/")
	c.Worker.Token = strings.TrimSpace(c.Worker.Token)
	if c.Worker.Token == "" {
		if value, ok := os.LookupEnv("WORKER_TOKEN"); ok {
			c.Worker.Token = strings.TrimSpace(value)
		}
	}
	c.Worker.CallbackToken = strings.TrimSpace(c.Worker.CallbackToken)
	if c.Worker.CallbackToken == "" {
		if value, ok := os.LookupEnv("WORKER_CALLBACK_TOKEN"); ok {
			c.Worker.CallbackToken = strings.TrimSpace(value)
		}
	}
	c.Worker.CallbackURL = strings.TrimRight(strings.TrimSpace(c.Worker.CallbackURL), "/")
	if c.Worker.CallbackURL == "" {
		c.Worker.CallbackURL = "http://" + c.Paths.APIBind
	}
	if c.Worker.RequestTimeout <= 0 {
		c.Worker.RequestTimeout = defaultWorkerTimeout
	}
	if c.Worker.DispatchAttempts <= 0 {
		c.Worker.DispatchAttempts = defaultDispatchAttempts
	}
	if c.Worker.DispatchDelaySeconds <= 0 {
		c.Worker.DispatchDelaySeconds = defaultDispatchDelaySeconds
	}
}

func (c *Config) normalizeJobs() {
	if c.Jobs.RetentionHours <= 0 {
		c.Jobs.RetentionHours = defaultRetentionHours
	}
	if c.Jobs.SweepIntervalMinutes <= 0 {
		c.Jobs.SweepIntervalMinutes = defaultSweepIntervalMinutes
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
