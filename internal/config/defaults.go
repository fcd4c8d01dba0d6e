package config

import "time"

// Storage backend names.
const (
	StorageBackendS3    = "s3"
	StorageBackendLocal = "local"
)

const (
	defaultDataDir              = "~/.local/share/quickscribe/data"
	defaultLogDir               = "~/.local/share/quickscribe/logs"
	defaultAPIBind              = "127.0.0.1:8036"
	defaultStorageBackend       = StorageBackendS3
	defaultStorageRegion        = "eu-north-1"
	defaultStorageLocalDir      = "~/.local/share/quickscribe/objects"
	defaultPresignExpiryMinutes = 60
	defaultMaxUploadMiB         = 100
	defaultWorkerTimeout        = 15
	defaultDispatchAttempts     = 3
	defaultDispatchDelaySeconds = 1
	defaultRetentionHours       = 24
	defaultSweepIntervalMinutes = 60
	defaultNotifyTimeout        = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Storage: Storage{
			Backend:              defaultStorageBackend,
			Region:               defaultStorageRegion,
			LocalDir:             defaultStorageLocalDir,
			UseSSL:               true,
			PresignExpiryMinutes: defaultPresignExpiryMinutes,
			MaxUploadMiB:         defaultMaxUploadMiB,
		},
		Worker: Worker{
			RequestTimeout:       defaultWorkerTimeout,
			DispatchAttempts:     defaultDispatchAttempts,
			DispatchDelaySeconds: defaultDispatchDelaySeconds,
		},
		Jobs: Jobs{
			RetentionHours:       defaultRetentionHours,
			SweepIntervalMinutes: defaultSweepIntervalMinutes,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Completion:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// PresignExpiry returns the presigned URL lifetime as a duration.
func (c *Config) PresignExpiry() time.Duration {
	return time.Duration(c.Storage.PresignExpiryMinutes) * time.Minute
}

// Retention returns the terminal-job retention window as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Jobs.RetentionHours) * time.Hour
}

// SweepInterval returns the retention sweep cadence as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Jobs.SweepIntervalMinutes) * time.Minute
}

// MaxUploadBytes returns the multipart upload ceiling in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Storage.MaxUploadMiB) << 20
}
