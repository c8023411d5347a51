package backend

import (
	"fmt"

	"ledgerly/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		CascadeMode:      appConfig.CascadeMode,
		CascadeBatchSize: appConfig.CascadeBatchSize,

		UploadProvider:         appConfig.UploadProvider,
		CloudinaryCloudName:    appConfig.CloudinaryCloudName,
		CloudinaryUploadPreset: appConfig.CloudinaryUploadPreset,
		UploadFolderRoot:       appConfig.UploadFolderRoot,

		StatsCache:    appConfig.StatsCache,
		StatsCacheTTL: appConfig.StatsCacheTTL,
		RedisURL:      appConfig.RedisURL,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case MemoryBackend:
		if c.CascadeMode == config.CascadeAMQP {
			return fmt.Errorf("amqp cascade is not available with the memory backend")
		}
	}

	if c.CascadeMode == config.CascadeAMQP {
		if c.AMQPURL == "" {
			return fmt.Errorf("AMQP URL is required for amqp cascade")
		}
		if c.StatsCache != config.StatsCacheRedis {
			return fmt.Errorf("amqp cascade needs the redis stats cache")
		}
	}
	if c.UploadProvider == config.UploadCloudinary && (c.CloudinaryCloudName == "" || c.CloudinaryUploadPreset == "") {
		return fmt.Errorf("cloudinary cloud name and upload preset are required")
	}
	if c.StatsCache == config.StatsCacheRedis && c.RedisURL == "" {
		return fmt.Errorf("redis URL is required for the redis stats cache")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
