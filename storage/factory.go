package storage

import (
	"fmt"
	"log"

	"github.com/mitchellh/mapstructure"
	"github.com/veloria/phototheque/config"
)

// LocalSettings configures the local filesystem backend.
type LocalSettings struct {
	Path string `mapstructure:"path"`
}

// NewProvider builds a storage provider of the given kind from a
// generic settings map.
func NewProvider(kind string, settings map[string]interface{}) (Provider, error) {
	switch kind {
	case "local", "":
		cfg := LocalSettings{Path: "./data/uploads"}
		if err := mapstructure.Decode(settings, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode local storage settings: %w", err)
		}
		return NewLocalStorage(cfg.Path)

	case "minio":
		var cfg MinioSettings
		if err := mapstructure.Decode(settings, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode minio storage settings: %w", err)
		}
		return NewMinioStorage(cfg)

	case "webdav":
		var cfg WebDAVSettings
		if err := mapstructure.Decode(settings, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode webdav storage settings: %w", err)
		}
		return NewWebDAVStorage(cfg)

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", kind)
	}
}

// NewProviderFromConfig builds the configured storage provider.
func NewProviderFromConfig(cfg *config.Config) (Provider, error) {
	log.Printf("Initializing '%s' storage provider...", cfg.StorageType)

	provider, err := NewProvider(cfg.StorageType, settingsFromConfig(cfg))
	if err != nil {
		return nil, err
	}

	log.Printf("Successfully initialized '%s' storage provider", provider.Name())
	return provider, nil
}

func settingsFromConfig(cfg *config.Config) map[string]interface{} {
	switch cfg.StorageType {
	case "minio":
		return map[string]interface{}{
			"endpoint":          cfg.MinioEndpoint,
			"access_key_id":     cfg.MinioAccessKeyID,
			"secret_access_key": cfg.MinioSecretAccessKey,
			"bucket_name":       cfg.MinioBucketName,
			"use_ssl":           cfg.MinioUseSSL,
		}
	case "webdav":
		return map[string]interface{}{
			"url":       cfg.WebDAVURL,
			"username":  cfg.WebDAVUsername,
			"password":  cfg.WebDAVPassword,
			"root_path": cfg.WebDAVRootPath,
		}
	default:
		return map[string]interface{}{
			"path": cfg.StorageLocalPath,
		}
	}
}
