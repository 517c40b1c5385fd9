package cache

import (
	"fmt"
	"log"

	"github.com/veloria/phototheque/config"
)

// NewProviderFromConfig builds the configured cache provider. An
// unreachable redis falls back to the in-process cache rather than
// failing startup.
func NewProviderFromConfig(cfg *config.Config) (Provider, error) {
	switch cfg.CacheType {
	case "memory", "":
		return NewMemory(DefaultMemoryConfig)

	case "redis":
		provider, err := NewRedis(cfg.CacheRedisAddr, cfg.CacheRedisPassword, cfg.CacheRedisDB)
		if err != nil {
			log.Printf("[Cache] Failed to connect to redis at %s: %v, falling back to memory cache", cfg.CacheRedisAddr, err)
			return NewMemory(DefaultMemoryConfig)
		}
		return provider, nil

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.CacheType)
	}
}
