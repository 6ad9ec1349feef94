package recurrence

import (
	"time"
)

// EngineConfig holds configuration options for the recurrence engine
type EngineConfig struct {
	// Cache configuration
	CacheEnabled bool
	CacheConfig  CacheConfig

	// MaxOccurrences caps a single expansion. Windows are caller-bounded so
	// the cap only trips on misconfigured callers.
	MaxOccurrences int
}

// DefaultEngineConfig is used by NewEngine.
var DefaultEngineConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig:  DefaultCacheConfig,

	MaxOccurrences: 10000,
}

// DisabledCacheConfig turns off caching entirely
var DisabledCacheConfig = EngineConfig{
	CacheEnabled:   false,
	MaxOccurrences: 10000,
}

// NewEngineWithConfig creates a new recurrence engine with custom configuration
func NewEngineWithConfig(config EngineConfig) *Engine {
	var cache *Cache
	if config.CacheEnabled {
		cache = NewCache(config.CacheConfig)
	}
	if config.MaxOccurrences <= 0 {
		config.MaxOccurrences = DefaultEngineConfig.MaxOccurrences
	}

	return &Engine{
		cache:  cache,
		config: config,
	}
}

// DefaultCacheConfig provides defaults for expansion caching
var DefaultCacheConfig = CacheConfig{
	TTL:        15 * time.Minute,
	MaxEntries: 1000,
}
