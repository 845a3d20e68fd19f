package config

import (
    "strings"
    "time"
)

// CacheConfig defines settings for the response cache middleware applied to
// the public event list and availability endpoints.  When Enabled is false
// or no Redis client is configured, caching is disabled.  Methods lists the
// HTTP methods to cache.  TTL defines the lifetime of cache entries;
// availability should stay short-lived since it changes with every
// accepted reservation.  Prefix namespaces keys and MaxBodyBytes caps the
// size of responses worth caching.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
        TTL:          envDur("CACHE_TTL", 5*time.Second),
        Prefix:       envStr("CACHE_PREFIX", "cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1048576),
    }
}

func parseMethods(s string) map[string]bool {
    m := map[string]bool{}
    for _, p := range strings.Split(s, ",") {
        p = strings.TrimSpace(strings.ToUpper(p))
        if p != "" {
            m[p] = true
        }
    }
    return m
}
