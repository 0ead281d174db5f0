package config

import (
	"os"
	"strconv"
	"strings"
)

// GetAllSettings returns a map of the settings currently loaded in memory,
// mostly for diagnostics output.
func GetAllSettings() map[string]any {
	if Global == nil {
		return map[string]any{}
	}
	return map[string]any{
		"app_version":                    Global.App.Version,
		"app_debug":                      Global.App.Debug,
		"db_driver":                      Global.Database.Driver,
		"valkey_enabled":                 Global.Database.ValkeyEnabled,
		"cache_half_life":                Global.Cache.HalfLife,
		"cache_size_limit_bytes":         Global.Cache.SizeLimitBytes,
		"cache_protected_period_seconds": Global.Cache.ProtectedPeriodSeconds,
		"cache_shrink_enabled":           Global.Cache.ShrinkEnabled,
	}
}

// Helpers
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		vLower := strings.ToLower(v)
		return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
	}
	return fallback
}
