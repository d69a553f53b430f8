package config

import (
	"os"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "NOMNOM_"

// applyEnv overrides file values with NOMNOM_* environment variables
func applyEnv(cfg Config) Config {
	cfg.EditorsPath = getEnv(EnvPrefix+"EDITORS_PATH", cfg.EditorsPath)
	cfg.HubPath = getEnv(EnvPrefix+"HUB_PATH", cfg.HubPath)
	cfg.AppDataPath = getEnv(EnvPrefix+"APPDATA_PATH", cfg.AppDataPath)
	cfg.CacheDir = getEnv(EnvPrefix+"CACHE_DIR", cfg.CacheDir)
	cfg.NewProjectPath = getEnv(EnvPrefix+"NEW_PROJECT_PATH", cfg.NewProjectPath)
	cfg.EditorTimeout = getEnv(EnvPrefix+"EDITOR_TIMEOUT", cfg.EditorTimeout)
	cfg.APIAddr = getEnv(EnvPrefix+"API_ADDR", cfg.APIAddr)
	cfg.LogLevel = getEnv(EnvPrefix+"LOG_LEVEL", cfg.LogLevel)
	cfg.GitToken = getEnv(EnvPrefix+"GIT_TOKEN", cfg.GitToken)
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
