// internal/config/env.go
package config

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// GetEnv reads an environment variable or returns a default value.
func GetEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetEnvInt parses an environment variable as an integer, else returns a default value.
func GetEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		logrus.Warnf("invalid integer for %s=%q, using %d", key, s, def)
		return def
	}
	return v
}

// ParseLogLevel maps a level name ("debug", "info", ...) to a logrus level, defaulting to info.
func ParseLogLevel(name string) logrus.Level {
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
