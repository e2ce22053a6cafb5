// Package environment provides utilities for managing environment variables
// and configuration loading with support for namespacing and defaults.
package environment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from the .env files at paths, or from
// .env in the working directory when none are given. Missing files are not
// an error; variables already set win over file values.
//
// Example:
//
//	if err := LoadEnv(".env", ".env.local"); err != nil {
//	    return err
//	}
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// GetEnvOrDefault retrieves an environment variable value, returning a fallback
// value if the variable is not set.
//
// Example:
//
//	port := GetEnvOrDefault("PORT", "8080")
func GetEnvOrDefault(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvKeyPrefix constructs a namespaced environment variable key by
// combining a prefix with the key using an underscore.
//
//	GetEnvKeyPrefix("GROWLOG", "DATABASE_URL") // "GROWLOG_DATABASE_URL"
//	GetEnvKeyPrefix("", "DATABASE_URL")        // "DATABASE_URL"
func GetEnvKeyPrefix(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return fmt.Sprintf("%s_%s", prefix, key)
}

// GetPrefixEnvOrDefault is GetEnvOrDefault for a prefixed key.
func GetPrefixEnvOrDefault(prefix, key, fallback string) string {
	return GetEnvOrDefault(GetEnvKeyPrefix(prefix, key), fallback)
}
