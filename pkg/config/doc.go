// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv (optional .env file) and
// github.com/caarlos0/env/v11 (struct tag parsing). Each config type is parsed
// once and cached; Reset clears the cache in tests.
package config
