package main

import (
	"time"

	"github.com/dmitrymomot/forumnotify/modules/notifications"
)

type appConfig struct {
	AppName  string `env:"APP_NAME" envDefault:"forumnotify"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL"` // overrides the environment preset when set

	JWTSecret string `env:"JWT_SECRET,required"`
	JWTIssuer string `env:"JWT_ISSUER"`

	StreamRateCapacity int           `env:"STREAM_RATE_LIMIT_CAPACITY" envDefault:"10"` // connection attempts per client IP
	StreamRateRefill   int           `env:"STREAM_RATE_LIMIT_REFILL" envDefault:"1"`
	StreamRateInterval time.Duration `env:"STREAM_RATE_LIMIT_INTERVAL" envDefault:"6s"`

	Stream notifications.StreamConfig
}
