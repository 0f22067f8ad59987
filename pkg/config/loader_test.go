package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/forumnotify/pkg/config"
)

type defaultsConfig struct {
	Name      string        `env:"TEST_CFG_NAME" envDefault:"forumnotify"`
	Heartbeat time.Duration `env:"TEST_CFG_HEARTBEAT" envDefault:"25s"`
	Enabled   bool          `env:"TEST_CFG_ENABLED" envDefault:"true"`
}

type envConfig struct {
	Port int `env:"TEST_CFG_PORT" envDefault:"8080"`
}

type requiredConfig struct {
	Secret string `env:"TEST_CFG_REQUIRED_SECRET,required"`
}

type fileConfig struct {
	String string   `env:"TEST_FILE_STRING"`
	Int    int      `env:"TEST_FILE_INT"`
	List   []string `env:"TEST_FILE_LIST" envSeparator:","`
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		config.Reset()
		var cfg defaultsConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "forumnotify", cfg.Name)
		assert.Equal(t, 25*time.Second, cfg.Heartbeat)
		assert.True(t, cfg.Enabled)
	})

	t.Run("environment overrides and cache", func(t *testing.T) {
		config.Reset()
		t.Setenv("TEST_CFG_PORT", "9000")

		var cfg envConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, 9000, cfg.Port)

		t.Setenv("TEST_CFG_PORT", "9001")
		var cached envConfig
		require.NoError(t, config.Load(&cached))
		assert.Equal(t, 9000, cached.Port)

		config.Reset()
		var fresh envConfig
		require.NoError(t, config.Load(&fresh))
		assert.Equal(t, 9001, fresh.Port)
	})

	t.Run("missing required", func(t *testing.T) {
		config.Reset()
		var cfg requiredConfig
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		var cfg *defaultsConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})
}

func TestMustLoad(t *testing.T) {
	config.Reset()
	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
}

func TestLoadEnv(t *testing.T) {
	t.Cleanup(func() {
		os.Unsetenv("TEST_FILE_STRING")
		os.Unsetenv("TEST_FILE_INT")
		os.Unsetenv("TEST_FILE_LIST")
		config.Reset()
	})

	require.NoError(t, config.LoadEnv("testdata/.env.base", "testdata/.env.override"))
	config.Reset()

	var cfg fileConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "override", cfg.String)
	assert.Equal(t, 1234, cfg.Int)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.List)

	assert.ErrorIs(t, config.LoadEnv("testdata/missing.env"), config.ErrLoadingEnvFile)
}
