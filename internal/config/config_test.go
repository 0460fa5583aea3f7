package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gochat-presence/internal/errutil"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gochat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":8887", cfg.Addr)
}

func TestLoad_DefaultsWithUnchangedFlags(t *testing.T) {
	cfg, err := Load("", newFlagSet(t))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfigFile(t, `
addr: ":9999"
allowed_origins:
  - "http://chat.example.com"
  - "*"
max_message_size: 1024
pong_wait: 30s
rate_limit:
  burst: 10
  refill_interval: 2s
log:
  format: text
  level: debug
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, []string{"http://chat.example.com", "*"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(1024), cfg.MaxMessageSize)
	assert.Equal(t, 30*time.Second, cfg.PongWait)
	assert.Equal(t, 27*time.Second, cfg.PingPeriod())
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "debug", cfg.Log.Level)
	// untouched keys keep their defaults
	assert.Equal(t, Default().WriteWait, cfg.WriteWait)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeInvalid)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "addr: \":9999\"\nsend_buffer: 16\n")
	t.Setenv("GOCHAT_ADDR", ":7000")
	t.Setenv("GOCHAT_ALLOWED_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("GOCHAT_RATE_LIMIT_BURST", "42")
	t.Setenv("GOCHAT_UNRELATED", "ignored")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, 16, cfg.SendBuffer)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 42, cfg.RateLimit.Burst)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("GOCHAT_ADDR", ":7000")
	t.Setenv("GOCHAT_LOG_LEVEL", "warn")

	cfg, err := Load("", newFlagSet(t, "--addr", ":6000", "--rate-limit-refill", "3s"))
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.Addr)
	assert.Equal(t, 3*time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, "warn", cfg.Log.Level, "unchanged flag must not override env")
}

func TestLoad_SliceFlag(t *testing.T) {
	cfg, err := Load("", newFlagSet(t, "--allowed-origins", "http://x.example,http://y.example"))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://x.example", "http://y.example"}, cfg.AllowedOrigins)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	t.Setenv("GOCHAT_LOG_LEVEL", "chatty")

	_, err := Load("", nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeInvalid)
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	_, err := Load("", newFlagSet(t, "--log-format", "xml"))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeInvalid)
}

func TestSanitize(t *testing.T) {
	cfg := Config{
		AllowedOrigins: []string{" http://a.example ", "", "  "},
		MaxMessageSize: -1,
		RateLimit:      RateLimitConfig{Burst: -1, RefillInterval: -time.Second},
	}.Sanitize()

	def := Default()
	assert.Equal(t, def.Addr, cfg.Addr)
	assert.Equal(t, int64(0), cfg.MaxMessageSize)
	assert.Equal(t, def.SendBuffer, cfg.SendBuffer)
	assert.Equal(t, def.PongWait, cfg.PongWait)
	assert.Equal(t, def.WriteWait, cfg.WriteWait)
	assert.Equal(t, def.ShutdownTimeout, cfg.ShutdownTimeout)
	assert.Equal(t, def.RateLimit, cfg.RateLimit)
	assert.Equal(t, def.Log, cfg.Log)
	assert.Equal(t, []string{"http://a.example"}, cfg.AllowedOrigins)
}

func TestPingPeriodShorterThanPongWait(t *testing.T) {
	cfg := Default()
	assert.Less(t, cfg.PingPeriod(), cfg.PongWait)
}

func TestDefault_NoFrameSizeOrRateLimit(t *testing.T) {
	def := Default()
	assert.Equal(t, int64(0), def.MaxMessageSize)
	assert.Equal(t, 0, def.RateLimit.Burst)

	cfg := Config{MaxMessageSize: 0, RateLimit: RateLimitConfig{Burst: 0}}.Sanitize()
	assert.Equal(t, int64(0), cfg.MaxMessageSize, "zero must stay unlimited")
	assert.Equal(t, 0, cfg.RateLimit.Burst, "zero must keep rate limiting off")
}
