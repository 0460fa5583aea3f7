// Package config loads the relay's runtime settings from defaults, an optional
// YAML file, GOCHAT_* environment variables and command-line flags, in that order
// of increasing precedence.
package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/Tyrowin/gochat-presence/internal/logging"
)

// CodeInvalid is the oops error code for configuration that cannot be loaded.
const CodeInvalid = "CONFIG_INVALID"

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "GOCHAT_"

// RateLimitConfig defines the parameters for per-connection message rate limiting.
// A Burst of zero disables rate limiting.
type RateLimitConfig struct {
	Burst          int           `koanf:"burst"`
	RefillInterval time.Duration `koanf:"refill_interval"`
}

// LogConfig selects the log format and minimum level.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Addr            string          `koanf:"addr"`
	AllowedOrigins  []string        `koanf:"allowed_origins"`
	MaxMessageSize  int64           `koanf:"max_message_size"` // 0 is unlimited
	SendBuffer      int             `koanf:"send_buffer"`
	PongWait        time.Duration   `koanf:"pong_wait"`
	WriteWait       time.Duration   `koanf:"write_wait"`
	ShutdownTimeout time.Duration   `koanf:"shutdown_timeout"`
	RateLimit       RateLimitConfig `koanf:"rate_limit"`
	Log             LogConfig       `koanf:"log"`
}

// Default returns a Config populated with default values for all settings.
func Default() Config {
	return Config{
		Addr: ":8887",
		AllowedOrigins: []string{
			"http://localhost:8887",
		},
		MaxMessageSize:  0,
		SendBuffer:      256,
		PongWait:        60 * time.Second,
		WriteWait:       10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RateLimit: RateLimitConfig{
			Burst:          0,
			RefillInterval: time.Second,
		},
		Log: LogConfig{
			Format: logging.FormatJSON,
			Level:  "info",
		},
	}
}

// PingPeriod is how often the server pings a client. It must be shorter than
// PongWait so a healthy client always answers before its read deadline.
func (c Config) PingPeriod() time.Duration {
	return c.PongWait * 9 / 10
}

// LogLevel returns the parsed log level.
func (c Config) LogLevel() slog.Level {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// Sanitize replaces non-positive numeric settings with their defaults and
// normalizes the origin list. MaxMessageSize and RateLimit.Burst are limits
// where zero means off, so only negative values are reset, to zero.
func (c Config) Sanitize() Config {
	def := Default()

	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.MaxMessageSize < 0 {
		c.MaxMessageSize = 0
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = def.SendBuffer
	}
	if c.PongWait <= 0 {
		c.PongWait = def.PongWait
	}
	if c.WriteWait <= 0 {
		c.WriteWait = def.WriteWait
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	if c.RateLimit.Burst < 0 {
		c.RateLimit.Burst = 0
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}

	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, origin := range c.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.AllowedOrigins = origins

	return c
}

// Validate reports settings that cannot be sanitized into something usable.
func (c Config) Validate() error {
	if err := logging.ValidateFormat(c.Log.Format); err != nil {
		return err //nolint:wrapcheck // already coded
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err //nolint:wrapcheck // already coded
	}
	return nil
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"addr":              "addr",
	"allowed-origins":   "allowed_origins",
	"max-message-size":  "max_message_size",
	"send-buffer":       "send_buffer",
	"pong-wait":         "pong_wait",
	"write-wait":        "write_wait",
	"shutdown-timeout":  "shutdown_timeout",
	"rate-limit-burst":  "rate_limit.burst",
	"rate-limit-refill": "rate_limit.refill_interval",
	"log-format":        "log.format",
	"log-level":         "log.level",
}

// envKeys maps environment variables, without EnvPrefix, to configuration keys.
var envKeys = map[string]string{
	"ADDR":                       "addr",
	"ALLOWED_ORIGINS":            "allowed_origins",
	"MAX_MESSAGE_SIZE":           "max_message_size",
	"SEND_BUFFER":                "send_buffer",
	"PONG_WAIT":                  "pong_wait",
	"WRITE_WAIT":                 "write_wait",
	"SHUTDOWN_TIMEOUT":           "shutdown_timeout",
	"RATE_LIMIT_BURST":           "rate_limit.burst",
	"RATE_LIMIT_REFILL_INTERVAL": "rate_limit.refill_interval",
	"LOG_FORMAT":                 "log.format",
	"LOG_LEVEL":                  "log.level",
}

// RegisterFlags adds the serve flags to fs with defaults matching Default.
func RegisterFlags(fs *pflag.FlagSet) {
	def := Default()
	fs.String("addr", def.Addr, "listen address")
	fs.StringSlice("allowed-origins", def.AllowedOrigins, "allowed WebSocket origins (* allows all)")
	fs.Int64("max-message-size", def.MaxMessageSize, "maximum inbound frame size in bytes (0 is unlimited)")
	fs.Int("send-buffer", def.SendBuffer, "per-connection outbound frame buffer")
	fs.Duration("pong-wait", def.PongWait, "idle time allowed between pongs before a connection is dropped")
	fs.Duration("write-wait", def.WriteWait, "deadline for a single frame write")
	fs.Duration("shutdown-timeout", def.ShutdownTimeout, "graceful shutdown timeout")
	fs.Int("rate-limit-burst", def.RateLimit.Burst, "frames a client may send in a burst (0 disables rate limiting)")
	fs.Duration("rate-limit-refill", def.RateLimit.RefillInterval, "interval over which the burst refills")
	fs.String("log-format", def.Log.Format, "log format (json or text)")
	fs.String("log-level", def.Log.Level, "log level (debug, info, warn, error)")
}

// Load builds the configuration. path may be empty to skip the YAML file and fs
// may be nil to skip flags.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code(CodeInvalid).With("path", path).Wrapf(err, "load config file")
		}
	}

	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		name, ok := envKeys[strings.TrimPrefix(key, EnvPrefix)]
		if !ok {
			return "", nil
		}
		if name == "allowed_origins" {
			return name, strings.Split(value, ",")
		}
		return name, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, oops.Code(CodeInvalid).Wrapf(err, "load environment")
	}

	if fs != nil {
		flagProvider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			name, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			if f.Value.Type() == "stringSlice" {
				values, err := fs.GetStringSlice(f.Name)
				if err == nil {
					return name, values
				}
			}
			return name, f.Value.String()
		})
		if err := k.Load(flagProvider, nil); err != nil {
			return Config{}, oops.Code(CodeInvalid).Wrapf(err, "load flags")
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code(CodeInvalid).Wrapf(err, "decode config")
	}

	cfg = cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
