package config

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"

	"github.com/alecthomas/units"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	pkgMath "github.com/plgd-dev/coapmsg/pkg/math"
)

const envPrefix = "COAPMSG_"

type Config struct {
	LogLevel          string           `env:"LOG_LEVEL"           envDefault:"info"`
	LogFormat         string           `env:"LOG_FORMAT"          envDefault:"text"`
	MaxMessageSize    units.Base2Bytes `env:"MAX_MESSAGE_SIZE"    envDefault:"1KiB"`
	MaxPooledMessages int              `env:"MAX_POOLED_MESSAGES" envDefault:"64"`
	DecodeWorkers     int              `env:"DECODE_WORKERS"      envDefault:"4"`
}

var parsers = map[reflect.Type]env.ParserFunc{
	reflect.TypeOf(units.Base2Bytes(0)): func(v string) (interface{}, error) {
		return units.ParseBase2Bytes(v)
	},
}

// Load reads an optional .env file from the working directory and then the
// COAPMSG_ environment variables. Variables already set in the environment
// win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse(nil)
}

// Parse reads the configuration from environment. When environment is nil
// the process environment is used.
func Parse(environment map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{
		Prefix:      envPrefix,
		FuncMap:     parsers,
		Environment: environment,
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("cannot parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format(%v): expected text or json", c.LogFormat)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("invalid max message size(%v)", c.MaxMessageSize)
	}
	if _, err := c.MessageSize(); err != nil {
		return fmt.Errorf("invalid max message size(%v): %w", c.MaxMessageSize, err)
	}
	if _, err := c.PooledMessages(); err != nil {
		return fmt.Errorf("invalid max pooled messages(%v): %w", c.MaxPooledMessages, err)
	}
	if c.DecodeWorkers <= 0 {
		return fmt.Errorf("invalid decode workers(%v)", c.DecodeWorkers)
	}
	return nil
}

func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level(%v): %w", c.LogLevel, err)
	}
	return level, nil
}

// MessageSize returns the storage budget of a pooled message in bytes.
func (c Config) MessageSize() (int, error) {
	return pkgMath.SafeCastTo[int](int64(c.MaxMessageSize))
}

func (c Config) PooledMessages() (uint32, error) {
	return pkgMath.SafeCastTo[uint32](c.MaxPooledMessages)
}

// NewLogger creates a slog logger writing to w in the configured format.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (c Config) String() string {
	return fmt.Sprintf("level=%v format=%v maxMessageSize=%v maxPooledMessages=%v decodeWorkers=%v",
		c.LogLevel, c.LogFormat, c.MaxMessageSize, c.MaxPooledMessages, c.DecodeWorkers)
}
