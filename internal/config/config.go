// Package config loads settings from an optional TOML file, NOBG_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	KeyLogLevel          = "log.level"
	KeyBackend           = "remover.backend"
	KeyTimeout           = "remover.timeout"
	KeyRembgBinary       = "rembg.binary"
	KeyRembgModel        = "rembg.model"
	KeyRembgAlphaMatting = "rembg.alpha_matting"
	KeyFALURL            = "fal.url"
	KeyFALAPIKey         = "fal.api_key"
	KeyMaxDimension      = "image.max_dimension"
	KeyNoClobber         = "output.no_clobber"
)

const (
	DefaultLogLevel = "warn"
	DefaultBackend  = "rembg"
	// DefaultTimeout of zero means the run has no deadline.
	DefaultTimeout time.Duration = 0
)

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"log-level":     KeyLogLevel,
	"backend":       KeyBackend,
	"timeout":       KeyTimeout,
	"max-dimension": KeyMaxDimension,
	"no-clobber":    KeyNoClobber,
}

type Config struct {
	LogLevel          string
	Backend           string
	Timeout           time.Duration
	RembgBinary       string
	RembgModel        string
	RembgAlphaMatting bool
	FALURL            string
	FALAPIKey         string
	MaxDimension      int
	NoClobber         bool
}

// RegisterFlags adds the flags that can override config keys.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("log-level", DefaultLogLevel, "log level written to stderr (debug, info, warn, error)")
	flags.String("backend", DefaultBackend, "background removal backend (rembg, fal)")
	flags.Duration("timeout", DefaultTimeout, "deadline for the whole run, 0 disables it")
	flags.Int("max-dimension", 0, "downscale images larger than this before removal, 0 disables")
	flags.Bool("no-clobber", false, "fail instead of overwriting an existing output file")
}

// Load reads the config. An explicit configFile must exist, the default nobg.toml lookup may find nothing.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyBackend, DefaultBackend)
	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyMaxDimension, 0)
	v.SetDefault(KeyNoClobber, false)

	v.SetEnvPrefix("NOBG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("nobg")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "nobg"))
		}
	}

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
		log.Debug().Msg("no config file found, using defaults")
	} else {
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("read config file")
	}

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("could not bind flag %s: %w", name, err)
			}
		}
	}

	cfg := &Config{
		LogLevel:          v.GetString(KeyLogLevel),
		Backend:           v.GetString(KeyBackend),
		Timeout:           v.GetDuration(KeyTimeout),
		RembgBinary:       v.GetString(KeyRembgBinary),
		RembgModel:        v.GetString(KeyRembgModel),
		RembgAlphaMatting: v.GetBool(KeyRembgAlphaMatting),
		FALURL:            v.GetString(KeyFALURL),
		FALAPIKey:         v.GetString(KeyFALAPIKey),
		MaxDimension:      v.GetInt(KeyMaxDimension),
		NoClobber:         v.GetBool(KeyNoClobber),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Backend == "" {
		return errors.New("remover backend is required")
	}

	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout: %s", c.Timeout)
	}

	if c.MaxDimension < 0 {
		return fmt.Errorf("invalid max dimension: %d", c.MaxDimension)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}

	return nil
}

// Level returns the zerolog level for LogLevel. An empty or unparsable value falls back to warn.
func (c *Config) Level() zerolog.Level {
	if c.LogLevel == "" {
		return zerolog.WarnLevel
	}

	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.WarnLevel
	}

	return level
}
