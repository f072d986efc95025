package config

import (
	"inkwell/internal/logging"
)

const (
	DefaultAddr       = "127.0.0.1:7420"
	DefaultConfigFile = "inkwell.yaml"
	DefaultEnvFile    = ".env"
	envPrefix         = "INKWELL_"
)

// Config holds the resolved server settings.
type Config struct {
	Addr           string
	AuthToken      string
	AllowedOrigins []string
	LogLevel       logging.Level
	LogFormat      logging.Format
	Verbose        bool
	Quiet          bool
	WatchRoot      string
	ConfigFile     string
	Sources        map[string]Source
}

// Source records where a setting came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// Keys shared by flags, env vars (upper-cased with INKWELL_ prefix) and the
// YAML file.
const (
	KeyAddr           = "addr"
	KeyToken          = "token"
	KeyAllowedOrigins = "allowed-origins"
	KeyLogLevel       = "log-level"
	KeyLogFormat      = "log-format"
	KeyVerbose        = "verbose"
	KeyQuiet          = "quiet"
	KeyWatchRoot      = "watch-root"
	KeyConfig         = "config"
)

// EffectiveLogLevel applies --verbose and --quiet on top of log-level.
func (cfg Config) EffectiveLogLevel() logging.Level {
	switch {
	case cfg.Verbose:
		return logging.LevelDebug
	case cfg.Quiet:
		return logging.LevelWarning
	case cfg.LogLevel == "":
		return logging.LevelInfo
	default:
		return cfg.LogLevel
	}
}

type fileValues struct {
	Addr           *string  `yaml:"addr"`
	Token          *string  `yaml:"token"`
	AllowedOrigins []string `yaml:"allowed-origins"`
	LogLevel       *string  `yaml:"log-level"`
	LogFormat      *string  `yaml:"log-format"`
	Verbose        *bool    `yaml:"verbose"`
	Quiet          *bool    `yaml:"quiet"`
	WatchRoot      *string  `yaml:"watch-root"`
}

func defaultConfig() Config {
	return Config{
		Addr:      DefaultAddr,
		LogLevel:  logging.LevelInfo,
		LogFormat: logging.FormatConsole,
		Sources: map[string]Source{
			KeyAddr:           SourceDefault,
			KeyToken:          SourceDefault,
			KeyAllowedOrigins: SourceDefault,
			KeyLogLevel:       SourceDefault,
			KeyLogFormat:      SourceDefault,
			KeyVerbose:        SourceDefault,
			KeyQuiet:          SourceDefault,
			KeyWatchRoot:      SourceDefault,
		},
	}
}
