package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"inkwell/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// LoadOptions controls where Load looks for values. Zero values use the
// process environment and the default file names.
type LoadOptions struct {
	LookupEnv func(string) (string, bool)
	EnvFile   string
}

// RegisterFlags adds the server flags to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String(KeyConfig, "", "path to a YAML config file (default inkwell.yaml when present)")
	flags.String(KeyAddr, DefaultAddr, "HTTP listen address")
	flags.String(KeyToken, "", "bearer token required by the API and streams")
	flags.StringSlice(KeyAllowedOrigins, nil, "extra websocket origins to accept")
	flags.String(KeyLogLevel, string(logging.LevelInfo), "log level (debug, info, warning, error)")
	flags.String(KeyLogFormat, string(logging.FormatConsole), "log format (console, json)")
	flags.BoolP(KeyVerbose, "v", false, "enable debug logging")
	flags.BoolP(KeyQuiet, "q", false, "only log warnings and errors")
	flags.String(KeyWatchRoot, "", "directory to watch at startup")
}

// Load resolves the configuration: defaults, then the YAML file, then the
// environment (real variables win over .env), then flags that were set.
func Load(flags *pflag.FlagSet, options LoadOptions) (Config, error) {
	lookup, err := envLookup(options)
	if err != nil {
		return Config{}, err
	}
	cfg := defaultConfig()

	configPath, explicit := resolveConfigPath(flags, lookup)
	if configPath != "" {
		values, err := readFile(configPath)
		switch {
		case err == nil:
			cfg.ConfigFile = configPath
			if err := applyFile(&cfg, values); err != nil {
				return Config{}, fmt.Errorf("%s: %w", configPath, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if flags != nil {
		if err := applyFlags(&cfg, flags); err != nil {
			return Config{}, err
		}
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envLookup(options LoadOptions) (func(string) (string, bool), error) {
	base := options.LookupEnv
	if base == nil {
		base = os.LookupEnv
	}
	envFile := options.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
		dotenv = nil
	}
	return func(key string) (string, bool) {
		if value, ok := base(key); ok {
			return value, true
		}
		value, ok := dotenv[key]
		return value, ok
	}, nil
}

func resolveConfigPath(flags *pflag.FlagSet, lookup func(string) (string, bool)) (string, bool) {
	if flags != nil && flags.Changed(KeyConfig) {
		if value, err := flags.GetString(KeyConfig); err == nil && strings.TrimSpace(value) != "" {
			return value, true
		}
	}
	if value, ok := lookup(envKey(KeyConfig)); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value), true
	}
	return DefaultConfigFile, false
}

func readFile(path string) (fileValues, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fileValues{}, err
	}
	var values fileValues
	decoder := yaml.NewDecoder(bytes.NewReader(payload))
	decoder.KnownFields(true)
	if err := decoder.Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		return fileValues{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return values, nil
}

func applyFile(cfg *Config, values fileValues) error {
	if values.Addr != nil {
		cfg.Addr = strings.TrimSpace(*values.Addr)
		cfg.Sources[KeyAddr] = SourceFile
	}
	if values.Token != nil {
		cfg.AuthToken = *values.Token
		cfg.Sources[KeyToken] = SourceFile
	}
	if values.AllowedOrigins != nil {
		cfg.AllowedOrigins = cleanList(values.AllowedOrigins)
		cfg.Sources[KeyAllowedOrigins] = SourceFile
	}
	if values.LogLevel != nil {
		if err := setLogLevel(cfg, *values.LogLevel, SourceFile); err != nil {
			return err
		}
	}
	if values.LogFormat != nil {
		if err := setLogFormat(cfg, *values.LogFormat, SourceFile); err != nil {
			return err
		}
	}
	if values.Verbose != nil {
		cfg.Verbose = *values.Verbose
		cfg.Sources[KeyVerbose] = SourceFile
	}
	if values.Quiet != nil {
		cfg.Quiet = *values.Quiet
		cfg.Sources[KeyQuiet] = SourceFile
	}
	if values.WatchRoot != nil {
		cfg.WatchRoot = strings.TrimSpace(*values.WatchRoot)
		cfg.Sources[KeyWatchRoot] = SourceFile
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if value, ok := lookupTrimmed(lookup, KeyAddr); ok {
		cfg.Addr = value
		cfg.Sources[KeyAddr] = SourceEnv
	}
	if value, ok := lookup(envKey(KeyToken)); ok && value != "" {
		cfg.AuthToken = value
		cfg.Sources[KeyToken] = SourceEnv
	}
	if value, ok := lookupTrimmed(lookup, KeyAllowedOrigins); ok {
		cfg.AllowedOrigins = cleanList(strings.Split(value, ","))
		cfg.Sources[KeyAllowedOrigins] = SourceEnv
	}
	if value, ok := lookupTrimmed(lookup, KeyLogLevel); ok {
		if err := setLogLevel(cfg, value, SourceEnv); err != nil {
			return fmt.Errorf("%s: %w", envKey(KeyLogLevel), err)
		}
	}
	if value, ok := lookupTrimmed(lookup, KeyLogFormat); ok {
		if err := setLogFormat(cfg, value, SourceEnv); err != nil {
			return fmt.Errorf("%s: %w", envKey(KeyLogFormat), err)
		}
	}
	for _, key := range []string{KeyVerbose, KeyQuiet} {
		value, ok := lookupTrimmed(lookup, key)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: invalid boolean %q", envKey(key), value)
		}
		if key == KeyVerbose {
			cfg.Verbose = parsed
		} else {
			cfg.Quiet = parsed
		}
		cfg.Sources[key] = SourceEnv
	}
	if value, ok := lookupTrimmed(lookup, KeyWatchRoot); ok {
		cfg.WatchRoot = value
		cfg.Sources[KeyWatchRoot] = SourceEnv
	}
	return nil
}

func applyFlags(cfg *Config, flags *pflag.FlagSet) error {
	if flags.Changed(KeyAddr) {
		value, _ := flags.GetString(KeyAddr)
		cfg.Addr = strings.TrimSpace(value)
		cfg.Sources[KeyAddr] = SourceFlag
	}
	if flags.Changed(KeyToken) {
		value, _ := flags.GetString(KeyToken)
		cfg.AuthToken = value
		cfg.Sources[KeyToken] = SourceFlag
	}
	if flags.Changed(KeyAllowedOrigins) {
		value, _ := flags.GetStringSlice(KeyAllowedOrigins)
		cfg.AllowedOrigins = cleanList(value)
		cfg.Sources[KeyAllowedOrigins] = SourceFlag
	}
	if flags.Changed(KeyLogLevel) {
		value, _ := flags.GetString(KeyLogLevel)
		if err := setLogLevel(cfg, value, SourceFlag); err != nil {
			return fmt.Errorf("invalid --%s: %w", KeyLogLevel, err)
		}
	}
	if flags.Changed(KeyLogFormat) {
		value, _ := flags.GetString(KeyLogFormat)
		if err := setLogFormat(cfg, value, SourceFlag); err != nil {
			return fmt.Errorf("invalid --%s: %w", KeyLogFormat, err)
		}
	}
	if flags.Changed(KeyVerbose) {
		cfg.Verbose, _ = flags.GetBool(KeyVerbose)
		cfg.Sources[KeyVerbose] = SourceFlag
	}
	if flags.Changed(KeyQuiet) {
		cfg.Quiet, _ = flags.GetBool(KeyQuiet)
		cfg.Sources[KeyQuiet] = SourceFlag
	}
	if flags.Changed(KeyWatchRoot) {
		value, _ := flags.GetString(KeyWatchRoot)
		cfg.WatchRoot = strings.TrimSpace(value)
		cfg.Sources[KeyWatchRoot] = SourceFlag
	}
	return nil
}

func validate(cfg Config) error {
	if cfg.Addr == "" {
		return errors.New("addr cannot be empty")
	}
	if cfg.Verbose && cfg.Quiet {
		return errors.New("verbose and quiet cannot both be set")
	}
	return nil
}

func setLogLevel(cfg *Config, raw string, source Source) error {
	level, ok := logging.ParseLevel(raw)
	if !ok {
		return fmt.Errorf("unknown log level %q", raw)
	}
	cfg.LogLevel = level
	cfg.Sources[KeyLogLevel] = source
	return nil
}

func setLogFormat(cfg *Config, raw string, source Source) error {
	format, ok := logging.ParseFormat(raw)
	if !ok {
		return fmt.Errorf("unknown log format %q", raw)
	}
	cfg.LogFormat = format
	cfg.Sources[KeyLogFormat] = source
	return nil
}

func lookupTrimmed(lookup func(string) (string, bool), key string) (string, bool) {
	value, ok := lookup(envKey(key))
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func envKey(key string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

func cleanList(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
