package config

import (
	"fmt"
	"sort"
	"strings"

	"inkwell/internal/logging"
)

// LogStartup records non-default settings with their source. The token value
// is never logged.
func LogStartup(logger *logging.Logger, cfg Config) {
	if logger == nil || cfg.Sources == nil {
		return
	}
	keys := make([]string, 0, len(cfg.Sources))
	for key, source := range cfg.Sources {
		if source != SourceDefault {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return
	}
	sort.Strings(keys)

	settings := make([]string, 0, len(keys))
	for _, key := range keys {
		settings = append(settings, fmt.Sprintf("%s=%s (%s)", key, cfg.display(key), cfg.Sources[key]))
	}
	fields := map[string]string{
		"inkwell.category": "config",
		"settings":         strings.Join(settings, ", "),
	}
	if cfg.ConfigFile != "" {
		fields["config_file"] = cfg.ConfigFile
	}
	logger.Debug("configuration resolved", fields)
}

func (cfg Config) display(key string) string {
	switch key {
	case KeyAddr:
		return cfg.Addr
	case KeyToken:
		if cfg.AuthToken == "" {
			return `""`
		}
		return "[set]"
	case KeyAllowedOrigins:
		return strings.Join(cfg.AllowedOrigins, ",")
	case KeyLogLevel:
		return string(cfg.LogLevel)
	case KeyLogFormat:
		return string(cfg.LogFormat)
	case KeyVerbose:
		return fmt.Sprintf("%t", cfg.Verbose)
	case KeyQuiet:
		return fmt.Sprintf("%t", cfg.Quiet)
	case KeyWatchRoot:
		return cfg.WatchRoot
	default:
		return ""
	}
}
