package logger

import (
	"fmt"
	"log/slog"
	"sort"
)

// Log format constants.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// LoggingConfigSpec defines the logging configuration applied by Configure.
type LoggingConfigSpec struct {
	DefaultLevel string            `mapstructure:"level" yaml:"level"`
	Format       string            `mapstructure:"format" yaml:"format"` // "json" or "text"
	CommonFields map[string]string `mapstructure:"fields" yaml:"fields"`
}

// Configure applies a LoggingConfigSpec to the global logger.
func Configure(cfg *LoggingConfigSpec) error {
	if cfg == nil {
		return nil
	}

	switch cfg.Format {
	case "", FormatText, FormatJSON:
	default:
		return fmt.Errorf("unsupported log format %q (must be %q or %q)", cfg.Format, FormatText, FormatJSON)
	}

	mu.Lock()
	defer mu.Unlock()

	if cfg.DefaultLevel != "" {
		logLevel.Set(ParseLevel(cfg.DefaultLevel))
	}
	logFormat = FormatText
	if cfg.Format == FormatJSON {
		logFormat = FormatJSON
	}

	// Sorted for stable output ordering.
	keys := make([]string, 0, len(cfg.CommonFields))
	for k := range cfg.CommonFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	common = common[:0]
	for _, k := range keys {
		common = append(common, slog.String(k, cfg.CommonFields[k]))
	}

	rebuild()
	slog.SetDefault(DefaultLogger)
	return nil
}
