// Package config loads Pin Agent configuration from flags, PIN_*
// environment variables, and an optional YAML file, following the
// viper/cobra wiring pattern used by
// bryanchriswhite-FocusStreamer/cmd/focusstreamer/commands.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the agent's runtime configuration surface. None of these
// fields are part of spec.md's persisted state (only mirrorOpacity
// is); they are process configuration, read once at startup.
type Config struct {
	// ResponseFilePath is where dispatcher responses are written
	// (spec.md §6: /tmp/pin-response.json by default).
	ResponseFilePath string `mapstructure:"response_file"`
	// LogLevel is one of debug/info/warn/error.
	LogLevel string `mapstructure:"log_level"`
	// LogPretty enables the colorized console writer instead of JSON lines.
	LogPretty bool `mapstructure:"log_pretty"`
	// HTTPAddr is the loopback bind address for the HTTP command
	// mirror (internal/httpapi). Empty disables it.
	HTTPAddr string `mapstructure:"http_addr"`
	// ExcludedBundleIDsFile points at a YAML file of additional
	// bundle identifiers the window enumerator should filter out,
	// beyond the built-in self/launcher/Spotlight set.
	ExcludedBundleIDsFile string `mapstructure:"excluded_bundle_ids_file"`
	// FrameRateFallback is loaded from configuration but not passed
	// on: capture configurations fall back to
	// model.DefaultFrameRateFallback (60) when a display's maximum
	// frame rate cannot be determined.
	FrameRateFallback int `mapstructure:"frame_rate_fallback"`
}

// Default returns the configuration used when no flags, environment
// variables, or config file override it.
func Default() Config {
	return Config{
		ResponseFilePath:  "/tmp/pin-response.json",
		LogLevel:          "info",
		LogPretty:         false,
		HTTPAddr:          "127.0.0.1:47710",
		FrameRateFallback: 60,
	}
}

// Load reads configuration the way FocusStreamer's root command does:
// a viper instance seeded with defaults, overridden by a YAML file at
// cfgFile (or, if empty, $XDG_CONFIG_HOME/pin/pin.yaml /
// ~/.config/pin/pin.yaml), overridden in turn by PIN_* environment
// variables, which cobra flag binding overrides last.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	cfg := Default()

	v.SetDefault("response_file", cfg.ResponseFilePath)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_pretty", cfg.LogPretty)
	v.SetDefault("http_addr", cfg.HTTPAddr)
	v.SetDefault("frame_rate_fallback", cfg.FrameRateFallback)

	v.SetEnvPrefix("PIN")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err == nil {
			v.AddConfigPath(dir)
			v.SetConfigName("pin")
			v.SetConfigType("yaml")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return cfg, err
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pin"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pin"), nil
}

// ExcludedBundleIDs reads the optional user-editable YAML list of
// additional bundle identifiers to filter from window enumeration.
// A missing file is not an error; it yields an empty list.
func ExcludedBundleIDs(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	if err := yaml.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
