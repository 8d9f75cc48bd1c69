// Package config provides configuration types and defaults for shine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zjrosen/shine/internal/log"
)

// Output formats.
const (
	FormatANSI = "ansi"
	FormatHTML = "html"
	FormatTags = "tags"
	FormatRuns = "runs"
)

// Formats lists the valid output.format values.
var Formats = []string{FormatANSI, FormatHTML, FormatTags, FormatRuns}

// Config holds all configuration options for shine.
type Config struct {
	Languages LanguagesConfig `mapstructure:"languages"`
	Highlight HighlightConfig `mapstructure:"highlight"`
	Output    OutputConfig    `mapstructure:"output"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Flags     map[string]bool `mapstructure:"flags"`
}

// LanguagesConfig locates user language definitions.
type LanguagesConfig struct {
	// Dir holds *.yaml definitions that override the built-in ones.
	Dir string `mapstructure:"dir"`

	// Default is used when no language is given and none can be detected
	// from the file extension.
	Default string `mapstructure:"default"`
}

// HighlightConfig controls tag generation.
type HighlightConfig struct {
	ClassPrefix  string        `mapstructure:"class_prefix"`
	LinkStyles   []string      `mapstructure:"link_styles"`
	MatchTimeout time.Duration `mapstructure:"match_timeout"` // 0 disables regex timeouts
}

// OutputConfig controls how results are written.
type OutputConfig struct {
	Format string `mapstructure:"format"` // ansi (default), html, tags, runs

	// Theme is a chroma style name used for ANSI colours.
	Theme string `mapstructure:"theme"`

	// Colors overrides the theme per style name, e.g. comment: "#6A9955".
	Colors map[string]string `mapstructure:"colors"`
}

// CacheConfig controls the in-memory result cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// TracingConfig holds OpenTelemetry tracing configuration.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Exporter     string  `mapstructure:"exporter"` // none, file, stdout, otlp
	FilePath     string  `mapstructure:"file_path"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// DefaultConfigDir returns ~/.config/shine or "" if the home dir is unknown.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "shine")
}

// DefaultLanguagesDir returns ~/.config/shine/languages.
func DefaultLanguagesDir() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "languages")
}

// DefaultTracesFilePath returns ~/.config/shine/traces/traces.jsonl.
func DefaultTracesFilePath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traces", "traces.jsonl")
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Languages: LanguagesConfig{
			Dir: DefaultLanguagesDir(),
		},
		Highlight: HighlightConfig{
			ClassPrefix: "sh_",
			LinkStyles:  []string{"url"},
		},
		Output: OutputConfig{
			Format: FormatANSI,
			Theme:  "monokai",
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     10 * time.Minute,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // derived from config dir at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// Validate checks every section.
func Validate(c Config) error {
	if err := ValidateHighlight(c.Highlight); err != nil {
		return err
	}
	if err := ValidateOutput(c.Output); err != nil {
		return err
	}
	if err := ValidateCache(c.Cache); err != nil {
		return err
	}
	return ValidateTracing(c.Tracing)
}

// ValidateHighlight checks highlight configuration.
func ValidateHighlight(h HighlightConfig) error {
	if strings.ContainsAny(h.ClassPrefix, " \t\n\"'<>") {
		return fmt.Errorf("highlight.class_prefix must not contain whitespace, quotes or angle brackets, got %q", h.ClassPrefix)
	}
	for _, s := range h.LinkStyles {
		if s == "" {
			return fmt.Errorf("highlight.link_styles must not contain empty names")
		}
	}
	if h.MatchTimeout < 0 {
		return fmt.Errorf("highlight.match_timeout must not be negative, got %v", h.MatchTimeout)
	}
	return nil
}

// ValidateOutput checks output configuration. Empty values use defaults.
func ValidateOutput(o OutputConfig) error {
	if o.Format != "" && !isFormat(o.Format) {
		return fmt.Errorf("output.format must be one of %s, got %q", strings.Join(Formats, ", "), o.Format)
	}
	for style, color := range o.Colors {
		if !IsValidHexColor(color) {
			return fmt.Errorf("output.colors.%s: invalid hex color %q", style, color)
		}
	}
	return nil
}

// ValidateCache checks cache configuration.
func ValidateCache(c CacheConfig) error {
	if c.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %v", c.TTL)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	switch tracing.Exporter {
	case "", "none", "file", "stdout", "otlp":
	default:
		return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
	}

	if tracing.Enabled && tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
		return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
	}
	return nil
}

func isFormat(s string) bool {
	for _, f := range Formats {
		if f == s {
			return true
		}
	}
	return false
}

// IsValidHexColor reports whether s is #RGB or #RRGGBB.
func IsValidHexColor(s string) bool {
	if !strings.HasPrefix(s, "#") {
		return false
	}
	hex := s[1:]
	if len(hex) != 3 && len(hex) != 6 {
		return false
	}
	_, err := strconv.ParseUint(hex, 16, 64)
	return err == nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# shine configuration

languages:
  # Directory of *.yaml language definitions; a definition with the same
  # name as a built-in one replaces it.
  dir: ~/.config/shine/languages
  # Language used when none is given and the file extension is unknown.
  # default: c

highlight:
  class_prefix: sh_     # prefix for class attributes, e.g. sh_comment
  link_styles: [url]    # styles rendered as <a href="..."> links
  match_timeout: 0s     # per-regex timeout, 0 disables

output:
  format: ansi          # ansi, html, tags or runs
  theme: monokai        # chroma style used for terminal colours
  # Per-style colour overrides:
  # colors:
  #   comment: "#6A9955"
  #   keyword: "#C586C0"

cache:
  enabled: true
  ttl: 10m

# Tracing (OpenTelemetry)
# tracing:
#   enabled: true
#   exporter: file        # none, file, stdout, otlp
#   file_path: ~/.config/shine/traces/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0

flags:
  mail-links: true      # link text with '@' becomes a mailto: target
  result-cache: true
`
}

// WriteDefaultConfig creates a config file at configPath with default
// settings and comments, creating the parent directory if needed.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "created default config", "path", configPath)
	return nil
}
