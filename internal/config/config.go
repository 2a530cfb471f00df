package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidConfig сообщает о некорректных параметрах сборки.
var ErrInvalidConfig = errors.New("invalid config")

// AssemblyConfig describes one assembly call. It is passed by value and
// never shared between calls.
type AssemblyConfig struct {
	InputDir string `yaml:"input_dir"`
	// Pattern is an optional regexp matched against file names.
	Pattern string `yaml:"pattern"`
	// FilePattern overrides Pattern when set. Not serialisable.
	FilePattern func(name string) bool `yaml:"-"`
	DelayMs     int                    `yaml:"delay_ms"`
	LoopCount   int                    `yaml:"loop_count"` // 0 = бесконечно
	Quality     int                    `yaml:"quality"`
	Width       int                    `yaml:"width"`  // 0 = по первому кадру
	Height      int                    `yaml:"height"` // 0 = по первому кадру
}

// OutputConfig is used by the persist entry point.
type OutputConfig struct {
	Path       string `yaml:"path"`
	PublicRoot string `yaml:"public_root"`
}

type ServerConfig struct {
	Addr             string `yaml:"addr"`
	AllowedOrigin    string `yaml:"allowed_origin"`
	MaxResponseBytes int64  `yaml:"max_response_bytes"`
	MaxConcurrent    int64  `yaml:"max_concurrent"`
	OutputDir        string `yaml:"output_dir"`
	BaseURL          string `yaml:"base_url"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the application configuration file.
type Config struct {
	Assembly AssemblyConfig `yaml:"assembly"`
	Output   OutputConfig   `yaml:"output"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// DefaultAssembly returns a fresh AssemblyConfig with the stock settings.
func DefaultAssembly() AssemblyConfig {
	return AssemblyConfig{
		InputDir:  "public/images",
		DelayMs:   500,
		LoopCount: 0,
		Quality:   10,
	}
}

// Default returns a fresh application config.
func Default() Config {
	return Config{
		Assembly: DefaultAssembly(),
		Output: OutputConfig{
			Path:       "public/output.gif",
			PublicRoot: "public",
		},
		Server: ServerConfig{
			Addr:             ":56218",
			AllowedOrigin:    "*",
			MaxResponseBytes: 12 << 20,
			MaxConcurrent:    2,
			OutputDir:        "public/generated",
			BaseURL:          "http://localhost:56218/public",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// HasPNGSuffix is the default file predicate.
func HasPNGSuffix(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".png")
}

// Validate checks that every numeric option is non-negative and that
// Pattern compiles.
func (c AssemblyConfig) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"delay_ms", c.DelayMs},
		{"loop_count", c.LoopCount},
		{"quality", c.Quality},
		{"width", c.Width},
		{"height", c.Height},
	}
	for _, f := range fields {
		if f.value < 0 {
			return fmt.Errorf("%w: %s must be >= 0, got %d", ErrInvalidConfig, f.name, f.value)
		}
	}
	if c.InputDir == "" {
		return fmt.Errorf("%w: input_dir is empty", ErrInvalidConfig)
	}
	if c.FilePattern == nil && c.Pattern != "" {
		if _, err := regexp.Compile(c.Pattern); err != nil {
			return fmt.Errorf("%w: pattern: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Matcher returns the effective file name predicate. Call Validate first:
// an invalid Pattern falls back to HasPNGSuffix.
func (c AssemblyConfig) Matcher() func(name string) bool {
	if c.FilePattern != nil {
		return c.FilePattern
	}
	if c.Pattern != "" {
		if re, err := regexp.Compile(c.Pattern); err == nil {
			return re.MatchString
		}
	}
	return HasPNGSuffix
}

// AutoSize reports whether frame dimensions come from the first frame.
func (c AssemblyConfig) AutoSize() bool {
	return c.Width == 0 || c.Height == 0
}
