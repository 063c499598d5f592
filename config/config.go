// Package config loads runner and logger settings from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sa6mwa/sysexec/log"

	"github.com/spf13/afero"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	DefaultShell      = "/bin/sh"
	DefaultShellFlag  = "-c"
	DefaultOutputMode = "0600"
)

type Config struct {
	Shell      string    `yaml:"shell"`
	ShellFlag  string    `yaml:"shell_flag"`
	OutputMode string    `yaml:"output_mode"`
	Log        LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Shell:      DefaultShell,
		ShellFlag:  DefaultShellFlag,
		OutputMode: DefaultOutputMode,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads filename from fs and overlays it on Default. The result is
// validated before it is returned.
func Load(fs afero.Fs, filename string) (*Config, error) {
	data, err := afero.ReadFile(fs, filename)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", filename, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Shell == "" {
		errs = append(errs, errors.New("shell must not be empty"))
	} else if !strings.HasPrefix(c.Shell, "/") {
		errs = append(errs, fmt.Errorf("shell must be an absolute path: %q", c.Shell))
	}
	if _, err := c.FileMode(); err != nil {
		errs = append(errs, err)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json", "zap":
	default:
		errs = append(errs, fmt.Errorf("invalid log format: %s", c.Log.Format))
	}
	return errors.Join(errs...)
}

// FileMode parses OutputMode as an octal permission mask.
func (c *Config) FileMode() (os.FileMode, error) {
	mode, err := strconv.ParseUint(c.OutputMode, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid output mode %q: %w", c.OutputMode, err)
	}
	if mode&^0o777 != 0 {
		return 0, fmt.Errorf("output mode %q has bits outside 0777", c.OutputMode)
	}
	return os.FileMode(mode), nil
}

// NewLogger builds the logger described by the log section, writing to w.
func (c *Config) NewLogger(w io.Writer) (log.Logger, error) {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	switch c.Log.Format {
	case "text":
		return log.NewSlogLogger(level, w), nil
	case "json":
		return log.NewSlogJSONLogger(level, w), nil
	case "zap":
		return log.NewZapProduction(level, zapcore.AddSync(w)), nil
	default:
		return nil, fmt.Errorf("invalid log format: %s", c.Log.Format)
	}
}
