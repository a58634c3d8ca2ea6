// Package config provides centralized configuration management using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration values for syncwizard.
type Config struct {
	Name               string `mapstructure:"name" yaml:"name,omitempty"`
	Email              string `mapstructure:"email" yaml:"email,omitempty"`
	DataDir            string `mapstructure:"data_dir" yaml:"data_dir,omitempty"`
	ProjectsDir        string `mapstructure:"projects_dir" yaml:"projects_dir,omitempty"`
	PresetsFile        string `mapstructure:"presets_file" yaml:"presets_file,omitempty"`
	LogLevel           string `mapstructure:"log_level" yaml:"log_level,omitempty"`
	LogFile            string `mapstructure:"log_file" yaml:"log_file,omitempty"`
	ProgressIntervalMS int    `mapstructure:"progress_interval_ms" yaml:"progress_interval_ms,omitempty"`
	Workers            int    `mapstructure:"workers" yaml:"workers,omitempty"`
	Journal            bool   `mapstructure:"journal" yaml:"journal"`
}

// keys are bound to SYNCWIZARD_<KEY>.
var keys = []string{
	"name",
	"email",
	"data_dir",
	"projects_dir",
	"presets_file",
	"log_level",
	"log_file",
	"progress_interval_ms",
	"workers",
	"journal",
}

// Load loads configuration with full precedence:
// ENV vars > project config > XDG global config > defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("syncwizard")

	v.SetDefault("name", "")
	v.SetDefault("email", "")
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("projects_dir", DefaultProjectsDir())
	v.SetDefault("presets_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("progress_interval_ms", 250)
	v.SetDefault("workers", 4)
	v.SetDefault("journal", true)

	v.SetEnvPrefix("SYNCWIZARD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Explicit bindings so Unmarshal sees env values for every key.
	for _, key := range keys {
		if err := v.BindEnv(key, "SYNCWIZARD_"+strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("binding %s env: %w", key, err)
		}
	}

	globalPath := GlobalPath()
	if fileExists(globalPath) {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	projectPath := ProjectPath()
	if fileExists(projectPath) {
		v.SetConfigFile(projectPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}

	return &cfg, nil
}

// ProgressInterval returns progress_interval_ms as a duration. Zero or less
// disables throttling.
func (c *Config) ProgressInterval() time.Duration {
	if c.ProgressIntervalMS <= 0 {
		return -1
	}
	return time.Duration(c.ProgressIntervalMS) * time.Millisecond
}

// Exists returns true if any config file exists (global or project).
func Exists() bool {
	return fileExists(GlobalPath()) || fileExists(ProjectPath())
}

// GlobalPath returns the XDG global config path.
// Returns ~/.config/syncwizard/syncwizard.yml or $XDG_CONFIG_HOME/syncwizard/syncwizard.yml.
func GlobalPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "syncwizard", "syncwizard.yml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "syncwizard", "syncwizard.yml")
}

// ProjectPath returns the project-local config path.
func ProjectPath() string {
	return "syncwizard.yml"
}

// DefaultDataDir is where state and the journal live unless configured.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "syncwizard")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "syncwizard")
}

// DefaultProjectsDir is where added projects are placed unless configured.
func DefaultProjectsDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "SyncWizard")
}

// WriteGlobal writes the config to the XDG global location.
func WriteGlobal(cfg *Config) error {
	return write(GlobalPath(), cfg)
}

// WriteProject writes the config to the project-local location.
func WriteProject(cfg *Config) error {
	return write(ProjectPath(), cfg)
}

// SaveIdentity stores name and email in the global config, leaving every
// other key in that file as it was.
func SaveIdentity(name, email string) error {
	path := GlobalPath()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing global config: %w", err)
		}
	case os.IsNotExist(err):
		cfg.Journal = true
	default:
		return fmt.Errorf("reading global config: %w", err)
	}

	cfg.Name, cfg.Email = name, email
	return write(path, &cfg)
}

func write(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
