package hooks

// Config is the top-level configuration for hooks loaded from .syncwizard.hooks.yml.
type Config struct {
	Version int         `yaml:"version"`
	Hooks   HooksConfig `yaml:"hooks"`
}

// HooksConfig contains all hook configurations.
type HooksConfig struct {
	// OnFinished runs once a project has been added.
	OnFinished *HookConfig `yaml:"on_finished"`
	// OnFailed runs every time the wizard lands on the error page.
	OnFailed *HookConfig `yaml:"on_failed"`
}

// HookConfig defines a single hook's configuration.
type HookConfig struct {
	Command string `yaml:"command"`
	Timeout int    `yaml:"timeout"` // seconds, default 30
}

// DefaultTimeout is the default timeout for hook execution in seconds.
const DefaultTimeout = 30
