// Package hooks runs user shell commands when a wizard run finishes or fails.
package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mark3labs/syncwizard/internal/logger"
)

// ConfigFileName is the name of the hooks configuration file.
const ConfigFileName = ".syncwizard.hooks.yml"

// LoadConfig loads the hooks configuration from dir.
// Returns nil if the config file doesn't exist (hooks are optional).
func LoadConfig(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug("No hooks config found at %s", configPath)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read hooks config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse hooks config: %w", err)
	}

	logger.Debug("Loaded hooks config from %s (version: %d)", configPath, cfg.Version)
	return &cfg, nil
}

// Variables are expanded in hook commands.
type Variables struct {
	Folder   string // {{folder}}
	URL      string // {{url}}
	Dir      string // {{dir}}, where the files were placed
	Warnings []string
}

// Execute runs a hook command through sh and returns its output.
// A failing or timed out command is reported in the output, not as an error;
// only cancellation of ctx is returned.
func Execute(ctx context.Context, hook *HookConfig, workDir string, vars Variables) (string, error) {
	if hook == nil || hook.Command == "" {
		return "", nil
	}

	command := expandVariables(hook.Command, vars)
	logger.Debug("Executing hook command: %s", command)

	timeout := hook.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		"SYNCWIZARD_FOLDER="+vars.Folder,
		"SYNCWIZARD_URL="+vars.URL,
		"SYNCWIZARD_DIR="+vars.Dir,
		"SYNCWIZARD_WARNINGS="+strings.Join(vars.Warnings, "\n"),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if execCtx.Err() == context.DeadlineExceeded {
		logger.Warn("Hook command timed out after %ds: %s", timeout, command)
		return fmt.Sprintf("[Hook timed out after %ds]\nPartial output:\n%s", timeout, stdout.String()), nil
	}

	output := stdout.String()
	if stderr.Len() > 0 {
		output += "\n[stderr]\n" + stderr.String()
	}
	if err != nil {
		logger.Warn("Hook command failed: %v", err)
		return fmt.Sprintf("[Hook command failed: %v]\n%s", err, output), nil
	}

	logger.Debug("Hook executed successfully, output length: %d bytes", len(output))
	return output, nil
}

// expandVariables replaces {{variable}} placeholders. Values are shell quoted
// since folder names come from remote paths.
func expandVariables(command string, vars Variables) string {
	return strings.NewReplacer(
		"{{folder}}", shellQuote(vars.Folder),
		"{{url}}", shellQuote(vars.URL),
		"{{dir}}", shellQuote(vars.Dir),
	).Replace(command)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
