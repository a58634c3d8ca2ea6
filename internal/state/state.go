// Package state persists what the wizard remembers between runs.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/syncwizard/internal/logger"
	"github.com/mark3labs/syncwizard/internal/setup"
)

// FileName is the state file inside the data directory.
const FileName = "wizard-state.json"

// WizardState holds the entries a new wizard run starts from.
type WizardState struct {
	Remembered setup.Remembered `json:"remembered"`
	// LastRun names the journal run of the most recent wizard.
	LastRun string `json:"last_run,omitempty"`
}

// Default returns the state used when nothing was saved yet: the first preset
// selected and every entry empty.
func Default() *WizardState {
	return &WizardState{}
}

// Load reads the state from dataDir. Returns the default state if the file
// doesn't exist or cannot be parsed.
func Load(dataDir string) *WizardState {
	path := filepath.Join(dataDir, FileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read wizard state file: %v", err)
		}
		return Default()
	}

	var st WizardState
	if err := json.Unmarshal(data, &st); err != nil {
		logger.Warn("Failed to parse wizard state JSON: %v", err)
		return Default()
	}
	if st.Remembered.PresetIndex < setup.ManualPreset {
		st.Remembered.PresetIndex = 0
	}
	return &st
}

// Save writes the state to dataDir, creating it if needed.
func Save(dataDir string, st *WizardState) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling wizard state: %w", err)
	}

	path := filepath.Join(dataDir, FileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing wizard state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing wizard state file: %w", err)
	}

	logger.Debug("Wizard state saved to %s", path)
	return nil
}
