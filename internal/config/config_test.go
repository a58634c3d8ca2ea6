package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points XDG at a temp dir, moves into it and clears SYNCWIZARD_*.
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmpDir, "data"))
	for _, key := range keys {
		t.Setenv("SYNCWIZARD_"+strings.ToUpper(key), "")
		_ = os.Unsetenv("SYNCWIZARD_" + strings.ToUpper(key))
	}
	return tmpDir
}

func TestGlobalPath(t *testing.T) {
	tests := []struct {
		name      string
		xdgConfig string
		want      string
	}{
		{
			name:      "with XDG_CONFIG_HOME set",
			xdgConfig: "/custom/config",
			want:      "/custom/config/syncwizard/syncwizard.yml",
		},
		{
			name:      "without XDG_CONFIG_HOME",
			xdgConfig: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CONFIG_HOME", tt.xdgConfig)

			got := GlobalPath()
			if tt.want != "" {
				if got != tt.want {
					t.Errorf("GlobalPath() = %v, want %v", got, tt.want)
				}
				return
			}
			if !filepath.IsAbs(got) {
				t.Errorf("GlobalPath() should return absolute path, got %v", got)
			}
			if !strings.HasSuffix(got, filepath.Join(".config", "syncwizard", "syncwizard.yml")) {
				t.Errorf("GlobalPath() should end with .config/syncwizard/syncwizard.yml, got %v", got)
			}
		})
	}
}

func TestDefaultDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	if got := DefaultDataDir(); got != "/custom/data/syncwizard" {
		t.Errorf("DefaultDataDir() = %v, want /custom/data/syncwizard", got)
	}
}

func TestExists(t *testing.T) {
	isolate(t)

	if Exists() {
		t.Error("Exists() = true, want false when no config files exist")
	}

	if err := os.WriteFile(ProjectPath(), []byte("name: Ada\n"), 0644); err != nil {
		t.Fatalf("Failed to write project config: %v", err)
	}
	if !Exists() {
		t.Error("Exists() = false, want true when project config exists")
	}
}

func TestLoad_NoConfig(t *testing.T) {
	tmpDir := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Name != "" || cfg.Email != "" {
		t.Errorf("Load() with no config should have no identity, got %q <%q>", cfg.Name, cfg.Email)
	}
	if want := filepath.Join(tmpDir, "data", "syncwizard"); cfg.DataDir != want {
		t.Errorf("Load() default DataDir = %v, want %v", cfg.DataDir, want)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Load() default LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.Workers != 4 {
		t.Errorf("Load() default Workers = %v, want 4", cfg.Workers)
	}
	if !cfg.Journal {
		t.Error("Load() default Journal = false, want true")
	}
	if cfg.ProgressInterval() != 250*time.Millisecond {
		t.Errorf("Load() default ProgressInterval = %v, want 250ms", cfg.ProgressInterval())
	}
}

func TestLoad_Precedence(t *testing.T) {
	isolate(t)

	if err := WriteGlobal(&Config{Name: "Global", Email: "global@example.com", LogLevel: "warn", Workers: 2, Journal: true}); err != nil {
		t.Fatalf("WriteGlobal() error = %v", err)
	}
	if err := WriteProject(&Config{Name: "Project", Workers: 8}); err != nil {
		t.Fatalf("WriteProject() error = %v", err)
	}
	t.Setenv("SYNCWIZARD_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"project overrides global", cfg.Name, "Project"},
		{"global kept when project omits", cfg.Email, "global@example.com"},
		{"env overrides files", cfg.LogLevel, "debug"},
		{"project int", cfg.Workers, 8},
		{"project bool written explicitly", cfg.Journal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoad_InvalidWorkers(t *testing.T) {
	isolate(t)
	t.Setenv("SYNCWIZARD_WORKERS", "0")

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for zero workers")
	}
}

func TestProgressInterval(t *testing.T) {
	tests := []struct {
		ms   int
		want time.Duration
	}{
		{ms: 100, want: 100 * time.Millisecond},
		{ms: 0, want: -1},
		{ms: -5, want: -1},
	}
	for _, tt := range tests {
		cfg := &Config{ProgressIntervalMS: tt.ms}
		if got := cfg.ProgressInterval(); got != tt.want {
			t.Errorf("ProgressInterval(%d) = %v, want %v", tt.ms, got, tt.want)
		}
	}
}

func TestWriteProject(t *testing.T) {
	isolate(t)

	cfg := &Config{
		Name:        "Ada",
		ProjectsDir: "/home/ada/Projects",
		LogLevel:    "info",
		Workers:     4,
	}
	if err := WriteProject(cfg); err != nil {
		t.Fatalf("WriteProject() error = %v", err)
	}

	data, err := os.ReadFile(ProjectPath())
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	content := string(data)
	for _, field := range []string{
		"name: Ada",
		"projects_dir: /home/ada/Projects",
		"log_level: info",
		"workers: 4",
		"journal: false",
	} {
		if !strings.Contains(content, field) {
			t.Errorf("Config file missing expected field: %s\nContent:\n%s", field, content)
		}
	}
	if strings.Contains(content, "email:") {
		t.Errorf("Empty fields should be omitted\nContent:\n%s", content)
	}
}

func TestSaveIdentity(t *testing.T) {
	isolate(t)

	if err := SaveIdentity("Ada", "ada@example.com"); err != nil {
		t.Fatalf("SaveIdentity() error = %v", err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Name != "Ada" || cfg.Email != "ada@example.com" {
		t.Errorf("identity = %q <%q>, want Ada <ada@example.com>", cfg.Name, cfg.Email)
	}
	if !cfg.Journal {
		t.Error("new global config should keep the journal on")
	}

	if err := WriteGlobal(&Config{Name: "Old", Workers: 6, Journal: true}); err != nil {
		t.Fatalf("WriteGlobal() error = %v", err)
	}
	if err := SaveIdentity("Grace", "grace@example.com"); err != nil {
		t.Fatalf("SaveIdentity() error = %v", err)
	}
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Name != "Grace" || cfg.Workers != 6 {
		t.Errorf("got name %q workers %d, want Grace and 6", cfg.Name, cfg.Workers)
	}
}
