package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mark3labs/syncwizard/internal/config"
	"github.com/mark3labs/syncwizard/internal/validate"
)

var setupFlags struct {
	project     bool
	force       bool
	name        string
	email       string
	projectsDir string
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create syncwizard configuration file",
	Long: `Create a syncwizard configuration file with sensible defaults.

By default, creates a global config at ~/.config/syncwizard/syncwizard.yml.
Use --project to create a project-local config in the current directory.

Giving --name and --email skips the wizard's first page.`,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().BoolVarP(&setupFlags.project, "project", "p", false, "Create config in current directory instead of global location")
	setupCmd.Flags().BoolVarP(&setupFlags.force, "force", "f", false, "Overwrite existing config file")
	setupCmd.Flags().StringVar(&setupFlags.name, "name", "", "Your full name")
	setupCmd.Flags().StringVar(&setupFlags.email, "email", "", "Your email address")
	setupCmd.Flags().StringVar(&setupFlags.projectsDir, "projects-dir", "", "Where added projects are placed")
}

func runSetup(cmd *cobra.Command, args []string) error {
	targetPath := config.GlobalPath()
	if setupFlags.project {
		targetPath = config.ProjectPath()
	}

	if !setupFlags.force && fileExists(targetPath) {
		return fmt.Errorf("config file already exists at %s\n\nUse --force to overwrite", targetPath)
	}

	if setupFlags.name != "" || setupFlags.email != "" {
		if !validate.Identity(setupFlags.name, setupFlags.email) {
			return fmt.Errorf("--name and --email need a name and a valid email address")
		}
	}

	cfg := &config.Config{
		Name:               setupFlags.name,
		Email:              setupFlags.email,
		DataDir:            config.DefaultDataDir(),
		ProjectsDir:        setupFlags.projectsDir,
		LogLevel:           "info",
		ProgressIntervalMS: 250,
		Workers:            4,
		Journal:            true,
	}
	if cfg.ProjectsDir == "" {
		cfg.ProjectsDir = config.DefaultProjectsDir()
	}

	var err error
	if setupFlags.project {
		err = config.WriteProject(cfg)
	} else {
		err = config.WriteGlobal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Config written to: %s\n\n", targetPath)
	fmt.Fprintln(cmd.OutOrStdout(), "Run 'syncwizard add' to add your first project.")
	return nil
}

// fileExists checks if a file exists (helper for setup command).
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
