package main

import (
	"context"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/mark3labs/syncwizard/internal/logger"
	"github.com/mark3labs/syncwizard/internal/tui/theme"
)

const (
	logoText1 = "█▀ █▄█ █▄ █ █▀▀ █ █ █ █ ▀█ ▄▀█ █▀█ █▀▄"
	logoText2 = "▄█  █  █ ▀█ █▄▄ ▀▄▀▄▀ █ █▄ █▀█ █▀▄ █▄▀"
)

// Version set via ldflags during build
var version = "dev"

func main() {
	defer func() { _ = logger.Close() }()

	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(version)); err != nil {
		logger.Error("Command execution failed: %v", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "syncwizard",
	Short: "Add shared projects from a remote host",
}

// renderLogo creates the logo with gradient colors
func renderLogo() string {
	t := theme.Current()
	line1 := theme.ApplyGradient(logoText1, t.Primary, t.Secondary)
	line2 := theme.ApplyGradient(logoText2, t.Primary, t.Secondary)
	return strings.Join([]string{line1, line2}, "\n")
}

func init() {
	rootCmd.Long = renderLogo() + `

syncwizard walks you through adding a shared project: who you are, where the
project is hosted, how its storage is set up and, for encrypted projects, the
password. Run it interactively, as a full-screen TUI, or drive it over MCP.`

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(setupCmd)
}
