package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/syncwizard/internal/preset"
	"github.com/mark3labs/syncwizard/internal/tui/theme"
)

var presetsFlags struct {
	yaml bool
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the hosting presets offered by the wizard",
	Long: `List the hosting presets offered on the wizard's host page, in the order
they are shown. Presets from presets_file are merged into the built-in list.

Use --yaml to print them in the presets file format, as a starting point for
your own.`,
	RunE: runPresets,
}

func init() {
	presetsCmd.Flags().BoolVar(&presetsFlags.yaml, "yaml", false, "Print presets as YAML")
}

func runPresets(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if presetsFlags.yaml {
		data, err := yaml.Marshal(map[string][]preset.Preset{"presets": catalog.Presets()})
		if err != nil {
			return fmt.Errorf("failed to encode presets: %w", err)
		}
		_, err = out.Write(data)
		return err
	}

	s := theme.Current().S()
	for i, p := range catalog.Presets() {
		fmt.Fprintf(out, "%s %s\n", s.HintKey.Render(fmt.Sprintf("%2d.", i+1)), s.Text.Render(p.Name))
		if p.Description != "" {
			fmt.Fprintf(out, "    %s\n", s.Muted.Render(p.Description))
		}
		fmt.Fprintf(out, "    %s %s\n", s.Label.Render("address:"), describeField(p.AddressTemplate(), p.AddressExample))
		fmt.Fprintf(out, "    %s %s\n", s.Label.Render("path:   "), describeField(p.PathTemplate(), p.PathExample))
	}
	return nil
}

// describeField shows a fixed value as is and a user supplied one by example.
func describeField(fixed, example string) string {
	s := theme.Current().S()
	if fixed != "" {
		return s.Text.Render(fixed) + s.Muted.Render(" (fixed)")
	}
	if example != "" {
		return s.Muted.Render("e.g. " + example)
	}
	return s.Muted.Render("entered by you")
}
