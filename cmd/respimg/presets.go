package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cobalthq/respimg/config"
	"github.com/cobalthq/respimg/core"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the configured size presets and delivery formats",
	Args:  cobra.NoArgs,
	RunE:  runPresets,
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}

func runPresets(_ *cobra.Command, _ []string) error {
	cfg := config.FromEnv()

	fmt.Println("Presets:")
	for _, p := range cfg.Presets {
		if p.Name == core.PresetOriginal {
			fmt.Printf("  %-10s source dimensions\n", p.Name)
			continue
		}
		fmt.Printf("  %-10s %4dx%-4d fit=%s\n", p.Name, p.Width, p.Height, p.Fit)
	}

	fmt.Println("Delivery formats:")
	for i, f := range cfg.DeliveryFormats {
		role := "fallback"
		if i == 0 {
			role = "modern"
		}
		fmt.Printf("  %-6s %s\n", f, role)
	}

	fmt.Println("Categories:")
	for cat, dir := range cfg.Categories {
		fmt.Printf("  %-12s %s/%s\n", cat, cfg.Storage.RootDir, dir)
	}
	return nil
}
