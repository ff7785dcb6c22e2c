package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cobalthq/respimg"
	"github.com/cobalthq/respimg/config"
	"github.com/cobalthq/respimg/core"
	"github.com/cobalthq/respimg/hooks"
)

var (
	buildCategory    string
	buildPresets     []string
	buildTargetBytes int64
	buildQuality     int
	buildSuffix      string
	buildOutDir      string
	buildBaseURL     string
	buildWorkers     int
)

var buildCmd = &cobra.Command{
	Use:   "build <image_file>",
	Short: "Generate responsive variants and print the manifest as JSON",
	Long: `Reads one image file, validates it, generates every configured size
preset in WebP plus a fallback format, writes the files under the upload
directory and prints the resulting manifest to stdout.

With --target-bytes the pipeline instead searches downward through quality
levels until the encoded output fits the budget (or the quality floor is
reached), producing one variant per requested preset.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildCategory, "category", "c", "blog", "target category")
	buildCmd.Flags().StringSliceVarP(&buildPresets, "presets", "p", nil, "preset names (default: full catalog)")
	buildCmd.Flags().Int64VarP(&buildTargetBytes, "target-bytes", "t", 0, "size budget in bytes (0 = off)")
	buildCmd.Flags().IntVarP(&buildQuality, "quality", "q", 0, "quality override 1-100 (0 = profile default)")
	buildCmd.Flags().StringVar(&buildSuffix, "suffix", "", "extra file name disambiguator")
	buildCmd.Flags().StringVarP(&buildOutDir, "out", "o", "", "upload root directory (default: config)")
	buildCmd.Flags().StringVar(&buildBaseURL, "base-url", "", "public base URL (default: config)")
	buildCmd.Flags().IntVarP(&buildWorkers, "workers", "w", 0, "parallel variant encoders (0 = NumCPU)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	start := time.Now()

	cfg := config.FromEnv()
	if buildOutDir != "" {
		cfg.Storage.RootDir = buildOutDir
	}
	if buildBaseURL != "" {
		cfg.Storage.PublicBaseURL = buildBaseURL
	}
	if buildWorkers > 0 {
		cfg.WorkerCount = buildWorkers
	}

	gen, err := respimg.New(cfg)
	if err != nil {
		return err
	}
	if verbose {
		zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		gen.SetLogger(hooks.NewZerologLogger(zl))
	}

	asset, err := respimg.FromFile(args[0])
	if err != nil {
		return err
	}
	logVerbose("input: %s (%d bytes)", asset.OriginalName, asset.ByteLength)

	m, err := gen.GenerateManifest(cmd.Context(), asset, core.Category(buildCategory), core.GenerateOptions{
		Presets:     buildPresets,
		TargetBytes: buildTargetBytes,
		Suffix:      buildSuffix,
		Quality:     buildQuality,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	logVerbose("variants: %d, output bytes: %d, time: %s",
		len(m.Variants), m.TotalOutputBytes(), time.Since(start).Round(time.Millisecond))
	return nil
}
