package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cobalthq/respimg"
	"github.com/cobalthq/respimg/config"
)

var (
	sweepMaxAge time.Duration
	sweepOutDir string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove stale files from the staging working area",
	Long: `Deletes files left in the upload staging area by aborted or failed
generation runs. Only the working area is touched; promoted variants are
never candidates.`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().DurationVar(&sweepMaxAge, "max-age", time.Hour, "delete staged files older than this")
	sweepCmd.Flags().StringVarP(&sweepOutDir, "out", "o", "", "upload root directory (default: config)")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg := config.FromEnv()
	if sweepOutDir != "" {
		cfg.Storage.RootDir = sweepOutDir
	}

	gen, err := respimg.New(cfg)
	if err != nil {
		return err
	}

	n, err := gen.Sweep(cmd.Context(), sweepMaxAge)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d stale file(s)\n", n)
	return nil
}
