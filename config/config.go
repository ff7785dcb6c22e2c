// Package config holds the pipeline configuration surface. Everything has a
// hard-coded default so the pipeline is usable unconfigured; FromEnv layers
// environment overrides on top for deployments.
package config

import (
	"errors"
	"time"

	"github.com/cobalthq/respimg/core"
)

// Config is the top-level configuration struct. Pass it to the constructor;
// there are no package-level singletons, so differently configured pipelines
// (e.g. different size ceilings per category) can coexist.
type Config struct {
	// Upload acceptance.
	MaxUploadBytes    int64    // ceiling for one source asset; default 5 MiB
	AllowedMIMETypes  []string // declared-type allow list
	AllowedExtensions []string // case-insensitive, with leading dot

	// Transform catalog.
	Presets         []core.SizePreset
	Profiles        map[core.Format]core.EncodeProfile
	DeliveryFormats []core.Format // (modern, fallback) pair for the plain fan-out

	// Per-upload fan-out bound and async pool controls. Encoding is
	// CPU-bound, so WorkerCount defaults to runtime.NumCPU at use site.
	WorkerCount int
	QueueSize   int // max queued async jobs before backpressure; default 64
	JobTimeout  time.Duration

	// Compression search bounds.
	Search SearchConfig

	// Storage.
	Storage    StorageConfig
	Categories map[core.Category]string

	LogLevel string // "debug", "info", "warn", "error"
}

// SearchConfig bounds the budgeted-mode quality search. The attempt ceiling
// keeps worst-case CPU cost per asset constant regardless of input.
type SearchConfig struct {
	StartQuality int // default 90
	MinQuality   int // floor; search stops once quality would drop to it or below
	Step         int // quality decrement per attempt; default 10
	MaxAttempts  int // default 10
}

// StorageConfig configures the local filesystem adapter and the URL surface
// mirroring it.
type StorageConfig struct {
	RootDir       string // default "uploads"
	PublicBaseURL string // default "/uploads"; mirrors RootDir 1:1
	Permissions   uint32 // file mode for written variants; default 0644
}

// Default returns a Config populated with production defaults.
func Default() Config {
	return Config{
		MaxUploadBytes:    5 << 20,
		AllowedMIMETypes:  core.DefaultAllowedMIMETypes(),
		AllowedExtensions: core.DefaultAllowedExtensions(),
		Presets:           core.DefaultPresets(),
		Profiles:          core.DefaultProfiles(),
		DeliveryFormats:   core.DefaultDeliveryFormats(),
		QueueSize:         64,
		JobTimeout:        30 * time.Second,
		Search: SearchConfig{
			StartQuality: 90,
			MinQuality:   20,
			Step:         10,
			MaxAttempts:  10,
		},
		Storage: StorageConfig{
			RootDir:       "uploads",
			PublicBaseURL: "/uploads",
			Permissions:   0o644,
		},
		Categories: core.DefaultCategories(),
		LogLevel:   "info",
	}
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.MaxUploadBytes <= 0 {
		return errors.New("config: MaxUploadBytes must be positive")
	}
	if len(c.Presets) == 0 {
		return errors.New("config: at least one size preset is required")
	}
	for _, p := range c.Presets {
		if p.Name == "" {
			return errors.New("config: preset name must not be empty")
		}
		if p.Name != core.PresetOriginal && (p.Width <= 0 || p.Height <= 0) {
			return errors.New("config: preset " + p.Name + " needs positive dimensions")
		}
		if p.Fit != core.FitCover && p.Fit != core.FitContain {
			return errors.New("config: preset " + p.Name + " has unknown fit policy")
		}
	}
	for f, prof := range c.Profiles {
		if f == core.FormatPNG {
			continue // lossless; quality knob unused
		}
		if prof.Quality < 1 || prof.Quality > 100 {
			return errors.New("config: profile " + string(f) + " quality must be 1-100")
		}
	}
	if len(c.DeliveryFormats) == 0 {
		return errors.New("config: at least one delivery format is required")
	}
	s := c.Search
	if s.Step <= 0 {
		return errors.New("config: Search.Step must be positive")
	}
	if s.MaxAttempts <= 0 {
		return errors.New("config: Search.MaxAttempts must be positive")
	}
	if s.MinQuality >= s.StartQuality {
		return errors.New("config: Search.MinQuality must be less than StartQuality")
	}
	if c.Storage.RootDir == "" {
		return errors.New("config: Storage.RootDir must not be empty")
	}
	if len(c.Categories) == 0 {
		return errors.New("config: at least one category mapping is required")
	}
	return nil
}

// PresetByName looks up a configured preset.
func (c Config) PresetByName(name string) (core.SizePreset, bool) {
	for _, p := range c.Presets {
		if p.Name == name {
			return p, true
		}
	}
	return core.SizePreset{}, false
}
