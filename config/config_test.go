package config_test

import (
	"testing"
	"time"

	"github.com/cobalthq/respimg/config"
	"github.com/cobalthq/respimg/core"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := config.Default()
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.MaxUploadBytes != 5<<20 {
		t.Errorf("upload ceiling: got %d, want 5 MiB", cfg.MaxUploadBytes)
	}
	if _, ok := cfg.PresetByName("thumbnail"); !ok {
		t.Error("thumbnail preset missing from defaults")
	}
	if _, ok := cfg.PresetByName(core.PresetOriginal); !ok {
		t.Error("original preset missing from defaults")
	}
	if len(cfg.DeliveryFormats) < 2 {
		t.Errorf("want modern + fallback delivery formats, got %v", cfg.DeliveryFormats)
	}
	if cfg.DeliveryFormats[0] != core.FormatWebP {
		t.Errorf("modern format first: got %v", cfg.DeliveryFormats[0])
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero upload ceiling", func(c *config.Config) { c.MaxUploadBytes = 0 }},
		{"no presets", func(c *config.Config) { c.Presets = nil }},
		{"preset without dimensions", func(c *config.Config) {
			c.Presets = []core.SizePreset{{Name: "broken", Fit: core.FitCover}}
		}},
		{"preset with bad fit", func(c *config.Config) {
			c.Presets = []core.SizePreset{{Name: "broken", Width: 10, Height: 10, Fit: "stretch"}}
		}},
		{"quality out of range", func(c *config.Config) {
			p := c.Profiles[core.FormatWebP]
			p.Quality = 101
			c.Profiles[core.FormatWebP] = p
		}},
		{"no delivery formats", func(c *config.Config) { c.DeliveryFormats = nil }},
		{"search step zero", func(c *config.Config) { c.Search.Step = 0 }},
		{"search floor above start", func(c *config.Config) {
			c.Search.MinQuality = 95
			c.Search.StartQuality = 90
		}},
		{"empty storage root", func(c *config.Config) { c.Storage.RootDir = "" }},
		{"no categories", func(c *config.Config) { c.Categories = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := config.Validate(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("RESPIMG_MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("RESPIMG_WORKERS", "7")
	t.Setenv("RESPIMG_JOB_TIMEOUT", "45s")
	t.Setenv("RESPIMG_UPLOAD_DIR", "/srv/uploads")
	t.Setenv("RESPIMG_SEARCH_MIN_QUALITY", "30")
	t.Setenv("RESPIMG_WEBP_QUALITY", "70")
	t.Setenv("RESPIMG_PRESETS", "thumbnail, medium")

	cfg := config.FromEnv()
	if cfg.MaxUploadBytes != 1<<20 {
		t.Errorf("MaxUploadBytes: got %d", cfg.MaxUploadBytes)
	}
	if cfg.WorkerCount != 7 {
		t.Errorf("WorkerCount: got %d", cfg.WorkerCount)
	}
	if cfg.JobTimeout != 45*time.Second {
		t.Errorf("JobTimeout: got %s", cfg.JobTimeout)
	}
	if cfg.Storage.RootDir != "/srv/uploads" {
		t.Errorf("RootDir: got %s", cfg.Storage.RootDir)
	}
	if cfg.Search.MinQuality != 30 {
		t.Errorf("MinQuality: got %d", cfg.Search.MinQuality)
	}
	if cfg.Profiles[core.FormatWebP].Quality != 70 {
		t.Errorf("webp quality: got %d", cfg.Profiles[core.FormatWebP].Quality)
	}

	// Narrowed preset list keeps the original sentinel.
	names := map[string]bool{}
	for _, p := range cfg.Presets {
		names[p.Name] = true
	}
	if !names["thumbnail"] || !names["medium"] || !names[core.PresetOriginal] {
		t.Errorf("narrowed presets: got %v", names)
	}
	if names["xlarge"] {
		t.Error("xlarge should have been filtered out")
	}
}

func TestFromEnv_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("RESPIMG_WORKERS", "many")
	t.Setenv("RESPIMG_JOB_TIMEOUT", "soon")

	cfg := config.FromEnv()
	def := config.Default()
	if cfg.WorkerCount != def.WorkerCount {
		t.Errorf("malformed WORKERS changed value: %d", cfg.WorkerCount)
	}
	if cfg.JobTimeout != def.JobTimeout {
		t.Errorf("malformed JOB_TIMEOUT changed value: %s", cfg.JobTimeout)
	}
}
