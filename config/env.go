package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/cobalthq/respimg/core"
)

// FromEnv returns the default configuration overridden by RESPIMG_*
// environment variables. A .env file in the working directory is read when
// present; a missing file is not an error.
func FromEnv() Config {
	_ = godotenv.Load(".env", ".env.local")

	c := Default()
	c.MaxUploadBytes = getenvInt64("RESPIMG_MAX_UPLOAD_BYTES", c.MaxUploadBytes)
	c.WorkerCount = getenvInt("RESPIMG_WORKERS", c.WorkerCount)
	c.QueueSize = getenvInt("RESPIMG_QUEUE_SIZE", c.QueueSize)
	c.JobTimeout = getenvDuration("RESPIMG_JOB_TIMEOUT", c.JobTimeout)
	c.LogLevel = getenv("RESPIMG_LOG_LEVEL", c.LogLevel)

	c.Storage.RootDir = getenv("RESPIMG_UPLOAD_DIR", c.Storage.RootDir)
	c.Storage.PublicBaseURL = getenv("RESPIMG_PUBLIC_BASE_URL", c.Storage.PublicBaseURL)

	c.Search.StartQuality = getenvInt("RESPIMG_SEARCH_START_QUALITY", c.Search.StartQuality)
	c.Search.MinQuality = getenvInt("RESPIMG_SEARCH_MIN_QUALITY", c.Search.MinQuality)
	c.Search.Step = getenvInt("RESPIMG_SEARCH_STEP", c.Search.Step)
	c.Search.MaxAttempts = getenvInt("RESPIMG_SEARCH_MAX_ATTEMPTS", c.Search.MaxAttempts)

	if q := getenvInt("RESPIMG_WEBP_QUALITY", 0); q > 0 {
		p := c.Profiles[core.FormatWebP]
		p.Quality = q
		c.Profiles[core.FormatWebP] = p
	}
	if q := getenvInt("RESPIMG_JPEG_QUALITY", 0); q > 0 {
		p := c.Profiles[core.FormatJPEG]
		p.Quality = q
		c.Profiles[core.FormatJPEG] = p
	}

	// RESPIMG_PRESETS narrows the enabled presets, e.g. "thumbnail,medium".
	if names := getenv("RESPIMG_PRESETS", ""); names != "" {
		enabled := make(map[string]bool)
		for _, n := range strings.Split(names, ",") {
			enabled[strings.TrimSpace(n)] = true
		}
		var kept []core.SizePreset
		for _, p := range c.Presets {
			if enabled[p.Name] || p.Name == core.PresetOriginal {
				kept = append(kept, p)
			}
		}
		if len(kept) > 0 {
			c.Presets = kept
		}
	}

	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvInt64(k string, def int64) int64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
