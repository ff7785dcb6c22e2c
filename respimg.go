// Package respimg turns one uploaded raster image into a manifest of
// responsive variants: every configured size preset encoded in a modern
// format plus a universally supported fallback, laid out on disk under
// per-category directories with collision-free names.
package respimg

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cobalthq/respimg/adapters/decoder"
	"github.com/cobalthq/respimg/adapters/encoder"
	"github.com/cobalthq/respimg/adapters/storage"
	"github.com/cobalthq/respimg/config"
	"github.com/cobalthq/respimg/core"
	apperrors "github.com/cobalthq/respimg/errors"
	"github.com/cobalthq/respimg/pipeline"
	"github.com/cobalthq/respimg/utils"
)

// Re-export Format constants for convenience.
const (
	JPEG = core.FormatJPEG
	PNG  = core.FormatPNG
	WebP = core.FormatWebP
	GIF  = core.FormatGIF
)

// DefaultConfig returns a sensible production configuration.
func DefaultConfig() config.Config { return config.Default() }

// Generator is the primary entry point. It owns the codec registry, the
// storage adapter and the async worker pool.
type Generator struct {
	cfg   config.Config
	reg   *core.DefaultRegistry
	store *storage.Local
	orch  *pipeline.Orchestrator
	pool  *pipeline.Pool
}

// New creates a fully wired Generator with the built-in codecs registered:
// decoders for every accepted input format and encoders for the delivery
// formats. The upload directory tree is created eagerly so the first request
// never races directory creation.
func New(cfg config.Config) (*Generator, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	reg := core.NewRegistry()
	reg.RegisterDecoder(core.FormatJPEG, decoder.NewJPEG())
	reg.RegisterDecoder(core.FormatPNG, decoder.NewPNG())
	reg.RegisterDecoder(core.FormatWebP, decoder.NewWebP())
	reg.RegisterDecoder(core.FormatGIF, decoder.NewGIF())
	reg.RegisterDecoder(core.FormatBMP, decoder.NewBMP())
	reg.RegisterDecoder(core.FormatTIFF, decoder.NewTIFF())

	jpegQ := cfg.Profiles[core.FormatJPEG].Quality
	webpQ := cfg.Profiles[core.FormatWebP].Quality
	reg.RegisterEncoder(core.FormatJPEG, encoder.NewJPEG(jpegQ))
	reg.RegisterEncoder(core.FormatPNG, encoder.NewPNG())
	reg.RegisterEncoder(core.FormatWebP, encoder.NewWebP(webpQ))

	store, err := storage.NewLocal(cfg.Storage.RootDir, os.FileMode(cfg.Storage.Permissions), cfg.Categories)
	if err != nil {
		return nil, err
	}

	saver := pipeline.NewSaver(store, cfg.Storage.PublicBaseURL, cfg.Categories)
	orch := pipeline.NewOrchestrator(cfg, reg, saver)
	pool := pipeline.NewPool(orch, cfg.WorkerCount, cfg.QueueSize, cfg.JobTimeout)

	return &Generator{cfg: cfg, reg: reg, store: store, orch: orch, pool: pool}, nil
}

// SetLogger attaches a structured logger.
func (g *Generator) SetLogger(l core.Logger) { g.orch.SetLogger(l) }

// SetMetrics attaches a metrics collector.
func (g *Generator) SetMetrics(m core.MetricsCollector) { g.orch.SetMetrics(m) }

// AddHook registers an observer for pipeline stage events.
func (g *Generator) AddHook(h core.Hook) { g.orch.AddHook(h) }

// RegisterDecoder registers a custom decoder for the given format.
func (g *Generator) RegisterDecoder(f core.Format, d core.Decoder) { g.reg.RegisterDecoder(f, d) }

// RegisterEncoder registers a custom encoder for the given format.
func (g *Generator) RegisterEncoder(f core.Format, e core.Encoder) { g.reg.RegisterEncoder(f, e) }

// GenerateManifest runs the full pipeline synchronously for one upload.
func (g *Generator) GenerateManifest(
	ctx context.Context,
	asset core.SourceAsset,
	category core.Category,
	opts core.GenerateOptions,
) (*core.Manifest, error) {
	return g.orch.GenerateManifest(ctx, asset, category, opts)
}

// Start starts the background worker pool for async jobs.
func (g *Generator) Start() { g.pool.Start() }

// Stop drains and shuts down the worker pool.
func (g *Generator) Stop() { g.pool.Stop() }

// Submit enqueues an async job for the worker pool.
func (g *Generator) Submit(job core.Job) error { return g.pool.Submit(job) }

// Stats returns lightweight processing statistics.
func (g *Generator) Stats() (processed, failed int64) { return g.pool.Stats() }

// Sweep removes files older than maxAge from the staging working area and
// returns how many were deleted. Safe to run concurrently with generation;
// it never touches promoted variants.
func (g *Generator) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	return g.store.Sweep(ctx, maxAge)
}

// ── Source constructors ───────────────────────────────────────────────────────

// FromBuffer creates a SourceAsset from bytes already in memory.
func FromBuffer(data []byte, name, mimeType string) core.SourceAsset {
	return core.SourceAsset{
		Data:         data,
		OriginalName: name,
		MIMEType:     mimeType,
		ByteLength:   int64(len(data)),
	}
}

// FromReader drains r into a SourceAsset. The read is capped well above the
// configured upload ceiling so an oversized body still reaches validation
// with its true length and produces a size violation instead of a silent
// truncation. Bodies past the hard cap fail outright.
func FromReader(ctx context.Context, r io.Reader, name, mimeType string, maxBytes int64) (core.SourceAsset, error) {
	lr := &utils.LimitedReader{R: r, Max: maxBytes*2 + 1}

	buf, err := utils.DrainReader(ctx, lr, 32*1024)
	if err != nil {
		return core.SourceAsset{}, apperrors.Wrap(apperrors.CategoryValidation, "read", err)
	}
	data := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)

	return FromBuffer(data, name, mimeType), nil
}

// FromFile reads a file from disk into a SourceAsset. The declared MIME type
// is left empty; the probe works from content alone.
func FromFile(path string) (core.SourceAsset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.SourceAsset{}, apperrors.Wrap(apperrors.CategoryValidation, "read", err)
	}
	return FromBuffer(data, filepath.Base(path), ""), nil
}

// DetectFormat sniffs the content format from magic bytes.
func DetectFormat(data []byte) core.Format {
	return core.Format(utils.DetectFormat(data))
}
