package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cobalthq/respimg/adapters/decoder"
	"github.com/cobalthq/respimg/config"
	"github.com/cobalthq/respimg/core"
	apperrors "github.com/cobalthq/respimg/errors"
)

// Orchestrator composes validation, probing, the transcode fan-out and
// variant persistence into the per-upload manifest workflow. It is the only
// entry point the rest of the system calls, and it is safe for concurrent
// use: one invocation owns its SourceAsset exclusively and shares nothing
// with sibling invocations except the idempotent directory creation inside
// the storage adapter.
type Orchestrator struct {
	cfg        config.Config
	registry   core.Registry
	validator  *Validator
	transcoder *Transcoder
	search     *Search
	saver      *Saver

	hooks   []core.Hook
	logger  core.Logger
	metrics core.MetricsCollector
}

// NewOrchestrator wires an Orchestrator from its collaborators. cfg must
// already be validated.
func NewOrchestrator(cfg config.Config, reg core.Registry, saver *Saver) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		registry:   reg,
		validator:  NewValidator(cfg.MaxUploadBytes, cfg.AllowedMIMETypes, cfg.AllowedExtensions),
		transcoder: NewTranscoder(reg),
		search:     NewSearch(cfg.Search),
		saver:      saver,
		logger:     nopLogger{},
	}
}

// SetLogger attaches a structured logger.
func (o *Orchestrator) SetLogger(l core.Logger) {
	if l != nil {
		o.logger = l
	}
}

// SetMetrics attaches a metrics collector.
func (o *Orchestrator) SetMetrics(m core.MetricsCollector) { o.metrics = m }

// AddHook registers a stage observer.
func (o *Orchestrator) AddHook(h core.Hook) { o.hooks = append(o.hooks, h) }

// variantJob is one (preset, format) cell of the fan-out.
type variantJob struct {
	preset  core.SizePreset
	format  core.Format
	primary bool
}

// GenerateManifest runs the full pipeline for one upload and returns the
// manifest describing every persisted variant. On any failure the whole
// call fails and no manifest is returned; files staged by the failed
// attempt are left for the age-based sweep rather than rolled back, except
// on context cancellation where the invocation's working area is discarded
// immediately.
func (o *Orchestrator) GenerateManifest(
	ctx context.Context,
	asset core.SourceAsset,
	category core.Category,
	opts core.GenerateOptions,
) (*core.Manifest, error) {
	start := time.Now()

	if _, ok := o.cfg.Categories[category]; !ok {
		return nil, apperrors.New(apperrors.CategoryPipeline, "generate", apperrors.ErrUnknownCategory)
	}

	// Stage 1: cheap structural checks; no decode work happens on failure.
	if err := o.runStage(ctx, "validate", &asset, func() error {
		if violations := o.validator.Validate(asset); len(violations) > 0 {
			return apperrors.Validation("validate", violations)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	// Stage 2: header-only probe; detected content wins over declared type.
	var meta core.Metadata
	if err := o.runStage(ctx, "probe", &asset, func() error {
		m, err := decoder.Probe(asset.Data)
		if err != nil {
			return err
		}
		meta = m
		return nil
	}); err != nil {
		return nil, err
	}

	// Stage 3: single full decode shared by the whole fan-out.
	var src image.Image
	if err := o.runStage(ctx, "decode", &asset, func() error {
		dec, ok := o.registry.DecoderFor(meta.Format)
		if !ok {
			return apperrors.New(apperrors.CategoryDecode, "decode",
				fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, meta.Format))
		}
		img, _, err := dec.Decode(ctx, bytes.NewReader(asset.Data))
		if err != nil {
			return err
		}
		src = Orient(img, meta.Orientation)
		b := src.Bounds()
		meta.Width, meta.Height = b.Dx(), b.Dy()
		return nil
	}); err != nil {
		return nil, err
	}

	jobs, err := o.planJobs(meta, opts)
	if err != nil {
		return nil, err
	}

	token := uuid.NewString()
	variants, err := o.runFanOut(ctx, token, src, asset, category, meta, opts, jobs)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			// The owning request was aborted: drop this invocation's
			// working area instead of waiting for the sweep.
			_ = o.saver.Discard(context.WithoutCancel(ctx), token)
		}
		o.logger.Error("manifest generation failed",
			"category", category, "name", asset.OriginalName, "error", err)
		return nil, err
	}

	// All variants encoded and staged; promote them to their final paths.
	// A promotion failure still fails the whole call.
	for _, v := range variants {
		if err := o.saver.Promote(ctx, token, core.StorageKey{Category: category, Name: v.FileName}); err != nil {
			o.logger.Error("variant promotion failed",
				"category", category, "file", v.FileName, "error", err)
			return nil, err
		}
	}
	// Every file moved out; drop the emptied working area.
	_ = o.saver.Discard(ctx, token)

	m := &core.Manifest{
		Category: category,
		Original: core.OriginalInfo{
			Width:      meta.Width,
			Height:     meta.Height,
			Format:     meta.Format,
			ByteLength: asset.ByteLength,
			HasAlpha:   meta.HasAlpha,
		},
		Variants:    variants,
		GeneratedAt: time.Now().UTC(),
	}

	o.logger.Info("manifest generated",
		"category", category,
		"name", asset.OriginalName,
		"variants", len(variants),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return m, nil
}

// planJobs expands the options into the (preset, format) fan-out cells.
func (o *Orchestrator) planJobs(meta core.Metadata, opts core.GenerateOptions) ([]variantJob, error) {
	presets, err := o.resolvePresets(opts)
	if err != nil {
		return nil, err
	}

	formats := o.registry.ResolveDeliveryFormats(o.cfg.DeliveryFormats, meta.HasAlpha)
	if len(formats) == 0 {
		return nil, apperrors.New(apperrors.CategoryEncode, "plan", apperrors.ErrUnsupportedFormat)
	}
	modern := formats[0]

	var jobs []variantJob
	if opts.Budgeted() {
		// Budgeted mode: one searched output per requested preset, in the
		// modern format only.
		for _, p := range presets {
			jobs = append(jobs, variantJob{preset: p, format: modern})
		}
		return jobs, nil
	}

	for _, p := range presets {
		if p.Name == core.PresetOriginal {
			continue
		}
		for _, f := range formats {
			jobs = append(jobs, variantJob{preset: p, format: f})
		}
	}
	// One original-dimension variant in the modern format, flagged as the
	// featured entry.
	jobs = append(jobs, variantJob{
		preset:  core.SizePreset{Name: core.PresetOriginal, Fit: core.FitContain},
		format:  modern,
		primary: true,
	})
	return jobs, nil
}

func (o *Orchestrator) resolvePresets(opts core.GenerateOptions) ([]core.SizePreset, error) {
	if len(opts.Presets) == 0 {
		if opts.Budgeted() {
			// Budgeted callers almost always want the thumbnail; fall back
			// to the full catalog only when it is absent.
			if p, ok := o.cfg.PresetByName("thumbnail"); ok {
				return []core.SizePreset{p}, nil
			}
		}
		return o.cfg.Presets, nil
	}

	var out []core.SizePreset
	for _, name := range opts.Presets {
		p, ok := o.cfg.PresetByName(name)
		if !ok {
			return nil, apperrors.New(apperrors.CategoryPipeline, "presets",
				fmt.Errorf("%w: %s", apperrors.ErrUnknownPreset, name))
		}
		out = append(out, p)
	}
	return out, nil
}

// runFanOut executes the jobs concurrently, bounded by the configured
// worker count. First error cancels the siblings; the result preserves job
// order regardless of completion order.
func (o *Orchestrator) runFanOut(
	ctx context.Context,
	token string,
	src image.Image,
	asset core.SourceAsset,
	category core.Category,
	meta core.Metadata,
	opts core.GenerateOptions,
	jobs []variantJob,
) ([]core.Variant, error) {
	results := make([]core.Variant, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workerLimit())

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			v, err := o.runVariant(gctx, token, src, asset, category, meta, opts, job)
			if err != nil {
				return err
			}
			results[i] = *v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// runVariant produces and stages a single variant: pure transform first,
// then the write.
func (o *Orchestrator) runVariant(
	ctx context.Context,
	token string,
	src image.Image,
	asset core.SourceAsset,
	category core.Category,
	meta core.Metadata,
	opts core.GenerateOptions,
	job variantJob,
) (*core.Variant, error) {
	profile, ok := o.cfg.Profiles[job.format]
	if !ok {
		profile = core.EncodeProfile{Format: job.format}
	}
	profile.Format = job.format

	stage := fmt.Sprintf("transcode.%s.%s", job.preset.Name, job.format)
	var res *TranscodeResult
	err := o.runStage(ctx, stage, &asset, func() error {
		var tErr error
		preset := job.preset
		if opts.Budgeted() {
			res, tErr = o.search.Run(ctx, o.transcoder, src, &preset, profile, opts.TargetBytes, asset.ByteLength)
		} else {
			res, tErr = o.transcoder.Transcode(ctx, src, &preset, profile, opts.Quality, asset.ByteLength)
		}
		return tErr
	})
	if err != nil {
		// A failed size×format cell fails the whole manifest; silently
		// omitting it could leave a caller referencing a URL that was
		// never written.
		return nil, apperrors.Wrap(apperrors.CategoryEncode, stage, err)
	}

	stage = fmt.Sprintf("store.%s.%s", job.preset.Name, job.format)
	var saved *SavedVariant
	err = o.runStage(ctx, stage, &asset, func() error {
		var sErr error
		saved, sErr = o.saver.Save(ctx, token, category,
			asset.OriginalName, job.preset.Name, opts.Suffix, job.format, res.Data)
		return sErr
	})
	if err != nil {
		return nil, err
	}

	if o.metrics != nil {
		o.metrics.RecordThroughput(res.ByteLength)
	}

	return &core.Variant{
		Preset:           job.preset.Name,
		Format:           job.format,
		FileName:         saved.FileName,
		StoragePath:      saved.StoragePath,
		URL:              saved.URL,
		Width:            res.Width,
		Height:           res.Height,
		ByteLength:       res.ByteLength,
		CompressionRatio: res.CompressionRatio,
		Hash:             fmt.Sprintf("%016x", xxhash.Sum64(res.Data)),
		Primary:          job.primary,
	}, nil
}

func (o *Orchestrator) workerLimit() int {
	if o.cfg.WorkerCount > 0 {
		return o.cfg.WorkerCount
	}
	return runtime.NumCPU()
}

// runStage wraps one pipeline stage with hook notification and metrics.
func (o *Orchestrator) runStage(ctx context.Context, stage string, asset *core.SourceAsset, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryPipeline, stage, err)
	}
	for _, h := range o.hooks {
		h.BeforeStage(ctx, stage, asset)
	}
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	for _, h := range o.hooks {
		h.AfterStage(ctx, stage, elapsed, err)
	}
	if o.metrics != nil {
		o.metrics.RecordStageTime(stage, elapsed)
		if err != nil {
			o.metrics.RecordError(stage, categoryOf(err))
		}
	}
	return err
}

func categoryOf(err error) string {
	var pe *apperrors.PipelineError
	if errors.As(err, &pe) {
		return string(pe.Category)
	}
	return "unknown"
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
