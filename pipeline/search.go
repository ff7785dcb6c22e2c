package pipeline

import (
	"context"
	"image"

	"github.com/cobalthq/respimg/config"
	"github.com/cobalthq/respimg/core"
	apperrors "github.com/cobalthq/respimg/errors"
)

// Search drives the budgeted encode path: it re-encodes at decreasing
// quality until the byte budget is met or the bounded work runs out. The
// contract is best effort within bounded work, not a size guarantee.
type Search struct {
	cfg config.SearchConfig
}

// NewSearch builds a Search from the configured bounds.
func NewSearch(cfg config.SearchConfig) *Search {
	if cfg.StartQuality <= 0 {
		cfg.StartQuality = 90
	}
	if cfg.Step <= 0 {
		cfg.Step = 10
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	return &Search{cfg: cfg}
}

// Run repeatedly invokes the transcoder starting at StartQuality. It stops
// when the output fits targetBytes, when quality would drop below
// MinQuality, or after MaxAttempts encodes, and returns the last attempt even
// if it still exceeds the target. Worst-case CPU cost per asset is a
// constant number of encode passes regardless of input complexity.
func (s *Search) Run(
	ctx context.Context,
	t *Transcoder,
	src image.Image,
	preset *core.SizePreset,
	profile core.EncodeProfile,
	targetBytes int64,
	srcBytes int64,
) (*TranscodeResult, error) {
	if targetBytes <= 0 {
		return nil, apperrors.New(apperrors.CategoryPipeline, "search", apperrors.ErrInvalidInput)
	}

	quality := s.cfg.StartQuality
	var last *TranscodeResult

	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryPipeline, "search", err)
		}

		res, err := t.Transcode(ctx, src, preset, profile, quality, srcBytes)
		if err != nil {
			return nil, err
		}
		last = res

		if res.ByteLength <= targetBytes {
			break
		}
		next := quality - s.cfg.Step
		if next < s.cfg.MinQuality {
			break
		}
		quality = next
	}
	return last, nil
}
