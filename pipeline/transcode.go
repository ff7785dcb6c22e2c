package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/cobalthq/respimg/core"
	apperrors "github.com/cobalthq/respimg/errors"
	"github.com/cobalthq/respimg/utils"
)

// TranscodeResult is the output of one pure transform: encoded bytes plus
// the resulting geometry and size accounting.
type TranscodeResult struct {
	Data             []byte
	Format           core.Format
	Width            int
	Height           int
	ByteLength       int64
	CompressionRatio float64 // (1 - output/input) * 100, two decimals
}

// Transcoder turns a decoded source into one encoded variant per call.
// It performs no I/O, which is what allows the orchestrator to fan it out
// concurrently without locking.
type Transcoder struct {
	Registry core.Registry

	// Background fills letterboxed regions when an alpha source is encoded
	// to a format without transparency. Defaults to white.
	Background color.Color
}

// NewTranscoder returns a Transcoder bound to the given codec registry.
func NewTranscoder(reg core.Registry) *Transcoder {
	return &Transcoder{Registry: reg, Background: color.White}
}

// Transcode resizes src per the preset's fit policy and encodes it with the
// profile. A nil preset (or the "original" sentinel) keeps the source
// dimensions. qualityOverride replaces the profile quality when > 0;
// srcBytes is the original upload size used for the compression ratio.
func (t *Transcoder) Transcode(
	ctx context.Context,
	src image.Image,
	preset *core.SizePreset,
	profile core.EncodeProfile,
	qualityOverride int,
	srcBytes int64,
) (*TranscodeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "transcode", err)
	}
	if src == nil {
		return nil, apperrors.New(apperrors.CategoryEncode, "transcode", apperrors.ErrEmptyInput)
	}

	out := t.resize(src, preset)

	if needsFlatten(out, profile.Format) {
		out = t.flatten(out)
	}

	enc, ok := t.Registry.EncoderFor(profile.Format)
	if !ok {
		return nil, apperrors.New(apperrors.CategoryEncode, "transcode",
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, profile.Format))
	}

	if qualityOverride > 0 {
		profile.Quality = qualityOverride
	}

	data, err := enc.Encode(ctx, out, profile)
	if err != nil {
		return nil, err
	}

	b := out.Bounds()
	return &TranscodeResult{
		Data:             data,
		Format:           profile.Format,
		Width:            b.Dx(),
		Height:           b.Dy(),
		ByteLength:       int64(len(data)),
		CompressionRatio: utils.CompressionRatio(srcBytes, int64(len(data))),
	}, nil
}

// resize applies the preset's fit policy. cover scales and centre-crops so
// the output exactly fills the target box; contain scales the longer axis
// down to fit and never upscales past the source's native size.
func (t *Transcoder) resize(src image.Image, preset *core.SizePreset) image.Image {
	if preset == nil || preset.Name == core.PresetOriginal {
		return src
	}

	switch preset.Fit {
	case core.FitCover:
		return imaging.Fill(src, preset.Width, preset.Height, imaging.Center, imaging.Lanczos)
	default:
		b := src.Bounds()
		w, h := utils.FitWithin(b.Dx(), b.Dy(), preset.Width, preset.Height)
		if w == b.Dx() && h == b.Dy() {
			return src
		}
		return imaging.Resize(src, w, h, imaging.Lanczos)
	}
}

// needsFlatten reports whether src carries alpha that the target format
// cannot represent.
func needsFlatten(src image.Image, target core.Format) bool {
	if target != core.FormatJPEG {
		return false
	}
	switch img := src.(type) {
	case *image.NRGBA:
		return !img.Opaque()
	case *image.RGBA:
		return !img.Opaque()
	case *image.NRGBA64:
		return !img.Opaque()
	case *image.RGBA64:
		return !img.Opaque()
	}
	return false
}

// flatten composites src over the background colour.
func (t *Transcoder) flatten(src image.Image) image.Image {
	bg := t.Background
	if bg == nil {
		bg = color.White
	}
	canvas := imaging.New(src.Bounds().Dx(), src.Bounds().Dy(), bg)
	return imaging.OverlayCenter(canvas, src, 1.0)
}

// Orient normalises EXIF orientation (tags 2-8) so every variant is
// generated from upright pixels. Tag values follow the EXIF spec.
func Orient(src image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(src)
	case 3:
		return imaging.Rotate180(src)
	case 4:
		return imaging.FlipV(src)
	case 5:
		return imaging.Transpose(src)
	case 6:
		return imaging.Rotate270(src)
	case 7:
		return imaging.Transverse(src)
	case 8:
		return imaging.Rotate90(src)
	}
	return src
}
