package decoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	// Register the decode set with image.DecodeConfig. BMP and TIFF come
	// from x/image; the rest from the standard library.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/cobalthq/respimg/core"
	apperrors "github.com/cobalthq/respimg/errors"
	"github.com/cobalthq/respimg/utils"
)

// Probe decodes only the image header and returns the source metadata:
// dimensions, the format detected from the actual content, alpha presence,
// colour space and EXIF orientation. It is the first point at which a
// malformed-but-well-labelled upload is caught.
func Probe(data []byte) (core.Metadata, error) {
	if len(data) == 0 {
		return core.Metadata{}, apperrors.New(apperrors.CategoryDecode, "probe", apperrors.ErrEmptyInput)
	}

	format := core.Format(utils.DetectFormat(data))
	if format == core.FormatUnknown {
		return core.Metadata{}, apperrors.New(apperrors.CategoryDecode, "probe", apperrors.ErrUnsupportedFormat)
	}

	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return core.Metadata{}, apperrors.Wrap(apperrors.CategoryDecode, "probe",
			fmt.Errorf("decode %s header: %w", format, err))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return core.Metadata{}, apperrors.New(apperrors.CategoryDecode, "probe", apperrors.ErrInvalidDimensions)
	}
	// Sniffed magic bytes and the registered decoder must agree; a
	// disagreement means a polyglot or truncated buffer.
	if name != string(format) {
		return core.Metadata{}, apperrors.New(apperrors.CategoryDecode, "probe",
			errors.New("content signature does not match decoded format"))
	}

	meta := core.Metadata{
		Width:      cfg.Width,
		Height:     cfg.Height,
		Format:     format,
		ColorSpace: modelColorSpace(cfg.ColorModel),
		HasAlpha:   modelHasAlpha(cfg.ColorModel),
		SizeBytes:  int64(len(data)),
	}
	if format == core.FormatJPEG {
		meta.Orientation = jpegOrientation(data)
	}
	return meta, nil
}
