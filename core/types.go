package core

import (
	"context"
	"time"
)

// Format identifies an image codec.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatWebP    Format = "webp"
	FormatGIF     Format = "gif"
	FormatBMP     Format = "bmp"
	FormatTIFF    Format = "tiff"
	FormatUnknown Format = "unknown"
)

// Extension returns the canonical file extension without dot.
func (f Format) Extension() string {
	if f == FormatUnknown {
		return "bin"
	}
	return string(f)
}

// ColorSpace represents the image colour model.
type ColorSpace string

const (
	ColorSpaceRGB  ColorSpace = "rgb"
	ColorSpaceRGBA ColorSpace = "rgba"
	ColorSpaceCMYK ColorSpace = "cmyk"
	ColorSpaceGray ColorSpace = "gray"
)

// FitPolicy controls how a source is mapped onto a preset's target box.
type FitPolicy string

const (
	// FitCover scales and centre-crops so the output exactly fills the box.
	FitCover FitPolicy = "cover"
	// FitContain scales the longer axis down to fit, never upscaling.
	FitContain FitPolicy = "contain"
)

// Category is the logical content bucket controlling the storage/URL namespace.
type Category string

const (
	CategoryProjects  Category = "projects"
	CategoryTeam      Category = "team"
	CategoryBlog      Category = "blog"
	CategoryOptimized Category = "optimized" // generic bucket
)

// SourceAsset is one uploaded byte buffer plus its declared attributes.
// Immutable once constructed; owned by a single pipeline invocation.
type SourceAsset struct {
	Data         []byte
	OriginalName string
	MIMEType     string // declared by the uploader, advisory only
	ByteLength   int64
}

// Metadata holds information extracted from an image header without a full
// pixel decode. Recomputed per invocation, never persisted on its own.
type Metadata struct {
	Width       int
	Height      int
	Format      Format // detected from content, not from the declared type
	ColorSpace  ColorSpace
	HasAlpha    bool
	Orientation int // EXIF orientation tag (1-8); 0 when absent
	SizeBytes   int64
}

// SizePreset is a named target size plus fit policy. Static configuration.
type SizePreset struct {
	Name   string
	Width  int
	Height int
	Fit    FitPolicy
}

// EncodeProfile carries per-format encode parameters. Static configuration.
type EncodeProfile struct {
	Format      Format
	Quality     int  // 1-100 for lossy formats
	Effort      int  // encoder effort/speed scalar where supported
	Progressive bool // progressive JPEG
	Lossless    bool // WebP lossless mode
	// CompressionLevel selects the PNG compression level:
	// 0 default, -1 none, -2 fastest, -3 best.
	CompressionLevel int
}

// Variant is one concrete encoded output of a pipeline run. Immutable; a
// re-run produces a new, differently named Variant rather than overwriting.
type Variant struct {
	Preset           string  `json:"preset"`
	Format           Format  `json:"format"`
	FileName         string  `json:"file_name"`
	StoragePath      string  `json:"storage_path"`
	URL              string  `json:"url"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	ByteLength       int64   `json:"byte_length"`
	CompressionRatio float64 `json:"compression_ratio"` // (1 - out/in) * 100, 2 decimals
	Hash             string  `json:"hash"`              // xxhash64 of the encoded bytes, 16 hex chars
	Primary          bool    `json:"primary,omitempty"` // featured variant flag
}

// WithinBudget reports whether the variant met the given byte budget.
// Budgeted-mode outputs may legitimately exceed it (best effort contract).
func (v Variant) WithinBudget(target int64) bool {
	return target <= 0 || v.ByteLength <= target
}

// OriginalInfo records the source image's attributes inside a manifest.
type OriginalInfo struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Format     Format `json:"format"`
	ByteLength int64  `json:"byte_length"`
	HasAlpha   bool   `json:"has_alpha"`
}

// Manifest is the complete, immutable result of one pipeline invocation.
// It is the only artifact handed back across the pipeline boundary.
type Manifest struct {
	Category    Category     `json:"category"`
	Original    OriginalInfo `json:"original"`
	Variants    []Variant    `json:"variants"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// PrimaryVariant returns the featured variant, or nil when none is flagged.
func (m *Manifest) PrimaryVariant() *Variant {
	for i := range m.Variants {
		if m.Variants[i].Primary {
			return &m.Variants[i]
		}
	}
	return nil
}

// TotalOutputBytes sums the byte length of every variant.
func (m *Manifest) TotalOutputBytes() int64 {
	var n int64
	for _, v := range m.Variants {
		n += v.ByteLength
	}
	return n
}

// GenerateOptions controls one manifest generation call.
type GenerateOptions struct {
	// Presets restricts generation to the named presets. Empty means every
	// configured preset.
	Presets []string

	// TargetBytes switches to budgeted mode: each requested preset is
	// produced through the compression search against this byte budget
	// instead of a fixed-quality encode.
	TargetBytes int64

	// Suffix is an optional marker appended to derived file names.
	Suffix string

	// Quality overrides the profile quality for plain-mode encodes when > 0.
	Quality int
}

// Budgeted reports whether the options select the compression-search path.
func (o GenerateOptions) Budgeted() bool { return o.TargetBytes > 0 }

// Job encapsulates one async manifest generation for the worker pool.
type Job struct {
	ID       string
	Ctx      context.Context //nolint:containedctx // intentional for async jobs
	Asset    SourceAsset
	Category Category
	Options  GenerateOptions
	// Result channel; nil for fire-and-forget.
	ResultCh chan<- JobResult
}

// JobResult wraps the outcome of an async job.
type JobResult struct {
	JobID    string
	Manifest *Manifest
	Err      error
}
