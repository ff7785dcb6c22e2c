package core

import (
	"context"
	"image"
	"io"
	"time"
)

// Decoder converts encoded bytes into a pixel buffer plus metadata.
// Implementations live in adapters/decoder/.
type Decoder interface {
	// Decode reads from r and returns the decoded image and its metadata.
	Decode(ctx context.Context, r io.Reader) (image.Image, Metadata, error)
	// CanDecode reports whether this decoder handles the given format.
	CanDecode(format Format) bool
}

// Encoder serialises a pixel buffer to bytes in a target format.
// Implementations live in adapters/encoder/.
type Encoder interface {
	Encode(ctx context.Context, img image.Image, profile EncodeProfile) ([]byte, error)
	CanEncode(format Format) bool
}

// StorageAdapter persists encoded variants under a category namespace and
// retrieves or removes them later. Implementations live in adapters/storage/.
type StorageAdapter interface {
	Put(ctx context.Context, key StorageKey, r io.Reader) error
	Get(ctx context.Context, key StorageKey) (io.ReadCloser, error)
	Delete(ctx context.Context, key StorageKey) error
	Exists(ctx context.Context, key StorageKey) (bool, error)
}

// StorageKey uniquely identifies a stored variant.
type StorageKey struct {
	Category Category
	Name     string
}

// Stager is an optional StorageAdapter upgrade for all-or-nothing manifest
// persistence: variants are written into a per-invocation working area and
// promoted to their final keys only after every sibling succeeded. Failed or
// abandoned invocations leave their files in the working area, where the
// sweep reclaims them by age.
type Stager interface {
	Stage(ctx context.Context, token string, key StorageKey, r io.Reader) error
	Promote(ctx context.Context, token string, key StorageKey) error
	Discard(ctx context.Context, token string) error
}

// Sweeper removes aged orphan files left behind by failed invocations.
// The local storage adapter implements it; remote adapters may not.
type Sweeper interface {
	Sweep(ctx context.Context, olderThan time.Duration) (removed int, err error)
}

// Logger is a minimal structured logging interface. Adapters for slog and
// zerolog live in hooks/.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// Hook observes pipeline stages (validate, probe, decode, transcode, store).
type Hook interface {
	BeforeStage(ctx context.Context, stage string, asset *SourceAsset)
	AfterStage(ctx context.Context, stage string, d time.Duration, err error)
}

// MetricsCollector receives performance observations from the pipeline.
type MetricsCollector interface {
	RecordStageTime(stage string, d time.Duration)
	RecordThroughput(bytes int64)
	RecordError(stage string, category string)
}

// Registry maps Format values to Decoder/Encoder implementations.
type Registry interface {
	DecoderFor(format Format) (Decoder, bool)
	EncoderFor(format Format) (Encoder, bool)
	RegisterDecoder(format Format, d Decoder)
	RegisterEncoder(format Format, e Encoder)
	// ResolveDeliveryFormats narrows the requested delivery formats to
	// those with a registered encoder, guaranteeing a usable fallback for
	// alpha and non-alpha sources alike.
	ResolveDeliveryFormats(requested []Format, hasAlpha bool) []Format
}
