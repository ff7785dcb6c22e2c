package core

import (
	"strings"
	"sync"
)

// DefaultRegistry is a thread-safe implementation of Registry.
type DefaultRegistry struct {
	mu       sync.RWMutex
	decoders map[Format]Decoder
	encoders map[Format]Encoder
}

// NewRegistry returns an empty DefaultRegistry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{
		decoders: make(map[Format]Decoder),
		encoders: make(map[Format]Encoder),
	}
}

func (r *DefaultRegistry) RegisterDecoder(f Format, d Decoder) {
	r.mu.Lock()
	r.decoders[f] = d
	r.mu.Unlock()
}

func (r *DefaultRegistry) RegisterEncoder(f Format, e Encoder) {
	r.mu.Lock()
	r.encoders[f] = e
	r.mu.Unlock()
}

func (r *DefaultRegistry) DecoderFor(f Format) (Decoder, bool) {
	r.mu.RLock()
	d, ok := r.decoders[f]
	r.mu.RUnlock()
	return d, ok
}

func (r *DefaultRegistry) EncoderFor(f Format) (Encoder, bool) {
	r.mu.RLock()
	e, ok := r.encoders[f]
	r.mu.RUnlock()
	return e, ok
}

// EncodableFormats returns the registered encode formats in delivery
// priority order (modern first, fallbacks after).
func (r *DefaultRegistry) EncodableFormats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Format
	for _, f := range []Format{FormatWebP, FormatJPEG, FormatPNG} {
		if _, ok := r.encoders[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// ResolveDeliveryFormats filters the requested delivery formats to those
// with a registered encoder, and guarantees at least one usable fallback:
// PNG for alpha sources (JPEG would flatten transparency), JPEG otherwise.
func (r *DefaultRegistry) ResolveDeliveryFormats(requested []Format, hasAlpha bool) []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var resolved []Format
	seen := make(map[Format]bool, len(requested))
	for _, f := range requested {
		f = Format(strings.ToLower(string(f)))
		if _, ok := r.encoders[f]; ok && !seen[f] {
			resolved = append(resolved, f)
			seen[f] = true
		}
	}

	if len(resolved) == 0 {
		fallback := FormatJPEG
		if hasAlpha {
			fallback = FormatPNG
		}
		if _, ok := r.encoders[fallback]; ok {
			resolved = append(resolved, fallback)
		}
	}
	return resolved
}
