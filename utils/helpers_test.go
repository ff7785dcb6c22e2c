package utils_test

import (
	"testing"

	"github.com/cobalthq/respimg/utils"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, "jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A}, "png"},
		{"gif", []byte("GIF89a......"), "gif"},
		{"webp", append([]byte("RIFF\x00\x00\x00\x00WEBP"), 0), "webp"},
		{"bmp", []byte{0x42, 0x4D, 0x00, 0x00}, "bmp"},
		{"tiff little endian", []byte{0x49, 0x49, 0x2A, 0x00}, "tiff"},
		{"tiff big endian", []byte{0x4D, 0x4D, 0x00, 0x2A}, "tiff"},
		{"text", []byte("hello world, not an image"), "unknown"},
		{"too short", []byte{0xFF}, "unknown"},
		{"empty", nil, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := utils.DetectFormat(tt.data); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		srcW, srcH, maxW, maxH int
		wantW, wantH           int
	}{
		{1600, 1200, 640, 480, 640, 480},
		{1200, 1600, 640, 480, 360, 480},
		{320, 240, 640, 480, 320, 240}, // never upscale
		{1600, 1200, 0, 480, 640, 480}, // unconstrained width
		{1600, 1200, 640, 0, 640, 480}, // unconstrained height
		{10000, 1, 100, 100, 100, 1},
	}
	for _, tt := range tests {
		w, h := utils.FitWithin(tt.srcW, tt.srcH, tt.maxW, tt.maxH)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("FitWithin(%d,%d,%d,%d) = %d,%d want %d,%d",
				tt.srcW, tt.srcH, tt.maxW, tt.maxH, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestCompressionRatio(t *testing.T) {
	tests := []struct {
		in, out int64
		want    float64
	}{
		{1000, 250, 75},
		{1000, 1000, 0},
		{1000, 1500, -50}, // output grew
		{0, 500, 0},
		{3000, 1000, 66.67},
	}
	for _, tt := range tests {
		if got := utils.CompressionRatio(tt.in, tt.out); got != tt.want {
			t.Errorf("CompressionRatio(%d, %d) = %v, want %v", tt.in, tt.out, got, tt.want)
		}
	}
}

func TestScaleDimensions(t *testing.T) {
	if w, h := utils.ScaleDimensions(800, 600, 400, 0); w != 400 || h != 300 {
		t.Errorf("got %dx%d, want 400x300", w, h)
	}
	if w, h := utils.ScaleDimensions(800, 600, 0, 300); w != 400 || h != 300 {
		t.Errorf("got %dx%d, want 400x300", w, h)
	}
	if w, h := utils.ScaleDimensions(800, 600, 0, 0); w != 800 || h != 600 {
		t.Errorf("got %dx%d, want source size", w, h)
	}
}
