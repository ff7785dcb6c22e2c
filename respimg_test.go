package respimg_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	_ "golang.org/x/image/webp" // decode produced webp variants

	"github.com/cobalthq/respimg"
	"github.com/cobalthq/respimg/config"
	"github.com/cobalthq/respimg/core"
	apperrors "github.com/cobalthq/respimg/errors"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

func newRedJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 50, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func newBluePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 50, G: 50, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

// newNoisyJPEG produces a poorly compressible image so the budgeted search
// has real work to do.
func newNoisyJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	seed := uint32(2463534242)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			seed ^= seed << 13
			seed ^= seed >> 17
			seed ^= seed << 5
			img.Set(x, y, color.RGBA{
				R: uint8(seed), G: uint8(seed >> 8), B: uint8(seed >> 16), A: 255,
			})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode noisy jpeg: %v", err)
	}
	return buf.Bytes()
}

func newGen(t *testing.T) (*respimg.Generator, config.Config) {
	t.Helper()
	cfg := respimg.DefaultConfig()
	cfg.WorkerCount = 2
	cfg.QueueSize = 16
	cfg.Storage.RootDir = filepath.Join(t.TempDir(), "uploads")
	gen, err := respimg.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return gen, cfg
}

func filesUnder(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			out = append(out, path)
		}
		return nil
	})
	return out
}

// ── End-to-end scenarios ──────────────────────────────────────────────────────

func TestGenerateManifest_FullFanOut(t *testing.T) {
	gen, cfg := newGen(t)
	raw := newRedJPEG(t, 1600, 1200)

	m, err := gen.GenerateManifest(context.Background(),
		respimg.FromBuffer(raw, "Hero Shot.jpg", "image/jpeg"),
		core.CategoryBlog, core.GenerateOptions{})
	if err != nil {
		t.Fatalf("GenerateManifest: %v", err)
	}

	// 5 sized presets x 2 delivery formats + the featured original-size entry.
	if got, want := len(m.Variants), 11; got != want {
		t.Fatalf("variant count: got %d, want %d", got, want)
	}

	wantOriginal := core.OriginalInfo{
		Width:      1600,
		Height:     1200,
		Format:     core.FormatJPEG,
		ByteLength: int64(len(raw)),
	}
	if diff := cmp.Diff(wantOriginal, m.Original); diff != "" {
		t.Errorf("original info mismatch (-want +got):\n%s", diff)
	}

	primary := m.PrimaryVariant()
	if primary == nil {
		t.Fatal("no primary variant")
	}
	if primary.Format != core.FormatWebP {
		t.Errorf("primary format: got %s, want webp", primary.Format)
	}
	if primary.Width != 1600 || primary.Height != 1200 {
		t.Errorf("primary dimensions: got %dx%d, want 1600x1200", primary.Width, primary.Height)
	}

	for _, v := range m.Variants {
		if v.Preset == "thumbnail" && (v.Width != 150 || v.Height != 150) {
			t.Errorf("thumbnail is %dx%d, want exact 150x150", v.Width, v.Height)
		}
		if v.ByteLength <= 0 {
			t.Errorf("variant %s.%s has no bytes", v.Preset, v.Format)
		}
		if v.Hash == "" {
			t.Errorf("variant %s.%s has no hash", v.Preset, v.Format)
		}
		if !strings.HasPrefix(v.URL, cfg.Storage.PublicBaseURL+"/") {
			t.Errorf("url %q not under %q", v.URL, cfg.Storage.PublicBaseURL)
		}
	}

	// Every variant is on disk under the category directory; nothing remains
	// in the staging area.
	blogDir := filepath.Join(cfg.Storage.RootDir, "blog")
	if got := len(filesUnder(t, blogDir)); got != 11 {
		t.Errorf("files in blog dir: got %d, want 11", got)
	}
	if staged := filesUnder(t, filepath.Join(cfg.Storage.RootDir, ".staging")); len(staged) != 0 {
		t.Errorf("staging area not empty: %v", staged)
	}
}

func TestGenerateManifest_VariantsDecodeInDeclaredFormat(t *testing.T) {
	gen, cfg := newGen(t)

	m, err := gen.GenerateManifest(context.Background(),
		respimg.FromBuffer(newRedJPEG(t, 800, 600), "decode-check.jpg", "image/jpeg"),
		core.CategoryBlog, core.GenerateOptions{})
	if err != nil {
		t.Fatalf("GenerateManifest: %v", err)
	}

	for _, v := range m.Variants {
		raw, err := os.ReadFile(filepath.Join(cfg.Storage.RootDir, "blog", v.FileName))
		if err != nil {
			t.Errorf("variant %s.%s: %v", v.Preset, v.Format, err)
			continue
		}
		img, name, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			t.Errorf("variant %s.%s does not decode: %v", v.Preset, v.Format, err)
			continue
		}
		if name != string(v.Format) {
			t.Errorf("variant %s declares %s but decodes as %s", v.FileName, v.Format, name)
		}
		b := img.Bounds()
		if b.Dx() != v.Width || b.Dy() != v.Height {
			t.Errorf("variant %s: decoded %dx%d, manifest says %dx%d",
				v.FileName, b.Dx(), b.Dy(), v.Width, v.Height)
		}
	}
}

func TestGenerateManifest_ContainNeverUpscales(t *testing.T) {
	gen, _ := newGen(t)
	raw := newRedJPEG(t, 640, 480) // smaller than large and xlarge

	m, err := gen.GenerateManifest(context.Background(),
		respimg.FromBuffer(raw, "small-source.jpg", "image/jpeg"),
		core.CategoryProjects, core.GenerateOptions{Presets: []string{"xlarge"}})
	if err != nil {
		t.Fatalf("GenerateManifest: %v", err)
	}
	for _, v := range m.Variants {
		if v.Width > 640 || v.Height > 480 {
			t.Errorf("variant %s.%s upscaled to %dx%d", v.Preset, v.Format, v.Width, v.Height)
		}
	}
}

func TestGenerateManifest_ReportsAllViolations(t *testing.T) {
	gen, cfg := newGen(t)

	// Oversized, disallowed type and disallowed extension at once.
	oversized := make([]byte, cfg.MaxUploadBytes+1)
	_, err := gen.GenerateManifest(context.Background(),
		respimg.FromBuffer(oversized, "archive.zip", "application/zip"),
		core.CategoryBlog, core.GenerateOptions{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !apperrors.IsCategory(err, apperrors.CategoryValidation) {
		t.Fatalf("error category: got %v", err)
	}

	violations := apperrors.Violations(err)
	if len(violations) != 3 {
		t.Fatalf("violations: got %d (%v), want 3", len(violations), violations)
	}

	// Nothing may reach the disk on a rejected upload.
	if files := filesUnder(t, cfg.Storage.RootDir); len(files) != 0 {
		t.Errorf("rejected upload left files: %v", files)
	}
}

func TestGenerateManifest_DetectedFormatWins(t *testing.T) {
	gen, _ := newGen(t)

	// PNG bytes with a JPEG name and declared type. The content decides.
	raw := newBluePNG(t, 400, 300)
	m, err := gen.GenerateManifest(context.Background(),
		respimg.FromBuffer(raw, "mislabeled.jpg", "image/jpeg"),
		core.CategoryTeam, core.GenerateOptions{Presets: []string{"thumbnail"}})
	if err != nil {
		t.Fatalf("GenerateManifest: %v", err)
	}
	if m.Original.Format != core.FormatPNG {
		t.Errorf("original format: got %s, want png", m.Original.Format)
	}
}

func TestGenerateManifest_CorruptBodyFailsDecode(t *testing.T) {
	gen, cfg := newGen(t)

	body := append(newRedJPEG(t, 64, 64)[:12], []byte("not image data at all")...)
	_, err := gen.GenerateManifest(context.Background(),
		respimg.FromBuffer(body, "broken.jpg", "image/jpeg"),
		core.CategoryBlog, core.GenerateOptions{})
	if err == nil {
		t.Fatal("expected decode error")
	}
	if apperrors.IsCategory(err, apperrors.CategoryValidation) {
		t.Fatalf("corrupt body should fail after validation, got %v", err)
	}
	if files := filesUnder(t, filepath.Join(cfg.Storage.RootDir, "blog")); len(files) != 0 {
		t.Errorf("failed decode left promoted files: %v", files)
	}
}

func TestGenerateManifest_BudgetedSearch(t *testing.T) {
	gen, _ := newGen(t)
	raw := newNoisyJPEG(t, 1200, 900)

	target := int64(10 << 10) // 10 KB: reachable for a 150x150 thumbnail
	m, err := gen.GenerateManifest(context.Background(),
		respimg.FromBuffer(raw, "photo.jpg", "image/jpeg"),
		core.CategoryOptimized, core.GenerateOptions{TargetBytes: target})
	if err != nil {
		t.Fatalf("GenerateManifest: %v", err)
	}

	// Budgeted mode defaults to the thumbnail preset, modern format only.
	if len(m.Variants) != 1 {
		t.Fatalf("variant count: got %d, want 1", len(m.Variants))
	}
	v := m.Variants[0]
	if v.Preset != "thumbnail" {
		t.Errorf("preset: got %s, want thumbnail", v.Preset)
	}
	if v.Format != core.FormatWebP {
		t.Errorf("format: got %s, want webp", v.Format)
	}
	if !v.WithinBudget(target) {
		t.Errorf("variant %dB exceeds %dB budget", v.ByteLength, target)
	}
}

func TestGenerateManifest_ImpossibleBudgetStillReturnsVariant(t *testing.T) {
	gen, _ := newGen(t)
	raw := newNoisyJPEG(t, 1200, 900)

	// 1 byte can never be met; the floor-quality attempt must still come back.
	m, err := gen.GenerateManifest(context.Background(),
		respimg.FromBuffer(raw, "photo.jpg", "image/jpeg"),
		core.CategoryOptimized, core.GenerateOptions{TargetBytes: 1})
	if err != nil {
		t.Fatalf("GenerateManifest: %v", err)
	}
	if len(m.Variants) != 1 {
		t.Fatalf("variant count: got %d, want 1", len(m.Variants))
	}
	v := m.Variants[0]
	if v.ByteLength <= 1 {
		t.Fatalf("floor-quality output has %d bytes", v.ByteLength)
	}
	if v.WithinBudget(1) {
		t.Error("variant incorrectly reported as within a 1-byte budget")
	}
}

func TestGenerateManifest_UnknownPreset(t *testing.T) {
	gen, _ := newGen(t)
	_, err := gen.GenerateManifest(context.Background(),
		respimg.FromBuffer(newRedJPEG(t, 100, 100), "a.jpg", "image/jpeg"),
		core.CategoryBlog, core.GenerateOptions{Presets: []string{"gigantic"}})
	if !errors.Is(err, apperrors.ErrUnknownPreset) {
		t.Fatalf("got %v, want ErrUnknownPreset", err)
	}
}

func TestGenerateManifest_UnknownCategory(t *testing.T) {
	gen, _ := newGen(t)
	_, err := gen.GenerateManifest(context.Background(),
		respimg.FromBuffer(newRedJPEG(t, 100, 100), "a.jpg", "image/jpeg"),
		core.Category("attic"), core.GenerateOptions{})
	if !errors.Is(err, apperrors.ErrUnknownCategory) {
		t.Fatalf("got %v, want ErrUnknownCategory", err)
	}
}

func TestGenerateManifest_RepeatedNamesNeverCollide(t *testing.T) {
	gen, cfg := newGen(t)
	raw := newRedJPEG(t, 320, 240)
	opts := core.GenerateOptions{Presets: []string{"thumbnail"}}

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		m, err := gen.GenerateManifest(context.Background(),
			respimg.FromBuffer(raw, "repeat.jpg", "image/jpeg"),
			core.CategoryBlog, opts)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		for _, v := range m.Variants {
			if seen[v.FileName] {
				t.Fatalf("file name reused across uploads: %s", v.FileName)
			}
			seen[v.FileName] = true
		}
	}

	// Per-upload: thumbnail in webp + jpeg, plus the featured entry.
	if got := len(filesUnder(t, filepath.Join(cfg.Storage.RootDir, "blog"))); got != 9 {
		t.Errorf("files on disk: got %d, want 9", got)
	}
}

func TestGenerateManifest_Cancellation(t *testing.T) {
	gen, cfg := newGen(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gen.GenerateManifest(ctx,
		respimg.FromBuffer(newRedJPEG(t, 800, 600), "a.jpg", "image/jpeg"),
		core.CategoryBlog, core.GenerateOptions{})
	if err == nil {
		t.Fatal("expected context error")
	}
	if staged := filesUnder(t, filepath.Join(cfg.Storage.RootDir, ".staging")); len(staged) != 0 {
		t.Errorf("cancelled run left staged files: %v", staged)
	}
}

// ── Async pool ────────────────────────────────────────────────────────────────

func TestSubmit_Async(t *testing.T) {
	gen, _ := newGen(t)
	gen.Start()
	t.Cleanup(gen.Stop)

	results := make(chan core.JobResult, 1)
	err := gen.Submit(core.Job{
		ID:       "async-1",
		Asset:    respimg.FromBuffer(newRedJPEG(t, 300, 200), "async.jpg", "image/jpeg"),
		Category: core.CategoryProjects,
		Options:  core.GenerateOptions{Presets: []string{"thumbnail"}},
		ResultCh: results,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case res := <-results:
		if res.Err != nil {
			t.Fatalf("job failed: %v", res.Err)
		}
		if res.JobID != "async-1" {
			t.Errorf("job id: got %s", res.JobID)
		}
		if len(res.Manifest.Variants) == 0 {
			t.Error("job returned no variants")
		}
	case <-time.After(30 * time.Second):
		t.Fatal("async job timed out")
	}

	processed, failed := gen.Stats()
	if processed != 1 || failed != 0 {
		t.Errorf("stats: processed=%d failed=%d", processed, failed)
	}
}

func TestStop_DrainsQueuedJobs(t *testing.T) {
	gen, _ := newGen(t)
	gen.Start()
	raw := newRedJPEG(t, 200, 150)
	opts := core.GenerateOptions{Presets: []string{"thumbnail"}}

	results := make(chan core.JobResult, 4)
	for i := 0; i < 4; i++ {
		err := gen.Submit(core.Job{
			ID:       fmt.Sprintf("queued-%d", i),
			Asset:    respimg.FromBuffer(raw, "queued.jpg", "image/jpeg"),
			Category: core.CategoryBlog,
			Options:  opts,
			ResultCh: results,
		})
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}

	// Stop must finish every accepted job before returning, so all results
	// are already buffered on the channel.
	gen.Stop()
	for i := 0; i < 4; i++ {
		select {
		case res := <-results:
			if res.Err != nil {
				t.Errorf("queued job failed: %v", res.Err)
			}
		default:
			t.Fatalf("only %d of 4 queued jobs produced a result", i)
		}
	}

	err := gen.Submit(core.Job{Asset: respimg.FromBuffer(raw, "late.jpg", "image/jpeg"), Category: core.CategoryBlog})
	if !errors.Is(err, apperrors.ErrPoolStopped) {
		t.Errorf("submit after stop: got %v, want ErrPoolStopped", err)
	}
}

// ── Source constructors and sweep ─────────────────────────────────────────────

func TestFromReader_PreservesTrueLength(t *testing.T) {
	raw := newRedJPEG(t, 200, 200)
	asset, err := respimg.FromReader(context.Background(),
		bytes.NewReader(raw), "r.jpg", "image/jpeg", 1<<20)
	if err != nil {
		t.Fatalf("FromReader: %v", err)
	}
	if asset.ByteLength != int64(len(raw)) {
		t.Errorf("byte length: got %d, want %d", asset.ByteLength, len(raw))
	}
	if !bytes.Equal(asset.Data, raw) {
		t.Error("data mangled in transit")
	}
}

func TestFromFile_GeneratesManifest(t *testing.T) {
	gen, _ := newGen(t)
	raw := newRedJPEG(t, 640, 480)
	path := filepath.Join(t.TempDir(), "Hero Shot.jpg")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	asset, err := respimg.FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	// File-sourced assets carry no declared MIME; content sniffing decides.
	if asset.MIMEType != "" {
		t.Errorf("unexpected declared mime %q", asset.MIMEType)
	}

	m, err := gen.GenerateManifest(context.Background(), asset,
		core.CategoryBlog, core.GenerateOptions{Presets: []string{"thumbnail"}})
	if err != nil {
		t.Fatalf("GenerateManifest: %v", err)
	}
	if m.Original.Format != core.FormatJPEG {
		t.Errorf("original format: got %s, want jpeg", m.Original.Format)
	}
	if len(m.Variants) == 0 {
		t.Fatal("no variants produced")
	}
}

func TestSweep_RemovesOnlyStaleStagedFiles(t *testing.T) {
	gen, cfg := newGen(t)

	// A live variant and an abandoned staged file.
	if _, err := gen.GenerateManifest(context.Background(),
		respimg.FromBuffer(newRedJPEG(t, 100, 100), "live.jpg", "image/jpeg"),
		core.CategoryBlog, core.GenerateOptions{Presets: []string{"thumbnail"}}); err != nil {
		t.Fatalf("GenerateManifest: %v", err)
	}
	stale := filepath.Join(cfg.Storage.RootDir, ".staging", "dead-token", "blog", "orphan.webp")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	n, err := gen.Sweep(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("swept %d files, want 1", n)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale staged file survived the sweep")
	}
	if got := len(filesUnder(t, filepath.Join(cfg.Storage.RootDir, "blog"))); got == 0 {
		t.Error("sweep removed live variants")
	}
}
