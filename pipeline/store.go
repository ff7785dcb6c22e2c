package pipeline

import (
	"bytes"
	"context"
	"path"
	"time"

	"github.com/cobalthq/respimg/core"
	apperrors "github.com/cobalthq/respimg/errors"
	"github.com/cobalthq/respimg/utils"
)

// Saver is the naming and storage manager: it derives collision-resistant
// file names, persists encoded buffers through the storage adapter, and
// reports the relative storage path plus the public URL mirroring it.
type Saver struct {
	Adapter       core.StorageAdapter
	PublicBaseURL string // e.g. "/uploads"
	Categories    map[core.Category]string
}

// NewSaver wires a Saver over the given adapter.
func NewSaver(adapter core.StorageAdapter, publicBaseURL string, categories map[core.Category]string) *Saver {
	if len(categories) == 0 {
		categories = core.DefaultCategories()
	}
	return &Saver{Adapter: adapter, PublicBaseURL: publicBaseURL, Categories: categories}
}

// SavedVariant reports where one encoded buffer was persisted.
type SavedVariant struct {
	Key         core.StorageKey
	FileName    string
	StoragePath string
	URL         string
}

// Save derives a name for the encoded buffer and stages or writes it under
// the category's directory. When token is non-empty and the adapter
// supports staging, the file lands in the invocation's working area and
// must be promoted later; otherwise it is written directly.
func (s *Saver) Save(
	ctx context.Context,
	token string,
	category core.Category,
	originalName, preset, suffix string,
	format core.Format,
	data []byte,
) (*SavedVariant, error) {
	sub, ok := s.Categories[category]
	if !ok {
		return nil, apperrors.New(apperrors.CategoryStorage, "save", apperrors.ErrUnknownCategory)
	}

	name := utils.DeriveFileName(originalName, preset, suffix, format.Extension(), time.Now())
	key := core.StorageKey{Category: category, Name: name}

	if stager, canStage := s.Adapter.(core.Stager); canStage && token != "" {
		if err := stager.Stage(ctx, token, key, bytes.NewReader(data)); err != nil {
			return nil, err
		}
	} else {
		if err := s.Adapter.Put(ctx, key, bytes.NewReader(data)); err != nil {
			return nil, err
		}
	}

	storagePath := s.relativePath(key, sub)
	return &SavedVariant{
		Key:         key,
		FileName:    name,
		StoragePath: storagePath,
		URL:         path.Join(s.PublicBaseURL, sub, name),
	}, nil
}

// Promote moves a staged variant to its final location. A no-op for
// adapters without staging support, where Save already wrote the final key.
func (s *Saver) Promote(ctx context.Context, token string, key core.StorageKey) error {
	if stager, ok := s.Adapter.(core.Stager); ok && token != "" {
		return stager.Promote(ctx, token, key)
	}
	return nil
}

// Discard drops an invocation's staged files after cancellation.
func (s *Saver) Discard(ctx context.Context, token string) error {
	if stager, ok := s.Adapter.(core.Stager); ok && token != "" {
		return stager.Discard(ctx, token)
	}
	return nil
}

func (s *Saver) relativePath(key core.StorageKey, sub string) string {
	// The local adapter reports its on-disk layout; other adapters fall
	// back to the canonical uploads/<category>/<name> shape.
	type pathReporter interface {
		RelativePath(core.StorageKey) (string, error)
	}
	if rep, ok := s.Adapter.(pathReporter); ok {
		if p, err := rep.RelativePath(key); err == nil {
			return p
		}
	}
	return path.Join("uploads", sub, key.Name)
}
