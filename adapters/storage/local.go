// Package storage provides StorageAdapter implementations.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cobalthq/respimg/core"
	apperrors "github.com/cobalthq/respimg/errors"
)

// stagingDir is the working area under the upload root. Variants land here
// first and are promoted into their category directory only once the whole
// manifest succeeded, so the age-based sweep never touches live files.
const stagingDir = ".staging"

// Local persists variants on the local filesystem under
// <rootDir>/<category>/<name>. Directory creation is idempotent and safe to
// race across concurrent invocations. Local implements both StorageAdapter
// and the Stager/Sweeper upgrades.
type Local struct {
	rootDir     string
	permissions os.FileMode
	categories  map[core.Category]string
}

// NewLocal creates a Local adapter rooted at dir with the given
// category-to-subdirectory mapping.
func NewLocal(dir string, perm os.FileMode, categories map[core.Category]string) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("local storage: root dir must not be empty")
	}
	if perm == 0 {
		perm = 0o644
	}
	if len(categories) == 0 {
		categories = core.DefaultCategories()
	}
	if err := os.MkdirAll(filepath.Join(dir, stagingDir), 0o755); err != nil {
		return nil, fmt.Errorf("local storage: mkdir %s: %w", dir, err)
	}
	return &Local{rootDir: dir, permissions: perm, categories: categories}, nil
}

// RelativePath returns the storage path for a key, relative to the parent of
// the root directory (e.g. "uploads/projects/<name>").
func (l *Local) RelativePath(key core.StorageKey) (string, error) {
	sub, ok := l.categories[key.Category]
	if !ok {
		return "", apperrors.New(apperrors.CategoryStorage, "local.path", apperrors.ErrUnknownCategory)
	}
	return filepath.ToSlash(filepath.Join(filepath.Base(l.rootDir), sub, filepath.Base(key.Name))), nil
}

func (l *Local) absPath(key core.StorageKey) (string, error) {
	sub, ok := l.categories[key.Category]
	if !ok {
		return "", apperrors.New(apperrors.CategoryStorage, "local.path", apperrors.ErrUnknownCategory)
	}
	// Base() strips any path separators smuggled into the name.
	return filepath.Join(l.rootDir, sub, filepath.Base(key.Name)), nil
}

func (l *Local) stagedPath(token string, key core.StorageKey) (string, error) {
	if _, ok := l.categories[key.Category]; !ok {
		return "", apperrors.New(apperrors.CategoryStorage, "local.path", apperrors.ErrUnknownCategory)
	}
	return filepath.Join(l.rootDir, stagingDir, filepath.Base(token),
		string(key.Category), filepath.Base(key.Name)), nil
}

func (l *Local) writeFile(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.mkdir", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, l.permissions)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.open", err)
	}
	if _, err = io.Copy(f, r); err != nil {
		f.Close()
		return apperrors.Wrap(apperrors.CategoryStorage, "local.copy", err)
	}
	if err := f.Close(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.close", err)
	}
	return nil
}

// Put writes directly to the key's final location.
func (l *Local) Put(ctx context.Context, key core.StorageKey, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put", err)
	}
	path, err := l.absPath(key)
	if err != nil {
		return err
	}
	return l.writeFile(path, r)
}

// Stage writes the key's bytes into the invocation's working area.
func (l *Local) Stage(ctx context.Context, token string, key core.StorageKey, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.stage", err)
	}
	path, err := l.stagedPath(token, key)
	if err != nil {
		return err
	}
	return l.writeFile(path, r)
}

// Promote moves a staged file to its final location. Same filesystem, so
// the move is a rename and the final path never holds a partial write.
func (l *Local) Promote(ctx context.Context, token string, key core.StorageKey) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.promote", err)
	}
	src, err := l.stagedPath(token, key)
	if err != nil {
		return err
	}
	dst, err := l.absPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.promote.mkdir", err)
	}
	if err := os.Rename(src, dst); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.promote.rename", err)
	}
	return nil
}

// Discard drops the invocation's entire working area. Used on cancellation;
// failed invocations that are not discarded are reclaimed by Sweep.
func (l *Local) Discard(_ context.Context, token string) error {
	dir := filepath.Join(l.rootDir, stagingDir, filepath.Base(token))
	if err := os.RemoveAll(dir); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.discard", err)
	}
	return nil
}

func (l *Local) Get(ctx context.Context, key core.StorageKey) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.get", err)
	}
	path, err := l.absPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.New(apperrors.CategoryStorage, "local.get",
				fmt.Errorf("key not found: %s/%s", key.Category, key.Name))
		}
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.get.open", err)
	}
	return f, nil
}

func (l *Local) Delete(ctx context.Context, key core.StorageKey) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.delete", err)
	}
	path, err := l.absPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.delete", err)
	}
	return nil
}

func (l *Local) Exists(ctx context.Context, key core.StorageKey) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, apperrors.Wrap(apperrors.CategoryStorage, "local.exists", err)
	}
	path, err := l.absPath(key)
	if err != nil {
		return false, err
	}
	_, statErr := os.Stat(path)
	if statErr == nil {
		return true, nil
	}
	if errors.Is(statErr, os.ErrNotExist) {
		return false, nil
	}
	return false, apperrors.Wrap(apperrors.CategoryStorage, "local.exists.stat", statErr)
}

// Sweep removes working-area files older than the given age, then prunes
// the emptied invocation directories. Independently schedulable; live
// variants under the category directories are never touched. Returns the
// number of files removed.
func (l *Local) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	root := filepath.Join(l.rootDir, stagingDir)
	removed := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil // raced with a concurrent discard
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if rmErr := os.Remove(path); rmErr == nil {
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return removed, apperrors.Wrap(apperrors.CategoryStorage, "local.sweep", err)
	}

	// Prune empty invocation directories; Remove fails on non-empty ones,
	// which is exactly the behaviour we want.
	if entries, readErr := os.ReadDir(root); readErr == nil {
		for _, e := range entries {
			if e.IsDir() {
				pruneEmptyDirs(filepath.Join(root, e.Name()))
			}
		}
	}
	return removed, nil
}

func pruneEmptyDirs(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			pruneEmptyDirs(filepath.Join(dir, e.Name()))
		}
	}
	_ = os.Remove(dir)
}
