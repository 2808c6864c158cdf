// Package storage resolves stored document paths onto the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for stored paths that escape the document root.
var ErrOutsideRoot = errors.New("path escapes document root")

// Resolver converts stored paths into absolute filesystem paths.
type Resolver interface {
	Resolve(stored string) (string, error)
	Exists(ctx context.Context, stored string) (bool, error)
}

// LocalResolver maps stored relative paths under a single document root.
type LocalResolver struct {
	root string
}

// NewLocalResolver anchors resolution at root.
func NewLocalResolver(root string) (*LocalResolver, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("document root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve document root: %w", err)
	}
	return &LocalResolver{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute document root.
func (r *LocalResolver) Root() string {
	return r.root
}

// Resolve returns the absolute path of stored. Absolute stored paths are
// accepted only when they already live under the root.
func (r *LocalResolver) Resolve(stored string) (string, error) {
	stored = strings.TrimSpace(stored)
	if stored == "" {
		return "", fmt.Errorf("stored path is empty")
	}

	var candidate string
	if filepath.IsAbs(stored) {
		candidate = filepath.Clean(stored)
	} else {
		candidate = filepath.Join(r.root, filepath.FromSlash(stored))
	}

	rel, err := filepath.Rel(r.root, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, stored)
	}
	return candidate, nil
}

// Exists reports whether stored resolves to a regular file.
func (r *LocalResolver) Exists(ctx context.Context, stored string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := r.Resolve(stored)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}
