package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FS is a filesystem-backed Store rooted at a directory. Keys map to
// relative file paths. ETags are derived from file content, so the
// conditional Put check works the same way as the other drivers.
type FS struct {
	root string
}

// NewFS creates a filesystem store rooted at dir, creating it if needed.
func NewFS(dir string) (*FS, error) {
	if dir == "" {
		return nil, fmt.Errorf("fs blob root required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FS{root: dir}, nil
}

func (f *FS) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(f.root, clean), nil
}

func (f *FS) Get(_ context.Context, key string) ([]byte, Info, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, Info{}, err
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, Info{}, ErrNotFound
	}
	if err != nil {
		return nil, Info{}, err
	}
	info, err := f.stat(key, p, data)
	if err != nil {
		return nil, Info{}, err
	}
	return data, info, nil
}

func (f *FS) Head(ctx context.Context, key string) (Info, error) {
	_, info, err := f.Get(ctx, key)
	return info, err
}

func (f *FS) Put(ctx context.Context, key string, data []byte, opts PutOptions) (Info, error) {
	p, err := f.path(key)
	if err != nil {
		return Info{}, err
	}
	if opts.ExpectedETag != "" {
		cur, err := f.Head(ctx, key)
		switch {
		case errors.Is(err, ErrNotFound):
			return Info{}, ErrPreconditionFailed
		case err != nil:
			return Info{}, fmt.Errorf("check current object: %w", err)
		case cur.ETag != opts.ExpectedETag:
			return Info{}, ErrPreconditionFailed
		}
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return Info{}, err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return Info{}, err
	}
	if err := os.Rename(tmp, p); err != nil {
		return Info{}, err
	}
	return f.stat(key, p, data)
}

func (f *FS) List(_ context.Context, prefix string) ([]Info, error) {
	var infos []Info
	err := filepath.Walk(f.root, func(path string, fi os.FileInfo, err error) error {
		if err != nil || fi.IsDir() {
			return err
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		infos = append(infos, Info{
			Key:          key,
			Size:         fi.Size(),
			ETag:         contentETag(data),
			LastModified: fi.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (f *FS) Delete(_ context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

func (f *FS) stat(key, path string, data []byte) (Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Key:          key,
		Size:         fi.Size(),
		ETag:         contentETag(data),
		LastModified: fi.ModTime().UTC(),
	}, nil
}
