package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const contentTypeSuffix = ".content-type"

// Local stores objects as files under a root directory. The content type
// is kept in a sidecar file next to each object.
type Local struct {
	root string
}

// NewLocal creates the root directory if needed.
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create blob directory %s: %w", root, err)
	}
	return &Local{root: root}, nil
}

// Put writes the object, replacing any previous version.
func (l *Local) Put(_ context.Context, key string, obj Object) error {
	if err := validateKey(key); err != nil {
		return err
	}
	p := filepath.Join(l.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}
	if err := writeFileAtomic(p, obj.Data); err != nil {
		return fmt.Errorf("failed to write blob %s: %w", key, err)
	}
	if err := writeFileAtomic(p+contentTypeSuffix, []byte(obj.ContentType)); err != nil {
		return fmt.Errorf("failed to write blob metadata %s: %w", key, err)
	}
	return nil
}

// Get reads the object back.
func (l *Local) Get(_ context.Context, key string) (*Object, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	p := filepath.Join(l.root, filepath.FromSlash(key))
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}

	ct, err := os.ReadFile(p + contentTypeSuffix)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read blob metadata %s: %w", key, err)
	}
	obj := &Object{Data: data, ContentType: string(ct)}
	if obj.ContentType == "" {
		obj.ContentType = "application/octet-stream"
	}
	return obj, nil
}

func writeFileAtomic(p string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}
