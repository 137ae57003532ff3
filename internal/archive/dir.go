package archive

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirArchiver stores results in a local directory tree, one file per key.
type DirArchiver struct {
	Root string
}

// NewDirArchiver returns an archiver rooted at dir.
func NewDirArchiver(dir string) *DirArchiver {
	return &DirArchiver{Root: dir}
}

func (a *DirArchiver) Put(_ context.Context, key string, body []byte) error {
	dest := filepath.Join(a.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, body, 0o644)
}

func (a *DirArchiver) Get(_ context.Context, key string) ([]byte, error) {
	body, err := os.ReadFile(filepath.Join(a.Root, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return body, err
}

func (a *DirArchiver) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(a.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(a.Root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}
