package artifact

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/matzehuels/upgraph/pkg/errors"
)

// FileSink stores artifacts below a local directory.
type FileSink struct {
	dir string
}

// NewFileSink creates a sink writing below dir.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "create artifact dir")
	}
	return &FileSink{dir: dir}, nil
}

// Put writes data to dir/key.
func (s *FileSink) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return "", errors.Wrap(errors.ErrCodeStore, err, "create artifact dir")
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return "", errors.Wrap(errors.ErrCodeStore, err, "write artifact")
	}
	return p, nil
}

// Get reads dir/key.
func (s *FileSink) Get(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeNotFound, "artifact %s not found", key)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "read artifact")
	}
	return data, nil
}

// List returns the keys of all files below dir/prefix.
func (s *FileSink) List(_ context.Context, prefix string) ([]string, error) {
	root := s.dir
	if prefix != "" {
		p, err := s.path(prefix)
		if err != nil {
			return nil, err
		}
		root = p
	}
	var keys []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.dir, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list artifacts")
	}
	sort.Strings(keys)
	return keys, nil
}

// Dir returns the sink root.
func (s *FileSink) Dir() string { return s.dir }

func (s *FileSink) path(key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, filepath.FromSlash(k)), nil
}
