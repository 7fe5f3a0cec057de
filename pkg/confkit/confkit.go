// Package confkit holds the small helpers shared by every config loader:
// path resolution against the main config file, .env loading and sections
// that live in their own YAML files.
package confkit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeromicro/go-zero/core/conf"
)

// ResolvePath expands env vars in file and joins it onto base unless it is
// already absolute.
func ResolvePath(base, file string) string {
	file = os.ExpandEnv(file)
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(base, file)
}

// BaseDir returns the directory of the main config file.
func BaseDir(mainPath string) string {
	return filepath.Dir(mainPath)
}

// LoadFile loads a go-zero style config file into T.
func LoadFile[T any](path string, useEnv bool) (*T, error) {
	var cfg T
	var opts []conf.Option
	if useEnv {
		opts = append(opts, conf.UseEnv())
	}
	if err := conf.Load(path, &cfg, opts...); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return &cfg, nil
}

// Section is a config block kept in a separate file and referenced from the
// main config by path.
type Section[T any] struct {
	File  string `json:",optional"`
	Value *T     `json:"-"`
}

// Hydrate loads File through loader. An empty File leaves the section unset.
func (s *Section[T]) Hydrate(base string, loader func(string) (*T, error)) error {
	if s.File == "" {
		return nil
	}
	p := ResolvePath(base, s.File)
	v, err := loader(p)
	if err != nil {
		return err
	}
	s.File, s.Value = p, v
	return nil
}

// HydrateOr is Hydrate with a fallback used when no file is configured.
func (s *Section[T]) HydrateOr(base string, loader func(string) (*T, error), fallback func() *T) error {
	if err := s.Hydrate(base, loader); err != nil {
		return err
	}
	if s.Value == nil && fallback != nil {
		s.Value = fallback()
	}
	return nil
}

// Configured reports whether the section was loaded from a file.
func (s Section[T]) Configured() bool {
	return s.File != ""
}
