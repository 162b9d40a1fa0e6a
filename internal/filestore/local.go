package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	appErr "github.com/xxxsen/kbase/internal/pkg/errors"
)

type localConfig struct {
	Dir string `json:"dir"`
}

type localSource struct {
	dir string
}

func init() {
	Register("local", createLocalSource)
}

func createLocalSource(args interface{}) (Source, error) {
	config := &localConfig{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	return &localSource{dir: config.Dir}, nil
}

func (s *localSource) Read(ctx context.Context, path string) ([]byte, error) {
	_ = ctx
	resolved := path
	if s.dir != "" && !filepath.IsAbs(path) {
		if strings.Contains(path, "..") {
			return nil, fmt.Errorf("%w: invalid path %q", appErr.ErrInputUnavailable, path)
		}
		resolved = filepath.Join(s.dir, path)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrInputUnavailable, err)
	}
	return data, nil
}
