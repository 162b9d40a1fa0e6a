package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/kbase/internal/config"
	appErr "github.com/xxxsen/kbase/internal/pkg/errors"
)

func TestLocalSourceRead(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.txt"), []byte("hello"), 0o644))

	source, err := New(config.FileSourceConfig{
		Type: "local",
		Data: map[string]any{"dir": dir},
	})
	require.NoError(t, err)

	data, err := source.Read(context.Background(), "doc.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
}

func TestLocalSourceRejectsTraversal(t *testing.T) {
	source, err := New(config.FileSourceConfig{
		Type: "local",
		Data: map[string]any{"dir": t.TempDir()},
	})
	require.NoError(t, err)

	_, err = source.Read(context.Background(), "../../etc/passwd")
	require.Error(t, err)
	require.ErrorIs(t, err, appErr.ErrInputUnavailable)
}

func TestLocalSourceMissingFile(t *testing.T) {
	source, err := New(config.FileSourceConfig{
		Type: "local",
		Data: map[string]any{"dir": t.TempDir()},
	})
	require.NoError(t, err)

	_, err = source.Read(context.Background(), "missing.txt")
	require.Error(t, err)
	require.ErrorIs(t, err, appErr.ErrInputUnavailable)
}

func TestNewUnknownSourceType(t *testing.T) {
	_, err := New(config.FileSourceConfig{Type: "ftp"})
	require.Error(t, err)
}
