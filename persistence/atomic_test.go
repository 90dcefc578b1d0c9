package persistence

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveToFileThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")

	err := SaveToFile(path, func(w *bufio.Writer) error {
		_, err := w.WriteString("hello world")
		return err
	})
	require.NoError(t, err)

	var got string
	err = LoadFromFile(path, func(r *bufio.Reader) error {
		buf := make([]byte, 11)
		_, err := r.Read(buf)
		got = string(buf)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
}

func TestSaveToFileLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")

	require.NoError(t, SaveToFile(path, func(w *bufio.Writer) error {
		_, err := w.WriteString("x")
		return err
	}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "data.bin", entries[0].Name())
}

func TestSaveToFileWriteFuncErrorLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")

	boom := errors.New("boom")
	err := SaveToFile(path, func(w *bufio.Writer) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveToFileOverwritesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")

	require.NoError(t, SaveToFile(path, func(w *bufio.Writer) error {
		_, err := w.WriteString("first")
		return err
	}))
	require.NoError(t, SaveToFile(path, func(w *bufio.Writer) error {
		_, err := w.WriteString("second")
		return err
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestLoadFromFileMissingFile(t *testing.T) {
	err := LoadFromFile(filepath.Join(t.TempDir(), "missing.bin"), func(r *bufio.Reader) error {
		return nil
	})
	assert.Error(t, err)
}
