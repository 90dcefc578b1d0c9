package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.json")
	records := map[string]SnapshotRecord{
		"a": {Fields: map[string]string{"color": "red"}, Embedding: []float32{1, 2, 3}, Label: 0},
		"b": {Fields: map[string]string{"color": "blue"}, Label: 1},
	}

	require.NoError(t, SaveSnapshot(path, records))

	got, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestLoadSnapshotAcceptsLegacyBareMapShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.json")
	legacy := `{
		"a": {"fields": {"color": "red"}, "embedding": [1,2,3], "label": 0},
		"b": {"fields": {"color": "blue"}, "embedding": null, "label": 1}
	}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	got, err := LoadSnapshot(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "red", got["a"].Fields["color"])
	assert.Equal(t, []float32{1, 2, 3}, got["a"].Embedding)
	assert.Equal(t, uint64(1), got["b"].Label)
}

func TestLoadSnapshotRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := LoadSnapshot(path)
	assert.Error(t, err)
}

func TestSaveSnapshotEmptyRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.json")
	require.NoError(t, SaveSnapshot(path, map[string]SnapshotRecord{}))

	got, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}
