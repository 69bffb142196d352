package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveCreatesDirAndOverwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	s := NewFileSaver(dir)

	path, err := s.Save("simulation_results.zip", []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "simulation_results.zip"), path)

	_, err = s.Save("simulation_results.zip", []byte("second"))
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestSaveRejectsPaths(t *testing.T) {
	s := NewFileSaver(t.TempDir())
	for _, name := range []string{"", "../x.zip", "a/b.zip", ".hidden"} {
		_, err := s.Save(name, []byte("x"))
		assert.Error(t, err, name)
	}
}
