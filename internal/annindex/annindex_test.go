package annindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchReturnsClosestFirst(t *testing.T) {
	g := New(DefaultParams())
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
		{0, 0, 1},
	}
	for _, v := range vectors {
		g.Insert(v)
	}

	hits := g.Search([]float32{1, 0, 0}, 2, 64)
	require.Len(t, hits, 2)
	require.Equal(t, int32(0), hits[0].ID)
	require.InDelta(t, 0, hits[0].Distance, 1e-6)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	g := New(DefaultParams())
	for i := 0; i < 20; i++ {
		g.Insert([]float32{float32(i), float32(i % 3), float32(i % 5)})
	}

	dir := t.TempDir()
	graphPath := filepath.Join(dir, "vectors.hnsw.graph")
	dataPath := filepath.Join(dir, "vectors.hnsw.data")
	require.NoError(t, g.Save(graphPath, dataPath))

	loaded, err := Load(graphPath, dataPath)
	require.NoError(t, err)
	require.Equal(t, g.Len(), loaded.Len())

	query := []float32{10, 1, 0}
	want := g.Search(query, 3, 64)
	got := loaded.Search(query, 3, 64)
	require.Equal(t, want, got)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.graph"), filepath.Join(os.TempDir(), "nope.data"))
	require.Error(t, err)
}
