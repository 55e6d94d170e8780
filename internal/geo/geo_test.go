package geo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_Builtin(t *testing.T) {
	ref := NewReference()

	pt, ok := ref.Lookup("Chennai")
	require.True(t, ok)
	assert.InDelta(t, 13.0827, pt.Lat, 0.0001)
	assert.InDelta(t, 80.2707, pt.Lon, 0.0001)

	_, ok = ref.Lookup("Atlantis")
	assert.False(t, ok)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.json")
	err := os.WriteFile(path, []byte(`{"Pune": {"lat": 18.5204, "lon": 73.8567}}`), 0o644)
	require.NoError(t, err)

	ref := NewReference()
	require.NoError(t, ref.LoadFile(path))

	pt, ok := ref.Lookup("Pune")
	require.True(t, ok)
	assert.InDelta(t, 18.5204, pt.Lat, 0.0001)

	// Built-ins survive the merge
	_, ok = ref.Lookup("Mumbai")
	assert.True(t, ok)
}

func TestLoadFile_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	ref := NewReference()
	assert.Error(t, ref.LoadFile(path))
}

func TestDistance(t *testing.T) {
	chennai := Point{13.0827, 80.2707}
	mumbai := Point{19.0760, 72.8777}

	// Chennai to Mumbai is roughly 1030 km
	d := Distance(chennai, mumbai)
	assert.InDelta(t, 1030, d, 20)

	// Symmetric
	assert.InDelta(t, d, Distance(mumbai, chennai), 0.001)

	// Zero distance to self
	assert.InDelta(t, 0, Distance(chennai, chennai), 0.001)
}
