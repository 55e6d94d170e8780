package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sganesh/fraudguard/internal/geo"
)

func TestGeoDrift_UnknownLocations(t *testing.T) {
	d := NewGeoDriftDetector(geo.NewReference(), DefaultMaxKM)

	// Unknown current location cannot be scored.
	assert.False(t, d.Drifted("Chennai", "Narnia"))
	// Unknown baseline cannot be scored either.
	assert.False(t, d.Drifted("Narnia", "Chennai"))
}

func TestGeoDrift_NoBaseline(t *testing.T) {
	d := NewGeoDriftDetector(geo.NewReference(), DefaultMaxKM)
	assert.False(t, d.Drifted("", "Mumbai"))
}

func TestGeoDrift_ImplausibleTravel(t *testing.T) {
	d := NewGeoDriftDetector(geo.NewReference(), DefaultMaxKM)

	// Chennai to Mumbai is ~1030 km, past the 500 km default.
	assert.True(t, d.Drifted("Chennai", "Mumbai"))
	// Same city is 0 km.
	assert.False(t, d.Drifted("Chennai", "Chennai"))
}

func TestGeoDrift_CustomThreshold(t *testing.T) {
	// A 2000 km threshold tolerates Chennai -> Mumbai.
	d := NewGeoDriftDetector(geo.NewReference(), 2000)
	assert.False(t, d.Drifted("Chennai", "Mumbai"))

	// Delhi is ~1750 km from Chennai; a tight threshold flags even
	// Bangalore -> Chennai (~290 km).
	tight := NewGeoDriftDetector(geo.NewReference(), 100)
	assert.True(t, tight.Drifted("Bangalore", "Chennai"))
}
