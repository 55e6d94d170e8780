// Package geo provides the static location reference and great-circle
// distance used by the geo drift detector.
package geo

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"
)

// Point is a geographic coordinate pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// builtin is the shipped location table. A JSON file loaded at startup can
// extend or override it.
var builtin = map[string]Point{
	"Chennai":   {13.0827, 80.2707},
	"Mumbai":    {19.0760, 72.8777},
	"Delhi":     {28.6139, 77.2090},
	"Bangalore": {12.9716, 77.5946},
}

// Reference maps named locations to coordinates. Lookups are read-mostly;
// the table only changes when a config file is loaded at startup.
type Reference struct {
	mu        sync.RWMutex
	locations map[string]Point
}

// NewReference creates a reference seeded with the built-in locations.
func NewReference() *Reference {
	locations := make(map[string]Point, len(builtin))
	for name, pt := range builtin {
		locations[name] = pt
	}
	return &Reference{locations: locations}
}

// LoadFile merges locations from a JSON file of the form
// {"City": {"lat": 1.0, "lon": 2.0}, ...} into the reference.
func (r *Reference) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read locations file: %w", err)
	}

	var extra map[string]Point
	if err := json.Unmarshal(data, &extra); err != nil {
		return fmt.Errorf("parse locations file: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, pt := range extra {
		r.locations[name] = pt
	}
	return nil
}

// Lookup resolves a location name to coordinates.
func (r *Reference) Lookup(name string) (Point, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pt, ok := r.locations[name]
	return pt, ok
}

// Len returns the number of known locations.
func (r *Reference) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.locations)
}

const earthRadiusKM = 6371.0

// Distance returns the great-circle distance between two points in
// kilometers, using the haversine formula.
func Distance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
