package detector

import "github.com/sganesh/fraudguard/internal/geo"

// GeoDriftDetector flags transactions whose location implies implausible
// travel from the instrument's last accepted location.
type GeoDriftDetector struct {
	ref   *geo.Reference
	maxKM float64
}

// DefaultMaxKM is the distance above which travel is considered implausible.
const DefaultMaxKM = 500

// NewGeoDriftDetector creates a detector against the given location
// reference. A non-positive maxKM falls back to the default.
func NewGeoDriftDetector(ref *geo.Reference, maxKM float64) *GeoDriftDetector {
	if maxKM <= 0 {
		maxKM = DefaultMaxKM
	}
	return &GeoDriftDetector{ref: ref, maxKM: maxKM}
}

// Drifted reports whether moving from lastLocation to current exceeds the
// distance threshold. Locations that don't resolve in the reference never
// flag, since unknown places cannot be geo-scored, and an empty lastLocation
// means there is no baseline yet.
func (d *GeoDriftDetector) Drifted(lastLocation, current string) bool {
	currentPt, ok := d.ref.Lookup(current)
	if !ok {
		return false
	}
	if lastLocation == "" {
		return false
	}
	lastPt, ok := d.ref.Lookup(lastLocation)
	if !ok {
		return false
	}
	return geo.Distance(lastPt, currentPt) > d.maxKM
}
