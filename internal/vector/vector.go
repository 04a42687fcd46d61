// Package vector models the labeled training regions supplied per class.
// Geometries are assumed valid and already expressed in the raster's CRS;
// this package never reprojects.
package vector

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Region is one polygonal training area with its class label.
type Region struct {
	Label    uint8
	Geometry orb.Polygon
}

// LoadRegions reads polygon and multipolygon features from a GeoJSON file
// and tags them all with the given label. Non-areal features are skipped
// with a count returned so callers can log them.
func LoadRegions(path string, label uint8) ([]Region, int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read regions %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err != nil {
		return nil, 0, fmt.Errorf("parse regions %s: %w", path, err)
	}

	var regions []Region
	skipped := 0
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			regions = append(regions, Region{Label: label, Geometry: g})
		case orb.MultiPolygon:
			for _, p := range g {
				regions = append(regions, Region{Label: label, Geometry: p})
			}
		default:
			skipped++
		}
	}
	return regions, skipped, nil
}

// Bound returns the union bound of all region geometries. The second return
// value is false for an empty region list.
func Bound(regions []Region) (orb.Bound, bool) {
	if len(regions) == 0 {
		return orb.Bound{}, false
	}
	b := regions[0].Geometry.Bound()
	for _, r := range regions[1:] {
		b = b.Union(r.Geometry.Bound())
	}
	return b, true
}
