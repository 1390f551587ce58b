package resolve

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Covers reports whether the footprint geometrically covers the given
// longitude/latitude. Supported footprints are Polygon and MultiPolygon;
// anything else never covers.
func Covers(footprint geom.T, lon, lat float64) bool {
	if footprint == nil {
		return false
	}
	p := geom.Coord{lon, lat}

	switch g := footprint.(type) {
	case *geom.Polygon:
		return polygonCovers(g, p)
	case *geom.MultiPolygon:
		for i := 0; i < g.NumPolygons(); i++ {
			if polygonCovers(g.Polygon(i), p) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func polygonCovers(poly *geom.Polygon, p geom.Coord) bool {
	if poly.NumLinearRings() == 0 {
		return false
	}
	if !xy.IsPointInRing(poly.Layout(), p, poly.LinearRing(0).FlatCoords()) {
		return false
	}
	// Points inside a hole are outside the footprint.
	for i := 1; i < poly.NumLinearRings(); i++ {
		if xy.IsPointInRing(poly.Layout(), p, poly.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}
