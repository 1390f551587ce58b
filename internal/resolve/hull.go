package resolve

import (
	"sort"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/satfeat-cli/internal/model"
)

// degenerateEpsilon pads the envelope used when a batch's points are
// collinear or coincident and no proper hull polygon exists.
const degenerateEpsilon = 1e-6

// SearchRegion returns the convex hull of the batch's points as a polygon in
// EPSG:4326, for use as a single combined catalog search region. Batches whose
// points do not span two dimensions get a slightly padded envelope instead.
func SearchRegion(batch model.Batch) geom.T {
	if len(batch.Points) == 0 {
		return nil
	}

	hull := convexHull(batch.Points)
	if len(hull) >= 3 {
		flat := make([]float64, 0, (len(hull)+1)*2)
		for _, c := range hull {
			flat = append(flat, c[0], c[1])
		}
		// Close the ring.
		flat = append(flat, hull[0][0], hull[0][1])
		return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}).SetSRID(4326)
	}

	bb, _ := batch.Bounds()
	minX, minY := bb[0]-degenerateEpsilon, bb[1]-degenerateEpsilon
	maxX, maxY := bb[2]+degenerateEpsilon, bb[3]+degenerateEpsilon
	return geom.NewPolygonFlat(geom.XY, []float64{
		minX, minY,
		maxX, minY,
		maxX, maxY,
		minX, maxY,
		minX, minY,
	}, []int{10}).SetSRID(4326)
}

// convexHull computes the convex hull of the points with the monotone chain
// algorithm, returning vertices in counter-clockwise order without the closing
// vertex. Fewer than 3 vertices come back for degenerate inputs.
func convexHull(points []model.Point) []geom.Coord {
	coords := make([]geom.Coord, 0, len(points))
	seen := make(map[[2]float64]struct{}, len(points))
	for _, p := range points {
		key := [2]float64{p.Lon, p.Lat}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		coords = append(coords, geom.Coord{p.Lon, p.Lat})
	}
	if len(coords) < 3 {
		return coords
	}

	sort.Slice(coords, func(i, j int) bool {
		if coords[i][0] != coords[j][0] {
			return coords[i][0] < coords[j][0]
		}
		return coords[i][1] < coords[j][1]
	})

	var lower []geom.Coord
	for _, c := range coords {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], c) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, c)
	}

	var upper []geom.Coord
	for i := len(coords) - 1; i >= 0; i-- {
		c := coords[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], c) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, c)
	}

	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

// cross returns the z component of (b-a) × (c-a); positive for a left turn.
func cross(a, b, c geom.Coord) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}
