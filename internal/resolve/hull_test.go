package resolve

import (
	"testing"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/satfeat-cli/internal/model"
)

func points(coords ...[2]float64) []model.Point {
	pts := make([]model.Point, len(coords))
	for i, c := range coords {
		pts[i] = model.Point{Index: i, Lon: c[0], Lat: c[1]}
	}
	return pts
}

func TestConvexHullDropsInteriorPoints(t *testing.T) {
	hull := convexHull(points(
		[2]float64{0, 0}, [2]float64{4, 0}, [2]float64{4, 4}, [2]float64{0, 4},
		[2]float64{2, 2}, [2]float64{1, 1}, [2]float64{3, 2},
	))
	if len(hull) != 4 {
		t.Fatalf("expected 4 hull vertices, got %d: %v", len(hull), hull)
	}
	for _, c := range hull {
		if c[0] != 0 && c[0] != 4 {
			t.Errorf("unexpected hull vertex %v", c)
		}
	}
}

func TestConvexHullDeduplicates(t *testing.T) {
	hull := convexHull(points(
		[2]float64{0, 0}, [2]float64{0, 0}, [2]float64{1, 0}, [2]float64{0, 1}, [2]float64{1, 0},
	))
	if len(hull) != 3 {
		t.Fatalf("expected 3 hull vertices, got %d", len(hull))
	}
}

func TestSearchRegionClosedRing(t *testing.T) {
	region := SearchRegion(model.Batch{Points: points(
		[2]float64{0, 0}, [2]float64{2, 0}, [2]float64{1, 3},
	)})
	poly, ok := region.(*geom.Polygon)
	if !ok {
		t.Fatalf("expected polygon, got %T", region)
	}
	ring := poly.LinearRing(0)
	n := ring.NumCoords()
	if n != 4 {
		t.Fatalf("expected 4 coords (3 vertices + closure), got %d", n)
	}
	first := ring.Coord(0)
	last := ring.Coord(n - 1)
	if first[0] != last[0] || first[1] != last[1] {
		t.Error("ring is not closed")
	}
	if poly.SRID() != 4326 {
		t.Errorf("expected SRID 4326, got %d", poly.SRID())
	}
}

func TestSearchRegionDegenerate(t *testing.T) {
	tests := []struct {
		name string
		pts  []model.Point
	}{
		{"single point", points([2]float64{-70.5, 43.1})},
		{"two points", points([2]float64{0, 0}, [2]float64{1, 1})},
		{"collinear", points([2]float64{0, 0}, [2]float64{1, 1}, [2]float64{2, 2})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			region := SearchRegion(model.Batch{Points: tt.pts})
			poly, ok := region.(*geom.Polygon)
			if !ok {
				t.Fatalf("expected polygon fallback, got %T", region)
			}
			// Every input point must be covered by the padded envelope.
			for _, p := range tt.pts {
				if !Covers(poly, p.Lon, p.Lat) {
					t.Errorf("envelope does not cover point %v", p)
				}
			}
		})
	}
}

func TestSearchRegionEmpty(t *testing.T) {
	if region := SearchRegion(model.Batch{}); region != nil {
		t.Errorf("expected nil region for empty batch, got %v", region)
	}
}

func TestCovers(t *testing.T) {
	outer := []float64{0, 0, 10, 0, 10, 10, 0, 10, 0, 0}
	hole := []float64{4, 4, 6, 4, 6, 6, 4, 6, 4, 4}
	donut := geom.NewPolygonFlat(geom.XY, append(append([]float64{}, outer...), hole...), []int{10, 20})

	tests := []struct {
		name     string
		lon, lat float64
		want     bool
	}{
		{"inside", 2, 2, true},
		{"in hole", 5, 5, false},
		{"outside", 20, 20, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Covers(donut, tt.lon, tt.lat); got != tt.want {
				t.Errorf("Covers(%v,%v) = %v, want %v", tt.lon, tt.lat, got, tt.want)
			}
		})
	}

	if Covers(nil, 0, 0) {
		t.Error("nil footprint must not cover anything")
	}
	if Covers(geom.NewPointFlat(geom.XY, []float64{1, 1}), 1, 1) {
		t.Error("non-areal footprint must not cover")
	}
}

func TestCoversMultiPolygon(t *testing.T) {
	mp := geom.NewMultiPolygon(geom.XY)
	_ = mp.Push(geom.NewPolygonFlat(geom.XY, []float64{0, 0, 2, 0, 2, 2, 0, 2, 0, 0}, []int{10}))
	_ = mp.Push(geom.NewPolygonFlat(geom.XY, []float64{5, 5, 7, 5, 7, 7, 5, 7, 5, 5}, []int{10}))

	if !Covers(mp, 1, 1) || !Covers(mp, 6, 6) {
		t.Error("expected both parts to cover their interiors")
	}
	if Covers(mp, 3.5, 3.5) {
		t.Error("gap between parts must not be covered")
	}
}
