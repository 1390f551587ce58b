// Package partition groups input points into spatially coherent batches for
// scene resolution. Points are ordered by their S2 cell ID, which enumerates
// a Hilbert space-filling curve over the sphere, so contiguous slices of the
// ordering approximate spatial locality without choosing a grid resolution.
package partition

import (
	"sort"

	"github.com/golang/geo/s2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/satfeat-cli/internal/model"
)

// curveKey pairs a point with its position along the space-filling curve.
type curveKey struct {
	point model.Point
	cell  s2.CellID
}

// Split orders points along the Hilbert curve and slices the ordering into at
// most count contiguous equal-size batches. Every input point lands in exactly
// one batch; empty batches are never emitted, so fewer than count batches come
// back when count exceeds the point total.
func Split(points []model.Point, count int) ([]model.Batch, error) {
	if count < 1 {
		return nil, eris.Errorf("partition: count must be >= 1, got %d", count)
	}
	if len(points) == 0 {
		return nil, nil
	}

	keys := make([]curveKey, len(points))
	for i, p := range points {
		keys[i] = curveKey{
			point: p,
			cell:  s2.CellIDFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lon)),
		}
	}

	// Tie-break on input index so equal cells sort deterministically.
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].cell != keys[j].cell {
			return keys[i].cell < keys[j].cell
		}
		return keys[i].point.Index < keys[j].point.Index
	})

	size := (len(keys) + count - 1) / count

	var batches []model.Batch
	for start := 0; start < len(keys); start += size {
		end := start + size
		if end > len(keys) {
			end = len(keys)
		}
		pts := make([]model.Point, end-start)
		for i, k := range keys[start:end] {
			pts[i] = k.point
		}
		batches = append(batches, model.Batch{ID: len(batches), Points: pts})
	}

	zap.L().Debug("partitioned points",
		zap.Int("points", len(points)),
		zap.Int("requested", count),
		zap.Int("batches", len(batches)),
		zap.Int("batch_size", size),
	)
	return batches, nil
}
