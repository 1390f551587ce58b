package raster

import "math"

// Window is a pixel-space read region: column/row offsets plus size.
type Window struct {
	Col    int
	Row    int
	Width  int
	Height int
}

// FromBuffer converts a physical buffer around a projected point into a pixel
// window, clipped to the raster extent. gt is the GDAL geotransform of an
// axis-aligned raster (rotation terms zero); x, y and radius are in the
// raster's CRS units. The second return is false when the buffered envelope
// does not intersect the raster at all.
func FromBuffer(gt [6]float64, x, y, radius float64, sizeX, sizeY int) (Window, bool) {
	c1 := (x - radius - gt[0]) / gt[1]
	c2 := (x + radius - gt[0]) / gt[1]
	r1 := (y - radius - gt[3]) / gt[5]
	r2 := (y + radius - gt[3]) / gt[5]

	col0 := int(math.Floor(math.Min(c1, c2)))
	col1 := int(math.Ceil(math.Max(c1, c2)))
	row0 := int(math.Floor(math.Min(r1, r2)))
	row1 := int(math.Ceil(math.Max(r1, r2)))

	if col1 <= 0 || row1 <= 0 || col0 >= sizeX || row0 >= sizeY {
		return Window{}, false
	}

	if col0 < 0 {
		col0 = 0
	}
	if row0 < 0 {
		row0 = 0
	}
	if col1 > sizeX {
		col1 = sizeX
	}
	if row1 > sizeY {
		row1 = sizeY
	}

	return Window{
		Col:    col0,
		Row:    row0,
		Width:  col1 - col0,
		Height: row1 - row0,
	}, true
}

// axisAligned reports whether the geotransform has no rotation terms.
func axisAligned(gt [6]float64) bool {
	return gt[2] == 0 && gt[4] == 0
}
