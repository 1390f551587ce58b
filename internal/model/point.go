package model

// Point is one input location in geographic coordinates (EPSG:4326).
// Index is the point's position in the input collection and is the key used
// to align feature-matrix rows with external labels.
type Point struct {
	Index int     `json:"index"`
	Lon   float64 `json:"lon"`
	Lat   float64 `json:"lat"`
	Label float64 `json:"label"`
}

// Batch is one contiguous group of spatially ordered points. Membership is
// fixed once the partitioner has produced it.
type Batch struct {
	ID     int
	Points []Point
}

// Bounds returns the geographic bounding box of the batch as
// (minLon, minLat, maxLon, maxLat). The second return is false for an
// empty batch.
func (b Batch) Bounds() ([4]float64, bool) {
	if len(b.Points) == 0 {
		return [4]float64{}, false
	}
	bb := [4]float64{b.Points[0].Lon, b.Points[0].Lat, b.Points[0].Lon, b.Points[0].Lat}
	for _, p := range b.Points[1:] {
		if p.Lon < bb[0] {
			bb[0] = p.Lon
		}
		if p.Lat < bb[1] {
			bb[1] = p.Lat
		}
		if p.Lon > bb[2] {
			bb[2] = p.Lon
		}
		if p.Lat > bb[3] {
			bb[3] = p.Lat
		}
	}
	return bb, true
}
