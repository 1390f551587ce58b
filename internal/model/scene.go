package model

import (
	"time"

	"github.com/twpayne/go-geom"
)

// SceneCandidate is one catalog search result: a satellite capture whose
// footprint may cover points in a batch. Assets maps band names to signed
// access URLs supplied by the catalog.
type SceneCandidate struct {
	ID         string
	Footprint  geom.T // Polygon or MultiPolygon in EPSG:4326
	CloudCover float64
	AcquiredAt time.Time
	Assets     map[string]string
}

// Assignment pairs a point with its selected scene. Scene is nil when no
// eligible candidate covered the point.
type Assignment struct {
	Point Point
	Scene *SceneCandidate
}
