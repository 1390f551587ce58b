// Package pointset loads the input point collection and its labels from disk.
// Points keep their file order; a point's position in the returned slice is
// its identity for the rest of the pipeline.
package pointset

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/satfeat-cli/internal/model"
)

// Load reads points and labels from path, dispatching on extension:
// .shp for point shapefiles, anything else is parsed as CSV with
// longitude, latitude and label columns.
func Load(path, labelField string) ([]model.Point, error) {
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		return LoadShapefile(path, labelField)
	}
	return LoadCSV(path, labelField)
}

// LoadShapefile reads a point shapefile, taking the label from the named DBF
// field. Non-point shapes and rows with unparseable labels are skipped with a
// warning rather than failing the whole load.
func LoadShapefile(path, labelField string) ([]model.Point, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pointset: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map.
	fields := reader.Fields()
	labelIdx := -1
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, labelField) {
			labelIdx = i
			break
		}
	}
	if labelIdx < 0 {
		return nil, eris.Errorf("pointset: shapefile %s has no field %q", path, labelField)
	}

	log := zap.L().With(zap.String("component", "pointset"), zap.String("path", path))

	var points []model.Point
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok {
			skipped++
			continue
		}

		raw := strings.TrimSpace(strings.TrimRight(reader.Attribute(labelIdx), "\x00"))
		label, parseErr := strconv.ParseFloat(raw, 64)
		if parseErr != nil {
			skipped++
			continue
		}

		points = append(points, model.Point{
			Index: len(points),
			Lon:   pt.X,
			Lat:   pt.Y,
			Label: label,
		})
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		return nil, eris.Wrapf(err, "pointset: read shapefile %s", path)
	}

	log.Info("loaded points from shapefile",
		zap.Int("points", len(points)),
		zap.Int("skipped", skipped),
	)
	return points, nil
}

// LoadCSV reads points from a CSV file with a header row containing
// longitude, latitude, and the named label column (case-insensitive).
func LoadCSV(path, labelField string) ([]model.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pointset: open %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "pointset: read header of %s", path)
	}

	lonIdx, latIdx, labelIdx := -1, -1, -1
	for i, name := range header {
		switch {
		case strings.EqualFold(name, "longitude") || strings.EqualFold(name, "lon"):
			lonIdx = i
		case strings.EqualFold(name, "latitude") || strings.EqualFold(name, "lat"):
			latIdx = i
		case strings.EqualFold(name, labelField):
			labelIdx = i
		}
	}
	if lonIdx < 0 || latIdx < 0 {
		return nil, eris.Errorf("pointset: %s is missing longitude/latitude columns", path)
	}
	if labelIdx < 0 {
		return nil, eris.Errorf("pointset: %s has no column %q", path, labelField)
	}

	var points []model.Point
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, eris.Wrapf(err, "pointset: %s line %d", path, line)
		}

		lon, err := strconv.ParseFloat(strings.TrimSpace(record[lonIdx]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "pointset: %s line %d: longitude", path, line)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(record[latIdx]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "pointset: %s line %d: latitude", path, line)
		}
		label, err := strconv.ParseFloat(strings.TrimSpace(record[labelIdx]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "pointset: %s line %d: %s", path, line, labelField)
		}

		points = append(points, model.Point{
			Index: len(points),
			Lon:   lon,
			Lat:   lat,
			Label: label,
		})
	}

	zap.L().Info("loaded points from csv",
		zap.String("component", "pointset"),
		zap.String("path", path),
		zap.Int("points", len(points)),
	)
	return points, nil
}

// Labels returns the label column of a point collection, index-aligned.
func Labels(points []model.Point) []float64 {
	labels := make([]float64, len(points))
	for i, p := range points {
		labels[i] = p.Label
	}
	return labels
}
