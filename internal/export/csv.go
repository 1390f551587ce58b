// Package export writes run artifacts to disk.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/satfeat-cli/internal/model"
)

// WriteFeatureCSV writes one row per input point, in input order:
// lon, lat, label, valid, then one column per feature dimension.
// Invalid points keep their zero feature columns with valid=false.
func WriteFeatureCSV(path string, points []model.Point, fm *model.FeatureMatrix) error {
	if fm.Rows() != len(points) {
		return eris.Errorf("export: %d points but %d matrix rows", len(points), fm.Rows())
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	dim := fm.Dim()
	header := make([]string, 0, 4+dim)
	header = append(header, "lon", "lat", "label", "valid")
	for j := 0; j < dim; j++ {
		header = append(header, fmt.Sprintf("f%04d", j))
	}
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "export: write header")
	}

	row := make([]string, 4+dim)
	for i, p := range points {
		row[0] = strconv.FormatFloat(p.Lon, 'f', -1, 64)
		row[1] = strconv.FormatFloat(p.Lat, 'f', -1, 64)
		row[2] = strconv.FormatFloat(p.Label, 'f', -1, 64)
		row[3] = strconv.FormatBool(fm.Mask[i])
		for j := 0; j < dim; j++ {
			row[4+j] = strconv.FormatFloat(fm.X.At(i, j), 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "export: write row %d", i)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush")
	}

	zap.L().Info("wrote feature matrix",
		zap.String("component", "export"),
		zap.String("path", path),
		zap.Int("rows", len(points)),
		zap.Int("dim", dim),
		zap.Int("valid", fm.ValidCount()),
	)
	return nil
}
