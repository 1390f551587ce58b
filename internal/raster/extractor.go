// Package raster performs windowed reads of cloud-hosted scene assets. It
// never reads whole scenes: each point costs one small ranged read per band,
// through GDAL's HTTP/path virtual filesystems.
package raster

import (
	"context"

	"github.com/airbusgeo/godal"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/satfeat-cli/internal/model"
	"github.com/sells-group/satfeat-cli/internal/resilience"
)

// Config configures the extractor.
type Config struct {
	// BufferMeters is the physical half-width of the window around the
	// reprojected point, in the scene CRS's linear units.
	BufferMeters float64
	// Bands names the scene assets to read, in channel order.
	Bands []string
}

// Extractor reads chips from remote rasters addressed by the signed asset
// URLs on a scene candidate. It holds no mutable state and is safe for
// concurrent use.
type Extractor struct {
	cfg Config
}

// NewExtractor creates an Extractor. RegisterAll must have been called once
// (cmd does this) so GDAL's drivers and vsicurl are available.
func NewExtractor(cfg Config) *Extractor {
	return &Extractor{cfg: cfg}
}

// RegisterAll initializes the GDAL driver registry. Call once at startup.
func RegisterAll() {
	godal.RegisterAll()
}

// Extract reads the pixel window around the assignment's point from its
// scene. A nil scene short-circuits to NoChip; a window that misses the
// raster extent entirely is NoChip as well. Any other I/O failure comes back
// as a retryable error.
func (e *Extractor) Extract(ctx context.Context, a model.Assignment) (model.ChipResult, error) {
	if a.Scene == nil {
		return model.NoChip(model.NoChipNoScene), nil
	}
	if err := ctx.Err(); err != nil {
		return model.ChipResult{}, err
	}

	var (
		data   []float64
		chans  int
		height int
		width  int
	)

	for _, band := range e.cfg.Bands {
		href, ok := a.Scene.Assets[band]
		if !ok {
			return model.ChipResult{}, eris.Errorf("raster: scene %s has no %q asset", a.Scene.ID, band)
		}

		chip, ok, err := e.readAsset(href, a.Point.Lon, a.Point.Lat)
		if err != nil {
			return model.ChipResult{}, eris.Wrapf(err, "raster: scene %s asset %q", a.Scene.ID, band)
		}
		if !ok {
			return model.NoChip(model.NoChipNoOverlap), nil
		}

		if data == nil {
			height, width = chip.Height, chip.Width
		} else if chip.Height != height || chip.Width != width {
			// Bands of one scene share a grid; a mismatch means the asset
			// list mixes resolutions, which this tool does not resample.
			return model.ChipResult{}, eris.Errorf(
				"raster: scene %s asset %q window %dx%d does not match %dx%d",
				a.Scene.ID, band, chip.Width, chip.Height, width, height)
		}
		data = append(data, chip.Data...)
		chans += chip.Channels
	}

	return model.Chipped(&model.RasterChip{
		Data:     data,
		Channels: chans,
		Height:   height,
		Width:    width,
	}), nil
}

// readAsset opens one remote asset and reads the buffered window around the
// geographic point. The boolean return is false when the window misses the
// raster extent.
func (e *Extractor) readAsset(href string, lon, lat float64) (*model.RasterChip, bool, error) {
	ds, err := godal.Open(vsiPath(href))
	if err != nil {
		return nil, false, resilience.NewTransientError(eris.Wrap(err, "open dataset"), 0)
	}
	defer ds.Close()

	x, y, err := projectPoint(ds, lon, lat)
	if err != nil {
		return nil, false, err
	}

	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, false, eris.Wrap(err, "read geotransform")
	}
	if !axisAligned(gt) {
		return nil, false, eris.New("rotated rasters are not supported")
	}

	st := ds.Structure()
	win, ok := FromBuffer(gt, x, y, e.cfg.BufferMeters, st.SizeX, st.SizeY)
	if !ok {
		zap.L().Debug("window misses raster extent",
			zap.String("component", "raster"),
			zap.Float64("lon", lon),
			zap.Float64("lat", lat),
		)
		return nil, false, nil
	}

	bands := ds.Bands()
	data := make([]float64, 0, len(bands)*win.Width*win.Height)
	for _, band := range bands {
		buf := make([]float64, win.Width*win.Height)
		if err := band.Read(win.Col, win.Row, buf, win.Width, win.Height); err != nil {
			return nil, false, resilience.NewTransientError(eris.Wrap(err, "windowed read"), 0)
		}
		data = append(data, buf...)
	}

	return &model.RasterChip{
		Data:     data,
		Channels: len(bands),
		Height:   win.Height,
		Width:    win.Width,
	}, true, nil
}

// projectPoint reprojects a geographic point into the dataset's CRS.
// godal spatial refs use traditional GIS axis order, so x is longitude.
func projectPoint(ds *godal.Dataset, lon, lat float64) (float64, float64, error) {
	dstSR := ds.SpatialRef()
	defer dstSR.Close()
	srcSR, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return 0, 0, eris.Wrap(err, "create EPSG:4326 ref")
	}
	defer srcSR.Close()

	tr, err := godal.NewTransform(srcSR, dstSR)
	if err != nil {
		return 0, 0, eris.Wrap(err, "create CRS transform")
	}
	defer tr.Close()

	xs := []float64{lon}
	ys := []float64{lat}
	if err := tr.TransformEx(xs, ys, nil, nil); err != nil {
		return 0, 0, eris.Wrap(err, "reproject point")
	}
	return xs[0], ys[0], nil
}

// vsiPath maps an HTTP asset URL onto GDAL's ranged-read virtual filesystem.
// Non-HTTP paths (local test fixtures) pass through unchanged.
func vsiPath(href string) string {
	if len(href) >= 7 && (href[:7] == "http://" || (len(href) >= 8 && href[:8] == "https://")) {
		return "/vsicurl/" + href
	}
	return href
}
