package model

// RasterChip is a small multi-band pixel window read around one point, in the
// source scene's CRS. Data is channel-major: Data[c*Height*Width + y*Width + x].
// Values are raw pixel intensities (0..255 for the visual bands this tool reads).
type RasterChip struct {
	Data     []float64
	Channels int
	Height   int
	Width    int
}

// At returns the pixel value for channel c at row y, column x.
func (r *RasterChip) At(c, y, x int) float64 {
	return r.Data[c*r.Height*r.Width+y*r.Width+x]
}

// NoChipReason says why a point produced no chip. These are expected outcomes,
// not errors; they all fold into an invalid zero row downstream.
type NoChipReason string

const (
	// NoChipNoScene means the resolver found no eligible scene for the point.
	NoChipNoScene NoChipReason = "no_scene"
	// NoChipNoOverlap means the read window did not intersect the raster extent.
	NoChipNoOverlap NoChipReason = "no_overlap"
	// NoChipTooSmall means the read succeeded but the chip fell below the
	// minimum pixel threshold (scene-edge artifact).
	NoChipTooSmall NoChipReason = "too_small"
)

// ChipResult is the tagged outcome of windowed extraction for one point:
// either a chip or a reason there is none.
type ChipResult struct {
	Chip   *RasterChip
	Reason NoChipReason
}

// Chipped wraps a successful read.
func Chipped(chip *RasterChip) ChipResult {
	return ChipResult{Chip: chip}
}

// NoChip records a chip-less outcome with its reason.
func NoChip(reason NoChipReason) ChipResult {
	return ChipResult{Reason: reason}
}

// OK reports whether a chip was produced.
func (r ChipResult) OK() bool {
	return r.Chip != nil
}
