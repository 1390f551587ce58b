// Package features reduces raster chips to fixed-length vectors with a bank
// of random, untrained convolution filters. A large random nonlinear basis is
// expressive enough for a downstream linear model to fit well, so no training
// step exists anywhere in this package.
package features

import (
	"math/rand/v2"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sells-group/satfeat-cli/internal/model"
)

// Config configures the encoder.
type Config struct {
	// Count is the output feature dimensionality F. Each of the F/2 filters
	// contributes a rectified response and its rectified negation, so Count
	// must be even.
	Count      int
	KernelSize int
	Seed       uint64
	// Bias is added to every filter response before rectification.
	Bias float64
}

// Encoder maps chips with a fixed channel count to Count-dimensional vectors.
// Weights are drawn once at construction from a seeded stream and never
// change, so the encoder is read-only and safe for concurrent use.
type Encoder struct {
	cfg      Config
	channels int
	filters  [][]float64 // F/2 filters, each KernelSize²×channels weights
}

// NewEncoder samples the filter bank from N(0,1) using a PCG stream seeded by
// cfg.Seed. The same seed and shape always produce bit-identical filters.
func NewEncoder(cfg Config, channels int) (*Encoder, error) {
	if cfg.Count < 2 || cfg.Count%2 != 0 {
		return nil, eris.Errorf("features: count must be even and >= 2, got %d", cfg.Count)
	}
	if cfg.KernelSize < 1 {
		return nil, eris.Errorf("features: kernel size must be >= 1, got %d", cfg.KernelSize)
	}
	if channels < 1 {
		return nil, eris.Errorf("features: channels must be >= 1, got %d", channels)
	}

	normal := distuv.Normal{
		Mu:    0,
		Sigma: 1,
		Src:   rand.NewPCG(cfg.Seed, cfg.Seed),
	}

	weightsPerFilter := cfg.KernelSize * cfg.KernelSize * channels
	filters := make([][]float64, cfg.Count/2)
	for f := range filters {
		w := make([]float64, weightsPerFilter)
		for i := range w {
			w[i] = normal.Rand()
		}
		filters[f] = w
	}

	return &Encoder{cfg: cfg, channels: channels, filters: filters}, nil
}

// Dim returns the output feature dimensionality.
func (e *Encoder) Dim() int {
	return e.cfg.Count
}

// Channels returns the chip channel count the encoder was built for.
func (e *Encoder) Channels() int {
	return e.channels
}

// Encode runs the forward pass: normalize intensities to [0,1], convolve each
// filter over the chip (valid positions only), rectify the response and its
// negation, and average-pool each of the resulting channels to one scalar.
// Chips smaller than the kernel are a caller error; the assembler screens
// them out with its minimum-size gate first.
func (e *Encoder) Encode(chip *model.RasterChip) ([]float64, error) {
	if chip == nil {
		return nil, eris.New("features: nil chip")
	}
	if chip.Channels != e.channels {
		return nil, eris.Errorf("features: chip has %d channels, encoder expects %d", chip.Channels, e.channels)
	}
	k := e.cfg.KernelSize
	if chip.Height < k || chip.Width < k {
		return nil, eris.Errorf("features: chip %dx%d smaller than kernel %d", chip.Width, chip.Height, k)
	}

	outH := chip.Height - k + 1
	outW := chip.Width - k + 1
	positions := float64(outH * outW)

	vec := make([]float64, e.cfg.Count)
	for f, filter := range e.filters {
		var sumPos, sumNeg float64
		for oy := 0; oy < outH; oy++ {
			for ox := 0; ox < outW; ox++ {
				r := e.cfg.Bias
				wi := 0
				for c := 0; c < chip.Channels; c++ {
					for ky := 0; ky < k; ky++ {
						for kx := 0; kx < k; kx++ {
							r += filter[wi] * chip.At(c, oy+ky, ox+kx) / 255.0
							wi++
						}
					}
				}
				if r > 0 {
					sumPos += r
				} else {
					sumNeg -= r
				}
			}
		}
		vec[2*f] = sumPos / positions
		vec[2*f+1] = sumNeg / positions
	}
	return vec, nil
}
