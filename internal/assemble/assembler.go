// Package assemble turns the per-point assignment stream into the final
// feature matrix. Every input point gets exactly one row: a computed vector,
// or an all-zero row flagged invalid when no usable chip exists.
package assemble

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/satfeat-cli/internal/model"
)

// ChipSource extracts the raster chip for one assignment.
type ChipSource interface {
	Extract(ctx context.Context, a model.Assignment) (model.ChipResult, error)
}

// Vectorizer reduces a chip to a fixed-length vector.
type Vectorizer interface {
	Dim() int
	Encode(chip *model.RasterChip) ([]float64, error)
}

// Config configures the assembler.
type Config struct {
	// MinChipPx rejects chips whose height or width fall below this many
	// pixels; such scene-edge slivers become invalid rows.
	MinChipPx int
	// Workers bounds concurrent extractions. Extraction is I/O-bound, so
	// this is sized well above CPU count.
	Workers int
	// LogEvery emits a progress line every this many processed rows.
	// Zero means the default of 500.
	LogEvery int
}

// Assembler builds feature matrices. Rows are written by original point
// index, never by completion order, so concurrent workers cannot misplace a
// result.
type Assembler struct {
	chips ChipSource
	enc   Vectorizer
	cfg   Config
}

// New creates an Assembler.
func New(chips ChipSource, enc Vectorizer, cfg Config) *Assembler {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 500
	}
	return &Assembler{chips: chips, enc: enc, cfg: cfg}
}

// Build extracts and featurizes every assignment concurrently and returns the
// dense matrix plus validity mask. Assignment point indices must form exactly
// the range [0, len); each names the row it owns. Transport errors abort the
// build; coverage misses and quality rejects only mark rows invalid.
func (a *Assembler) Build(ctx context.Context, assignments []model.Assignment) (*model.FeatureMatrix, error) {
	for _, asgn := range assignments {
		if asgn.Point.Index < 0 || asgn.Point.Index >= len(assignments) {
			return nil, eris.Errorf("assemble: point index %d out of range [0,%d)", asgn.Point.Index, len(assignments))
		}
	}

	m := model.NewFeatureMatrix(len(assignments), a.enc.Dim())
	log := zap.L().With(zap.String("component", "assemble"))
	start := time.Now()

	var processed, valid atomic.Int64
	reasons := newReasonCounts()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)

	for _, asgn := range assignments {
		g.Go(func() error {
			res, err := a.chips.Extract(gctx, asgn)
			if err != nil {
				return eris.Wrapf(err, "assemble: point %d", asgn.Point.Index)
			}

			switch {
			case !res.OK():
				reasons.add(res.Reason)
			case res.Chip.Height < a.cfg.MinChipPx || res.Chip.Width < a.cfg.MinChipPx:
				// Same zero-row outcome as a missing chip; the reason is
				// kept only for the summary log.
				reasons.add(model.NoChipTooSmall)
			default:
				vec, encErr := a.enc.Encode(res.Chip)
				if encErr != nil {
					return eris.Wrapf(encErr, "assemble: point %d", asgn.Point.Index)
				}
				m.SetRow(asgn.Point.Index, vec)
				valid.Add(1)
			}

			if n := processed.Add(1); n%int64(a.cfg.LogEvery) == 0 {
				log.Info("featurizing",
					zap.Int64("rows", n),
					zap.Int("total", len(assignments)),
					zap.Duration("elapsed", time.Since(start)),
				)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("feature matrix assembled",
		zap.Int("rows", len(assignments)),
		zap.Int64("valid", valid.Load()),
		zap.Int64("no_scene", reasons.get(model.NoChipNoScene)),
		zap.Int64("no_overlap", reasons.get(model.NoChipNoOverlap)),
		zap.Int64("too_small", reasons.get(model.NoChipTooSmall)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return m, nil
}

// reasonCounts tallies chip-less outcomes per reason.
type reasonCounts struct {
	noScene   atomic.Int64
	noOverlap atomic.Int64
	tooSmall  atomic.Int64
}

func newReasonCounts() *reasonCounts {
	return &reasonCounts{}
}

func (r *reasonCounts) add(reason model.NoChipReason) {
	switch reason {
	case model.NoChipNoScene:
		r.noScene.Add(1)
	case model.NoChipNoOverlap:
		r.noOverlap.Add(1)
	case model.NoChipTooSmall:
		r.tooSmall.Add(1)
	}
}

func (r *reasonCounts) get(reason model.NoChipReason) int64 {
	switch reason {
	case model.NoChipNoScene:
		return r.noScene.Load()
	case model.NoChipNoOverlap:
		return r.noOverlap.Load()
	case model.NoChipTooSmall:
		return r.tooSmall.Load()
	default:
		return 0
	}
}
