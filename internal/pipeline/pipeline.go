// Package pipeline orchestrates a featurization run: partition the input
// points, resolve one scene per batch from the imagery catalog, then extract
// and encode a feature vector for every point.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/satfeat-cli/internal/model"
	"github.com/sells-group/satfeat-cli/internal/partition"
)

// BatchResolver assigns a scene to every point of a batch.
type BatchResolver interface {
	ResolveBatch(ctx context.Context, batch model.Batch) ([]model.Assignment, error)
}

// MatrixBuilder turns point/scene assignments into the feature matrix.
type MatrixBuilder interface {
	Build(ctx context.Context, assignments []model.Assignment) (*model.FeatureMatrix, error)
}

// Config controls partitioning and batch-level concurrency.
type Config struct {
	// Partitions is the number of batches the point set is split into.
	Partitions int

	// BatchWorkers bounds how many batches resolve concurrently.
	BatchWorkers int

	// Status, when set, receives run state transitions.
	Status func(model.RunStatus)
}

// Result carries the assembled matrix and run summary counters.
type Result struct {
	Matrix      *model.FeatureMatrix
	Batches     int
	ScenesFound int
	Duration    time.Duration
}

// Pipeline wires the resolver and assembler behind a single Run call.
type Pipeline struct {
	resolver  BatchResolver
	assembler MatrixBuilder
	cfg       Config
}

func New(resolver BatchResolver, assembler MatrixBuilder, cfg Config) *Pipeline {
	if cfg.BatchWorkers < 1 {
		cfg.BatchWorkers = 1
	}
	return &Pipeline{resolver: resolver, assembler: assembler, cfg: cfg}
}

// Run featurizes the point set. The returned matrix has one row per input
// point, in input order, regardless of how points were batched in between.
func (p *Pipeline) Run(ctx context.Context, points []model.Point) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.String("component", "pipeline"))
	log.Info("starting run", zap.Int("points", len(points)), zap.Int("partitions", p.cfg.Partitions))

	batches, err := partition.Split(points, p.cfg.Partitions)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: partition")
	}

	p.setStatus(model.RunStatusResolving)

	// One result slot per batch so concurrent resolution cannot reorder
	// assignments across batches.
	slots := make([][]model.Assignment, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.BatchWorkers)
	for i, batch := range batches {
		g.Go(func() error {
			assignments, err := p.resolver.ResolveBatch(gctx, batch)
			if err != nil {
				return eris.Wrapf(err, "pipeline: resolve batch %d", batch.ID)
			}
			slots[i] = assignments
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	assignments := make([]model.Assignment, 0, len(points))
	for _, slot := range slots {
		assignments = append(assignments, slot...)
	}

	scenes := map[string]struct{}{}
	for _, a := range assignments {
		if a.Scene != nil {
			scenes[a.Scene.ID] = struct{}{}
		}
	}
	log.Info("resolved scenes",
		zap.Int("batches", len(batches)),
		zap.Int("scenes", len(scenes)),
	)

	p.setStatus(model.RunStatusExtracting)

	matrix, err := p.assembler.Build(ctx, assignments)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Matrix:      matrix,
		Batches:     len(batches),
		ScenesFound: len(scenes),
		Duration:    time.Since(start),
	}
	log.Info("run complete",
		zap.Int("valid_rows", matrix.ValidCount()),
		zap.Int("invalid_rows", matrix.Rows()-matrix.ValidCount()),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (p *Pipeline) setStatus(status model.RunStatus) {
	if p.cfg.Status != nil {
		p.cfg.Status(status)
	}
}
