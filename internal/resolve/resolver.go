// Package resolve assigns each point in a batch its best-matching catalog
// scene: one search per batch over the batch's convex hull, candidates ranked
// by ascending cloud cover, first covering candidate wins.
package resolve

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/satfeat-cli/internal/model"
	"github.com/sells-group/satfeat-cli/pkg/stac"
)

// Searcher is the subset of the catalog client the resolver needs.
type Searcher interface {
	Search(ctx context.Context, params stac.SearchParams) ([]stac.Item, error)
}

// Config is the immutable query configuration shared by every batch.
type Config struct {
	Collection  string
	DateStart   string
	DateEnd     string
	MaxCloudPct float64
	Limit       int
}

// Resolver resolves batches against a scene catalog. It holds no mutable
// state, so one Resolver is safe to share across concurrent batch workers.
type Resolver struct {
	catalog Searcher
	cfg     Config
}

// New creates a Resolver.
func New(catalog Searcher, cfg Config) *Resolver {
	return &Resolver{catalog: catalog, cfg: cfg}
}

// ResolveBatch issues exactly one catalog search for the batch's combined
// region and pairs every point with its lowest-cloud covering scene, or nil
// when none covers it. Catalog transport errors are fatal for the batch and
// propagate; an empty result set simply assigns nil everywhere.
func (r *Resolver) ResolveBatch(ctx context.Context, batch model.Batch) ([]model.Assignment, error) {
	log := zap.L().With(
		zap.String("component", "resolve"),
		zap.Int("batch", batch.ID),
		zap.Int("points", len(batch.Points)),
	)

	if len(batch.Points) == 0 {
		return nil, nil
	}

	items, err := r.catalog.Search(ctx, stac.SearchParams{
		Collection:  r.cfg.Collection,
		Intersects:  SearchRegion(batch),
		DateStart:   r.cfg.DateStart,
		DateEnd:     r.cfg.DateEnd,
		MaxCloudPct: r.cfg.MaxCloudPct,
		Limit:       r.cfg.Limit,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "resolve: batch %d catalog search", batch.ID)
	}

	candidates := rankByCloudCover(items)

	assignments := make([]model.Assignment, len(batch.Points))
	assigned := 0
	for i, p := range batch.Points {
		assignments[i] = model.Assignment{Point: p}
		for _, cand := range candidates {
			if Covers(cand.Footprint, p.Lon, p.Lat) {
				assignments[i].Scene = cand
				assigned++
				break
			}
		}
	}

	log.Debug("batch resolved",
		zap.Int("candidates", len(candidates)),
		zap.Int("assigned", assigned),
	)
	return assignments, nil
}

// rankByCloudCover converts catalog items to scene candidates ordered by
// ascending cloud cover. The sort is stable, so equal cloud covers keep
// catalog order as the deterministic tie-break.
func rankByCloudCover(items []stac.Item) []*model.SceneCandidate {
	candidates := make([]*model.SceneCandidate, len(items))
	for i, item := range items {
		candidates[i] = &model.SceneCandidate{
			ID:         item.ID,
			Footprint:  item.Footprint,
			CloudCover: item.CloudCover,
			AcquiredAt: item.AcquiredAt,
			Assets:     item.Assets,
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CloudCover < candidates[j].CloudCover
	})
	return candidates
}
