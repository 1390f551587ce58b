package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/satfeat-cli/internal/assemble"
	"github.com/sells-group/satfeat-cli/internal/export"
	"github.com/sells-group/satfeat-cli/internal/features"
	"github.com/sells-group/satfeat-cli/internal/model"
	"github.com/sells-group/satfeat-cli/internal/pipeline"
	"github.com/sells-group/satfeat-cli/internal/pointset"
	"github.com/sells-group/satfeat-cli/internal/raster"
	"github.com/sells-group/satfeat-cli/internal/resolve"
	"github.com/sells-group/satfeat-cli/pkg/stac"
)

var (
	featurizePoints     string
	featurizeLabelField string
	featurizeOutput     string
	featurizeToken      string
)

var featurizeCmd = &cobra.Command{
	Use:   "featurize",
	Short: "Compute feature vectors for a point collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("component", "featurize"))

		points, err := pointset.Load(featurizePoints, featurizeLabelField)
		if err != nil {
			return err
		}
		if len(points) == 0 {
			return eris.Errorf("no points loaded from %s", featurizePoints)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.CreateRun(ctx, featurizePoints)
		if err != nil {
			return eris.Wrap(err, "create run")
		}
		log.Info("run created", zap.String("run_id", run.ID), zap.Int("points", len(points)))

		raster.RegisterAll()

		catalog := stac.NewClient(cfg.Catalog.URL,
			stac.WithToken(featurizeToken),
			stac.WithRateLimit(cfg.Catalog.RatePerSec),
		)
		resolver := resolve.New(catalog, resolve.Config{
			Collection:  cfg.Catalog.Collection,
			DateStart:   cfg.Catalog.DateStart,
			DateEnd:     cfg.Catalog.DateEnd,
			MaxCloudPct: cfg.Catalog.MaxCloudPct,
			Limit:       cfg.Catalog.Limit,
		})
		extractor := raster.NewExtractor(raster.Config{
			BufferMeters: cfg.Raster.BufferMeters,
			Bands:        cfg.Catalog.Bands,
		})
		encoder, err := features.NewEncoder(features.Config{
			Count:      cfg.Features.Count,
			KernelSize: cfg.Features.KernelSize,
			Seed:       cfg.Features.Seed,
			Bias:       cfg.Features.Bias,
		}, cfg.Raster.Channels)
		if err != nil {
			return err
		}
		assembler := assemble.New(extractor, encoder, assemble.Config{
			MinChipPx: cfg.Raster.MinChipPx,
			Workers:   cfg.Workers.Extract,
		})

		p := pipeline.New(resolver, assembler, pipeline.Config{
			Partitions:   cfg.Partition.Count,
			BatchWorkers: cfg.Workers.Resolve,
			Status: func(s model.RunStatus) {
				if err := st.UpdateRunStatus(ctx, run.ID, s); err != nil {
					log.Warn("update run status", zap.Error(err))
				}
			},
		})

		res, err := p.Run(ctx, points)
		if err != nil {
			if stErr := st.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed); stErr != nil {
				log.Warn("mark run failed", zap.Error(stErr))
			}
			return eris.Wrap(err, "featurize")
		}

		if err := export.WriteFeatureCSV(featurizeOutput, points, res.Matrix); err != nil {
			return err
		}

		stats := &model.RunStats{
			Points:       len(points),
			Batches:      res.Batches,
			ScenesFound:  res.ScenesFound,
			ValidRows:    res.Matrix.ValidCount(),
			InvalidRows:  res.Matrix.Rows() - res.Matrix.ValidCount(),
			FeatureDim:   res.Matrix.Dim(),
			DurationSecs: res.Duration.Seconds(),
			OutputPath:   featurizeOutput,
		}
		if err := st.UpdateRunResult(ctx, run.ID, stats); err != nil {
			return eris.Wrap(err, "record run result")
		}

		log.Info("featurize complete",
			zap.String("run_id", run.ID),
			zap.Int("valid_rows", stats.ValidRows),
			zap.Int("invalid_rows", stats.InvalidRows),
			zap.String("output", featurizeOutput),
		)
		return nil
	},
}

func init() {
	featurizeCmd.Flags().StringVar(&featurizePoints, "points", "", "point collection: .shp or .csv with lon/lat columns (required)")
	featurizeCmd.Flags().StringVar(&featurizeLabelField, "label-field", "label", "attribute or column holding the point label")
	featurizeCmd.Flags().StringVar(&featurizeOutput, "output", "features.csv", "output CSV path")
	featurizeCmd.Flags().StringVar(&featurizeToken, "token", "", "catalog bearer token")
	_ = featurizeCmd.MarkFlagRequired("points")
	rootCmd.AddCommand(featurizeCmd)
}
