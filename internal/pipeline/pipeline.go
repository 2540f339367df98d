// Package pipeline implements the per-region land-cover classification
// pipeline: boundary stabilization, composite construction, label sampling,
// classifier training, and raster classification. All heavy computation is
// delegated to the remote raster engine; each region run is self-contained
// and shares no state with other regions.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/terrastat/landcover-cli/internal/config"
	"github.com/terrastat/landcover-cli/internal/model"
	"github.com/terrastat/landcover-cli/internal/store"
	"github.com/terrastat/landcover-cli/pkg/engine"
)

// Pipeline drives the five classification stages for a single region.
type Pipeline struct {
	cfg        *config.Config
	store      store.Store
	stabilizer *Stabilizer
	composites *CompositeBuilder
	sampler    *LabelSampler
	trainer    *Trainer
	applier    *Applier
	taxonomy   model.Taxonomy
	engine     engine.Client
}

// New creates a Pipeline with all dependencies.
func New(cfg *config.Config, client engine.Client, st store.Store, taxonomy model.Taxonomy) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		store:      st,
		stabilizer: NewStabilizer(client, cfg.Geometry.SimplifyToleranceM),
		composites: NewCompositeBuilder(client, cfg.Composite),
		sampler:    NewLabelSampler(client, cfg.Sampling, taxonomy, cfg.Composite.Scale),
		trainer:    NewTrainer(client, cfg.Classifier),
		applier:    NewApplier(client),
		taxonomy:   taxonomy,
		engine:     client,
	}
}

// Run executes the full classification pipeline for one region. The
// returned RunResult is populated with stage outcomes even when the run
// fails; the error carries the region-level failure.
func (p *Pipeline) Run(ctx context.Context, region model.Region) (*model.RunResult, error) {
	log := zap.L().With(zap.String("region", region.Name))
	log.Info("pipeline: starting classification")

	result := &model.RunResult{}

	run, err := p.store.CreateRun(ctx, region.Name)
	if err != nil {
		log.Warn("pipeline: failed to create run record", zap.Error(err))
	}

	setStatus := func(status model.RunStatus) {
		if run == nil {
			return
		}
		if statusErr := p.store.UpdateRunStatus(ctx, run.ID, status); statusErr != nil {
			log.Warn("pipeline: failed to update status", zap.Error(statusErr))
		}
	}

	finish := func(status model.RunStatus, runErr error) (*model.RunResult, error) {
		if runErr != nil {
			result.ErrorKind = ErrorKind(runErr)
			result.Error = runErr.Error()
		}
		if run != nil {
			if saveErr := p.store.CompleteRun(ctx, run.ID, status, result); saveErr != nil {
				log.Warn("pipeline: failed to save run result", zap.Error(saveErr))
			}
		}
		return result, runErr
	}

	stage := func(name string, fn func() (map[string]any, error)) error {
		start := time.Now()
		meta, stageErr := fn()
		sr := model.StageResult{
			Name:       name,
			Status:     model.StageStatusComplete,
			DurationMS: time.Since(start).Milliseconds(),
			Metadata:   meta,
		}
		if stageErr != nil {
			sr.Status = model.StageStatusFailed
			sr.Error = stageErr.Error()
			log.Error("pipeline: stage failed",
				zap.String("stage", name),
				zap.Int64("duration_ms", sr.DurationMS),
				zap.Error(stageErr),
			)
		} else {
			log.Info("pipeline: stage complete",
				zap.String("stage", name),
				zap.Int64("duration_ms", sr.DurationMS),
			)
		}
		result.Stages = append(result.Stages, sr)
		return stageErr
	}

	// Stage 1: stabilize boundary.
	setStatus(model.RunStatusStabilizing)
	var stable model.StableGeometry
	if err := stage("stabilize", func() (map[string]any, error) {
		var stageErr error
		stable, stageErr = p.stabilizer.Stabilize(ctx, region)
		return nil, stageErr
	}); err != nil {
		return finish(model.RunStatusFailed, err)
	}

	// Stage 2: build composite.
	setStatus(model.RunStatusCompositing)
	var comp *Composite
	if err := stage("composite", func() (map[string]any, error) {
		var stageErr error
		comp, stageErr = p.composites.Build(ctx, stable)
		if stageErr != nil {
			return nil, stageErr
		}
		return map[string]any{"bands": len(comp.Bands)}, nil
	}); err != nil {
		return finish(model.RunStatusFailed, err)
	}
	result.FeatureBands = comp.Bands

	// Stage 3: sample training labels.
	setStatus(model.RunStatusSampling)
	var samples []model.LabeledSample
	if err := stage("sample", func() (map[string]any, error) {
		var stageErr error
		samples, stageErr = p.sampler.Sample(ctx, stable)
		if stageErr != nil {
			return nil, stageErr
		}
		return map[string]any{"samples": len(samples)}, nil
	}); err != nil {
		return finish(model.RunStatusFailed, err)
	}
	result.SampleCount = len(samples)

	// Stage 4: train classifier.
	setStatus(model.RunStatusTraining)
	var m *Model
	if err := stage("train", func() (map[string]any, error) {
		var stageErr error
		m, stageErr = p.trainer.Train(ctx, comp, samples)
		if stageErr != nil {
			return nil, stageErr
		}
		return map[string]any{"trees": m.Trees}, nil
	}); err != nil {
		return finish(model.RunStatusFailed, err)
	}

	// Stage 5: classify raster.
	setStatus(model.RunStatusClassifying)
	var classified *Classification
	if err := stage("classify", func() (map[string]any, error) {
		var stageErr error
		classified, stageErr = p.applier.Apply(ctx, m, comp, stable)
		if stageErr != nil {
			return nil, stageErr
		}
		return map[string]any{"classes_present": len(classified.ClassPixels)}, nil
	}); err != nil {
		return finish(model.RunStatusFailed, err)
	}
	result.ClassPixels = classified.ClassPixels
	result.ClassificationURL = classified.Raster.TileURL

	// Stage 6: render the colorized class map and RGB preview for the
	// visualization layer.
	if err := stage("render", func() (map[string]any, error) {
		classMap, stageErr := p.renderClassMap(ctx, classified)
		if stageErr != nil {
			return nil, stageErr
		}
		preview, stageErr := p.preview(ctx, comp)
		if stageErr != nil {
			return nil, stageErr
		}
		result.ClassMapURL = classMap
		result.PreviewURL = preview
		result.Palette = p.taxonomy.Palette
		return nil, nil
	}); err != nil {
		return finish(model.RunStatusFailed, err)
	}

	log.Info("pipeline: classification complete",
		zap.Int("samples", result.SampleCount),
		zap.Int("classes_present", len(result.ClassPixels)),
	)

	return finish(model.RunStatusComplete, nil)
}

// renderClassMap colorizes the classification raster with the target-class
// palette, one color per class code.
func (p *Pipeline) renderClassMap(ctx context.Context, c *Classification) (string, error) {
	max := float64(len(p.taxonomy.Palette) - 1)
	res, err := p.engine.Evaluate(ctx, engine.Visualize(c.Image, []string{classificationBand}, 0, max, p.taxonomy.Palette))
	if err != nil {
		return "", err
	}
	if res.Kind != engine.KindRaster || res.Raster == nil {
		return "", nil
	}
	return res.Raster.TileURL, nil
}

// preview renders true-color composite bands for display.
func (p *Pipeline) preview(ctx context.Context, comp *Composite) (string, error) {
	bands := []string{p.cfg.Composite.RedBand, p.cfg.Composite.GreenBand, p.cfg.Composite.BlueBand}
	res, err := p.engine.Evaluate(ctx, engine.Visualize(comp.Image, bands, 0, 3000, nil))
	if err != nil {
		return "", err
	}
	if res.Kind != engine.KindRaster || res.Raster == nil {
		return "", nil
	}
	return res.Raster.TileURL, nil
}
