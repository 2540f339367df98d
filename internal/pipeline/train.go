package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/terrastat/landcover-cli/internal/config"
	"github.com/terrastat/landcover-cli/internal/model"
	"github.com/terrastat/landcover-cli/pkg/engine"
)

// Model is a trained ensemble classifier bound to one region's feature
// space. It is never reused across regions.
type Model struct {
	Region string
	Ref    *engine.ClassifierRef
	Bands  []string
	Trees  int
}

// Trainer fits the per-region ensemble classifier.
type Trainer struct {
	engine engine.Client
	cfg    config.ClassifierConfig
}

// NewTrainer creates a Trainer with a fixed tree count and seed.
func NewTrainer(client engine.Client, cfg config.ClassifierConfig) *Trainer {
	return &Trainer{engine: client, cfg: cfg}
}

// Train extracts feature values at each sample's pixel location and fits a
// random forest. A degenerate training set (empty, or a single class) fails
// with a TrainingError rather than producing an always-one-class model.
func (t *Trainer) Train(ctx context.Context, comp *Composite, samples []model.LabeledSample) (*Model, error) {
	if len(samples) == 0 {
		return nil, &TrainingError{Region: comp.Region, Reason: "no samples"}
	}

	seen := make(map[int]bool, len(samples))
	for _, s := range samples {
		if !model.ValidClass(s.Class) {
			return nil, &TrainingError{Region: comp.Region, Reason: "label outside target taxonomy"}
		}
		seen[s.Class] = true
	}
	if len(seen) < 2 {
		return nil, &TrainingError{Region: comp.Region, Reason: "single-class sample set"}
	}

	points := make([]engine.Feature, len(samples))
	for i, s := range samples {
		points[i] = engine.Feature{
			Lon:        s.Lon,
			Lat:        s.Lat,
			Properties: map[string]float64{labelBand: float64(s.Class)},
		}
	}

	training := engine.SampleRegions(comp.Image, points, comp.Scale)
	expr := engine.Train(engine.RandomForest(t.cfg.Trees, t.cfg.Seed), training, labelBand, comp.Bands)

	res, err := t.engine.Evaluate(ctx, expr)
	if err != nil {
		return nil, eris.Wrapf(err, "train: %s", comp.Region)
	}
	if res.Kind != engine.KindClassifier || res.Classifier == nil {
		return nil, eris.Errorf("train: engine returned %s, want classifier", res.Kind)
	}

	zap.L().Debug("trained classifier",
		zap.String("region", comp.Region),
		zap.String("classifier", res.Classifier.ID),
		zap.Int("samples", len(samples)),
		zap.Int("classes", len(seen)),
		zap.Int("trees", t.cfg.Trees),
	)

	return &Model{
		Region: comp.Region,
		Ref:    res.Classifier,
		Bands:  append([]string(nil), comp.Bands...),
		Trees:  t.cfg.Trees,
	}, nil
}
