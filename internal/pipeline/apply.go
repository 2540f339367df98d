package pipeline

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/terrastat/landcover-cli/internal/model"
	"github.com/terrastat/landcover-cli/pkg/engine"
)

// classificationBand is the single band of a classified raster.
const classificationBand = "classification"

// Classification is the per-pixel prediction result for one region.
type Classification struct {
	Region string
	// Image is the classification expression graph, reusable for further
	// engine calls such as palette rendering.
	Image  *engine.Expression
	Raster *engine.RasterRef
	// ClassPixels maps target class names to pixel counts within the
	// region, for reporting.
	ClassPixels map[string]float64
}

// Applier applies a trained model to a composite raster.
type Applier struct {
	engine engine.Client
}

// NewApplier creates an Applier.
func NewApplier(client engine.Client) *Applier {
	return &Applier{engine: client}
}

// Apply classifies the composite per pixel, clipped to the region geometry.
// The composite must carry exactly the feature bands the model was trained
// on, in the same order; a mismatch is a contract violation, not a
// recoverable condition.
func (a *Applier) Apply(ctx context.Context, m *Model, comp *Composite, geom model.StableGeometry) (*Classification, error) {
	if !equalBands(m.Bands, comp.Bands) {
		return nil, &BandMismatchError{Want: m.Bands, Got: comp.Bands}
	}

	classified := engine.Clip(
		engine.Classify(engine.Select(comp.Image, m.Bands), m.Ref.ID),
		geom.GeoJSON,
	)

	res, err := a.engine.Evaluate(ctx, classified)
	if err != nil {
		return nil, eris.Wrapf(err, "apply: classify %s", comp.Region)
	}
	if res.Kind != engine.KindRaster || res.Raster == nil {
		return nil, eris.Errorf("apply: engine returned %s, want raster", res.Kind)
	}

	pixels, err := a.classPixels(ctx, classified, geom, comp.Scale)
	if err != nil {
		return nil, eris.Wrapf(err, "apply: class histogram for %s", comp.Region)
	}

	zap.L().Debug("classified region",
		zap.String("region", comp.Region),
		zap.String("raster", res.Raster.ID),
		zap.Int("classes_present", len(pixels)),
	)

	return &Classification{Region: comp.Region, Image: classified, Raster: res.Raster, ClassPixels: pixels}, nil
}

// classPixels tallies predicted labels and verifies that every label
// belongs to the target taxonomy.
func (a *Applier) classPixels(ctx context.Context, classified *engine.Expression, geom model.StableGeometry, scale float64) (map[string]float64, error) {
	res, err := a.engine.Evaluate(ctx, engine.Histogram(classified, classificationBand, geom.GeoJSON, scale))
	if err != nil {
		return nil, err
	}
	if res.Kind != engine.KindDictionary {
		return nil, eris.Errorf("engine returned %s for histogram, want dictionary", res.Kind)
	}

	pixels := make(map[string]float64, len(res.Dictionary))
	for key, count := range res.Dictionary {
		code, err := strconv.Atoi(key)
		if err != nil {
			return nil, eris.Wrapf(err, "non-numeric class label %q", key)
		}
		if !model.ValidClass(code) {
			return nil, eris.Errorf("predicted label %d outside target taxonomy", code)
		}
		pixels[model.ClassName(code)] = count
	}
	return pixels, nil
}

func equalBands(want, got []string) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != got[i] {
			return false
		}
	}
	return true
}
