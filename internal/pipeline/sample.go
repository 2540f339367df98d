package pipeline

import (
	"context"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/terrastat/landcover-cli/internal/config"
	"github.com/terrastat/landcover-cli/internal/model"
	"github.com/terrastat/landcover-cli/pkg/engine"
)

// labelBand is the band name carrying remapped target-class labels.
const labelBand = "landcover"

// LabelSampler derives point-labeled training samples from the reference
// land-cover raster, remapped into the target taxonomy.
type LabelSampler struct {
	engine   engine.Client
	cfg      config.SamplingConfig
	taxonomy model.Taxonomy
	scale    float64
}

// NewLabelSampler creates a LabelSampler. Sampling scale matches the
// composite resolution so later feature extraction aligns pixel-for-pixel.
func NewLabelSampler(client engine.Client, cfg config.SamplingConfig, taxonomy model.Taxonomy, scale float64) *LabelSampler {
	return &LabelSampler{engine: client, cfg: cfg, taxonomy: taxonomy, scale: scale}
}

// Sample clips the reference raster to the geometry, validates that every
// category present is covered by the remap table, remaps categories into
// target classes, and draws a stratified random sample with the configured
// count and seed.
//
// Zero reference coverage or zero drawn points is a NoSamplesError; an
// unlisted category code is an UnmappedCategoryError.
func (s *LabelSampler) Sample(ctx context.Context, geom model.StableGeometry) ([]model.LabeledSample, error) {
	ref := engine.Clip(engine.LoadImage(s.cfg.ReferenceID), geom.GeoJSON)

	if err := s.checkCoverage(ctx, ref, geom); err != nil {
		return nil, err
	}

	from, to := s.taxonomy.RemapPairs()
	remapped := engine.Remap(ref, s.cfg.ReferenceBand, from, to, labelBand)

	expr := engine.StratifiedSample(remapped, labelBand, geom.GeoJSON, s.cfg.Count, s.scale, s.cfg.Seed)
	res, err := s.engine.Evaluate(ctx, expr)
	if err != nil {
		return nil, eris.Wrapf(err, "sample: stratified sample for %s", geom.Region)
	}
	if res.Kind != engine.KindFeatures {
		return nil, eris.Errorf("sample: engine returned %s, want features", res.Kind)
	}
	if len(res.Features) == 0 {
		return nil, &NoSamplesError{Region: geom.Region, Reason: "stratified sample returned no points"}
	}

	samples := make([]model.LabeledSample, 0, len(res.Features))
	for _, f := range res.Features {
		label, ok := f.Properties[labelBand]
		if !ok {
			return nil, eris.Errorf("sample: point without %s property for %s", labelBand, geom.Region)
		}
		class := int(label)
		if !model.ValidClass(class) {
			return nil, eris.Errorf("sample: label %d outside target taxonomy for %s", class, geom.Region)
		}
		samples = append(samples, model.LabeledSample{Lon: f.Lon, Lat: f.Lat, Class: class})
	}

	zap.L().Debug("drew training samples",
		zap.String("region", geom.Region),
		zap.Int("count", len(samples)),
	)

	return samples, nil
}

// checkCoverage fetches the reference raster's category histogram for the
// region and rejects empty coverage or codes missing from the remap table.
func (s *LabelSampler) checkCoverage(ctx context.Context, ref *engine.Expression, geom model.StableGeometry) error {
	res, err := s.engine.Evaluate(ctx, engine.Histogram(ref, s.cfg.ReferenceBand, geom.GeoJSON, s.scale))
	if err != nil {
		return eris.Wrapf(err, "sample: reference histogram for %s", geom.Region)
	}
	if res.Kind != engine.KindDictionary {
		return eris.Errorf("sample: engine returned %s for histogram, want dictionary", res.Kind)
	}
	if len(res.Dictionary) == 0 {
		return &NoSamplesError{Region: geom.Region, Reason: "reference raster has no coverage"}
	}

	var unmapped []int
	for key, count := range res.Dictionary {
		if count <= 0 {
			continue
		}
		code, err := strconv.Atoi(key)
		if err != nil {
			return eris.Wrapf(err, "sample: non-numeric reference category %q", key)
		}
		if !s.taxonomy.Mapped(code) {
			unmapped = append(unmapped, code)
		}
	}
	if len(unmapped) > 0 {
		sort.Ints(unmapped)
		return &UnmappedCategoryError{Region: geom.Region, Codes: unmapped}
	}
	return nil
}
