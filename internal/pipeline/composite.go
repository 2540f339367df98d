package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/terrastat/landcover-cli/internal/config"
	"github.com/terrastat/landcover-cli/internal/model"
	"github.com/terrastat/landcover-cli/pkg/engine"
)

// Derived spectral index band names.
const (
	BandNDVI = "NDVI"
	BandNDWI = "NDWI"
	BandNDBI = "NDBI"
)

// Composite is a cloud-filtered, time-aggregated multispectral raster for
// one region, held as an unevaluated expression plus its band list.
type Composite struct {
	Region string
	Image  *engine.Expression
	Bands  []string
	Scale  float64
}

// CompositeBuilder produces clipped median composites with spectral indices
// appended.
type CompositeBuilder struct {
	engine engine.Client
	cfg    config.CompositeConfig
}

// NewCompositeBuilder creates a CompositeBuilder.
func NewCompositeBuilder(client engine.Client, cfg config.CompositeConfig) *CompositeBuilder {
	return &CompositeBuilder{engine: client, cfg: cfg}
}

// FeatureBands returns the raw spectral bands plus derived index bands, in
// the order used for training and inference.
func (b *CompositeBuilder) FeatureBands() []string {
	bands := make([]string, 0, len(b.cfg.Bands)+3)
	bands = append(bands, b.cfg.Bands...)
	bands = append(bands, BandNDVI, BandNDWI, BandNDBI)
	return bands
}

// Build selects imagery intersecting the geometry and date window, applies
// the scene-classification validity mask when enabled, aggregates with a
// per-pixel median, clips, and appends the NDVI/NDWI/NDBI index bands.
//
// If masking removes every image the unmasked collection is used instead,
// so a composite is always available for small or persistently cloudy
// regions at the cost of possible contamination. The check happens once per
// region. Zero images even unmasked is a NoImageryError.
func (b *CompositeBuilder) Build(ctx context.Context, geom model.StableGeometry) (*Composite, error) {
	unmasked := engine.FilterBounds(
		engine.FilterDate(engine.LoadCollection(b.cfg.CollectionID), b.cfg.StartDate, b.cfg.EndDate),
		geom.GeoJSON,
	)

	total, err := b.count(ctx, unmasked)
	if err != nil {
		return nil, eris.Wrapf(err, "composite: count imagery for %s", geom.Region)
	}
	if total == 0 {
		return nil, &NoImageryError{Region: geom.Region, StartDate: b.cfg.StartDate, EndDate: b.cfg.EndDate}
	}

	selected := unmasked
	if b.cfg.MaskClouds {
		masked := engine.MaskScene(unmasked, b.cfg.SceneBand, b.cfg.InvalidCodes)
		valid, err := b.count(ctx, masked)
		if err != nil {
			return nil, eris.Wrapf(err, "composite: count masked imagery for %s", geom.Region)
		}
		if valid > 0 {
			selected = masked
		} else {
			zap.L().Warn("cloud mask removed all imagery, using unmasked collection",
				zap.String("region", geom.Region),
				zap.Int("unmasked_images", total),
			)
		}
	}

	base := engine.Clip(engine.Median(selected), geom.GeoJSON)

	ndvi := engine.NormalizedDifference(base, b.cfg.NIRBand, b.cfg.RedBand, BandNDVI)
	ndwi := engine.NormalizedDifference(base, b.cfg.GreenBand, b.cfg.NIRBand, BandNDWI)
	ndbi := engine.NormalizedDifference(base, b.cfg.SWIRBand, b.cfg.NIRBand, BandNDBI)

	return &Composite{
		Region: geom.Region,
		Image:  engine.AddBands(base, ndvi, ndwi, ndbi),
		Bands:  b.FeatureBands(),
		Scale:  b.cfg.Scale,
	}, nil
}

func (b *CompositeBuilder) count(ctx context.Context, col *engine.Expression) (int, error) {
	res, err := b.engine.Evaluate(ctx, engine.Size(col))
	if err != nil {
		return 0, err
	}
	if res.Kind != engine.KindNumber {
		return 0, eris.Errorf("composite: engine returned %s for collection size, want number", res.Kind)
	}
	return int(res.Number), nil
}
