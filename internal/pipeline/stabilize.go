package pipeline

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/terrastat/landcover-cli/internal/model"
	"github.com/terrastat/landcover-cli/pkg/engine"
)

// Stabilizer simplifies region boundaries for downstream raster operations.
type Stabilizer struct {
	engine    engine.Client
	tolerance float64
}

// NewStabilizer creates a Stabilizer with a fixed simplification tolerance
// in meters.
func NewStabilizer(client engine.Client, toleranceMeters float64) *Stabilizer {
	return &Stabilizer{engine: client, tolerance: toleranceMeters}
}

// Stabilize dissolves a multipart boundary into a unified polygon set and
// simplifies it with the fixed tolerance. A boundary the engine still
// rejects as too complex surfaces as a GeometryError; there is no automatic
// tolerance tuning.
func (s *Stabilizer) Stabilize(ctx context.Context, region model.Region) (model.StableGeometry, error) {
	raw, err := geojson.Marshal(region.Boundary)
	if err != nil {
		return model.StableGeometry{}, eris.Wrapf(err, "stabilize: encode boundary for %s", region.Name)
	}

	expr := engine.Simplify(engine.Dissolve(raw), s.tolerance)
	res, err := s.engine.Evaluate(ctx, expr)
	if err != nil {
		var apiErr *engine.APIError
		if errors.As(err, &apiErr) && apiErr.Code == engine.CodeGeometryTooComplex {
			return model.StableGeometry{}, &GeometryError{Region: region.Name, Err: err}
		}
		return model.StableGeometry{}, eris.Wrapf(err, "stabilize: %s", region.Name)
	}
	if res.Kind != engine.KindGeometry || len(res.Geometry) == 0 {
		return model.StableGeometry{}, eris.Errorf("stabilize: %s: engine returned %s, want geometry", region.Name, res.Kind)
	}

	zap.L().Debug("stabilized boundary",
		zap.String("region", region.Name),
		zap.Float64("tolerance_m", s.tolerance),
	)

	return model.StableGeometry{Region: region.Name, GeoJSON: res.Geometry}, nil
}
