package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/terrastat/landcover-cli/internal/model"
	"github.com/terrastat/landcover-cli/pkg/engine"
)

func testRegion(t *testing.T, name string) model.Region {
	t.Helper()
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	poly := geom.NewPolygon(geom.XY)
	err := poly.Push(geom.NewLinearRingFlat(geom.XY, []float64{
		-80, 25, -80, 26, -79, 26, -79, 25, -80, 25,
	}))
	require.NoError(t, err)
	require.NoError(t, mp.Push(poly))
	return model.Region{Name: name, Boundary: mp}
}

func TestStabilize_Success(t *testing.T) {
	eng := new(mockEngine)
	simplified := json.RawMessage(`{"type":"MultiPolygon","coordinates":[]}`)

	eng.On("Evaluate", mock.Anything, exprWithOp("geometry.simplify")).
		Return(&engine.Result{Kind: engine.KindGeometry, Geometry: simplified}, nil)

	s := NewStabilizer(eng, 100)
	got, err := s.Stabilize(context.Background(), testRegion(t, "alpha"))

	require.NoError(t, err)
	assert.Equal(t, "alpha", got.Region)
	assert.JSONEq(t, string(simplified), string(got.GeoJSON))
	eng.AssertExpectations(t)
}

func TestStabilize_DissolvesBeforeSimplify(t *testing.T) {
	eng := new(mockEngine)
	eng.On("Evaluate", mock.Anything, mock.MatchedBy(func(e *engine.Expression) bool {
		return e.Op == "geometry.simplify" && containsOp(e, "geometry.dissolve")
	})).Return(&engine.Result{Kind: engine.KindGeometry, Geometry: json.RawMessage(`{}`)}, nil)

	s := NewStabilizer(eng, 250)
	_, err := s.Stabilize(context.Background(), testRegion(t, "beta"))

	require.NoError(t, err)
	eng.AssertExpectations(t)
}

func TestStabilize_TooComplex(t *testing.T) {
	eng := new(mockEngine)
	eng.On("Evaluate", mock.Anything, mock.Anything).
		Return(nil, &engine.APIError{Status: 422, Code: engine.CodeGeometryTooComplex, Message: "too many vertices"})

	s := NewStabilizer(eng, 100)
	_, err := s.Stabilize(context.Background(), testRegion(t, "gamma"))

	var ge *GeometryError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "gamma", ge.Region)
	assert.Equal(t, "geometry", ErrorKind(err))
}

func TestStabilize_OtherEngineError(t *testing.T) {
	eng := new(mockEngine)
	eng.On("Evaluate", mock.Anything, mock.Anything).
		Return(nil, &engine.APIError{Status: 500, Message: "boom"})

	s := NewStabilizer(eng, 100)
	_, err := s.Stabilize(context.Background(), testRegion(t, "delta"))

	require.Error(t, err)
	var ge *GeometryError
	assert.False(t, errors.As(err, &ge))
	assert.Equal(t, "internal", ErrorKind(err))
}
