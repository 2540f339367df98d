package model

import (
	"encoding/json"

	"github.com/twpayne/go-geom"
)

// Region is one geographic analysis unit. Regions are immutable once loaded
// and never interact with each other.
type Region struct {
	Name     string
	Boundary geom.T // polygon or multipolygon, lon/lat (EPSG:4326)
}

// StableGeometry is a region boundary after engine-side dissolve and
// fixed-tolerance simplification, held as GeoJSON ready for further
// engine calls. It is scoped to a single pipeline run.
type StableGeometry struct {
	Region  string
	GeoJSON json.RawMessage
}

// LabeledSample is one training point: a lon/lat location with a target
// class label harvested from the remapped reference raster.
type LabeledSample struct {
	Lon   float64 `json:"lon"`
	Lat   float64 `json:"lat"`
	Class int     `json:"class"`
}
