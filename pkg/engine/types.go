// Package engine provides a client for the remote raster-processing engine.
// Computations are described as a declarative expression graph and evaluated
// server-side; the client blocks on each evaluation result.
package engine

import "encoding/json"

// Expression is one node of the computation graph sent to the engine.
// Args values may be scalars, slices, GeoJSON geometries (json.RawMessage),
// or nested *Expression nodes.
type Expression struct {
	Op   string         `json:"op"`
	Args map[string]any `json:"args,omitempty"`
}

// ResultKind discriminates the payload of an evaluation result.
type ResultKind string

// Result kinds returned by the engine.
const (
	KindNumber     ResultKind = "number"
	KindDictionary ResultKind = "dictionary"
	KindFeatures   ResultKind = "features"
	KindGeometry   ResultKind = "geometry"
	KindClassifier ResultKind = "classifier"
	KindRaster     ResultKind = "raster"
)

// Feature is a point feature returned by engine sampling operations.
type Feature struct {
	Lon        float64            `json:"lon"`
	Lat        float64            `json:"lat"`
	Properties map[string]float64 `json:"properties,omitempty"`
}

// RasterRef points at a server-side raster produced by an evaluation.
type RasterRef struct {
	ID      string   `json:"id"`
	Bands   []string `json:"bands"`
	Scale   float64  `json:"scale,omitempty"`
	TileURL string   `json:"tile_url,omitempty"`
}

// ClassifierRef points at a server-side trained classifier.
type ClassifierRef struct {
	ID string `json:"id"`
}

// Result is the materialized outcome of evaluating an expression.
type Result struct {
	Kind       ResultKind         `json:"kind"`
	Number     float64            `json:"number,omitempty"`
	Dictionary map[string]float64 `json:"dictionary,omitempty"`
	Features   []Feature          `json:"features,omitempty"`
	Geometry   json.RawMessage    `json:"geometry,omitempty"`
	Classifier *ClassifierRef     `json:"classifier,omitempty"`
	Raster     *RasterRef         `json:"raster,omitempty"`
}

// Engine error codes surfaced in APIError.Code.
const (
	CodeGeometryTooComplex = "GEOMETRY_TOO_COMPLEX"
	CodeInvalidExpression  = "INVALID_EXPRESSION"
	CodeNotFound           = "NOT_FOUND"
)

// APIError is a structured error response from the engine.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return "engine: " + e.Code + ": " + e.Message
	}
	return "engine: " + e.Message
}
