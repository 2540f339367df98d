package engine

import "encoding/json"

// LoadCollection references a multispectral image collection by id.
func LoadCollection(id string) *Expression {
	return &Expression{Op: "collection.load", Args: map[string]any{"id": id}}
}

// FilterDate restricts a collection to images within [start, end).
func FilterDate(col *Expression, start, end string) *Expression {
	return &Expression{Op: "collection.filter_date", Args: map[string]any{
		"collection": col,
		"start":      start,
		"end":        end,
	}}
}

// FilterBounds restricts a collection to images intersecting the geometry.
func FilterBounds(col *Expression, geometry json.RawMessage) *Expression {
	return &Expression{Op: "collection.filter_bounds", Args: map[string]any{
		"collection": col,
		"geometry":   geometry,
	}}
}

// MaskScene masks out pixels whose scene-classification band value is one of
// the given codes, in every image of the collection.
func MaskScene(col *Expression, sceneBand string, codes []int) *Expression {
	return &Expression{Op: "collection.mask_scene", Args: map[string]any{
		"collection": col,
		"band":       sceneBand,
		"codes":      codes,
	}}
}

// Size counts the images in a collection. Evaluates to a number.
func Size(col *Expression) *Expression {
	return &Expression{Op: "collection.size", Args: map[string]any{"collection": col}}
}

// Median reduces a collection to a per-pixel, per-band median image.
func Median(col *Expression) *Expression {
	return &Expression{Op: "collection.median", Args: map[string]any{"collection": col}}
}

// LoadImage references a single raster asset by id.
func LoadImage(id string) *Expression {
	return &Expression{Op: "image.load", Args: map[string]any{"id": id}}
}

// Clip restricts an image to the geometry.
func Clip(img *Expression, geometry json.RawMessage) *Expression {
	return &Expression{Op: "image.clip", Args: map[string]any{
		"image":    img,
		"geometry": geometry,
	}}
}

// Select restricts an image to the named bands, in order.
func Select(img *Expression, bands []string) *Expression {
	return &Expression{Op: "image.select", Args: map[string]any{
		"image": img,
		"bands": bands,
	}}
}

// NormalizedDifference computes (a-b)/(a+b) as a new single-band image.
func NormalizedDifference(img *Expression, bandA, bandB, name string) *Expression {
	return &Expression{Op: "image.normalized_difference", Args: map[string]any{
		"image": img,
		"bands": []string{bandA, bandB},
		"name":  name,
	}}
}

// AddBands appends the bands of each extra image to img.
func AddBands(img *Expression, extras ...*Expression) *Expression {
	return &Expression{Op: "image.add_bands", Args: map[string]any{
		"image":  img,
		"extras": extras,
	}}
}

// Remap translates band values through parallel from/to lookup slices and
// renames the band.
func Remap(img *Expression, band string, from, to []int, name string) *Expression {
	return &Expression{Op: "image.remap", Args: map[string]any{
		"image": img,
		"band":  band,
		"from":  from,
		"to":    to,
		"name":  name,
	}}
}

// Histogram tallies band values within the geometry at the given scale.
// Evaluates to a dictionary of value -> pixel count.
func Histogram(img *Expression, band string, geometry json.RawMessage, scale float64) *Expression {
	return &Expression{Op: "image.histogram", Args: map[string]any{
		"image":    img,
		"band":     band,
		"geometry": geometry,
		"scale":    scale,
	}}
}

// StratifiedSample draws up to count labeled points from a categorical band,
// stratified across its values, confined to the geometry. Evaluates to a
// feature collection whose properties carry the band value.
func StratifiedSample(img *Expression, band string, geometry json.RawMessage, count int, scale float64, seed int64) *Expression {
	return &Expression{Op: "image.stratified_sample", Args: map[string]any{
		"image":    img,
		"band":     band,
		"geometry": geometry,
		"count":    count,
		"scale":    scale,
		"seed":     seed,
	}}
}

// SampleRegions extracts img band values at each point (nearest pixel at the
// given scale), carrying through the points' properties.
func SampleRegions(img *Expression, points []Feature, scale float64) *Expression {
	return &Expression{Op: "image.sample_regions", Args: map[string]any{
		"image":  img,
		"points": points,
		"scale":  scale,
	}}
}

// RandomForest describes an untrained ensemble of decision trees.
func RandomForest(trees int, seed int64) *Expression {
	return &Expression{Op: "classifier.random_forest", Args: map[string]any{
		"trees": trees,
		"seed":  seed,
	}}
}

// Train fits a classifier on a feature collection. Evaluates to a
// classifier reference.
func Train(classifier, features *Expression, classProperty string, inputProperties []string) *Expression {
	return &Expression{Op: "classifier.train", Args: map[string]any{
		"classifier":       classifier,
		"features":         features,
		"class_property":   classProperty,
		"input_properties": inputProperties,
	}}
}

// Classify applies a trained classifier per pixel. The output image has a
// single "classification" band.
func Classify(img *Expression, classifierID string) *Expression {
	return &Expression{Op: "image.classify", Args: map[string]any{
		"image":      img,
		"classifier": classifierID,
	}}
}

// Visualize renders selected bands into an RGB raster. Evaluates to a
// raster reference.
func Visualize(img *Expression, bands []string, min, max float64, palette []string) *Expression {
	args := map[string]any{
		"image": img,
		"bands": bands,
		"min":   min,
		"max":   max,
	}
	if len(palette) > 0 {
		args["palette"] = palette
	}
	return &Expression{Op: "image.visualize", Args: args}
}

// Dissolve merges a multipart geometry into a unified polygon set.
func Dissolve(geometry json.RawMessage) *Expression {
	return &Expression{Op: "geometry.dissolve", Args: map[string]any{"geometry": geometry}}
}

// Simplify reduces geometry vertex count with a linear tolerance in meters.
func Simplify(g *Expression, toleranceMeters float64) *Expression {
	return &Expression{Op: "geometry.simplify", Args: map[string]any{
		"geometry":  g,
		"tolerance": toleranceMeters,
	}}
}
