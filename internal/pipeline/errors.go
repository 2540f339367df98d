package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// GeometryError means a region boundary still exceeds the engine's
// complexity limits after dissolve and simplification.
type GeometryError struct {
	Region string
	Err    error
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("geometry too complex for region %q: %v", e.Region, e.Err)
}

func (e *GeometryError) Unwrap() error { return e.Err }

// NoImageryError means zero source images (even unmasked) intersect the
// region and date window.
type NoImageryError struct {
	Region    string
	StartDate string
	EndDate   string
}

func (e *NoImageryError) Error() string {
	return fmt.Sprintf("no imagery for region %q in window %s..%s", e.Region, e.StartDate, e.EndDate)
}

// NoSamplesError means no training samples could be derived for the region.
type NoSamplesError struct {
	Region string
	Reason string
}

func (e *NoSamplesError) Error() string {
	return fmt.Sprintf("no training samples for region %q: %s", e.Region, e.Reason)
}

// UnmappedCategoryError means the reference raster contains category codes
// absent from the remap table. Unlisted codes are rejected rather than
// silently dropped or defaulted.
type UnmappedCategoryError struct {
	Region string
	Codes  []int
}

func (e *UnmappedCategoryError) Error() string {
	codes := make([]string, len(e.Codes))
	for i, c := range e.Codes {
		codes[i] = fmt.Sprintf("%d", c)
	}
	return fmt.Sprintf("region %q: reference codes not in remap table: %s", e.Region, strings.Join(codes, ", "))
}

// TrainingError means the training set is degenerate: a single class, or
// labels outside the target taxonomy.
type TrainingError struct {
	Region string
	Reason string
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("degenerate training set for region %q: %s", e.Region, e.Reason)
}

// BandMismatchError means inference was attempted with feature bands that
// differ from those used at training. This is a programming-contract
// violation, not a recoverable region failure.
type BandMismatchError struct {
	Want []string
	Got  []string
}

func (e *BandMismatchError) Error() string {
	return fmt.Sprintf("feature band mismatch: trained on [%s], applying [%s]",
		strings.Join(e.Want, " "), strings.Join(e.Got, " "))
}

// ErrorKind returns a stable identifier for the region-level error taxonomy,
// used in run records and logs. Unknown errors report "internal".
func ErrorKind(err error) string {
	var (
		ge *GeometryError
		ni *NoImageryError
		ns *NoSamplesError
		uc *UnmappedCategoryError
		te *TrainingError
		bm *BandMismatchError
	)
	switch {
	case errors.As(err, &ge):
		return "geometry"
	case errors.As(err, &ni):
		return "no_imagery"
	case errors.As(err, &ns):
		return "no_samples"
	case errors.As(err, &uc):
		return "unmapped_category"
	case errors.As(err, &te):
		return "training"
	case errors.As(err, &bm):
		return "band_mismatch"
	default:
		return "internal"
	}
}
